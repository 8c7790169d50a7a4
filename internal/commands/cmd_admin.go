package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli/v3"

	"github.com/JoCoor/flatfinder-client/internal/flatfinder"
	"github.com/JoCoor/flatfinder-client/internal/marketplace"
)

type AdminCmd struct {
	flags *Flags
	app   *flatfinder.App

	jsonOut bool
	update  marketplace.UserUpdate
	admin   bool
}

// NewAdminCmd creates the administration commands.
func NewAdminCmd(flags *Flags, app *flatfinder.App) *AdminCmd {
	return &AdminCmd{flags: flags, app: app}
}

// Register adds the admin command to the application.
func (cmd *AdminCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "admin",
		Usage: "Administer users and flats (administrators only)",
		Commands: []*cli.Command{
			{
				Name:  "users",
				Usage: "Manage user accounts",
				Commands: []*cli.Command{
					{
						Name:   "ls",
						Usage:  "List all users",
						Flags:  []cli.Flag{jsonFlag(&cmd.jsonOut)},
						Action: cmd.runUsers,
					},
					{
						Name:      "edit",
						Usage:     "Edit a user",
						UsageText: "flatfinder admin users edit <user-id> [--first-name <name>] [--last-name <name>] [--email <email>] [--admin=true|false]",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "first-name", Destination: &cmd.update.FirstName},
							&cli.StringFlag{Name: "last-name", Destination: &cmd.update.LastName},
							&cli.StringFlag{Name: "birth-date", Destination: &cmd.update.BirthDate},
							&cli.StringFlag{Name: "email", Destination: &cmd.update.Email},
							&cli.StringFlag{Name: "password", Destination: &cmd.update.Password},
							&cli.BoolFlag{Name: "admin", Usage: "grant or revoke administrator rights", Destination: &cmd.admin},
						},
						Action: cmd.runEditUser,
					},
					{
						Name:      "rm",
						Usage:     "Delete a user and their flats",
						UsageText: "flatfinder admin users rm <user-id>",
						Action:    cmd.runRemoveUser,
					},
				},
			},
			{
				Name:  "flats",
				Usage: "Moderate flats",
				Commands: []*cli.Command{
					{
						Name:      "rm",
						Usage:     "Delete any flat",
						UsageText: "flatfinder admin flats rm <flat-id>",
						Action:    cmd.runRemoveFlat,
					},
				},
			},
		},
	})
	return app
}

func (cmd *AdminCmd) runUsers(ctx context.Context, c *cli.Command) error {
	if err := enter(cmd.app, "/admin/users"); err != nil {
		return err
	}

	users, err := cmd.app.API.Users(ctx)
	if err != nil {
		return explain(err)
	}
	if cmd.jsonOut {
		if users == nil {
			users = []marketplace.User{}
		}
		return writeJSON(c, users)
	}

	tw := tabwriter.NewWriter(out(c), 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tEMAIL\tNAME\tBIRTH DATE\tADMIN")
	for _, u := range users {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			u.ID, u.Email, u.Identity().DisplayName(), u.BirthDate, yesNo(u.IsAdmin))
	}
	return tw.Flush()
}

func (cmd *AdminCmd) runEditUser(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "user-id")
	if err != nil {
		return err
	}
	if err := enter(cmd.app, "/admin/users"); err != nil {
		return err
	}

	up := cmd.update
	if c.IsSet("admin") {
		admin := cmd.admin
		up.IsAdmin = &admin
	}
	if up == (marketplace.UserUpdate{}) {
		return fmt.Errorf("nothing to update, pass at least one field flag")
	}
	if err := optionalDate(up.BirthDate); err != nil {
		return fmt.Errorf("--birth-date: %w", err)
	}

	user, err := cmd.app.API.UpdateUser(ctx, id, up)
	if err != nil {
		return explain(err)
	}
	success("User updated", user.Email)
	return nil
}

func (cmd *AdminCmd) runRemoveUser(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "user-id")
	if err != nil {
		return err
	}
	if err := enter(cmd.app, "/admin/users"); err != nil {
		return err
	}
	if self, _, _ := cmd.app.Session.Current(); self.ID == id {
		return fmt.Errorf("refusing to delete the logged-in administrator")
	}

	if err := cmd.app.API.DeleteUser(ctx, id); err != nil {
		return explain(err)
	}
	success("User deleted", id)
	return nil
}

func (cmd *AdminCmd) runRemoveFlat(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "flat-id")
	if err != nil {
		return err
	}
	if err := enter(cmd.app, "/admin/flats"); err != nil {
		return err
	}

	if err := cmd.app.API.DeleteFlat(ctx, id); err != nil {
		return explain(err)
	}
	success("Flat deleted", id)
	return nil
}
