package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/JoCoor/flatfinder-client/internal/flatfinder"
	"github.com/JoCoor/flatfinder-client/internal/marketplace"
)

type ProfileCmd struct {
	flags *Flags
	app   *flatfinder.App

	firstName string
	lastName  string
	birthDate string
	password  string
}

// NewProfileCmd creates a new profile command.
func NewProfileCmd(flags *Flags, app *flatfinder.App) *ProfileCmd {
	return &ProfileCmd{flags: flags, app: app}
}

// Register adds the profile command to the application.
func (cmd *ProfileCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "profile",
		Usage: "Manage your account",
		Commands: []*cli.Command{
			{
				Name:      "update",
				Usage:     "Edit your name, birth date or password",
				UsageText: "flatfinder profile update [--first-name <name>] [--last-name <name>] [--birth-date <date>] [--password <password>]",
				Description: `Updates the logged-in user's profile. Only the given fields change.
The email address and administrator flag cannot be edited here.`,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "first-name", Usage: "new first name", Destination: &cmd.firstName},
					&cli.StringFlag{Name: "last-name", Usage: "new last name", Destination: &cmd.lastName},
					&cli.StringFlag{Name: "birth-date", Usage: "new birth date (YYYY-MM-DD)", Destination: &cmd.birthDate},
					&cli.StringFlag{Name: "password", Usage: "new password", Destination: &cmd.password},
				},
				Action: cmd.runUpdate,
			},
		},
	})
	return app
}

func (cmd *ProfileCmd) runUpdate(ctx context.Context, _ *cli.Command) error {
	if err := enter(cmd.app, "/profile"); err != nil {
		return err
	}

	up := marketplace.UserUpdate{
		FirstName: cmd.firstName,
		LastName:  cmd.lastName,
		BirthDate: cmd.birthDate,
		Password:  cmd.password,
	}
	if up == (marketplace.UserUpdate{}) {
		return fmt.Errorf("nothing to update, pass at least one field flag")
	}
	if err := optionalDate(up.BirthDate); err != nil {
		return fmt.Errorf("--birth-date: %w", err)
	}

	identity, err := cmd.app.UpdateProfile(ctx, up)
	if err != nil {
		return explain(err)
	}

	success("Profile updated", identity.DisplayName())
	return nil
}
