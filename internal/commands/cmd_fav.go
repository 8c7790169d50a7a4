package commands

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/JoCoor/flatfinder-client/internal/flatfinder"
	"github.com/JoCoor/flatfinder-client/internal/marketplace"
)

type FavCmd struct {
	flags *Flags
	app   *flatfinder.App

	jsonOut bool
}

// NewFavCmd creates a new favorites command.
func NewFavCmd(flags *Flags, app *flatfinder.App) *FavCmd {
	return &FavCmd{flags: flags, app: app}
}

// Register adds the fav command to the application.
func (cmd *FavCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "fav",
		Usage: "Manage favorite flats",
		Commands: []*cli.Command{
			{
				Name:   "ls",
				Usage:  "List your favorite flats",
				Flags:  []cli.Flag{jsonFlag(&cmd.jsonOut)},
				Action: cmd.runList,
			},
			{
				Name:      "toggle",
				Usage:     "Add a flat to your favorites, or remove it",
				UsageText: "flatfinder fav toggle <flat-id>",
				Action:    cmd.runToggle,
			},
		},
	})
	return app
}

func (cmd *FavCmd) runList(ctx context.Context, c *cli.Command) error {
	if err := enter(cmd.app, "/favorites"); err != nil {
		return err
	}

	flats, err := cmd.app.API.Favorites(ctx)
	if err != nil {
		return explain(err)
	}
	if cmd.jsonOut {
		if flats == nil {
			flats = []marketplace.Flat{}
		}
		return writeJSON(c, flats)
	}
	if len(flats) == 0 {
		info("No favorites yet, add one with 'flatfinder fav toggle <flat-id>'")
		return nil
	}
	printFlats(out(c), flats)
	return nil
}

func (cmd *FavCmd) runToggle(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "flat-id")
	if err != nil {
		return err
	}
	if err := enter(cmd.app, "/favorites"); err != nil {
		return err
	}

	if err := cmd.app.API.ToggleFavorite(ctx, id); err != nil {
		return explain(err)
	}

	favs, err := cmd.app.API.Favorites(ctx)
	if err != nil {
		return explain(err)
	}
	for _, f := range favs {
		if f.ID == id {
			success("Added to favorites", f.Address())
			return nil
		}
	}
	success("Removed from favorites", id)
	return nil
}
