package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/glamour"
	"github.com/urfave/cli/v3"

	"github.com/JoCoor/flatfinder-client/internal/core/styles"
	"github.com/JoCoor/flatfinder-client/internal/flatfinder"
	"github.com/JoCoor/flatfinder-client/internal/marketplace"
	"github.com/JoCoor/flatfinder-client/pkg/iojson"
)

type FlatsCmd struct {
	flags *Flags
	app   *flatfinder.App

	filter  marketplace.FlatFilter
	input   marketplace.FlatInput
	reader  iojson.FileReader[marketplace.FlatInput]
	jsonOut bool
	width   int
}

// NewFlatsCmd creates the flat listing and management commands.
func NewFlatsCmd(flags *Flags, app *flatfinder.App) *FlatsCmd {
	return &FlatsCmd{flags: flags, app: app}
}

// Register adds the flat commands to the application.
func (cmd *FlatsCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands,
		&cli.Command{
			Name:      "ls",
			Usage:     "List flats",
			UsageText: "flatfinder ls [--city <city>] [--min-area <m2>] [--max-price <eur>] [--ac] [--min-year <year>]",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "city", Usage: "only flats in this city", Destination: &cmd.filter.City},
				&cli.Float64Flag{Name: "min-area", Usage: "minimum area in square meters", Destination: &cmd.filter.MinArea},
				&cli.Float64Flag{Name: "max-price", Usage: "maximum monthly rent", Destination: &cmd.filter.MaxPrice},
				&cli.BoolFlag{Name: "ac", Usage: "only flats with air conditioning", Destination: &cmd.filter.HasAC},
				&cli.IntFlag{Name: "min-year", Usage: "built in or after this year", Destination: &cmd.filter.MinYear},
				jsonFlag(&cmd.jsonOut),
			},
			Action: cmd.runList,
		},
		&cli.Command{
			Name:      "show",
			Usage:     "Show one flat",
			UsageText: "flatfinder show <flat-id>",
			Flags: []cli.Flag{
				jsonFlag(&cmd.jsonOut),
				&cli.IntFlag{Name: "width", Value: 80, Usage: "wrap width", Destination: &cmd.width},
			},
			Action: cmd.runShow,
		},
		&cli.Command{
			Name:      "add",
			Usage:     "Publish a flat",
			UsageText: "flatfinder add [-f flat.json] | flatfinder add --city <city> --street <name> ...",
			Description: `Publishes a flat owned by the logged-in user. The flat is read from a JSON
file (or piped stdin) when no field flags are given:

  {"city":"Graz","streetName":"Annenstrasse","streetNumber":"12","areaSize":54,
   "hasAc":false,"yearBuilt":1998,"rentPrice":790,"dateAvailable":"2026-11-01"}`,
			Flags:  append(cmd.inputFlags(), cmd.reader.Flag(), jsonFlag(&cmd.jsonOut)),
			Action: cmd.runAdd,
		},
		&cli.Command{
			Name:      "edit",
			Usage:     "Replace the details of one of your flats",
			UsageText: "flatfinder edit <flat-id> [-f flat.json]",
			Flags:     append(cmd.inputFlags(), cmd.reader.Flag(), jsonFlag(&cmd.jsonOut)),
			Action:    cmd.runEdit,
		},
		&cli.Command{
			Name:      "rm",
			Usage:     "Delete one of your flats",
			UsageText: "flatfinder rm <flat-id>",
			Action:    cmd.runRemove,
		},
	)
	return app
}

func (cmd *FlatsCmd) inputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "city", Destination: &cmd.input.City},
		&cli.StringFlag{Name: "street", Usage: "street name", Destination: &cmd.input.StreetName},
		&cli.StringFlag{Name: "number", Usage: "street number", Destination: &cmd.input.StreetNumber},
		&cli.Float64Flag{Name: "area", Usage: "area in square meters", Destination: &cmd.input.AreaSize},
		&cli.BoolFlag{Name: "ac", Usage: "has air conditioning", Destination: &cmd.input.HasAC},
		&cli.IntFlag{Name: "year", Usage: "year built", Destination: &cmd.input.YearBuilt},
		&cli.Float64Flag{Name: "rent", Usage: "monthly rent", Destination: &cmd.input.RentPrice},
		&cli.StringFlag{Name: "available", Usage: "date available (YYYY-MM-DD)", Destination: &cmd.input.DateAvailable},
	}
}

func (cmd *FlatsCmd) runList(ctx context.Context, c *cli.Command) error {
	if err := enter(cmd.app, "/flats"); err != nil {
		return err
	}

	flats, err := cmd.app.API.Flats(ctx, cmd.filter)
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
		info("No flats match")
		return nil
	}
	printFlats(out(c), flats)
	return nil
}

func (cmd *FlatsCmd) runShow(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "flat-id")
	if err != nil {
		return err
	}
	if err := enter(cmd.app, "/flats/"+id); err != nil {
		return err
	}

	flat, err := cmd.app.API.Flat(ctx, id)
	if err != nil {
		return explain(err)
	}
	if cmd.jsonOut {
		return writeJSON(c, flat)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStyles(styles.GlamourStyle()),
		glamour.WithWordWrap(cmd.width),
	)
	if err != nil {
		return fmt.Errorf("create renderer: %w", err)
	}
	rendered, err := renderer.Render(flatMarkdown(flat))
	if err != nil {
		return fmt.Errorf("render flat: %w", err)
	}
	_, _ = fmt.Fprint(out(c), rendered)
	return nil
}

func (cmd *FlatsCmd) runAdd(ctx context.Context, c *cli.Command) error {
	if err := enter(cmd.app, "/add-flat"); err != nil {
		return err
	}

	in, err := cmd.readInput(c)
	if err != nil {
		return err
	}

	flat, err := cmd.app.API.CreateFlat(ctx, in)
	if err != nil {
		return explain(err)
	}
	if cmd.jsonOut {
		return writeJSON(c, flat)
	}
	success("Flat published", flat.ID)
	return nil
}

func (cmd *FlatsCmd) runEdit(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "flat-id")
	if err != nil {
		return err
	}
	if err := enter(cmd.app, "/flats/"+id+"/edit"); err != nil {
		return err
	}

	in, err := cmd.readInput(c)
	if err != nil {
		return err
	}

	flat, err := cmd.app.API.UpdateFlat(ctx, id, in)
	if err != nil {
		return explain(err)
	}
	if cmd.jsonOut {
		return writeJSON(c, flat)
	}
	success("Flat updated", flat.Address())
	return nil
}

func (cmd *FlatsCmd) runRemove(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "flat-id")
	if err != nil {
		return err
	}
	if err := enter(cmd.app, "/flats/"+id+"/edit"); err != nil {
		return err
	}

	if err := cmd.app.API.DeleteFlat(ctx, id); err != nil {
		return explain(err)
	}
	success("Flat deleted", id)
	return nil
}

// readInput takes the flat from the field flags when any is set, otherwise
// from the JSON reader.
func (cmd *FlatsCmd) readInput(c *cli.Command) (marketplace.FlatInput, error) {
	fromFlags := false
	for _, name := range []string{"city", "street", "number", "area", "ac", "year", "rent", "available"} {
		if c.IsSet(name) {
			fromFlags = true
			break
		}
	}

	in := cmd.input
	if !fromFlags {
		var err error
		if in, err = cmd.reader.Read(); err != nil {
			return marketplace.FlatInput{}, err
		}
	}

	if strings.TrimSpace(in.City) == "" || strings.TrimSpace(in.StreetName) == "" {
		return marketplace.FlatInput{}, fmt.Errorf("city and street name are required")
	}
	if in.RentPrice <= 0 {
		return marketplace.FlatInput{}, fmt.Errorf("rent price must be positive")
	}
	if err := optionalDate(in.DateAvailable); err != nil {
		return marketplace.FlatInput{}, fmt.Errorf("date available: %w", err)
	}
	return in, nil
}

func printFlats(w io.Writer, flats []marketplace.Flat) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tADDRESS\tAREA\tRENT\tAC\tBUILT\tAVAILABLE\tOWNER")
	for _, f := range flats {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%s\t%d\t%s\t%s\n",
			f.ID, f.Address(), f.AreaSize, f.RentPrice, yesNo(f.HasAC), f.YearBuilt, f.DateAvailable, f.Owner.Name())
	}
	_ = tw.Flush()
}

func flatMarkdown(f marketplace.Flat) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", f.Address())
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	fmt.Fprintf(&b, "| Rent | %g |\n", f.RentPrice)
	fmt.Fprintf(&b, "| Area | %g m² |\n", f.AreaSize)
	fmt.Fprintf(&b, "| Air conditioning | %s |\n", yesNo(f.HasAC))
	if f.YearBuilt > 0 {
		fmt.Fprintf(&b, "| Built | %d |\n", f.YearBuilt)
	}
	if f.DateAvailable != "" {
		fmt.Fprintf(&b, "| Available | %s |\n", f.DateAvailable)
	}
	fmt.Fprintf(&b, "\nListed by **%s**", f.Owner.Name())
	if f.Owner.Email != "" {
		fmt.Fprintf(&b, " (%s)", f.Owner.Email)
	}
	fmt.Fprintf(&b, "\n\n`%s`\n", f.ID)
	return b.String()
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
