package commands

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/JoCoor/flatfinder-client/internal/core/doctor"
	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/core/styles"
	"github.com/JoCoor/flatfinder-client/internal/flatfinder"
)

type DoctorCmd struct {
	flags   *Flags
	app     *flatfinder.App
	format  string
	autofix bool
}

func NewDoctorCmd(flags *Flags, app *flatfinder.App) *DoctorCmd {
	return &DoctorCmd{flags: flags, app: app}
}

func (cmd *DoctorCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:        "doctor",
		Usage:       "Run health checks on your flatfinder setup",
		UsageText:   "flatfinder doctor [options]",
		Description: "Checks the configuration, the persisted session, the API and the push channel.",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "format",
				Usage:       "output format (text, json)",
				Value:       "text",
				Destination: &cmd.format,
			},
			&cli.BoolFlag{
				Name:        "autofix",
				Usage:       "automatically fix issues (e.g., clear an expired session)",
				Destination: &cmd.autofix,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *DoctorCmd) checks() []doctor.Check {
	cfg := cmd.app.Config
	rt := cfg.Realtime

	return []doctor.Check{
		doctor.NewConfigCheck(cfg, cmd.flags.ConfigPath),
		doctor.NewSessionCheck(cmd.app.Storage, cmd.autofix),
		doctor.NewAPICheck(cfg.API.BaseURL, &http.Client{Timeout: cfg.API.Timeout}),
		doctor.NewPushCheck(rt, &realtime.WebSocketTransport{
			URL:    rt.URL,
			Origin: rt.Origin,
			Delay:  rt.ReconnectDelay,
			Token:  cmd.app.Session.Token,
		}),
	}
}

func (cmd *DoctorCmd) run(ctx context.Context, c *cli.Command) error {
	results := doctor.RunAll(ctx, cmd.checks())
	passed, warned, failed := doctor.Summary(results)

	if cmd.format == "json" {
		err := writeJSON(c, doctorReport{
			Healthy: failed == 0,
			Summary: doctorSummary{Passed: passed, Warned: warned, Failed: failed},
			Checks:  results,
		})
		if err != nil {
			return err
		}
	} else {
		_, _ = fmt.Fprint(os.Stderr, cmd.render(results))
	}

	if failed > 0 {
		return cli.Exit("", 1)
	}
	return nil
}

type doctorReport struct {
	Healthy bool            `json:"healthy"`
	Summary doctorSummary   `json:"summary"`
	Checks  []doctor.Result `json:"checks"`
}

type doctorSummary struct {
	Passed int `json:"passed"`
	Warned int `json:"warned"`
	Failed int `json:"failed"`
}

func statusIcon(s doctor.Status) string {
	switch s {
	case doctor.StatusPass:
		return styles.TextSuccessStyle.Render("✔")
	case doctor.StatusWarn:
		return styles.TextWarningStyle.Render("●")
	default:
		return styles.TextErrorStyle.Render("✘")
	}
}

// render lays out the text report shown on stderr.
func (cmd *DoctorCmd) render(results []doctor.Result) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		_, _ = fmt.Fprintf(&b, format+"\n", args...)
	}

	line("")
	line("%s", styles.TextPrimaryBoldStyle.Render("Flatfinder Doctor"))
	line("%s", styles.TextMutedStyle.Render(strings.Repeat("─", 40)))

	for _, r := range results {
		line("")
		line("%s", styles.TextForegroundBoldStyle.Render(r.Name))
		for _, item := range r.Items {
			detail := ""
			if item.Detail != "" {
				detail = " " + styles.TextMutedStyle.Render(item.Detail)
			}
			line("  %s %s%s", statusIcon(item.Status), item.Label, detail)
		}
	}

	passed, warned, failed := doctor.Summary(results)
	line("")
	line("%s  %s  %s",
		styles.TextSuccessStyle.Render(fmt.Sprintf("%d passed", passed)),
		styles.TextWarningStyle.Render(fmt.Sprintf("%d warnings", warned)),
		styles.TextErrorStyle.Render(fmt.Sprintf("%d failed", failed)),
	)

	if fixable := doctor.CountFixable(results); fixable > 0 && !cmd.autofix {
		line("")
		line("%s", styles.TextMutedStyle.Render(
			fmt.Sprintf("%d issue(s) can be repaired with 'flatfinder doctor --autofix'", fixable)))
	}
	return b.String()
}
