package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/JoCoor/flatfinder-client/internal/core/logging"
	"github.com/JoCoor/flatfinder-client/internal/core/realtime"
	"github.com/JoCoor/flatfinder-client/internal/data/db"
	"github.com/JoCoor/flatfinder-client/internal/flatfinder"
	"github.com/JoCoor/flatfinder-client/internal/tui"
	"github.com/JoCoor/flatfinder-client/pkg/fswatch"
	"github.com/JoCoor/flatfinder-client/pkg/iojson"
	"github.com/JoCoor/flatfinder-client/pkg/profiler"
)

type WatchCmd struct {
	flags *Flags
	app   *flatfinder.App

	jsonOut bool
}

// NewWatchCmd creates a new watch command.
func NewWatchCmd(flags *Flags, app *flatfinder.App) *WatchCmd {
	return &WatchCmd{flags: flags, app: app}
}

// Register adds the watch command to the application.
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "watch",
		Usage: "Follow incoming messages live",
		Description: `Keeps the push channel open and shows the unread counter as messages
arrive on your conversations. Press r to mark the notified conversations read.
A login or logout from another terminal is picked up while watching.

With --json every notification, counter change and link change is printed as
one JSON object per line until interrupted or the session ends.`,
		Flags: []cli.Flag{
			jsonFlag(&cmd.jsonOut),
			&cli.IntFlag{
				Name:        "profiler-port",
				Usage:       "serve pprof on 127.0.0.1:<port> while watching (0 disables)",
				Sources:     cli.EnvVars("FLATFINDER_PROFILER_PORT"),
				Destination: &cmd.flags.ProfilerPort,
			},
		},
		Action: cmd.run,
	})
	return app
}

func (cmd *WatchCmd) run(ctx context.Context, c *cli.Command) error {
	if err := enter(cmd.app, "/inbox"); err != nil {
		return err
	}
	identity, _, _ := cmd.app.Session.Current()

	if cmd.flags.ProfilerPort > 0 {
		profServer := profiler.New(cmd.flags.ProfilerPort, logging.Component("profiler"))
		if err := profServer.Start(ctx); err != nil {
			return fmt.Errorf("failed to start profiler: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := profServer.Shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("failed to shutdown profiler server")
			}
		}()
		log.Info().
			Str("url", fmt.Sprintf("http://%s/debug/pprof/", profServer.Addr())).
			Msg("profiler endpoint available")
	}

	feed := tui.NewFeed()
	feed.Attach(cmd.app.Bus)

	ctx, stop := context.WithCancel(ctx)
	defer stop()
	cmd.followSession(ctx)

	connected := false
	if ch := cmd.app.Presence.Channel(); ch != nil {
		connected = ch.State() == realtime.StateSubscribed
	}

	if cmd.jsonOut {
		return cmd.stream(ctx, c, feed)
	}

	m := tui.New(tui.Deps{
		Context:   ctx,
		Identity:  identity,
		Unread:    cmd.app.Unread.Count(),
		Connected: connected,
		Feed:      feed,
		MarkRead:  cmd.app.MarkRead,
	})

	p := tea.NewProgram(m, tea.WithContext(ctx))
	finalModel, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	if err != nil {
		return fmt.Errorf("run watch view: %w", err)
	}

	if final, ok := finalModel.(tui.Model); ok && final.Ended() {
		return explain(errSessionEnded)
	}
	return nil
}

// stream prints feed entries as JSON lines.
func (cmd *WatchCmd) stream(ctx context.Context, c *cli.Command, feed *tui.Feed) error {
	w := out(c)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-feed.Signal():
		}

		for _, e := range feed.Drain() {
			if err := iojson.WriteLine(w, e); err != nil {
				return err
			}
			if e.Kind == tui.KindEnded {
				return explain(errSessionEnded)
			}
		}
	}
}

// followSession re-reads the persisted session whenever the session
// database changes on disk.
func (cmd *WatchCmd) followSession(ctx context.Context) {
	isSessionDB := func(name string) bool { return strings.HasPrefix(name, db.FileName) }

	w, err := fswatch.New(cmd.app.Config.DataDir, isSessionDB, fswatch.DefaultQuiet, logging.Component("fswatch"))
	if err != nil {
		log.Warn().Err(err).Msg("not following session changes from other processes")
		return
	}
	go w.Run(ctx, func() { cmd.app.Session.Sync(ctx) })
}
