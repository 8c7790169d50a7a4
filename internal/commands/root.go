package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/JoCoor/flatfinder-client/internal/flatfinder"
)

const (
	rootUsage       = "Browse, publish and discuss rental flats from the terminal"
	rootDescription = `flatfinder is a client for the flat rental marketplace.

The session is stored in the data directory and restored on every run. While
logged in, a push channel counts new messages from other users; run
'flatfinder watch' to follow them live.

Run 'flatfinder login' to start.`
)

// NewRoot returns the root command with the global flags bound to flags.
// Hooks and subcommands are added by the caller.
func NewRoot(flags *Flags, version string) *cli.Command {
	return &cli.Command{
		Name:        "flatfinder",
		Usage:       rootUsage,
		UsageText:   "flatfinder [global options] command [command options]",
		Description: rootDescription,
		Version:     version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("FLATFINDER_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to <data-dir>/flatfinder.log)",
				Sources:     cli.EnvVars("FLATFINDER_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("FLATFINDER_CONFIG"),
				Value:       DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to data directory",
				Sources:     cli.EnvVars("FLATFINDER_DATA_DIR"),
				Value:       DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
	}
}

// RegisterAll adds every subcommand to root.
func RegisterAll(root *cli.Command, flags *Flags, app *flatfinder.App) *cli.Command {
	root = NewAuthCmd(flags, app).Register(root)
	root = NewProfileCmd(flags, app).Register(root)
	root = NewFlatsCmd(flags, app).Register(root)
	root = NewFavCmd(flags, app).Register(root)
	root = NewMsgCmd(flags, app).Register(root)
	root = NewAdminCmd(flags, app).Register(root)
	root = NewWatchCmd(flags, app).Register(root)
	root = NewDoctorCmd(flags, app).Register(root)
	return root
}
