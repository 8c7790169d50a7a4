package commands

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/JoCoor/flatfinder-client/internal/core/gateway"
	"github.com/JoCoor/flatfinder-client/internal/core/route"
	"github.com/JoCoor/flatfinder-client/internal/core/styles"
	"github.com/JoCoor/flatfinder-client/internal/flatfinder"
	"github.com/JoCoor/flatfinder-client/pkg/iojson"
)

var errSessionEnded = errors.New("session ended")

// enter runs the route guard for the view a command renders. Commands
// call it before touching the API so protected views fail fast.
func enter(app *flatfinder.App, path string) error {
	err := app.Visit(path)
	if err == nil {
		return nil
	}

	var denied *route.DeniedError
	if errors.As(err, &denied) {
		switch denied.Reason {
		case route.ReasonNotLoggedIn:
			return fmt.Errorf("%s requires a login, run 'flatfinder login' first", denied.Path)
		case route.ReasonNotAdmin:
			return fmt.Errorf("%s requires an administrator account", denied.Path)
		}
	}
	return err
}

// explain turns API errors into messages for the terminal.
func explain(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gateway.ErrUnauthorized) || errors.Is(err, errSessionEnded) {
		return errors.New("your session is no longer valid and has been cleared, run 'flatfinder login'")
	}

	var apiErr *gateway.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return fmt.Errorf("%s (HTTP %d)", apiErr.Message, apiErr.Status)
	}
	return err
}

func success(msg string, detail string) {
	line := styles.TextSuccessStyle.Render("✔") + " " + msg
	if detail != "" {
		line += " " + styles.TextMutedStyle.Render(detail)
	}
	_, _ = fmt.Fprintln(os.Stderr, line)
}

func info(msg string) {
	_, _ = fmt.Fprintln(os.Stderr, styles.TextMutedStyle.Render(msg))
}

func writeJSON(c *cli.Command, v any) error {
	return iojson.WriteWith(out(c), os.Stderr, v)
}

func out(c *cli.Command) io.Writer {
	if w := c.Root().Writer; w != nil {
		return w
	}
	return os.Stdout
}

func requireArg(c *cli.Command, name string) (string, error) {
	v := c.Args().First()
	if v == "" {
		return "", fmt.Errorf("missing <%s> argument", name)
	}
	return v, nil
}

func jsonFlag(dst *bool) *cli.BoolFlag {
	return &cli.BoolFlag{Name: "json", Usage: "output as JSON", Destination: dst}
}
