package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/JoCoor/flatfinder-client/internal/core/styles"
	"github.com/JoCoor/flatfinder-client/internal/flatfinder"
	"github.com/JoCoor/flatfinder-client/internal/marketplace"
)

type MsgCmd struct {
	flags *Flags
	app   *flatfinder.App

	jsonOut bool
	all     bool
}

// NewMsgCmd creates the messaging commands.
func NewMsgCmd(flags *Flags, app *flatfinder.App) *MsgCmd {
	return &MsgCmd{flags: flags, app: app}
}

// Register adds the msg command to the application.
func (cmd *MsgCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:  "msg",
		Usage: "Talk to flat owners and interested tenants",
		Description: `Messages belong to the conversation of a flat. Owners see every message on
their flats in the inbox, senders see their own conversations.`,
		Commands: []*cli.Command{
			{
				Name:      "send",
				Usage:     "Send a message about a flat",
				UsageText: "flatfinder msg send <flat-id> <text...>",
				Action:    cmd.runSend,
			},
			{
				Name:      "inbox",
				Usage:     "Show messages received on your flats",
				UsageText: "flatfinder msg inbox [<flat-id>] [--all]",
				Flags: []cli.Flag{
					jsonFlag(&cmd.jsonOut),
					&cli.BoolFlag{Name: "all", Usage: "include read messages", Destination: &cmd.all},
				},
				Action: cmd.runInbox,
			},
			{
				Name:   "mine",
				Usage:  "Show messages you sent, grouped by flat",
				Flags:  []cli.Flag{jsonFlag(&cmd.jsonOut)},
				Action: cmd.runMine,
			},
			{
				Name:      "conversation",
				Aliases:   []string{"conv"},
				Usage:     "Show your conversation about a flat",
				UsageText: "flatfinder msg conversation <flat-id>",
				Flags:     []cli.Flag{jsonFlag(&cmd.jsonOut)},
				Action:    cmd.runConversation,
			},
			{
				Name:      "read",
				Usage:     "Mark conversations read and reset the unread counter",
				UsageText: "flatfinder msg read <flat-id>...",
				Action:    cmd.runRead,
			},
		},
	})
	return app
}

func (cmd *MsgCmd) runSend(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "flat-id")
	if err != nil {
		return err
	}
	text := strings.TrimSpace(strings.Join(c.Args().Tail(), " "))
	if text == "" {
		return fmt.Errorf("missing <text> argument")
	}
	if err := enter(cmd.app, "/flats/"+id); err != nil {
		return err
	}
	if _, _, ok := cmd.app.Session.Current(); !ok {
		return fmt.Errorf("sending messages requires a login, run 'flatfinder login' first")
	}

	if err := cmd.app.API.SendMessage(ctx, id, text); err != nil {
		return explain(err)
	}
	success("Message sent", id)
	return nil
}

func (cmd *MsgCmd) runInbox(ctx context.Context, c *cli.Command) error {
	if err := enter(cmd.app, "/inbox"); err != nil {
		return err
	}
	identity, _, _ := cmd.app.Session.Current()

	var flatIDs []string
	if id := c.Args().First(); id != "" {
		flatIDs = []string{id}
	} else {
		flats, err := cmd.app.API.Flats(ctx, marketplace.FlatFilter{})
		if err != nil {
			return explain(err)
		}
		for _, f := range flats {
			if f.Owner.ID == identity.ID {
				flatIDs = append(flatIDs, f.ID)
			}
		}
	}

	var msgs []marketplace.Message
	for _, id := range flatIDs {
		got, err := cmd.app.API.FlatMessages(ctx, id)
		if err != nil {
			return explain(err)
		}
		for _, m := range got {
			if cmd.all || !m.IsRead {
				msgs = append(msgs, m)
			}
		}
	}

	if cmd.jsonOut {
		if msgs == nil {
			msgs = []marketplace.Message{}
		}
		return writeJSON(c, msgs)
	}
	if len(msgs) == 0 {
		info("Inbox is empty")
		return nil
	}
	printGrouped(out(c), msgs, identity.ID)
	return nil
}

func (cmd *MsgCmd) runMine(ctx context.Context, c *cli.Command) error {
	if err := enter(cmd.app, "/inbox"); err != nil {
		return err
	}
	identity, _, _ := cmd.app.Session.Current()

	msgs, err := cmd.app.API.MyMessages(ctx)
	if err != nil {
		return explain(err)
	}
	if cmd.jsonOut {
		if msgs == nil {
			msgs = []marketplace.Message{}
		}
		return writeJSON(c, msgs)
	}
	if len(msgs) == 0 {
		info("You have not sent any messages")
		return nil
	}
	printGrouped(out(c), msgs, identity.ID)
	return nil
}

func (cmd *MsgCmd) runConversation(ctx context.Context, c *cli.Command) error {
	id, err := requireArg(c, "flat-id")
	if err != nil {
		return err
	}
	if err := enter(cmd.app, "/inbox"); err != nil {
		return err
	}
	identity, _, _ := cmd.app.Session.Current()

	msgs, err := cmd.app.API.Conversation(ctx, id)
	if err != nil {
		return explain(err)
	}
	if cmd.jsonOut {
		if msgs == nil {
			msgs = []marketplace.Message{}
		}
		return writeJSON(c, msgs)
	}
	if len(msgs) == 0 {
		info("No messages about this flat yet")
		return nil
	}
	printGrouped(out(c), msgs, identity.ID)
	return nil
}

func (cmd *MsgCmd) runRead(ctx context.Context, c *cli.Command) error {
	ids := c.Args().Slice()
	if len(ids) == 0 {
		return fmt.Errorf("missing <flat-id> argument")
	}
	if err := enter(cmd.app, "/inbox"); err != nil {
		return err
	}

	if err := cmd.app.MarkRead(ctx, ids...); err != nil {
		return explain(err)
	}
	success("Marked read", strings.Join(ids, ", "))
	return nil
}

// printGrouped prints messages per flat. Messages from self are labelled
// "you"; unread messages from others carry a marker.
func printGrouped(w io.Writer, msgs []marketplace.Message, selfID string) {
	order, groups := marketplace.GroupByFlat(msgs)
	for i, flatID := range order {
		if i > 0 {
			_, _ = fmt.Fprintln(w)
		}
		group := groups[flatID]
		title := group[0].Flat.Address()
		if title == "" {
			title = flatID
		}
		_, _ = fmt.Fprintln(w, styles.TextPrimaryBoldStyle.Render(styles.IconHome+" "+title))

		for _, m := range group {
			from := m.Sender.Name()
			if m.Sender.ID == selfID {
				from = "you"
			}
			marker := " "
			if !m.IsRead && m.Sender.ID != selfID {
				marker = styles.TextWarningStyle.Render("●")
			}
			_, _ = fmt.Fprintf(w, "  %s %s %s: %s\n",
				marker,
				styles.TextMutedStyle.Render(formatStamp(m.CreatedAt)),
				styles.TextForegroundBoldStyle.Render(from),
				m.Content,
			)
		}
	}
}

func formatStamp(s string) string {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return s
	}
	return t.Local().Format("2006-01-02 15:04")
}
