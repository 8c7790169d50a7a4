package marketplace

import (
	"context"
	"fmt"
	"net/http"

	"github.com/JoCoor/flatfinder-client/internal/core/gateway"
)

// SendMessage posts content to a flat's conversation.
func (c *Client) SendMessage(ctx context.Context, flatID, content string) error {
	p, err := pathID(flatID)
	if err != nil {
		return fmt.Errorf("send message: %w", err)
	}
	if content == "" {
		return fmt.Errorf("send message: content is required")
	}
	err = c.api.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/flats/" + p + "/messages",
		Body:   map[string]string{"content": content},
	}, nil)
	if err != nil {
		return fmt.Errorf("send message to %s: %w", flatID, err)
	}
	return nil
}

// FlatMessages lists every message on a flat. Owners only.
func (c *Client) FlatMessages(ctx context.Context, flatID string) ([]Message, error) {
	p, err := pathID(flatID)
	if err != nil {
		return nil, fmt.Errorf("flat messages: %w", err)
	}
	var msgs []Message
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/flats/" + p + "/messages"}, &msgs); err != nil {
		return nil, fmt.Errorf("flat messages %s: %w", flatID, err)
	}
	return msgs, nil
}

// Conversation lists the current user's conversation on a flat.
func (c *Client) Conversation(ctx context.Context, flatID string) ([]Message, error) {
	p, err := pathID(flatID)
	if err != nil {
		return nil, fmt.Errorf("conversation: %w", err)
	}
	var msgs []Message
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/users/" + p + "/conversation"}, &msgs); err != nil {
		return nil, fmt.Errorf("conversation %s: %w", flatID, err)
	}
	return msgs, nil
}

// MyMessages lists every message the current user sent, with flats
// populated.
func (c *Client) MyMessages(ctx context.Context) ([]Message, error) {
	var msgs []Message
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/users/messages"}, &msgs); err != nil {
		return nil, fmt.Errorf("my messages: %w", err)
	}
	return msgs, nil
}

// MarkRead marks every message on a flat's conversation as read for the
// current user.
func (c *Client) MarkRead(ctx context.Context, flatID string) error {
	p, err := pathID(flatID)
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	if err := c.api.Do(ctx, gateway.Request{Method: http.MethodPatch, Path: "/flats/" + p + "/messages/read"}, nil); err != nil {
		return fmt.Errorf("mark read %s: %w", flatID, err)
	}
	return nil
}

// GroupByFlat groups messages by flat id, keeping the first-seen order of
// flats and the original order within each group.
func GroupByFlat(msgs []Message) (order []string, groups map[string][]Message) {
	groups = make(map[string][]Message)
	for _, m := range msgs {
		id := m.Flat.ID
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], m)
	}
	return order, groups
}
