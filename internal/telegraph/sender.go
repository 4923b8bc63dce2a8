package telegraph

import (
	"context"
	"fmt"

	"github.com/zulandar/leadyard/internal/notify"
)

// ChatSender delivers operator notifications through a chat Adapter. The
// recipient is the target channel ID.
type ChatSender struct {
	adapter Adapter
}

// NewChatSender creates a ChatSender.
func NewChatSender(a Adapter) (*ChatSender, error) {
	if a == nil {
		return nil, fmt.Errorf("telegraph: chat sender: adapter is required")
	}
	return &ChatSender{adapter: a}, nil
}

// Send implements notify.Sender.
func (s *ChatSender) Send(ctx context.Context, channelID string, msg notify.Message) error {
	return s.adapter.Send(ctx, OutboundMessage{
		ChannelID: channelID,
		Events:    []FormattedEvent{FormatMessage(msg)},
	})
}
