package telegraph

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/leadyard/internal/intake"
)

// notAuthorized is the reply to operator commands from non-admins.
const notAuthorized = "⛔ You are not allowed to run operator commands."

// IntakeHandler runs the lead intake conversation.
type IntakeHandler interface {
	Handle(ctx context.Context, id intake.Identity, ev intake.Event) (intake.Reply, error)
}

// Router classifies inbound chat messages and routes them to the
// appropriate handler: the command handler for admin "!" commands, the
// intake machine for direct messages, or ignore.
type Router struct {
	intake     IntakeHandler
	cmdHandler *CommandHandler
	adapter    Adapter
	botUserID  string // the bot's own user ID (to filter self-messages)
	isAdmin    func(identity string) bool
	log        *logrus.Logger
}

// RouterOpts holds parameters for creating a Router.
type RouterOpts struct {
	Intake     IntakeHandler
	CmdHandler *CommandHandler
	Adapter    Adapter
	BotUserID  string                     // bot's user ID for self-message filtering
	IsAdmin    func(identity string) bool // defaults to denying everyone
	Log        *logrus.Logger
}

// NewRouter creates a Router.
func NewRouter(opts RouterOpts) (*Router, error) {
	if opts.Intake == nil {
		return nil, fmt.Errorf("telegraph: router: intake handler is required")
	}
	if opts.CmdHandler == nil {
		return nil, fmt.Errorf("telegraph: router: command handler is required")
	}
	if opts.Adapter == nil {
		return nil, fmt.Errorf("telegraph: router: adapter is required")
	}
	if opts.IsAdmin == nil {
		opts.IsAdmin = func(string) bool { return false }
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &Router{
		intake:     opts.Intake,
		cmdHandler: opts.CmdHandler,
		adapter:    opts.Adapter,
		botUserID:  opts.BotUserID,
		isAdmin:    opts.IsAdmin,
		log:        opts.Log,
	}, nil
}

// Handle classifies and routes a single inbound message. Routing paths:
//  1. Bot self-message → ignore
//  2. Known "!" command → admin check, then command handler
//  3. Direct message → intake machine
//  4. Everything else → ignore
func (r *Router) Handle(ctx context.Context, msg InboundMessage) {
	// 1. Filter bot self-messages.
	if r.isSelfMessage(msg) {
		return
	}

	text := strings.TrimSpace(msg.Text)
	log := r.log.WithFields(logrus.Fields{
		"channel":  msg.ChannelID,
		"identity": msg.Identity(),
		"direct":   msg.Direct,
	})
	log.WithField("text", truncate(text, 80)).Debug("telegraph: router: recv")

	// 2. Operator command.
	if isCommand(text) {
		if !r.isAdmin(msg.Identity()) {
			log.Warn("telegraph: router: command from non-admin rejected")
			r.reply(ctx, msg, OutboundMessage{Text: notAuthorized})
			return
		}
		log.Debug("telegraph: router: → command")
		r.reply(ctx, msg, OutboundMessage{Text: r.cmdHandler.Execute(ctx, text)})
		return
	}

	// 3. Direct conversation with the bot.
	if msg.Direct {
		r.handleIntake(ctx, msg, text, log)
		return
	}

	// 4. Channel chatter.
	log.Debug("telegraph: router: → ignore")
}

func (r *Router) handleIntake(ctx context.Context, msg InboundMessage, text string, log *logrus.Entry) {
	id := intake.Identity{ID: msg.Identity(), Handle: msg.UserName}
	reply, err := r.intake.Handle(ctx, id, intake.ParseEvent(text))
	switch {
	case err == nil:
	case intake.IsValidation(err):
		log.WithError(err).Debug("telegraph: router: intake rejected input")
	default:
		log.WithError(err).Error("telegraph: router: intake failed")
	}
	if reply.Text == "" {
		return
	}
	r.reply(ctx, msg, OutboundMessage{Text: reply.Text, Options: reply.Options})
}

// reply sends out back to where msg came from.
func (r *Router) reply(ctx context.Context, msg InboundMessage, out OutboundMessage) {
	out.ChannelID = msg.ChannelID
	out.ThreadID = msg.ThreadID
	if err := r.adapter.Send(ctx, out); err != nil {
		r.log.WithError(err).WithField("channel", msg.ChannelID).Error("telegraph: router: send reply")
	}
}

// truncate returns s truncated to maxLen runes with "..." appended if needed.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen]) + "..."
}

// isSelfMessage returns true if the message is from the bot itself.
func (r *Router) isSelfMessage(msg InboundMessage) bool {
	return r.botUserID != "" && msg.UserID == r.botUserID
}
