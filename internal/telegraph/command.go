package telegraph

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/zulandar/leadyard/internal/events"
	"github.com/zulandar/leadyard/internal/lead"
	"github.com/zulandar/leadyard/internal/locale"
	"github.com/zulandar/leadyard/internal/notify"
)

// commandPrefix marks operator commands, e.g. "!leads 5".
const commandPrefix = "!"

// Listing bounds for "!leads".
const (
	defaultListLimit = 10
	maxListLimit     = 50
)

// knownCommands is the set of top-level commands the CommandHandler supports.
var knownCommands = map[string]bool{
	"leads":     true,
	"lead":      true,
	"stats":     true,
	"contacted": true,
	"archive":   true,
	"help":      true,
}

// CommandHandler processes operator "!" commands from chat. Callers are
// responsible for checking that the sender is an admin.
type CommandHandler struct {
	store  lead.Store
	events events.Publisher
	lang   string
	loc    *time.Location
	log    *logrus.Logger
}

// CommandHandlerOpts holds parameters for creating a CommandHandler.
type CommandHandlerOpts struct {
	Store    lead.Store
	Events   events.Publisher
	Language string         // reply language; defaults to "en"
	Location *time.Location // for timestamps; defaults to UTC
	Log      *logrus.Logger
}

// NewCommandHandler creates a CommandHandler.
func NewCommandHandler(opts CommandHandlerOpts) (*CommandHandler, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("telegraph: command handler: store is required")
	}
	if opts.Events == nil {
		opts.Events = events.NopPublisher{}
	}
	if opts.Language == "" {
		opts.Language = locale.English
	}
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	return &CommandHandler{
		store:  opts.Store,
		events: opts.Events,
		lang:   opts.Language,
		loc:    opts.Location,
		log:    opts.Log,
	}, nil
}

// Execute parses and executes a "!" command string. Returns the response
// text to send back to the chat channel.
func (ch *CommandHandler) Execute(ctx context.Context, text string) string {
	args := parseCommand(text)
	if len(args) == 0 {
		return ch.helpText()
	}

	switch args[0] {
	case "leads":
		return ch.cmdLeads(ctx, args[1:])
	case "lead":
		return ch.withID(args[1:], "!lead <id>", func(id uint) string { return ch.cmdLead(ctx, id) })
	case "stats":
		return ch.cmdStats(ctx)
	case "contacted":
		return ch.withID(args[1:], "!contacted <id>", func(id uint) string { return ch.cmdContacted(ctx, id) })
	case "archive":
		return ch.withID(args[1:], "!archive <id>", func(id uint) string { return ch.cmdArchive(ctx, id) })
	case "help":
		return ch.helpText()
	default:
		return fmt.Sprintf("Unknown command: `%s`\n\n%s", args[0], ch.helpText())
	}
}

// parseCommand strips the "!" prefix and splits the remaining text.
func parseCommand(text string) []string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, commandPrefix)
	fields := strings.Fields(text)
	if len(fields) > 0 {
		fields[0] = strings.ToLower(fields[0])
	}
	return fields
}

// isCommand returns true if text starts with the prefix followed by a
// known command word.
func isCommand(text string) bool {
	if !strings.HasPrefix(text, commandPrefix) {
		return false
	}
	args := parseCommand(text)
	return len(args) > 0 && knownCommands[args[0]]
}

// withID parses the single lead id argument and runs fn with it.
func (ch *CommandHandler) withID(args []string, usage string, fn func(uint) string) string {
	if len(args) != 1 {
		return fmt.Sprintf("Usage: `%s`", usage)
	}
	id, err := parseID(args[0])
	if err != nil {
		return fmt.Sprintf("Invalid lead id %q\nUsage: `%s`", args[0], usage)
	}
	return fn(id)
}

// parseID accepts "12" or "#12".
func parseID(s string) (uint, error) {
	n, err := strconv.ParseUint(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || n == 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return uint(n), nil
}

func (ch *CommandHandler) cmdLeads(ctx context.Context, args []string) string {
	limit := defaultListLimit
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n <= 0 {
			return "Usage: `!leads [n]`"
		}
		limit = min(n, maxListLimit)
	}
	leads, err := ch.store.ListActive(ctx, limit, true)
	if err != nil {
		return ch.failure("list leads", err)
	}
	return formatLeadList(leads, ch.lang, ch.loc)
}

func (ch *CommandHandler) cmdLead(ctx context.Context, id uint) string {
	l, err := ch.store.Get(ctx, id)
	if err != nil {
		return ch.failure("get lead", err)
	}
	return formatLeadDetail(l, ch.lang, ch.loc)
}

func (ch *CommandHandler) cmdStats(ctx context.Context) string {
	st, err := ch.store.Stats(ctx)
	if err != nil {
		return ch.failure("stats", err)
	}
	return notify.DigestMessage(st, ch.lang).Text()
}

func (ch *CommandHandler) cmdContacted(ctx context.Context, id uint) string {
	if _, err := lead.ContactLead(ctx, ch.store, ch.events, id); err != nil {
		return ch.failure("mark contacted", err)
	}
	return fmt.Sprintf("✅ %s #%d", locale.Text(ch.lang, "lead_marked"), id)
}

func (ch *CommandHandler) cmdArchive(ctx context.Context, id uint) string {
	if _, err := lead.ArchiveLead(ctx, ch.store, ch.events, id); err != nil {
		return ch.failure("archive", err)
	}
	return fmt.Sprintf("🗄 %s #%d", locale.Text(ch.lang, "lead_archived"), id)
}

// failure maps err to a reply. Unknown ids are an expected outcome; any
// other error is logged.
func (ch *CommandHandler) failure(op string, err error) string {
	if errors.Is(err, lead.ErrNotFound) {
		return "❓ " + locale.Text(ch.lang, "lead_not_found")
	}
	ch.log.WithError(err).WithField("op", op).Error("telegraph: command failed")
	return locale.Text(ch.lang, "error")
}

// helpText returns the list of available commands.
func (ch *CommandHandler) helpText() string {
	return "*Leadyard Commands*\n" +
		"`!leads [n]` — Latest active leads (default 10)\n" +
		"`!lead <id>` — Show lead details\n" +
		"`!stats` — Lead statistics\n" +
		"`!contacted <id>` — Mark a lead as contacted\n" +
		"`!archive <id>` — Archive a lead\n" +
		"`!help` — Show this help"
}
