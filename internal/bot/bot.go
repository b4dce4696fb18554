// Package bot is the chat-facing command processor. It is stateless
// per message: every inbound message re-resolves the sender's identity
// and dispatches on the first token. The chat transport itself is a
// collaborator; cmd/bot wires this processor to Telegram.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/aosc-dev/pakreq/internal/models"
	"github.com/aosc-dev/pakreq/internal/service"
)

// Message is one inbound chat message. ExternalID is the transport's
// stable sender id; ChatID is negative for group chats.
type Message struct {
	ExternalID  string
	DisplayName string
	ChatID      int64
	Text        string
}

// Group reports whether the message arrived in a group context.
func (m Message) Group() bool {
	return m.ChatID < 0
}

type Processor struct {
	svc      *service.Service
	provider models.Provider
	baseURL  string
	logger   *slog.Logger
}

func NewProcessor(svc *service.Service, provider models.Provider, baseURL string, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{svc: svc, provider: provider, baseURL: baseURL, logger: logger}
}

// Handle dispatches one message and returns the reply markup. An empty
// reply means the message was not addressed to the bot.
func (p *Processor) Handle(ctx context.Context, msg Message) string {
	cmd, ok := command(msg.Text)
	if !ok {
		return ""
	}

	p.logger.Info("command received", "command", cmd, "from", msg.ExternalID, "group", msg.Group())

	switch cmd {
	case "ping":
		return replyPong
	case "help":
		return replyHelp
	case "whoami":
		return p.whoami(ctx, msg)
	case "register":
		return p.register(ctx, msg)
	case "link":
		return p.link(ctx, msg)
	case "unlink":
		return p.unlink(ctx, msg)
	case "passwd":
		return p.passwd(ctx, msg)
	case "pakreq":
		return p.newRequest(ctx, msg, models.Pakreq)
	case "updreq":
		return p.newRequest(ctx, msg, models.Updreq)
	case "optreq":
		return p.newRequest(ctx, msg, models.Optreq)
	case "claim":
		return p.claim(ctx, msg)
	case "unclaim":
		return p.unclaim(ctx, msg)
	case "done":
		return p.batch(ctx, msg, "done")
	case "reject":
		return p.batch(ctx, msg, "reject")
	case "reopen":
		return p.batch(ctx, msg, "reopen")
	case "note":
		return p.note(ctx, msg)
	case "edit_desc":
		return p.editDesc(ctx, msg)
	case "list":
		return p.list(ctx, msg)
	case "search":
		return p.search(ctx, msg)
	default:
		return ""
	}
}

// command extracts the command name from the first token: leading "/"
// and a trailing "@botname" mention are stripped.
func command(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", false
	}

	cmd := fields[0]
	if !strings.HasPrefix(cmd, "/") {
		return "", false
	}
	cmd = strings.TrimPrefix(cmd, "/")
	if at := strings.Index(cmd, "@"); at >= 0 {
		cmd = cmd[:at]
	}
	if cmd == "" {
		return "", false
	}

	return strings.ToLower(cmd), true
}

// tokenize splits text into at most max tokens; the last token keeps
// the raw remainder so multi-word descriptions and notes survive.
// Token zero is the command itself.
func tokenize(text string, max int) []string {
	var out []string
	rest := strings.TrimSpace(text)
	for len(out) < max-1 && rest != "" {
		cut := strings.IndexFunc(rest, unicode.IsSpace)
		if cut < 0 {
			break
		}
		out = append(out, rest[:cut])
		rest = strings.TrimSpace(rest[cut+1:])
	}
	if rest != "" {
		out = append(out, rest)
	}

	return out
}

// requireUser resolves the sender to a registered user. The second
// return value is the reply to send when the sender is unknown.
func (p *Processor) requireUser(ctx context.Context, msg Message) (*models.User, string) {
	user, err := p.svc.ResolveIdentity(ctx, p.provider, msg.ExternalID)
	if err != nil {
		p.logger.Error("resolve identity", "from", msg.ExternalID, "err", err)
		return nil, replyGenericError
	}
	if user == nil {
		return nil, replyRegisterFirst
	}

	return user, ""
}

func formatDate(unixMilli int64) string {
	return time.UnixMilli(unixMilli).UTC().Format("2006-01-02")
}
