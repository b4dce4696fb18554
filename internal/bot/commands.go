package bot

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/aosc-dev/pakreq/internal/apperror"
	"github.com/aosc-dev/pakreq/internal/models"
	"github.com/aosc-dev/pakreq/pkg/repository"
)

// listDetailMax caps the number of ids /list resolves in one message.
const listDetailMax = 5

func (p *Processor) whoami(ctx context.Context, msg Message) string {
	user, deny := p.requireUser(ctx, msg)
	if deny != "" {
		return deny
	}

	return replyWhoami(user)
}

func (p *Processor) register(ctx context.Context, msg Message) string {
	parts := tokenize(msg.Text, 3)

	username := ""
	password := ""
	if len(parts) > 1 {
		username = parts[1]
	}
	if len(parts) > 2 {
		password = parts[2]
	}
	if username == "" {
		// Fall back to the platform display name, then the raw id.
		username = msg.DisplayName
	}
	if username == "" {
		username = msg.ExternalID
	}

	existing, err := p.svc.ResolveIdentity(ctx, p.provider, msg.ExternalID)
	if err != nil {
		p.logger.Error("resolve identity", "from", msg.ExternalID, "err", err)
		return replyGenericError
	}
	if existing != nil {
		return replyAlreadyRegistered
	}

	user, err := p.svc.Register(ctx, username, password, p.provider, msg.ExternalID)
	if err != nil {
		switch {
		case errors.Is(err, apperror.ErrConflict):
			return replyUsernameTaken(username)
		case errors.Is(err, apperror.ErrValidation):
			return replyInvalidRequest
		default:
			p.logger.Error("register", "from", msg.ExternalID, "err", err)
			return replyGenericError
		}
	}

	reply := replyRegisterSuccess(user.Username)
	if password == "" {
		reply += "\n" + replyPasswordEmpty
	}

	return reply
}

func (p *Processor) link(ctx context.Context, msg Message) string {
	parts := tokenize(msg.Text, 3)
	if len(parts) < 3 {
		return replyTooFewArguments
	}

	user, err := p.svc.LinkAccount(ctx, parts[1], parts[2], p.provider, msg.ExternalID)
	if err != nil {
		if errors.Is(err, apperror.ErrUnauthorized) {
			return replyIncorrectCredentials
		}
		p.logger.Error("link account", "from", msg.ExternalID, "err", err)
		return replyGenericError
	}

	return replyLinkSuccess(user.Username)
}

func (p *Processor) unlink(ctx context.Context, msg Message) string {
	removed, err := p.svc.Unlink(ctx, p.provider, msg.ExternalID)
	if err != nil {
		p.logger.Error("unlink", "from", msg.ExternalID, "err", err)
		return replyGenericError
	}
	if !removed {
		return replyNotLinked
	}

	return replyUnlinkSuccess
}

func (p *Processor) passwd(ctx context.Context, msg Message) string {
	user, deny := p.requireUser(ctx, msg)
	if deny != "" {
		return deny
	}

	parts := tokenize(msg.Text, 2)
	if len(parts) < 2 {
		return replyTooFewArguments
	}

	if err := p.svc.SetPassword(ctx, user.ID, parts[1]); err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return replyInvalidRequest
		}
		p.logger.Error("set password", "user", user.ID, "err", err)
		return replyGenericError
	}

	return replyPasswordUpdateSuccess
}

func (p *Processor) newRequest(ctx context.Context, msg Message, typ models.RequestType) string {
	user, deny := p.requireUser(ctx, msg)
	if deny != "" {
		return deny
	}

	parts := tokenize(msg.Text, 3)
	if len(parts) < 2 {
		return replyTooFewArguments
	}
	name := parts[1]
	description := ""
	if len(parts) > 2 {
		description = parts[2]
	}

	id, duplicate, err := p.svc.NewRequest(ctx, typ, name, description, user.ID)
	if err != nil {
		if errors.Is(err, apperror.ErrValidation) {
			return replyInvalidRequest
		}
		p.logger.Error("new request", "type", typ.String(), "name", name, "err", err)
		return replyGenericError
	}
	if duplicate {
		return replyAlreadyInList(typ, name)
	}

	return replyAdded(typ, name, id)
}

func (p *Processor) claim(ctx context.Context, msg Message) string {
	user, deny := p.requireUser(ctx, msg)
	if deny != "" {
		return deny
	}

	fields := strings.Fields(msg.Text)
	if len(fields) > 2 {
		return replyTooManyArguments
	}

	if len(fields) == 1 {
		id, err := p.svc.ClaimAny(ctx, user.ID)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				return replyNoPendingRequests
			}
			p.logger.Error("claim any", "user", user.ID, "err", err)
			return replyGenericError
		}
		return replyActionSuccessful("claim", id)
	}

	id, ok := parseID(fields[1])
	if !ok {
		return replyInvalidRequest
	}

	if err := p.svc.Claim(ctx, id, user.ID); err != nil {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return replyRequestNotFound(fields[1])
		case errors.Is(err, apperror.ErrInvalidTransition):
			return replyAlreadyClosed(id)
		case errors.Is(err, apperror.ErrConflict):
			return replyAlreadyClaimed(id)
		default:
			p.logger.Error("claim", "id", id, "user", user.ID, "err", err)
			return replyGenericError
		}
	}

	return replyActionSuccessful("claim", id)
}

func (p *Processor) unclaim(ctx context.Context, msg Message) string {
	user, deny := p.requireUser(ctx, msg)
	if deny != "" {
		return deny
	}

	fields := strings.Fields(msg.Text)
	if len(fields) < 2 {
		return replyTooFewArguments
	}

	id, ok := parseID(fields[1])
	if !ok {
		return replyInvalidRequest
	}

	if err := p.svc.Unclaim(ctx, id, user.ID); err != nil {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return replyRequestNotFound(fields[1])
		case errors.Is(err, apperror.ErrNotOwner):
			return replyClaimFirst(id)
		default:
			p.logger.Error("unclaim", "id", id, "user", user.ID, "err", err)
			return replyGenericError
		}
	}

	return replyActionSuccessful("unclaim", id)
}

// batch handles done/reject/reopen: several ids, each processed on its
// own; one failure never rolls back a sibling's success.
func (p *Processor) batch(ctx context.Context, msg Message, action string) string {
	user, deny := p.requireUser(ctx, msg)
	if deny != "" {
		return deny
	}

	fields := strings.Fields(msg.Text)
	if len(fields) < 2 {
		return replyTooFewArguments
	}

	var lines []string
	for _, raw := range fields[1:] {
		id, ok := parseID(raw)
		if !ok {
			lines = append(lines, replyRequestNotFound(raw))
			continue
		}

		var err error
		switch action {
		case "done":
			err = p.svc.Close(ctx, id, user.ID, models.StatusDone, "")
		case "reject":
			err = p.svc.Close(ctx, id, user.ID, models.StatusRejected, "")
		case "reopen":
			err = p.svc.Reopen(ctx, id)
		}

		switch {
		case err == nil:
			lines = append(lines, replyActionSuccessful(action, id))
		case errors.Is(err, apperror.ErrNotFound):
			lines = append(lines, replyRequestNotFound(raw))
		case errors.Is(err, apperror.ErrInvalidTransition):
			if action == "reopen" {
				lines = append(lines, replyAlreadyOpen(id))
			} else {
				lines = append(lines, replyAlreadyClosed(id))
			}
		default:
			p.logger.Error("batch action", "action", action, "id", id, "err", err)
			lines = append(lines, replyGenericError)
		}
	}

	return strings.Join(lines, "\n")
}

func (p *Processor) note(ctx context.Context, msg Message) string {
	user, deny := p.requireUser(ctx, msg)
	if deny != "" {
		return deny
	}

	parts := tokenize(msg.Text, 3)
	if len(parts) < 2 {
		return replyTooFewArguments
	}

	id, ok := parseID(parts[1])
	if !ok {
		return replyInvalidRequest
	}
	text := ""
	if len(parts) > 2 {
		text = parts[2]
	}

	if err := p.svc.SetNote(ctx, id, user.ID, text); err != nil {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return replyRequestNotFound(parts[1])
		case errors.Is(err, apperror.ErrNotOwner):
			return replyClaimFirst(id)
		default:
			p.logger.Error("set note", "id", id, "user", user.ID, "err", err)
			return replyGenericError
		}
	}

	return replyProcessSuccess(id)
}

func (p *Processor) editDesc(ctx context.Context, msg Message) string {
	user, deny := p.requireUser(ctx, msg)
	if deny != "" {
		return deny
	}

	parts := tokenize(msg.Text, 3)
	if len(parts) < 2 {
		return replyTooFewArguments
	}

	id, ok := parseID(parts[1])
	if !ok {
		return replyInvalidRequest
	}
	text := ""
	if len(parts) > 2 {
		text = parts[2]
	}

	if err := p.svc.EditDescription(ctx, id, user.ID, text); err != nil {
		switch {
		case errors.Is(err, apperror.ErrNotFound):
			return replyRequestNotFound(parts[1])
		case errors.Is(err, apperror.ErrNotOwner):
			return replyOnlyRequesterCanEdit(id)
		default:
			p.logger.Error("edit description", "id", id, "user", user.ID, "err", err)
			return replyGenericError
		}
	}

	return replyProcessSuccess(id)
}

func (p *Processor) list(ctx context.Context, msg Message) string {
	fields := strings.Fields(msg.Text)

	if len(fields) == 1 {
		// Brief listing of open requests, private chats only.
		if msg.Group() {
			return replyFullListPrivateOnly
		}

		open, err := p.svc.OpenRequests(ctx)
		if err != nil {
			p.logger.Error("list open requests", "err", err)
			return replyGenericError
		}
		if len(open) == 0 {
			return replyNoPendingRequests
		}

		var b strings.Builder
		for i, r := range open {
			if i == repository.SearchLimit {
				b.WriteString(replyFullList(p.baseURL))
				break
			}
			b.WriteString(formatBrief(r))
		}
		return b.String()
	}

	if len(fields) > 1+listDetailMax {
		return replyTooManyArguments
	}

	var lines []string
	for _, raw := range fields[1:] {
		id, ok := parseID(raw)
		if !ok {
			lines = append(lines, replyRequestNotFound(raw))
			continue
		}

		detail, err := p.svc.Detail(ctx, id)
		if err != nil {
			if errors.Is(err, apperror.ErrNotFound) {
				lines = append(lines, replyRequestNotFound(raw))
			} else {
				p.logger.Error("request detail", "id", id, "err", err)
				lines = append(lines, replyGenericError)
			}
			continue
		}
		lines = append(lines, formatDetail(detail))
	}

	return strings.Join(lines, "\n")
}

func (p *Processor) search(ctx context.Context, msg Message) string {
	parts := tokenize(msg.Text, 2)
	if len(parts) < 2 {
		return replyTooFewArguments
	}
	keyword := parts[1]

	names, descriptions, err := p.svc.Search(ctx, keyword)
	if err != nil {
		p.logger.Error("search", "keyword", keyword, "err", err)
		return replyGenericError
	}
	if len(names) == 0 && len(descriptions) == 0 {
		return replyNoPendingRequests
	}

	// Name matches and description matches are reported separately,
	// each with its own cap; a request can show up in both sections.
	var b strings.Builder
	for _, r := range names {
		b.WriteString("ID: " + strconv.FormatInt(r.ID, 10) + " " +
			highlight(r.Name, keyword) + " (<i>" + r.Type.String() + "</i>)\n")
	}
	for _, r := range descriptions {
		b.WriteString("ID: " + strconv.FormatInt(r.ID, 10) + " <b>" + Escape(r.Name) +
			"</b>: " + highlight(r.Description, keyword) + "\n")
	}

	return b.String()
}

func parseID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
