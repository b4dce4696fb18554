package bot

import (
	"fmt"
	"strings"

	"github.com/aosc-dev/pakreq/internal/models"
	"github.com/aosc-dev/pakreq/internal/service"
)

// Every user-facing failure maps to one of these fixed templates.
// Internal error text never reaches the chat; full detail is logged
// server-side.

const (
	replyPong = "pong"

	replyRegisterFirst = "You have to <b>register</b> or <b>link</b> your account first.\nPlease refer to /help for detailed usage."

	replyTooFewArguments  = "Too <b>few</b> arguments.\nPlease refer to /help for detailed usage."
	replyTooManyArguments = "Too <b>many</b> arguments.\nPlease refer to /help for detailed usage."
	replyInvalidRequest   = "Invalid request, please refer to /help for detailed usage."

	replyNoPendingRequests = "No pending request."

	replyAlreadyRegistered     = "You have already registered."
	replyPasswordEmpty         = "Your password is empty right now, please set a new password by:\n<code>/passwd [password]</code>"
	replyIncorrectCredentials  = "Link unsuccessful: Incorrect username or password."
	replyPasswordUpdateSuccess = "Password set successfully."
	replyNotLinked             = "This account is not linked to any user."
	replyUnlinkSuccess         = "Successfully unlinked this account."
	replyFullListPrivateOnly   = "Listing all requests is only allowed in private chats."

	replyGenericError = "Sorry, this bot has encountered an error. Please try again later."

	replyHelp = `A bot designed to <b>EXECUTE</b> Jelly.

Command list:
/register [username] [password] - Register a new account.
/passwd &lt;password&gt; - Set new password.
/link [username] [password] - Link this account to your pakreq account.
/unlink - Unlink this account.
/pakreq &lt;package name&gt; [description] - Add a new pakreq.
/updreq &lt;package name&gt; [description] - Add a new updreq.
/optreq &lt;package name&gt; [description] - Add a new optreq.
/claim [request id] - Claim a request, leave the id out for a random claim.
/unclaim &lt;request id&gt; - Unclaim a request.
/done &lt;request id&gt;... - Mark requests as done.
/reject &lt;request id&gt;... - Reject requests.
/reopen &lt;request id&gt;... - Reopen requests.
/note &lt;request id&gt; [note] - Set a note for a request.
/edit_desc &lt;request id&gt; [description] - Edit the description of a request.
/list [request id]... - List open requests, or up to 5 requests in detail.
/search &lt;keyword&gt; - Search requests by name and description.
/whoami - Show who you are.
/help - Show this help message.`
)

// Escape neutralizes user-supplied strings before they are embedded in
// reply markup.
func Escape(text string) string {
	r := strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;")
	return r.Replace(text)
}

func replyUsernameTaken(username string) string {
	return fmt.Sprintf("Username %s already taken, please specify another one by:\n<code>/register [username] [password]</code>", Escape(username))
}

func replyRegisterSuccess(username string) string {
	return fmt.Sprintf("Registration successful, your username is %s.", Escape(username))
}

func replyLinkSuccess(username string) string {
	return fmt.Sprintf("Successfully linked this account to %s.", Escape(username))
}

func replyAlreadyInList(typ models.RequestType, name string) string {
	return fmt.Sprintf("%s %s is <b>already</b> in the list.", typ, Escape(name))
}

func replyAdded(typ models.RequestType, name string, id int64) string {
	return fmt.Sprintf("Successfully added %s to the %s list, id of this request is %d.", Escape(name), typ, id)
}

func replyActionSuccessful(action string, id int64) string {
	return fmt.Sprintf("Successfully <b>%sed</b> request <b>%d</b>.", action, id)
}

func replyProcessSuccess(id int64) string {
	return fmt.Sprintf("Successfully processed request %d.", id)
}

func replyRequestNotFound(id string) string {
	return fmt.Sprintf("<b>Request ID %s not found.</b>", Escape(id))
}

func replyAlreadyClosed(id int64) string {
	return fmt.Sprintf("Request <b>%d</b> is already closed, /reopen it first.", id)
}

func replyAlreadyOpen(id int64) string {
	return fmt.Sprintf("Request <b>%d</b> is already open.", id)
}

func replyAlreadyClaimed(id int64) string {
	return fmt.Sprintf("Request <b>%d</b> is already claimed.", id)
}

func replyClaimFirst(id int64) string {
	return fmt.Sprintf("<b>You have to claim request %d first.</b>", id)
}

func replyOnlyRequesterCanEdit(id int64) string {
	return fmt.Sprintf("Only the requester can edit the description for request %d.", id)
}

func replyWhoami(u *models.User) string {
	return fmt.Sprintf("You are <b>%s</b> (ID: %d).", Escape(u.Username), u.ID)
}

func replyFullList(baseURL string) string {
	return fmt.Sprintf("\nPlease visit %s for the full list of requests.", baseURL)
}

func formatBrief(r models.Request) string {
	return fmt.Sprintf("ID: %d <b>%s</b> (<i>%s</i>): %s\n",
		r.ID, Escape(r.Name), r.Type, Escape(r.Description))
}

func formatDetail(d *service.RequestDetail) string {
	note := d.Note
	if note == "" {
		note = "Unset"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<b>%s</b>:\n", Escape(d.Name))
	fmt.Fprintf(&b, "  <b>ID</b>: %d\n", d.ID)
	fmt.Fprintf(&b, "  <b>Status</b>: %s\n", d.Status)
	fmt.Fprintf(&b, "  <b>Type</b>: %s\n", d.Type)
	fmt.Fprintf(&b, "  <b>Description</b>: %s\n", Escape(d.Description))
	fmt.Fprintf(&b, "  <b>Requester</b>: %s(%d)\n", Escape(d.Requester.Username), d.Requester.ID)
	fmt.Fprintf(&b, "  <b>Packager</b>: %s(%d)\n", Escape(d.Packager.Username), d.Packager.ID)
	fmt.Fprintf(&b, "  <b>Created on</b>: %s\n", formatDate(d.Created))
	fmt.Fprintf(&b, "  <b>Note</b>: %s\n", Escape(note))
	return b.String()
}

// highlight wraps every occurrence of keyword in bold, escaping both
// the text and the keyword.
func highlight(text, keyword string) string {
	if keyword == "" {
		return Escape(text)
	}
	return strings.ReplaceAll(Escape(text), Escape(keyword), "<b>"+Escape(keyword)+"</b>")
}
