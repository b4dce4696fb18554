// Package models holds the data structures shared across the storage,
// service, bot and web layers. Enum encodings are stable: they are what
// the store persists and must not be renumbered.
package models

type RequestType int

const (
	Pakreq RequestType = 0 // new package
	Updreq RequestType = 1 // package update
	Optreq RequestType = 2 // optional feature
)

func (t RequestType) String() string {
	switch t {
	case Pakreq:
		return "pakreq"
	case Updreq:
		return "updreq"
	case Optreq:
		return "optreq"
	default:
		return "unknown"
	}
}

type RequestStatus int

const (
	StatusOpen     RequestStatus = 0
	StatusDone     RequestStatus = 1
	StatusRejected RequestStatus = 2
)

func (s RequestStatus) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusDone:
		return "done"
	case StatusRejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// Provider identifies an external identity source. 0 was "local" in an
// older schema revision and is intentionally unused.
type Provider int

const (
	ProviderTelegram Provider = 1
	ProviderGitHub   Provider = 2
	ProviderAOSC     Provider = 3
)

func (p Provider) String() string {
	switch p {
	case ProviderTelegram:
		return "telegram"
	case ProviderGitHub:
		return "github"
	case ProviderAOSC:
		return "aosc"
	default:
		return "unknown"
	}
}

type User struct {
	ID           int64  `json:"id"`
	Username     string `json:"username"`
	Admin        bool   `json:"admin"`
	PasswordHash string `json:"-"` // empty means no password set
}

// OAuthLink binds one external identity to one local user. A given
// (provider, external id) pair maps to at most one user, and a user
// holds at most one link per provider.
type OAuthLink struct {
	UserID     int64    `json:"user_id"`
	Provider   Provider `json:"provider"`
	ExternalID string   `json:"external_id"`
	Token      string   `json:"-"`
}

// Request is a package request. RequesterID/PackagerID of 0 mean
// unknown/unclaimed respectively. Created is Unix milliseconds.
type Request struct {
	ID          int64         `json:"id"`
	Type        RequestType   `json:"type"`
	Status      RequestStatus `json:"status"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	RequesterID int64         `json:"requester_id"`
	PackagerID  int64         `json:"packager_id"`
	Created     int64         `json:"created"`
	Note        string        `json:"note,omitempty"`
}

// DefaultDescription is stored when a request is filed without one.
const DefaultDescription = "Unknown"

// UnknownUser is substituted in request details whenever a referenced
// user id does not resolve (including the 0 sentinel).
var UnknownUser = User{ID: 0, Username: "Unknown"}
