package remote

import (
	"time"

	"github.com/nhle/po-intake/internal/model"
)

// Envelope wraps a generic sync action. UserID and UserInfo are null when
// nobody is signed in.
type Envelope struct {
	Action    string      `json:"action"`
	Data      any         `json:"data"`
	Timestamp string      `json:"timestamp"`
	UserID    *string     `json:"userId"`
	UserInfo  *model.User `json:"userInfo"`
}

// NewEnvelope builds the envelope for action, stamped with now and the
// current user of auth (which may be nil).
func NewEnvelope(action string, data any, auth model.Auth, now time.Time) Envelope {
	env := Envelope{
		Action:    action,
		Data:      data,
		Timestamp: model.FormatTime(now),
	}
	if auth == nil {
		return env
	}
	if u := auth.CurrentUser(); u != nil {
		user := *u
		env.UserInfo = &user
		if user.ID != "" {
			id := user.ID
			env.UserID = &id
		}
	}
	return env
}
