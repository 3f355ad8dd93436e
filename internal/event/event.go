package event

import (
	"time"

	"github.com/google/uuid"
)

type Type string

const (
	TypeSessionLogin       Type = "session.login"
	TypeSessionLogout      Type = "session.logout"
	TypeSessionRefreshed   Type = "session.refreshed"
	TypeSessionExpired     Type = "session.expired"
	TypeSessionUserFetched Type = "session.user_fetched"
)

type Event struct {
	ID        string `json:"id"`
	Type      Type   `json:"type"`
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id,omitempty"`
	Role      string `json:"role,omitempty"`
	Timestamp string `json:"timestamp"`
}

func New(typ Type, sessionID string, userID string, role string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
	}
}

type Bus interface {
	Publish(e Event)
	Subscribe(name string) (<-chan Event, func())
}
