package event

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NewEventID generates an "evt_"-prefixed unique event ID.
func NewEventID() string {
	return "evt_" + uuid.NewString()
}

// NewSessionID generates a "ses_"-prefixed unique session ID.
func NewSessionID() string {
	return "ses_" + uuid.NewString()
}

// UTCNowISO returns the current UTC time in ISO format with Z suffix.
func UTCNowISO() string {
	return time.Now().UTC().Format("2006-01-02T15:04:05.000Z")
}

// String implements fmt.Stringer for log lines.
func (e *Event) String() string {
	return fmt.Sprintf("%s %s session=%s", e.EventType, e.ResourceName, e.SessionID)
}
