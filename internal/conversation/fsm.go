// Package conversation implements the chat dialogue for booking studio time.
//
// Dialogue state is an explicit state machine value persisted per chat in
// Redis between turns. Each incoming message is one turn: the handler loads
// the session, applies the message to the current state, and saves the next
// state back with a TTL, so an abandoned dialogue expires on its own.
package conversation

import "time"

// State names a step of the booking dialogue.
type State string

const (
	StateIdle               State = "idle"
	StateCollectingDate     State = "collecting_date"
	StateCollectingTime     State = "collecting_time"
	StateCollectingDuration State = "collecting_duration"
	StateDeciding           State = "deciding"
	StateConfirmed          State = "confirmed"
	StateRejected           State = "rejected"
	StateCancelSelect       State = "cancel_select"
)

// Session is the dialogue state carried between turns for one chat. Date
// holds the picked day as its keyboard label, SlotHour the start hour, both
// resolved against the booking grid only when the dialogue reaches the
// decision. CancelIDs holds booking ids offered on the cancel keyboard.
type Session struct {
	ChatID        int64     `json:"chat_id"`
	State         State     `json:"state"`
	Date          string    `json:"date,omitempty"`
	SlotHour      int       `json:"slot_hour,omitempty"`
	DurationHours int       `json:"duration_hours,omitempty"`
	CancelIDs     []string  `json:"cancel_ids,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (s *Session) reset() {
	s.State = StateIdle
	s.Date = ""
	s.SlotHour = 0
	s.DurationHours = 0
	s.CancelIDs = nil
}
