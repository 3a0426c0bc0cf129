package conversation

// Event is a state-change notification delivered on Controller.Events.
// The rendering layer treats events as wake-ups: after each one it reads
// whatever controller state it displays.
type Event interface {
	event()
}

// QueryStarted fires when a dispatch enters flight. SessionID is the
// session the query was issued against, empty for a brand-new
// conversation.
type QueryStarted struct {
	SessionID string
}

// QueryProgress reports elapsed whole seconds while a dispatch is in
// flight, one report per progress interval.
type QueryProgress struct {
	Seconds int
}

// QueryAnswered fires when a dispatch resolved and its turn was appended
// to the buffer. Message is the appended assistant turn; its Failed flag
// distinguishes answers from error turns. SessionID is the active session
// after any server-side id adoption.
type QueryAnswered struct {
	Message   Message
	SessionID string
}

// QueryDiscarded fires when a dispatch resolved after the user had
// already moved to another session; its result was dropped without
// touching the buffer.
type QueryDiscarded struct {
	SessionID string
}

// DirectoryRefreshed fires when the background directory re-sync that
// follows an answered query completed. Err is nil on success.
type DirectoryRefreshed struct {
	Err error
}

func (QueryStarted) event()       {}
func (QueryProgress) event()      {}
func (QueryAnswered) event()      {}
func (QueryDiscarded) event()     {}
func (DirectoryRefreshed) event() {}
