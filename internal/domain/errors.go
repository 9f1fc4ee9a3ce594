package domain

import "errors"

var (
	// ErrRoomNotFound is returned when a room id does not resolve.
	ErrRoomNotFound = errors.New("room not found")
	// ErrGameNotFound is returned when no game exists for a room.
	ErrGameNotFound = errors.New("game not found")
	// ErrQuestionNotFound indicates a question id is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrNoQuestions indicates the question bank yielded nothing for the
	// requested configuration.
	ErrNoQuestions = errors.New("no questions available")
	// ErrPlayerGameNotFound is returned when a participant record is missing.
	ErrPlayerGameNotFound = errors.New("player game not found")
	// ErrBotNotFound indicates an unknown bot id.
	ErrBotNotFound = errors.New("bot not found")
)

// Reject is a client-facing submission rejection with a stable reason code.
// Rejects are expected traffic, never crashes; transports forward the code
// verbatim.
type Reject string

func (r Reject) Error() string { return string(r) }

const (
	RejectTooLate         Reject = "too-late"
	RejectAlreadyAnswered Reject = "already-answered"
	RejectNoLives         Reject = "no-lives"
	RejectBadChoice       Reject = "bad-choice"
	RejectEmpty           Reject = "empty"
	RejectNoClient        Reject = "no-client"
	RejectNoState         Reject = "no-state"
)

// AsReject unwraps err into a Reject code when the error is a client
// rejection.
func AsReject(err error) (Reject, bool) {
	var r Reject
	if errors.As(err, &r) {
		return r, true
	}
	return "", false
}
