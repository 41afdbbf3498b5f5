package event

import "errors"

// ValidationError marks failures caused by user input. The web layer turns
// these into 4xx responses; anything else is treated as an internal failure.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func Validation(msg string) error {
	return &ValidationError{msg: msg}
}

func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

var (
	// ErrEventNotFound covers both a bad code and an event that has been
	// reset; callers cannot tell the two apart, on purpose.
	ErrEventNotFound = errors.New("event not found or no longer active")

	ErrWinnersAlreadyDeclared = Validation("winners already declared")
	ErrNoScores               = Validation("no round 1 scores recorded yet")
	ErrNoRound2Scores         = Validation("no round 2 scores recorded yet")
	ErrNoParticipants         = Validation("no participants in this event")
	ErrScoresLocked           = Validation("round 1 scores are locked: winners already declared")
	ErrScoresLockedR2         = Validation("round 2 scores are locked: winners already declared")
	ErrRound1NotFinished      = Validation("round 1 winners must be declared before starting round 2")
	ErrRound2NotActive        = Validation("round 2 is not active")
	ErrAlreadyJoined          = Validation("this phone has already joined the event")
)
