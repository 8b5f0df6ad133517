package models

import "errors"

var (
	ErrValidation          = errors.New("validation error")
	ErrInsufficientFunds   = errors.New("insufficient balance")
	ErrNotFound            = errors.New("not found")
	ErrInvalidState        = errors.New("invalid game state")
	ErrNotYourTurn         = errors.New("not your turn")
	ErrIllegalMove         = errors.New("illegal move")
	ErrCannotJoinOwnGame   = errors.New("cannot join own game")
	ErrConcurrencyConflict = errors.New("concurrency conflict")
	ErrInternal            = errors.New("internal failure")
)

// IsDomainError reports whether err carries one of the sentinels above other than ErrInternal.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrValidation, ErrInsufficientFunds, ErrNotFound, ErrInvalidState, ErrNotYourTurn,
		ErrIllegalMove, ErrCannotJoinOwnGame, ErrConcurrencyConflict,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// ErrorCode is the machine-readable name clients receive for err.
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrValidation):
		return "validation_error"
	case errors.Is(err, ErrInsufficientFunds):
		return "insufficient_funds"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrInvalidState):
		return "invalid_state"
	case errors.Is(err, ErrNotYourTurn):
		return "not_your_turn"
	case errors.Is(err, ErrIllegalMove):
		return "illegal_move"
	case errors.Is(err, ErrCannotJoinOwnGame):
		return "cannot_join_own_game"
	case errors.Is(err, ErrConcurrencyConflict):
		return "concurrency_conflict"
	default:
		return "internal_error"
	}
}
