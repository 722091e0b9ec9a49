package session

import (
	"errors"

	"github.com/park285/chessboard-client/internal/enginefast"
)

var (
	ErrNotStarted         = errors.New("session not started")
	ErrAlreadyStarted     = errors.New("session already started")
	ErrClosed             = errors.New("session closed")
	ErrNotLive            = errors.New("no live game")
	ErrSetupInFlight      = errors.New("play mode change in flight")
	ErrViewingHistory     = errors.New("viewing history")
	ErrAIControlled       = errors.New("moves are played by the engine in ai-vs-ai mode")
	ErrPromotionPending   = errors.New("promotion pending")
	ErrNoPromotionPending = errors.New("no promotion pending")
	ErrMoveInFlight       = errors.New("move already in flight")
	ErrOutOfBoard         = errors.New("square outside the board")
	ErrInvalidPromotion   = errors.New("invalid promotion piece")
	ErrInvalidMode        = errors.New("invalid play mode")
	ErrOffsetOutOfRange   = errors.New("history offset out of range")
	ErrAutoPlayRunning    = errors.New("auto play already running")
	ErrNotAIVsAI          = errors.New("auto play requires ai-vs-ai mode")
)

var transitionErrors = []error{
	ErrNotStarted, ErrAlreadyStarted, ErrClosed, ErrNotLive, ErrSetupInFlight, ErrViewingHistory,
	ErrAIControlled, ErrPromotionPending, ErrNoPromotionPending, ErrMoveInFlight, ErrOutOfBoard,
	ErrInvalidPromotion, ErrInvalidMode, ErrOffsetOutOfRange, ErrAutoPlayRunning, ErrNotAIVsAI,
}

// ErrorKind classifies failures surfaced to the status indicator.
type ErrorKind uint8

const (
	KindNone ErrorKind = iota
	NetworkFailure
	MalformedResponse
	InvalidTransition
)

func (k ErrorKind) String() string {
	switch k {
	case NetworkFailure:
		return "network_failure"
	case MalformedResponse:
		return "malformed_response"
	case InvalidTransition:
		return "invalid_transition"
	default:
		return "none"
	}
}

// Classify maps err onto the failure taxonomy. Anything that is neither a guard
// rejection nor a decode failure counts as a network failure.
func Classify(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	for _, e := range transitionErrors {
		if errors.Is(err, e) {
			return InvalidTransition
		}
	}
	if enginefast.IsMalformed(err) {
		return MalformedResponse
	}
	return NetworkFailure
}
