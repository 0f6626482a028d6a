package session

import (
	"github.com/pkg/errors"
)

var (
	ErrEmptyTurn      = errors.New("turn has neither text nor image")
	ErrTurnInProgress = errors.New("a turn is already in progress")
)

// TurnState is the state of the turn state machine. A turn moves from Idle through
// UserMessageAppended and Streaming to Completed or Failed, then back to Idle.
type TurnState int

const (
	StateIdle TurnState = iota
	StateUserMessageAppended
	StateStreaming
	StateCompleted
	StateFailed
)

func (s TurnState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateUserMessageAppended:
		return "user-message-appended"
	case StateStreaming:
		return "streaming"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// RollbackPolicy decides what happens to the user message of a failed turn. The
// assistant message is never persisted on failure.
type RollbackPolicy int

const (
	// RollbackTurn removes the user message, leaving the conversation as if the turn
	// never started.
	RollbackTurn RollbackPolicy = iota
	// KeepUserMessage leaves the user message in the conversation.
	KeepUserMessage
)

func (p RollbackPolicy) String() string {
	switch p {
	case RollbackTurn:
		return "rollback-turn"
	case KeepUserMessage:
		return "keep-user-message"
	default:
		return "unknown"
	}
}

// ParseRollbackPolicy accepts the names returned by RollbackPolicy.String.
func ParseRollbackPolicy(s string) (RollbackPolicy, error) {
	switch s {
	case "", "rollback-turn", "rollback":
		return RollbackTurn, nil
	case "keep-user-message", "keep":
		return KeepUserMessage, nil
	default:
		return RollbackTurn, errors.Errorf("unknown rollback policy %q", s)
	}
}
