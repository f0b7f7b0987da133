package service

import "fmt"

// ValidationError reports bad input: an unknown stage, a duplicate active
// workflow, a no-op stage move, a malformed status or priority.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationErrorf(format string, args ...interface{}) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// InvalidTransitionError reports an attempted move from or through a
// terminal workflow status, or a status change the state machine forbids.
type InvalidTransitionError struct {
	From string
	To   string
	Msg  string
}

func (e *InvalidTransitionError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("invalid transition from '%s' to '%s'", e.From, e.To)
}

// NotFoundError reports an unknown workflow, stage, task or issue id.
type NotFoundError struct {
	Kind string // "workflow", "stage", "task", "issue"
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Kind, e.ID)
}

// ConcurrencyConflictError reports a lost per-workflow serialization race:
// another actor committed an update to the same workflow first. The caller
// may re-read and retry; the engine never retries on its own.
type ConcurrencyConflictError struct {
	WorkflowID int64
}

func (e *ConcurrencyConflictError) Error() string {
	return fmt.Sprintf("workflow %d was modified concurrently", e.WorkflowID)
}
