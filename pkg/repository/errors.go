package repository

import (
	"fmt"

	"github.com/aretw0/webflow/pkg/domain"
)

// NoSuchFlowExecutionError reports a key whose conversation or snapshot does
// not exist anymore: it ended, was discarded, expired or was evicted.
type NoSuchFlowExecutionError struct {
	Key string
	Err error
}

func (e *NoSuchFlowExecutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("no such flow execution %q: %v", e.Key, e.Err)
	}
	return fmt.Sprintf("no such flow execution %q", e.Key)
}

func (e *NoSuchFlowExecutionError) Unwrap() error { return e.Err }

// Is makes errors.Is(err, domain.ErrNoSuchFlowExecution) hold.
func (e *NoSuchFlowExecutionError) Is(target error) bool {
	return target == domain.ErrNoSuchFlowExecution
}
