package workflow

import (
	"errors"
	"fmt"

	"github.com/dukex/flowrun/pkg/graph"
	"github.com/dukex/flowrun/pkg/persistence"
)

var (
	ErrFlowNotFound   = persistence.ErrFlowNotFound
	ErrNoTriggerFound = graph.ErrNoTrigger
	ErrCancelled      = errors.New("execution cancelled")

	ErrUnencodableOutput = errors.New("node output cannot be encoded as JSON")
)

// Messages recorded on executions and sent to streaming consumers.
const (
	MessageFlowNotFound = "Flow not found"
	MessageNoTrigger    = "No trigger node found"
	MessageAllFailed    = "All nodes failed"
	MessageCancelled    = "Execution cancelled"
	MessageUnreachable  = "Node is part of a cycle and was never reached"
)

// NodeActionError is a failure raised by a node handler. It is recorded on
// the node execution and never aborts the run by itself.
type NodeActionError struct {
	NodeID   string
	NodeType string
	Err      error
}

func (e *NodeActionError) Error() string {
	return fmt.Sprintf("node %s (%s) failed: %v", e.NodeID, e.NodeType, e.Err)
}

func (e *NodeActionError) Unwrap() error {
	return e.Err
}

// StorageError is a persistence failure. It aborts the run.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage failure during %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func IsStorageError(err error) bool {
	var storageErr *StorageError

	return errors.As(err, &storageErr)
}
