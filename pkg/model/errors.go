package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a referenced value or node does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnwriteableValue is returned when attempting to set a value whose
	// metadata marks it read-only.
	ErrUnwriteableValue = errors.New("value is not writeable")

	// ErrNodeRemoved is returned when sending a command through a node that
	// has since been removed from the network. The node object stays usable
	// for reads, but its link to the client is severed.
	ErrNodeRemoved = errors.New("node was removed from the network")
)

// UnparseableValueError reports a buffer-typed value whose payload does not
// match the expected Buffer shape. Such values are dropped rather than stored.
type UnparseableValueError struct {
	Value any
}

func (e *UnparseableValueError) Error() string {
	return fmt.Sprintf("unparseable value: %v", e.Value)
}
