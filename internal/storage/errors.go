package storage

import "fmt"

// PreconditionError reports that a table the operation would create is
// already present. The caller decides whether to drop it and retry.
type PreconditionError struct {
	Table string
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("storage: table %q already exists", e.Table)
}

// ColumnError reports a requested column that the table does not have.
type ColumnError struct {
	Table  string
	Column string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("storage: table %q has no column %q", e.Table, e.Column)
}
