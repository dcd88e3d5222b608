package warehouse

import "fmt"

// PersistenceError reports a failed warehouse statement. The in-flight
// batch transaction is rolled back before it is returned; already
// committed batches from earlier tables in the same run are unaffected.
type PersistenceError struct {
	Table string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("warehouse: %s: %v", e.Table, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
