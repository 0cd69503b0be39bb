package multierr

import (
	e "errors"
	"fmt"
	"strings"

	"github.com/juju/errors"
)

// MultiErr collects errors from independent operations, for example a
// broadcast to many connections, where a single failure must not interrupt
// the rest.
type MultiErr struct {
	firstError error
	errors     []error
}

func New() *MultiErr {
	return &MultiErr{}
}

// Add does nothing when err is nil. It remembers the first error added.
func (m *MultiErr) Add(err error) {
	if err == nil {
		return
	}

	if m.firstError == nil {
		m.firstError = err
	}

	m.errors = append(m.errors, err)
}

// Err returns nil when no errors occurred, the error itself when exactly one
// occurred, and a combined error listing all of them otherwise.
func (m *MultiErr) Err() error {
	if len(m.errors) <= 1 {
		return m.firstError
	}

	var sb strings.Builder

	for i, err := range m.errors {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, errors.ErrorStack(err)))
	}

	return errors.Errorf("there were multiple errors:\n%s", sb.String())
}

// Is reports whether any error in err's cause chain matches target. Unlike
// errors.Is from the standard library, it first unwraps juju's annotations.
func Is(err, target error) bool {
	if err == nil {
		return target == nil
	}

	if e.Is(errors.Cause(err), target) {
		return true
	}

	return e.Is(err, target)
}
