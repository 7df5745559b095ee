package debate

import "fmt"

// ValidationError reports malformed input or an operation against a debate
// whose status forbids it. Surfaced synchronously, with no state mutated.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
