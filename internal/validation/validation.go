package validation

import "fmt"

// Error is a field-level input rejection, raised before anything is
// persisted. Handlers surface it as a 400 with the field name.
type Error struct {
	Field string
	Msg   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Msg)
}

func Errorf(field, format string, args ...any) *Error {
	return &Error{Field: field, Msg: fmt.Sprintf(format, args...)}
}
