package less

import "fmt"

// Error is a compile problem located in a source file.
type Error struct {
	Filename string
	Line     int // 1-based
	Column   int // 1-based
	Message  string
	Extract  string // the offending source line
}

func newError(filename string, line, column int, format string, args ...any) *Error {
	return &Error{
		Filename: filename,
		Line:     line,
		Column:   column,
		Message:  fmt.Sprintf(format, args...),
	}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Line, e.Column, e.Message)
}

// Location returns the file and position of the error.
func (e *Error) Location() (string, int, int) {
	return e.Filename, e.Line, e.Column
}

// Msg returns the message without the location prefix.
func (e *Error) Msg() string {
	return e.Message
}

// SourceLine returns the line the error points at.
func (e *Error) SourceLine() string {
	return e.Extract
}
