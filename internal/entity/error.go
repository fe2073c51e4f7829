package entity

import "fmt"

// LexicalError reports a malformed character reference, an unterminated
// literal, or any other failure surfaced while scanning inside an Entity. It
// mirrors the teacher's SyntaxError (exposed fields, Unwrap support) but adds
// the entity context trace described in spec.md's error design.
type LexicalError struct {
	Msg     string
	Line    int
	Col     int64
	Context string
	Err     error
}

func (e *LexicalError) Error() string {
	if e.Context != "" {
		return fmt.Sprintf("%s (line %d, col %d)\n%s", e.Msg, e.Line, e.Col, e.Context)
	}
	return fmt.Sprintf("%s (line %d, col %d)", e.Msg, e.Line, e.Col)
}

func (e *LexicalError) Unwrap() error { return e.Err }

func (e *Entity) lexicalErrorf(format string, args ...any) error {
	return &LexicalError{
		Msg:     fmt.Sprintf(format, args...),
		Line:    e.Line,
		Col:     e.Offset - e.LineStart,
		Context: e.Context(),
	}
}
