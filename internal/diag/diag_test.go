package diag

import (
	"bytes"
	"errors"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
)

type bufLogger struct{ *log.Logger }

func TestWarn_NilLoggerIsNoop(t *testing.T) {
	assert.NotPanics(t, func() { Warn(nil, "dropped %s", "x") })
}

func TestWarn_WritesToLogger(t *testing.T) {
	var buf bytes.Buffer
	l := &bufLogger{Logger: log.New(&buf, "", 0)}
	Warn(l, "duplicate attribute %q", "href")
	assert.Contains(t, buf.String(), `duplicate attribute "href"`)
}

func TestReaderError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	e := &ReaderError{Msg: "parse failed", Context: "  at doc, line 1, col 1\n", Err: inner}
	assert.ErrorIs(t, e, inner)
	assert.Contains(t, e.Error(), "parse failed")
	assert.Contains(t, e.Error(), "line 1")
}
