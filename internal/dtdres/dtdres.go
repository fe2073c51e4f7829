// Package dtdres embeds the reader's default HTML DTD so HTML documents
// parse with sensible auto-close and entity-expansion behavior even when no
// external DTD is reachable (no network, no -dtd override).
package dtdres

import (
	"bytes"
	"embed"
	"fmt"
	"io"
)

//go:embed html.dtd
var files embed.FS

// Loader implements sgml.ResourceLoader against the embedded DTD set. The
// zero value is ready to use.
type Loader struct{}

// New returns a Loader serving the embedded resources.
func New() *Loader { return &Loader{} }

// Load resolves a logical resource name to its embedded contents. "HTML"
// (case-sensitive, matching the one caller in sgml.Reader.loadHTMLDtdInto)
// is currently the only name defined.
func (l *Loader) Load(name string) (io.Reader, error) {
	switch name {
	case "HTML":
		data, err := files.ReadFile("html.dtd")
		if err != nil {
			return nil, fmt.Errorf("dtdres: reading embedded html.dtd: %w", err)
		}
		return bytes.NewReader(data), nil
	default:
		return nil, fmt.Errorf("dtdres: unknown resource %q", name)
	}
}
