package sgml

import "io"

// ResourceLoader resolves a logical resource name (currently just "HTML")
// to a character stream, used to load the embedded default HTML DTD without
// a network or filesystem round trip.
type ResourceLoader interface {
	Load(name string) (io.Reader, error)
}
