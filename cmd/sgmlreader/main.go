// Command sgmlreader converts loosely-structured SGML/HTML documents into
// well-formed XML (or JSON/CSV/canonical XML) from the command line.
package main

import "github.com/arturoeanton/sgmlreader/cmd/sgmlreader/cmd"

func main() {
	cmd.Execute()
}
