// Package cliconfig defines the Config struct used by the cmd package to
// bind cobra flags and viper configuration values into a single typed
// structure, the way go-i2p-newsgo's config.Conf does for its own CLI.
package cliconfig

// Config holds every value populated by viper from cobra flags,
// SGMLREADER_* environment variables, or a config file.
//
// mapstructure tags are required wherever the lowercased Go field name does
// not match the flag name viper binds; without them viper.Unmarshal leaves
// those fields at their zero value.
type Config struct {
	// Input/output are positional args, not flags: InputURI is the document
	// to read (path, file://, http(s)://, or a local glob such as
	// "docs/*.html"); OutputFile is where the converted XML is written
	// ("" or "-" means stdout). When InputURI is a glob matching more than
	// one file, OutputFile is treated as a destination directory instead of
	// a single file.
	InputURI   string
	OutputFile string

	// ErrorLog selects where recoverable warnings go: "" or "$STDERR"
	// writes to os.Stderr, "log" appends to ErrorLogFile. Corresponds to
	// the -e flag.
	ErrorLog     string `mapstructure:"e"`
	ErrorLogFile string `mapstructure:"errorlogfile"`

	// Pretty enables indented output and suppresses insignificant
	// whitespace nodes, matching the -f flag's documented behavior
	// ("pretty + whitespace-suppress").
	Pretty bool `mapstructure:"f"`

	// HTML loads the embedded default HTML DTD (DocType="html"),
	// matching the -html flag.
	HTML bool `mapstructure:"html"`

	// DTD is a URL to an external DTD to use instead of the embedded HTML
	// one, matching the -dtd flag.
	DTD string `mapstructure:"dtd"`

	// NoXML suppresses the leading "<?xml version=\"1.0\"?>" declaration
	// on output, matching the -noxml flag.
	NoXML bool `mapstructure:"noxml"`

	// KeepDocType preserves the synthesized DOCTYPE node in the output
	// instead of stripping it, matching the -doctype flag.
	KeepDocType bool `mapstructure:"doctype"`

	// Lower / Upper select the element/attribute name-casing policy,
	// matching the -lower / -upper flags. Neither set means FoldNone.
	Lower bool `mapstructure:"lower"`
	Upper bool `mapstructure:"upper"`

	// Proxy is an opaque "server:port" HTTP proxy for external fetches,
	// matching the -proxy flag.
	Proxy string `mapstructure:"proxy"`

	// Encoding overrides the input's detected character encoding,
	// matching the -encoding flag.
	Encoding string `mapstructure:"encoding"`

	// Format selects the output rendering: "xml" (default), "json",
	// "csv", "query", or "c14n". Not in spec.md's literal CLI surface;
	// supplements it to exercise sgml/xtree per SPEC_FULL.md §8.
	Format string `mapstructure:"format"`

	// Query is the sgml/xtree path expression evaluated when
	// Format is "query" or "csv".
	Query string `mapstructure:"query"`
}
