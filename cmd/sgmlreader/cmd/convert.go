package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arturoeanton/sgmlreader/cmd/sgmlreader/internal/cliconfig"
	"github.com/arturoeanton/sgmlreader/internal/diag"
	"github.com/arturoeanton/sgmlreader/internal/dtdres"
	"github.com/arturoeanton/sgmlreader/internal/entity"
	"github.com/arturoeanton/sgmlreader/internal/fetch"
	"github.com/arturoeanton/sgmlreader/internal/names"
	"github.com/arturoeanton/sgmlreader/internal/xmlwrite"
	"github.com/arturoeanton/sgmlreader/sgml"
	"github.com/arturoeanton/sgmlreader/sgml/xtree"
)

// runConvert dispatches a single invocation to one or more convertOne
// calls: one per glob match when InputURI expands to more than one file,
// or a single call against stdin or a single URI otherwise. Grounded on
// go-i2p-newsgo/cmd/build.go's stat-then-walk dispatch, simplified to
// filepath.Glob since this reader's input is already a URI/path string
// rather than a directory to recurse into.
func runConvert(cmd *cobra.Command, c *cliconfig.Config) error {
	ctx := cmd.Context()

	log, err := buildLogger(c)
	if err != nil {
		return err
	}

	if c.InputURI == "" {
		return convertOne(ctx, "", c.OutputFile, c, log)
	}

	if !strings.ContainsAny(c.InputURI, "*?[") {
		return convertOne(ctx, c.InputURI, c.OutputFile, c, log)
	}

	matches, err := filepath.Glob(c.InputURI)
	if err != nil {
		return fmt.Errorf("sgmlreader: bad glob %q: %w", c.InputURI, err)
	}
	if len(matches) == 0 {
		return fmt.Errorf("sgmlreader: %q matched no files", c.InputURI)
	}
	if len(matches) == 1 {
		return convertOne(ctx, matches[0], c.OutputFile, c, log)
	}

	outDir := c.OutputFile
	if outDir == "" {
		outDir = "."
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("sgmlreader: creating output directory %q: %w", outDir, err)
	}
	for _, in := range matches {
		dest := filepath.Join(outDir, strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))+outputExt(c.Format))
		if err := convertOne(ctx, in, dest, c, log); err != nil {
			return fmt.Errorf("sgmlreader: converting %q: %w", in, err)
		}
	}
	return nil
}

// convertOne reads a single document (inputURI, or stdin when empty) and
// writes its converted form to outputFile (stdout when empty or "-").
func convertOne(ctx context.Context, inputURI, outputFile string, c *cliconfig.Config, log diag.Logger) error {
	def, err := buildDecoding(c)
	if err != nil {
		return err
	}

	fetcher := fetch.New()
	if c.Proxy != "" {
		fetcher = fetch.NewWithProxy(c.Proxy)
	}

	stream := entity.NewStream(def, fetcher)

	var root *entity.Entity
	if inputURI == "" {
		root = entity.NewFromReader("stdin", os.Stdin, c.HTML)
	} else {
		root = entity.NewExternal("doc", "", inputURI, nil, fetcher)
		if c.HTML {
			root.MarkHTML()
		}
	}
	if err := stream.Push(ctx, root); err != nil {
		return fmt.Errorf("opening %q: %w", displayURI(inputURI), err)
	}

	opts := sgml.Options{
		SystemLiteral: c.DTD,
		StripDocType:  !c.KeepDocType,
		Fold:          buildFold(c),
		Whitespace:    buildWhitespace(c),
		Proxy:         c.Proxy,
	}
	if c.HTML {
		opts.DocType = "html"
	}

	reader := sgml.NewReader(stream, dtdres.New(), opts, log)

	out, closeOut, err := openOutput(outputFile)
	if err != nil {
		return err
	}
	defer closeOut()

	switch strings.ToLower(c.Format) {
	case "", "xml":
		return convertToXML(ctx, reader, out, c)
	case "json":
		return convertToJSON(ctx, reader, out, c)
	case "csv":
		return convertToCSV(ctx, reader, out, c)
	case "query":
		return convertToQueryText(ctx, reader, out, c)
	case "c14n":
		return convertToC14N(ctx, reader, out)
	default:
		return fmt.Errorf("sgmlreader: unknown --format %q (want xml, json, csv, query, or c14n)", c.Format)
	}
}

func convertToXML(ctx context.Context, r *sgml.Reader, out io.Writer, c *cliconfig.Config) error {
	if !c.NoXML {
		fmt.Fprintln(out, `<?xml version="1.0"?>`)
	}
	var enc *xmlwrite.Writer
	if c.Pretty {
		enc = xmlwrite.NewPretty(out, "  ")
	} else {
		enc = xmlwrite.New(out)
	}
	return xmlwrite.CopyFromReader(ctx, enc, r)
}

func convertToJSON(ctx context.Context, r *sgml.Reader, out io.Writer, c *cliconfig.Config) error {
	root, err := xtree.BuildFromReader(ctx, r)
	if err != nil {
		return err
	}
	if c.Pretty {
		_, err = io.WriteString(out, root.Dump())
		return err
	}
	text, err := root.ToJSON()
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, text)
	return err
}

func convertToCSV(ctx context.Context, r *sgml.Reader, out io.Writer, c *cliconfig.Config) error {
	root, err := xtree.BuildFromReader(ctx, r)
	if err != nil {
		return err
	}
	results, err := xtree.QueryAll(root, c.Query)
	if err != nil {
		return err
	}
	rows := make([]*xtree.OrderedMap, 0, len(results))
	for _, res := range results {
		if om, ok := res.(*xtree.OrderedMap); ok {
			rows = append(rows, om)
		}
	}
	return xtree.ToCSV(out, rows)
}

func convertToQueryText(ctx context.Context, r *sgml.Reader, out io.Writer, c *cliconfig.Config) error {
	root, err := xtree.BuildFromReader(ctx, r)
	if err != nil {
		return err
	}
	results, err := xtree.QueryAll(root, c.Query)
	if err != nil {
		return err
	}
	for _, res := range results {
		switch v := res.(type) {
		case *xtree.OrderedMap:
			fmt.Fprintln(out, v.Dump())
		default:
			fmt.Fprintln(out, v)
		}
	}
	return nil
}

func convertToC14N(ctx context.Context, r *sgml.Reader, out io.Writer) error {
	canon, err := xtree.Canonicalize(ctx, r)
	if err != nil {
		return err
	}
	_, err = out.Write(canon)
	return err
}

func buildLogger(c *cliconfig.Config) (diag.Logger, error) {
	switch strings.ToLower(c.ErrorLog) {
	case "", "$stderr":
		return diag.NewStdLogger(), nil
	case "log":
		return diag.NewFileLogger(c.ErrorLogFile)
	default:
		return nil, fmt.Errorf("sgmlreader: unrecognized -e value %q (want \"log\" or \"$STDERR\")", c.ErrorLog)
	}
}

func buildFold(c *cliconfig.Config) names.Fold {
	switch {
	case c.Upper:
		return names.FoldUpper
	case c.Lower:
		return names.FoldLower
	default:
		return names.FoldNone
	}
}

func buildWhitespace(c *cliconfig.Config) sgml.Whitespace {
	if c.Pretty {
		return sgml.WhitespaceNone
	}
	return sgml.WhitespaceAll
}

func buildDecoding(c *cliconfig.Config) (entity.Decoding, error) {
	if c.Encoding == "" {
		return entity.UTF8, nil
	}
	dec, ok := entity.Lookup(c.Encoding)
	if !ok {
		return entity.Decoding{}, fmt.Errorf("sgmlreader: unknown -encoding %q", c.Encoding)
	}
	return *dec, nil
}

// openOutput resolves outputFile to a writer: "" or "-" means stdout, which
// is never closed by the returned closer.
func openOutput(outputFile string) (io.Writer, func(), error) {
	if outputFile == "" || outputFile == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(outputFile)
	if err != nil {
		return nil, nil, fmt.Errorf("sgmlreader: creating output %q: %w", outputFile, err)
	}
	return f, func() { f.Close() }, nil
}

func outputExt(format string) string {
	switch strings.ToLower(format) {
	case "json":
		return ".json"
	case "csv":
		return ".csv"
	case "query":
		return ".txt"
	case "c14n":
		return ".c14n.xml"
	default:
		return ".xml"
	}
}

func displayURI(inputURI string) string {
	if inputURI == "" {
		return "stdin"
	}
	return inputURI
}
