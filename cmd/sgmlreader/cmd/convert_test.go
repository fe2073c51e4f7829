package cmd

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTemp writes contents to a new file under t.TempDir() and returns its
// path, the way go-i2p-newsgo/cmd/cmd_test.go stages fixture files for its
// own CLI tests.
func writeTemp(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestExecuteWithArgs_DefaultFormatEmitsWellFormedXML(t *testing.T) {
	in := writeTemp(t, "doc.html", `<html><body><p>hi`)
	out := filepath.Join(t.TempDir(), "out.xml")

	if err := ExecuteWithArgs([]string{"--html", in, out}); err != nil {
		t.Fatalf("ExecuteWithArgs: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), "<?xml") {
		t.Errorf("expected an XML declaration, got %q", got)
	}
	if !strings.Contains(string(got), "<p>hi</p>") {
		t.Errorf("expected the unclosed <p> to be auto-closed, got %q", got)
	}
}

func TestExecuteWithArgs_NoXMLFlagSuppressesDeclaration(t *testing.T) {
	in := writeTemp(t, "doc.html", `<root><a/></root>`)
	out := filepath.Join(t.TempDir(), "out.xml")

	if err := ExecuteWithArgs([]string{"--noxml", in, out}); err != nil {
		t.Fatalf("ExecuteWithArgs: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(got), "<?xml") {
		t.Errorf("expected no XML declaration, got %q", got)
	}
}

func TestExecuteWithArgs_JSONFormatProducesAttributeKey(t *testing.T) {
	in := writeTemp(t, "doc.xml", `<root id="7"><child>text</child></root>`)
	out := filepath.Join(t.TempDir(), "out.json")

	if err := ExecuteWithArgs([]string{"--format=json", in, out}); err != nil {
		t.Fatalf("ExecuteWithArgs: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(got), `"@id":"7"`) {
		t.Errorf("expected attribute key \"@id\" in JSON output, got %q", got)
	}
}

func TestExecuteWithArgs_C14NFormatSortsAttributes(t *testing.T) {
	in := writeTemp(t, "doc.xml", `<tag z="2" a="1"/>`)
	out := filepath.Join(t.TempDir(), "out.xml")

	if err := ExecuteWithArgs([]string{"--format=c14n", in, out}); err != nil {
		t.Fatalf("ExecuteWithArgs: %v", err)
	}

	got, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != `<tag a="1" z="2"></tag>` {
		t.Errorf("got %q", got)
	}
}

func TestExecuteWithArgs_UnknownFormatReturnsError(t *testing.T) {
	in := writeTemp(t, "doc.xml", `<root/>`)

	err := ExecuteWithArgs([]string{"--format=bogus", in})
	if err == nil {
		t.Fatal("expected an error for an unknown --format value")
	}
}

func TestExecuteWithArgs_GlobExpandsToMultipleOutputFiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"a.html", "b.html"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(`<root>x</root>`), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	outDir := filepath.Join(dir, "out")

	if err := ExecuteWithArgs([]string{filepath.Join(dir, "*.html"), outDir}); err != nil {
		t.Fatalf("ExecuteWithArgs: %v", err)
	}

	for _, name := range []string{"a.xml", "b.xml"} {
		if _, err := os.Stat(filepath.Join(outDir, name)); err != nil {
			t.Errorf("expected %s to exist: %v", name, err)
		}
	}
}
