package entity

import (
	"bytes"
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	xnetcharset "golang.org/x/net/html/charset"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
)

var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
var utf16LE = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Decoding wraps a byte-stream transcoder that produces UTF-8 bytes. It is
// the concrete return type of the Encoding Detector (spec.md C1).
type Decoding struct {
	Name string
	wrap func(io.Reader) io.Reader
}

// Reader wraps r so that reading from the result yields UTF-8 bytes.
func (d Decoding) Reader(r io.Reader) io.Reader {
	if d.wrap == nil {
		return r
	}
	return d.wrap(r)
}

// UTF8 is the identity decoding, used as the caller-supplied default when
// no BOM, declaration, or meta tag overrides it.
var UTF8 = Decoding{Name: "utf-8"}

func xtextDecoding(name string, enc encoding.Encoding) Decoding {
	return Decoding{Name: name, wrap: func(r io.Reader) io.Reader { return enc.NewDecoder().Reader(r) }}
}

func ucs4Decoding(name string, bigEndian bool) Decoding {
	return Decoding{Name: name, wrap: func(r io.Reader) io.Reader { return &ucs4Reader{r: r, bigEndian: bigEndian} }}
}

// DetectBOM inspects the first bytes of buf for a byte-order mark, or a
// BOM-less 4-byte UCS-4 signature, per spec.md §4.1's table. It returns the
// matching decoding and the number of leading bytes that belong to the mark
// itself (and must be discarded before decoding); the BOM-less signatures
// return 0 since those bytes are real content ('<') that still needs
// decoding, not a mark to strip.
func DetectBOM(buf []byte) (*Decoding, int) {
	has := func(sig ...byte) bool {
		return len(buf) >= len(sig) && bytes.Equal(buf[:len(sig)], sig)
	}
	switch {
	case has(0x00, 0x00, 0x00, 0x3C):
		d := ucs4Decoding("ucs-4le", false)
		return &d, 0
	case has(0xFF, 0xFE, 0xFF, 0xFE):
		d := ucs4Decoding("ucs-4le", false)
		return &d, 4
	case has(0x3C, 0x00, 0x00, 0x00):
		d := ucs4Decoding("ucs-4be", true)
		return &d, 0
	case has(0xFE, 0xFF, 0xFE, 0xFF):
		d := ucs4Decoding("ucs-4be", true)
		return &d, 4
	case has(0xEF, 0xBB, 0xBF):
		return &UTF8, 3
	case has(0xFE, 0xFF):
		d := xtextDecoding("utf-16be", utf16BE)
		return &d, 2
	case has(0xFF, 0xFE):
		d := xtextDecoding("utf-16le", utf16LE)
		return &d, 2
	}
	return nil, 0
}

var xmlDeclRe = regexp.MustCompile(`(?i)<\?xml[^>]*\bencoding\s*=\s*["']([^"']+)["']`)
var metaCharsetRe = regexp.MustCompile(`(?i)<meta[^>]*http-equiv\s*=\s*["']?content-type["']?[^>]*content\s*=\s*["'][^"']*charset\s*=\s*([a-zA-Z0-9_\-]+)`)
var metaCharsetShortRe = regexp.MustCompile(`(?i)<meta[^>]*\bcharset\s*=\s*["']?([a-zA-Z0-9_\-]+)`)

// Sniff looks for an in-stream `<?xml version=... encoding=...?>` declaration
// or, failing that, an HTML `<meta http-equiv="content-type" ...charset=...>`
// (or HTML5 `<meta charset=...>`) anywhere within an initial window of
// already-decoded text. It reports the declared charset
// name, or ok=false if nothing was found.
func Sniff(window string) (name string, ok bool) {
	if m := xmlDeclRe.FindStringSubmatch(window); m != nil {
		return m[1], true
	}
	// Meta sniffing only matters before any real content; in practice the
	// head of an HTML document is the only place a meta tag appears usefully,
	// so the whole window is searched rather than truncated hard.
	if m := metaCharsetRe.FindStringSubmatch(window); m != nil {
		return m[1], true
	}
	if m := metaCharsetShortRe.FindStringSubmatch(window); m != nil {
		return m[1], true
	}
	return "", false
}

// Lookup resolves a charset name (from an XML declaration or HTML meta tag)
// to a Decoding. UCS-4 variants are handled locally since golang.org/x/text
// has no UTF-32 codec; everything else is delegated to
// golang.org/x/net/html/charset, which already knows the IANA/WHATWG names
// used throughout HTML (windows-1252, iso-8859-1, shift_jis, ...).
func Lookup(name string) (*Decoding, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))
	switch lower {
	case "", "utf-8", "utf8":
		return &UTF8, true
	case "ucs-4", "ucs-4be", "iso-10646-ucs-4":
		d := ucs4Decoding("ucs-4be", true)
		return &d, true
	case "ucs-4le":
		d := ucs4Decoding("ucs-4le", false)
		return &d, true
	}
	enc, canonical, ok := xnetcharset.Lookup(lower)
	if !ok || enc == nil {
		return nil, false
	}
	d := xtextDecoding(canonical, enc)
	return &d, true
}

// ucs4Reader decodes 4-byte UCS-4 groups into UTF-8, rejecting values above
// U+10FFFF or inside the surrogate range U+D800..U+DFFF, per spec.md §4.1.
// Go's rune already holds a full code point, so no UTF-16 surrogate-pair
// synthesis is needed on the way out; runes simply encode as multi-byte UTF-8.
type ucs4Reader struct {
	r         io.Reader
	bigEndian bool
	carry     [4]byte
	carryLen  int
}

func (u *ucs4Reader) Read(p []byte) (int, error) {
	if len(p) < 4 {
		p = make([]byte, 4) // guarantee room for one rune's worth of UTF-8; caller's buffer is still respected below
	}
	out := make([]byte, 0, len(p))
	raw := make([]byte, 4096)
	for len(out) < len(p)-4 {
		n, err := u.r.Read(raw)
		for i := 0; i < n; i++ {
			u.carry[u.carryLen] = raw[i]
			u.carryLen++
			if u.carryLen == 4 {
				r, decErr := u.decodeGroup(u.carry)
				u.carryLen = 0
				if decErr != nil {
					return len(out), decErr
				}
				var tmp [utf8.UTFMax]byte
				w := utf8.EncodeRune(tmp[:], r)
				out = append(out, tmp[:w]...)
			}
		}
		if err != nil {
			if err == io.EOF && u.carryLen > 0 {
				return len(out), fmt.Errorf("ucs-4: truncated 4-byte sequence (%d leftover bytes)", u.carryLen)
			}
			if len(out) == 0 {
				return 0, err
			}
			return len(out), nil
		}
		if len(out) > 0 {
			break
		}
	}
	n := copy(p, out)
	return n, nil
}

func (u *ucs4Reader) decodeGroup(b [4]byte) (rune, error) {
	var v uint32
	if u.bigEndian {
		v = uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
	} else {
		v = uint32(b[3])<<24 | uint32(b[2])<<16 | uint32(b[1])<<8 | uint32(b[0])
	}
	if v > 0x10FFFF || (v >= 0xD800 && v <= 0xDFFF) {
		return 0, fmt.Errorf("ucs-4: code point U+%X out of range", v)
	}
	return rune(v), nil
}

