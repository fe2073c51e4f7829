package dtd

import (
	"context"
	"fmt"
	"strings"

	"github.com/arturoeanton/sgmlreader/internal/diag"
	"github.com/arturoeanton/sgmlreader/internal/entity"
)

// Terminator character sets, named after spec.md §4.3.
const (
	Ngterm = " \r\n\t|,)"
	Cmterm = " \r\n\t,&|()?+*"
	Dcterm = " \r\n\t>"
	Peterm = " \t\r\n>"
)

// Parser is a recursive-descent SGML DTD parser. It reads through an
// entity.Stream so that parameter-entity expansion (entity.Stream.Push) is
// transparent to every production below.
type Parser struct {
	stream *entity.Stream
	dtd    *Dtd
	log    diag.Logger
}

// NewParser returns a Parser that will populate dtd as it consumes stream.
func NewParser(stream *entity.Stream, dtd *Dtd, log diag.Logger) *Parser {
	return &Parser{stream: stream, dtd: dtd, log: log}
}

// Parse runs the DTD main loop of spec.md §4.3 until the entity stack is
// exhausted.
func (p *Parser) Parse(ctx context.Context) error {
	for {
		c := p.stream.Lookahead()
		switch {
		case c == entity.EOF:
			return nil
		case isWS(c):
			p.stream.SkipWhitespace()
		case c == '<':
			if err := p.parseMarkup(ctx); err != nil {
				return err
			}
		case c == '%':
			if err := p.parsePEReference(ctx); err != nil {
				return err
			}
		default:
			return p.errorf("unexpected character %q in DTD", c)
		}
	}
}

func (p *Parser) parseMarkup(ctx context.Context) error {
	p.stream.ReadChar() // consume '<'
	if p.stream.Lookahead() != '!' {
		return p.errorf("expected '!' after '<' in DTD")
	}
	p.stream.ReadChar() // consume '!'
	switch p.stream.Lookahead() {
	case '-':
		return p.parseComment()
	case '[':
		return p.parseMarkedSection(ctx)
	default:
		kw, err := p.stream.ScanToken(" \t\r\n", true)
		if err != nil {
			return err
		}
		switch strings.ToUpper(kw) {
		case "ENTITY":
			return p.parseEntityDecl(ctx)
		case "ELEMENT":
			return p.parseElementDecl(ctx)
		case "ATTLIST":
			return p.parseAttlistDecl(ctx)
		default:
			return p.errorf("unknown DTD declaration keyword %q", kw)
		}
	}
}

func (p *Parser) parseComment() error {
	p.stream.ReadChar() // consume first '-'
	if p.stream.Lookahead() != '-' {
		return p.errorf("expected '--' to start a DTD comment")
	}
	p.stream.ReadChar() // consume second '-'
	if _, err := p.stream.ScanToEnd("DTD comment", "-->"); err != nil {
		return err
	}
	p.stream.SkipWhitespace()
	if p.stream.Lookahead() == '>' {
		p.stream.ReadChar()
	}
	return nil
}

// parseMarkedSection handles "<![INCLUDE[" / "<![IGNORE[". INCLUDE is
// explicitly unsupported per spec.md's design notes; this fails fast rather
// than inventing semantics for it.
func (p *Parser) parseMarkedSection(ctx context.Context) error {
	p.stream.ReadChar() // consume '['
	p.stream.SkipWhitespace()
	kw, err := p.expandedToken(ctx, " \t\r\n[")
	if err != nil {
		return err
	}
	p.stream.SkipWhitespace()
	if p.stream.Lookahead() != '[' {
		return p.errorf("expected '[' after marked section keyword %q", kw)
	}
	p.stream.ReadChar()
	switch strings.ToUpper(kw) {
	case "INCLUDE":
		return p.errorf("marked section INCLUDE is not implemented")
	case "IGNORE":
		_, err := p.stream.ScanToEnd("marked section", "]]>")
		return err
	default:
		return p.errorf("unknown marked section keyword %q", kw)
	}
}

// parsePEReference expands "%name;" by pushing the named parameter entity
// onto the stream. External parameter entities are rejected outright, per
// spec.md's design notes (avoids unbounded fetches during DTD parsing).
func (p *Parser) parsePEReference(ctx context.Context) error {
	p.stream.ReadChar() // consume '%'
	name, err := p.stream.ScanToken(Peterm+";", true)
	if err != nil {
		return err
	}
	if p.stream.Lookahead() == ';' {
		p.stream.ReadChar()
	}
	pe, ok := p.dtd.ParameterEntities[name]
	if !ok {
		return p.errorf("undefined parameter entity %%%s;", name)
	}
	if pe.URI != "" {
		return p.errorf("external parameter entity %%%s; is not supported", name)
	}
	child := entity.NewInternal(name, pe.Literal, pe.LiteralKind, nil)
	return p.stream.Push(ctx, child)
}

// expandedToken scans a token, first transparently expanding any leading
// parameter-entity references, matching spec.md's "a parameter entity
// reference appearing anywhere a name ... is expected."
func (p *Parser) expandedToken(ctx context.Context, term string) (string, error) {
	for p.stream.Lookahead() == '%' {
		if err := p.parsePEReference(ctx); err != nil {
			return "", err
		}
		p.stream.SkipWhitespace()
	}
	return p.stream.ScanToken(term, true)
}

func (p *Parser) parseEntityDecl(ctx context.Context) error {
	p.stream.SkipWhitespace()
	isParam := false
	if p.stream.Lookahead() == '%' {
		isParam = true
		p.stream.ReadChar()
		p.stream.SkipWhitespace()
	}
	name, err := p.expandedToken(ctx, " \t\r\n")
	if err != nil {
		return err
	}
	p.stream.SkipWhitespace()

	ge := &GeneralEntity{Name: name, IsParameter: isParam}
	switch p.stream.Lookahead() {
	case '"', '\'':
		lit, err := p.stream.ScanLiteral(p.stream.Lookahead())
		if err != nil {
			return err
		}
		ge.Literal = lit
	default:
		kw, err := p.stream.ScanToken(" \t\r\n>", true)
		if err != nil {
			return err
		}
		switch strings.ToUpper(kw) {
		case "CDATA", "SDATA", "PI":
			p.stream.SkipWhitespace()
			lit, err := p.stream.ScanLiteral(p.stream.Lookahead())
			if err != nil {
				return err
			}
			ge.Literal = lit
			switch strings.ToUpper(kw) {
			case "CDATA":
				ge.LiteralKind = entity.LiteralCDATA
			case "SDATA":
				ge.LiteralKind = entity.LiteralSDATA
			case "PI":
				ge.LiteralKind = entity.LiteralPI
			}
		case "PUBLIC":
			p.stream.SkipWhitespace()
			pub, err := p.stream.ScanLiteral(p.stream.Lookahead())
			if err != nil {
				return err
			}
			ge.PublicID = pub
			p.stream.SkipWhitespace()
			if p.stream.Lookahead() == '"' || p.stream.Lookahead() == '\'' {
				uri, err := p.stream.ScanLiteral(p.stream.Lookahead())
				if err != nil {
					return err
				}
				ge.URI = uri
			}
		case "SYSTEM":
			p.stream.SkipWhitespace()
			uri, err := p.stream.ScanLiteral(p.stream.Lookahead())
			if err != nil {
				return err
			}
			ge.URI = uri
		default:
			return p.errorf("malformed ENTITY declaration for %q", name)
		}
	}
	p.stream.SkipWhitespace()
	if p.stream.Lookahead() == '>' {
		p.stream.ReadChar()
	}
	if isParam {
		p.dtd.DefineParameterEntity(ge)
	} else {
		p.dtd.DefineGeneralEntity(ge)
	}
	return nil
}

func (p *Parser) parseElementDecl(ctx context.Context) error {
	p.stream.SkipWhitespace()
	names, err := p.parseNameGroup(ctx)
	if err != nil {
		return err
	}
	p.stream.SkipWhitespace()
	sto, err := p.parseTagOmission()
	if err != nil {
		return err
	}
	p.stream.SkipWhitespace()
	eto, err := p.parseTagOmission()
	if err != nil {
		return err
	}
	p.stream.SkipWhitespace()
	cm, err := p.parseContentSpec(ctx)
	if err != nil {
		return err
	}
	p.stream.SkipWhitespace()

	var excl, incl map[string]bool
	if p.stream.Lookahead() == '-' {
		p.stream.ReadChar()
		excl, err = p.parseInclExclGroup(ctx)
		if err != nil {
			return err
		}
		p.stream.SkipWhitespace()
	}
	if p.stream.Lookahead() == '+' {
		p.stream.ReadChar()
		incl, err = p.parseInclExclGroup(ctx)
		if err != nil {
			return err
		}
		p.stream.SkipWhitespace()
	}
	if p.stream.Lookahead() == '>' {
		p.stream.ReadChar()
	}
	for _, n := range names {
		decl := NewElementDecl(n)
		decl.StartTagOptional = sto
		decl.EndTagOptional = eto
		decl.Content = cm
		decl.Exclusions = excl
		decl.Inclusions = incl
		p.dtd.DefineElement(decl)
	}
	return nil
}

// parseNameGroup parses either a single (possibly PE-expanded) name, or a
// parenthesized "(a|b|c)" list, per spec.md's Ngterm production. It is also
// reused for inclusion/exclusion groups and ENUMERATION/NOTATION value
// lists, which share the same surface syntax.
func (p *Parser) parseNameGroup(ctx context.Context) ([]string, error) {
	if p.stream.Lookahead() != '(' {
		name, err := p.expandedToken(ctx, Ngterm)
		if err != nil {
			return nil, err
		}
		return []string{name}, nil
	}
	p.stream.ReadChar() // consume '('
	var names []string
	for {
		p.stream.SkipWhitespace()
		for p.stream.Lookahead() == '%' {
			if err := p.parsePEReference(ctx); err != nil {
				return nil, err
			}
			p.stream.SkipWhitespace()
		}
		name, err := p.stream.ScanToken(Ngterm, true)
		if err != nil {
			return nil, err
		}
		names = append(names, name)
		p.stream.SkipWhitespace()
		if p.stream.Lookahead() == '|' {
			p.stream.ReadChar()
			continue
		}
		break
	}
	if p.stream.Lookahead() == ')' {
		p.stream.ReadChar()
	}
	return names, nil
}

func (p *Parser) parseInclExclGroup(ctx context.Context) (map[string]bool, error) {
	names, err := p.parseNameGroup(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToUpper(n)] = true
	}
	return set, nil
}

func (p *Parser) parseTagOmission() (bool, error) {
	switch p.stream.Lookahead() {
	case '-':
		p.stream.ReadChar()
		return false, nil
	case 'O', 'o':
		p.stream.ReadChar()
		return true, nil
	default:
		return false, p.errorf("expected '-' or 'O' for a tag-omission marker, found %q", p.stream.Lookahead())
	}
}

func (p *Parser) parseContentSpec(ctx context.Context) (*ContentModel, error) {
	if p.stream.Lookahead() == '(' {
		root, err := p.parseModelGroup(ctx)
		if err != nil {
			return nil, err
		}
		return &ContentModel{Root: root, DeclaredContent: DeclaredDefault}, nil
	}
	kw, err := p.expandedToken(ctx, Dcterm)
	if err != nil {
		return nil, err
	}
	cm := &ContentModel{Root: NewGroup(nil)}
	switch strings.ToUpper(kw) {
	case "CDATA":
		cm.DeclaredContent = DeclaredCDATA
	case "RCDATA":
		cm.DeclaredContent = DeclaredRCDATA
	case "EMPTY":
		cm.DeclaredContent = DeclaredEMPTY
	case "ANY":
		cm.DeclaredContent = DeclaredANY
	default:
		return nil, p.errorf("unknown declared-content keyword %q", kw)
	}
	return cm, nil
}

// parseModelGroup parses one parenthesized content-model group, recursing
// into nested groups. It enforces that a group opened inside a pushed
// parameter entity also closes inside that same entity, per spec.md §4.3.
func (p *Parser) parseModelGroup(ctx context.Context) (*Group, error) {
	startDepth := p.stream.Depth()
	p.stream.ReadChar() // consume '('
	group := NewGroup(nil)
	for {
		p.stream.SkipWhitespace()
		for p.stream.Lookahead() == '%' {
			if err := p.parsePEReference(ctx); err != nil {
				return nil, err
			}
			p.stream.SkipWhitespace()
		}
		switch {
		case p.stream.Lookahead() == '#':
			p.stream.ReadChar()
			tok, err := p.stream.ScanToken(Cmterm, true)
			if err != nil {
				return nil, err
			}
			if strings.ToUpper(tok) != "PCDATA" {
				return nil, p.errorf("expected #PCDATA, found #%s", tok)
			}
			group.AddPCDATA()
		case p.stream.Lookahead() == '(':
			sub, err := p.parseModelGroup(ctx)
			if err != nil {
				return nil, err
			}
			sub.Parent = group
			group.Members = append(group.Members, Member{Sub: sub, Occurrence: sub.Occurrence})
		default:
			name, err := p.stream.ScanToken(Cmterm, true)
			if err != nil {
				return nil, err
			}
			occ := p.parseOccurrence()
			group.Members = append(group.Members, Member{Name: name, Occurrence: occ})
		}
		p.stream.SkipWhitespace()
		switch p.stream.Lookahead() {
		case ',', '|', '&':
			conn := connFromRune(p.stream.Lookahead())
			if group.GroupType != GroupNone && group.GroupType != conn {
				return nil, p.errorf("a content-model group cannot mix connectors")
			}
			group.GroupType = conn
			p.stream.ReadChar()
			continue
		case ')':
			p.stream.ReadChar()
			group.Occurrence = p.parseOccurrence()
			if p.stream.Depth() != startDepth {
				return nil, p.errorf("a model group opened in one entity must also close inside that entity")
			}
			return group, nil
		default:
			return nil, p.errorf("expected ',', '|', '&', or ')' in content model, found %q", p.stream.Lookahead())
		}
	}
}

func connFromRune(r rune) GroupType {
	switch r {
	case ',':
		return GroupSequence
	case '|':
		return GroupOr
	case '&':
		return GroupAnd
	}
	return GroupNone
}

func (p *Parser) parseOccurrence() Occurrence {
	switch p.stream.Lookahead() {
	case '?':
		p.stream.ReadChar()
		return Optional
	case '+':
		p.stream.ReadChar()
		return OneOrMore
	case '*':
		p.stream.ReadChar()
		return ZeroOrMore
	}
	return Required
}

func (p *Parser) parseAttlistDecl(ctx context.Context) error {
	p.stream.SkipWhitespace()
	names, err := p.parseNameGroup(ctx)
	if err != nil {
		return err
	}
	for _, name := range names {
		if _, ok := p.dtd.Element(name); !ok {
			return p.errorf("ATTLIST declared for undeclared element %q", name)
		}
	}
	for {
		p.stream.SkipWhitespace()
		for p.stream.Lookahead() == '%' {
			if err := p.parsePEReference(ctx); err != nil {
				return err
			}
			p.stream.SkipWhitespace()
		}
		if p.stream.Lookahead() == '>' {
			p.stream.ReadChar()
			return nil
		}
		if p.stream.Lookahead() == entity.EOF {
			return p.errorf("ATTLIST declaration not terminated")
		}
		def, err := p.parseAttDef(ctx)
		if err != nil {
			return err
		}
		for _, name := range names {
			decl, _ := p.dtd.Element(name)
			decl.AddAttribute(def)
		}
	}
}

func (p *Parser) parseAttDef(ctx context.Context) (*AttDef, error) {
	name, err := p.expandedToken(ctx, " \t\r\n(")
	if err != nil {
		return nil, err
	}
	p.stream.SkipWhitespace()
	def := &AttDef{Name: name}
	if p.stream.Lookahead() == '(' {
		vals, err := p.parseNameGroup(ctx)
		if err != nil {
			return nil, err
		}
		def.Type = AttrENUMERATION
		def.EnumValues = vals
	} else {
		kw, err := p.expandedToken(ctx, " \t\r\n(")
		if err != nil {
			return nil, err
		}
		if strings.ToUpper(kw) == "NOTATION" {
			p.stream.SkipWhitespace()
			if p.stream.Lookahead() != '(' {
				return nil, p.errorf("expected a name group after NOTATION")
			}
			vals, err := p.parseNameGroup(ctx)
			if err != nil {
				return nil, err
			}
			def.Type = AttrNOTATION
			def.EnumValues = vals
		} else {
			t, ok := LookupAttrType(kw)
			if !ok {
				return nil, p.errorf("unknown attribute type %q", kw)
			}
			def.Type = t
		}
	}
	p.stream.SkipWhitespace()
	if err := p.parseAttDefault(ctx, def); err != nil {
		return nil, err
	}
	return def, nil
}

func (p *Parser) parseAttDefault(ctx context.Context, def *AttDef) error {
	if p.stream.Lookahead() == '#' {
		p.stream.ReadChar()
		kw, err := p.stream.ScanToken(Peterm, true)
		if err != nil {
			return err
		}
		switch strings.ToUpper(kw) {
		case "REQUIRED":
			def.Presence = PresenceRequired
		case "IMPLIED":
			def.Presence = PresenceImplied
		case "CURRENT":
			def.Presence = PresenceCurrent
		case "CONREF":
			def.Presence = PresenceConref
		case "FIXED":
			def.Presence = PresenceFixed
			p.stream.SkipWhitespace()
			lit, err := p.readDefaultValue(ctx)
			if err != nil {
				return err
			}
			def.Default = lit
		default:
			return p.errorf("unknown attribute default keyword #%s", kw)
		}
		return nil
	}
	lit, err := p.readDefaultValue(ctx)
	if err != nil {
		return err
	}
	def.Default = lit
	def.Presence = PresenceDefault
	return nil
}

func (p *Parser) readDefaultValue(ctx context.Context) (string, error) {
	if p.stream.Lookahead() == '"' || p.stream.Lookahead() == '\'' {
		return p.stream.ScanLiteral(p.stream.Lookahead())
	}
	return p.expandedToken(ctx, Peterm)
}

func (p *Parser) errorf(format string, args ...any) error {
	return &diag.ReaderError{Msg: fmt.Sprintf(format, args...), Context: p.stream.Context()}
}

func isWS(r rune) bool {
	return r == ' ' || r == '\t' || r == '\r' || r == '\n'
}
