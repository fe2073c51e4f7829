package dtd

import (
	"strings"

	"github.com/arturoeanton/sgmlreader/internal/entity"
)

// Presence is an attribute's default-value disposition.
type Presence int

const (
	PresenceDefault Presence = iota
	PresenceImplied
	PresenceRequired
	PresenceFixed
	PresenceCurrent
	PresenceConref
)

// AttrType is an ATTLIST attribute's declared type.
type AttrType int

const (
	AttrCDATA AttrType = iota
	AttrENTITY
	AttrENTITIES
	AttrID
	AttrIDREF
	AttrIDREFS
	AttrNAME
	AttrNAMES
	AttrNMTOKEN
	AttrNMTOKENS
	AttrNUMBER
	AttrNUMBERS
	AttrNUTOKEN
	AttrNUTOKENS
	AttrENUMERATION
	AttrNOTATION
)

var attrTypeNames = map[string]AttrType{
	"CDATA": AttrCDATA, "ENTITY": AttrENTITY, "ENTITIES": AttrENTITIES,
	"ID": AttrID, "IDREF": AttrIDREF, "IDREFS": AttrIDREFS,
	"NAME": AttrNAME, "NAMES": AttrNAMES,
	"NMTOKEN": AttrNMTOKEN, "NMTOKENS": AttrNMTOKENS,
	"NUMBER": AttrNUMBER, "NUMBERS": AttrNUMBERS,
	"NUTOKEN": AttrNUTOKEN, "NUTOKENS": AttrNUTOKENS,
	"NOTATION": AttrNOTATION,
}

// LookupAttrType resolves an identifier against the attribute-type
// enumeration; ok is false for an unrecognized identifier.
func LookupAttrType(s string) (AttrType, bool) {
	t, ok := attrTypeNames[strings.ToUpper(s)]
	return t, ok
}

// AttDef is one ATTLIST attribute definition.
type AttDef struct {
	Name       string
	Default    string
	Presence   Presence
	Type       AttrType
	EnumValues []string
}

// ElementDecl is one ELEMENT declaration together with its lazily-attached
// attribute dictionary.
type ElementDecl struct {
	Name             string // upper-cased once on insertion
	StartTagOptional bool
	EndTagOptional   bool
	Content          *ContentModel
	Inclusions       map[string]bool
	Exclusions       map[string]bool

	attrs map[string]*AttDef
}

// NewElementDecl upper-cases name once, per spec.md's data model.
func NewElementDecl(name string) *ElementDecl {
	return &ElementDecl{Name: strings.ToUpper(name)}
}

// AddAttribute attaches a, ignoring it silently if an attribute with the
// same (case-insensitive) name is already present.
func (e *ElementDecl) AddAttribute(a *AttDef) {
	key := strings.ToUpper(a.Name)
	if e.attrs == nil {
		e.attrs = make(map[string]*AttDef)
	}
	if _, exists := e.attrs[key]; exists {
		return
	}
	e.attrs[key] = a
}

// Attribute looks up an attribute definition case-insensitively.
func (e *ElementDecl) Attribute(name string) (*AttDef, bool) {
	if e.attrs == nil {
		return nil, false
	}
	a, ok := e.attrs[strings.ToUpper(name)]
	return a, ok
}

// CanContain answers the containment query used by the SGML reader's
// auto-close logic: exclusions win over inclusions, which win over the
// content model itself.
func (e *ElementDecl) CanContain(name string) bool {
	upper := strings.ToUpper(name)
	if e.Exclusions[upper] {
		return false
	}
	if e.Inclusions[upper] {
		return true
	}
	return e.Content.CanContain(name)
}

// GeneralEntity is a parsed ENTITY declaration, general or parameter.
type GeneralEntity struct {
	Name        string
	PublicID    string
	URI         string
	Literal     string
	LiteralKind entity.LiteralKind
	IsParameter bool
}

// Dtd holds the element, general-entity, and parameter-entity tables
// produced by parsing one DTD (internal subset plus any external subset
// merged into it).
type Dtd struct {
	Name              string
	Elements          map[string]*ElementDecl
	GeneralEntities   map[string]*GeneralEntity
	ParameterEntities map[string]*GeneralEntity
}

// NewDtd returns an empty Dtd with name as its declared root name.
func NewDtd(name string) *Dtd {
	return &Dtd{
		Name:              name,
		Elements:          make(map[string]*ElementDecl),
		GeneralEntities:   make(map[string]*GeneralEntity),
		ParameterEntities: make(map[string]*GeneralEntity),
	}
}

// Element looks up an element declaration case-insensitively.
func (d *Dtd) Element(name string) (*ElementDecl, bool) {
	e, ok := d.Elements[strings.ToUpper(name)]
	return e, ok
}

// DefineElement registers e, keyed by its already-upper-cased Name. A
// re-declaration of the same element name overwrites the prior one: unlike
// entities, a DTD redeclaring ELEMENT for the same name is rare enough that
// "most recent wins" is the more useful behavior for iterative DTD authoring.
func (d *Dtd) DefineElement(e *ElementDecl) {
	d.Elements[e.Name] = e
}

// DefineGeneralEntity registers e in the general-entity table. First writer
// wins: a later <!ENTITY> with the same name is ignored, matching standard
// SGML dictionary semantics.
func (d *Dtd) DefineGeneralEntity(e *GeneralEntity) {
	if _, exists := d.GeneralEntities[e.Name]; exists {
		return
	}
	d.GeneralEntities[e.Name] = e
}

// DefineParameterEntity registers e in the parameter-entity table,
// first-writer-wins as with general entities.
func (d *Dtd) DefineParameterEntity(e *GeneralEntity) {
	if _, exists := d.ParameterEntities[e.Name]; exists {
		return
	}
	d.ParameterEntities[e.Name] = e
}
