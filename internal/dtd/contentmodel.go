// Package dtd implements the Content Model and the recursive-descent DTD
// parser: element, attribute, and entity declarations parsed out of SGML
// DTD syntax (ENTITY, ELEMENT, ATTLIST, marked sections, parameter
// entities).
package dtd

import "strings"

// GroupType is the connector joining a Group's members.
type GroupType int

const (
	GroupNone     GroupType = iota // single member, no connector yet fixed
	GroupSequence                  // ","
	GroupOr                        // "|"
	GroupAnd                       // "&"
)

// Occurrence is the trailing occurrence indicator on a group or member.
type Occurrence int

const (
	Required  Occurrence = iota // no suffix
	Optional                    // "?"
	OneOrMore                   // "+"
	ZeroOrMore                  // "*"
)

// DeclaredContent is an ELEMENT declaration's content keyword, when the
// model isn't a parenthesized group.
type DeclaredContent int

const (
	DeclaredDefault DeclaredContent = iota
	DeclaredCDATA
	DeclaredRCDATA
	DeclaredEMPTY
	DeclaredANY
)

// Member is one entry of a Group: either a symbol name or a nested Group.
// Exactly one of Name/Sub is set.
type Member struct {
	Name       string
	Sub        *Group
	Occurrence Occurrence
}

// Group is one node of the recursive content-model tree built from a
// parenthesized model, e.g. "(a, (b|c)+, #PCDATA)".
type Group struct {
	Parent     *Group
	Members    []Member
	GroupType  GroupType
	Occurrence Occurrence
	Mixed      bool // true once #PCDATA has been added as a member
}

// NewGroup returns an empty group with the given parent back-reference.
func NewGroup(parent *Group) *Group {
	return &Group{Parent: parent}
}

// AddPCDATA marks the group mixed, the representation of a leading
// "#PCDATA" member in an OR-group.
func (g *Group) AddPCDATA() {
	g.Mixed = true
}

func (g *Group) containsName(name string) bool {
	for _, m := range g.Members {
		if m.Sub != nil {
			if m.Sub.containsName(name) {
				return true
			}
			continue
		}
		if strings.EqualFold(m.Name, name) {
			return true
		}
	}
	return false
}

// ContentModel is an ELEMENT declaration's full content specification: a
// declared-content keyword, or a root Group when the model is a
// parenthesized group.
type ContentModel struct {
	Root            *Group
	DeclaredContent DeclaredContent
}

// NewContentModel returns a content model with an empty root group and
// DeclaredDefault content (i.e. "use the group").
func NewContentModel() *ContentModel {
	return &ContentModel{Root: NewGroup(nil)}
}

// CanContain reports whether name may appear as a direct child under this
// content model. ANY permits everything; EMPTY/CDATA/RCDATA permit nothing
// (those elements don't nest other elements); otherwise membership in the
// root group (recursing into nested sub-groups) decides it.
func (c *ContentModel) CanContain(name string) bool {
	if c == nil {
		return false
	}
	switch c.DeclaredContent {
	case DeclaredANY:
		return true
	case DeclaredEMPTY, DeclaredCDATA, DeclaredRCDATA:
		return false
	}
	if c.Root == nil {
		return false
	}
	return c.Root.containsName(name)
}
