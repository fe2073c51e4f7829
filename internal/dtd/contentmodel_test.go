package dtd

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContentModel_ANYPermitsEverything(t *testing.T) {
	cm := &ContentModel{DeclaredContent: DeclaredANY}
	assert.True(t, cm.CanContain("anything"))
}

func TestContentModel_EMPTYPermitsNothing(t *testing.T) {
	cm := &ContentModel{DeclaredContent: DeclaredEMPTY}
	assert.False(t, cm.CanContain("img"))
}

func TestContentModel_GroupMembership(t *testing.T) {
	root := NewGroup(nil)
	root.GroupType = GroupOr
	root.Members = []Member{{Name: "B"}, {Name: "I"}}
	cm := &ContentModel{Root: root}
	assert.True(t, cm.CanContain("b"))
	assert.True(t, cm.CanContain("I"))
	assert.False(t, cm.CanContain("p"))
}

func TestContentModel_NestedGroupMembership(t *testing.T) {
	inner := NewGroup(nil)
	inner.GroupType = GroupOr
	inner.Members = []Member{{Name: "B"}, {Name: "I"}}
	root := NewGroup(nil)
	root.GroupType = GroupSequence
	root.Members = []Member{{Name: "SPAN"}, {Sub: inner}}
	cm := &ContentModel{Root: root}
	assert.True(t, cm.CanContain("span"))
	assert.True(t, cm.CanContain("b"))
	assert.False(t, cm.CanContain("table"))
}

func TestElementDecl_AddAttributeIgnoresDuplicate(t *testing.T) {
	e := NewElementDecl("img")
	e.AddAttribute(&AttDef{Name: "src", Default: "first"})
	e.AddAttribute(&AttDef{Name: "SRC", Default: "second"})
	a, ok := e.Attribute("src")
	assert.True(t, ok)
	assert.Equal(t, "first", a.Default)
}

func TestElementDecl_ExclusionsWinOverInclusionsAndContent(t *testing.T) {
	e := NewElementDecl("pre")
	e.Content = &ContentModel{DeclaredContent: DeclaredANY}
	e.Exclusions = map[string]bool{"IMG": true}
	e.Inclusions = map[string]bool{"IMG": true}
	assert.False(t, e.CanContain("img"))
	assert.True(t, e.CanContain("b"))
}

func TestDtd_DefineGeneralEntityFirstWriterWins(t *testing.T) {
	d := NewDtd("html")
	d.DefineGeneralEntity(&GeneralEntity{Name: "nbsp", Literal: " "})
	d.DefineGeneralEntity(&GeneralEntity{Name: "nbsp", Literal: "X"})
	assert.Equal(t, " ", d.GeneralEntities["nbsp"].Literal)
}

func TestDtd_ElementLookupCaseInsensitive(t *testing.T) {
	d := NewDtd("html")
	d.DefineElement(NewElementDecl("IMG"))
	_, ok := d.Element("img")
	assert.True(t, ok)
}
