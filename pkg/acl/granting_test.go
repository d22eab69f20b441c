package acl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntryStrategies(t *testing.T) {
	tests := []struct {
		name     string
		strategy Strategy
		mask     int32
		required int32
		want     bool
	}{
		{"all satisfied", StrategyAll, MaskView | MaskEdit, MaskView, true},
		{"all missing bit", StrategyAll, MaskView, MaskView | MaskEdit, false},
		{"default is all", 0, MaskView, MaskView | MaskEdit, false},
		{"any one bit", StrategyAny, MaskView, MaskView | MaskEdit, true},
		{"any no bits", StrategyAny, MaskOwner, MaskView, false},
		{"equal exact", StrategyEqual, MaskView | MaskEdit, MaskView | MaskEdit, true},
		{"equal superset", StrategyEqual, MaskView | MaskEdit, MaskView, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &Entry{Mask: tt.mask, Strategy: tt.strategy}
			assert.Equal(t, tt.want, e.applies(tt.required))
		})
	}
}

func TestIsGranted(t *testing.T) {
	a := New(ObjectIdentity{Type: "Post", Identifier: "1"})
	require.NoError(t, a.InsertObjectACE(0, alice, MaskView, false))
	require.NoError(t, a.InsertObjectACE(1, alice, MaskView|MaskEdit, true))
	require.NoError(t, a.InsertClassACE(0, bob, MaskView, true))

	// the first applicable entry denies
	granted, err := a.IsGranted([]int32{MaskView}, []SecurityIdentity{alice})
	require.NoError(t, err)
	assert.False(t, granted)

	// the deny does not apply to EDIT
	granted, err = a.IsGranted([]int32{MaskEdit}, []SecurityIdentity{alice})
	require.NoError(t, err)
	assert.True(t, granted)

	// bob has no object entry, class entries decide
	granted, err = a.IsGranted([]int32{MaskView}, []SecurityIdentity{bob})
	require.NoError(t, err)
	assert.True(t, granted)

	_, err = a.IsGranted([]int32{MaskView}, []SecurityIdentity{admins})
	assert.ErrorIs(t, err, ErrNoAceFound)
}

func TestIsGrantedInheritsFromParent(t *testing.T) {
	parent := New(ObjectIdentity{Type: "Folder", Identifier: "root"})
	require.NoError(t, parent.InsertObjectACE(0, admins, MaskOwner, true))

	child := New(ObjectIdentity{Type: "Post", Identifier: "1"})
	require.NoError(t, child.SetParent(parent))

	granted, err := child.IsGranted([]int32{MaskOwner}, []SecurityIdentity{admins})
	require.NoError(t, err)
	assert.True(t, granted)

	child.SetEntriesInheriting(false)
	_, err = child.IsGranted([]int32{MaskOwner}, []SecurityIdentity{admins})
	assert.ErrorIs(t, err, ErrNoAceFound)
}

func TestIsFieldGranted(t *testing.T) {
	a := New(ObjectIdentity{Type: "Post", Identifier: "1"})
	require.NoError(t, a.InsertObjectFieldACE("title", 0, alice, MaskEdit, true))

	granted, err := a.IsFieldGranted("title", []int32{MaskEdit}, []SecurityIdentity{alice})
	require.NoError(t, err)
	assert.True(t, granted)

	_, err = a.IsGranted([]int32{MaskEdit}, []SecurityIdentity{alice})
	assert.ErrorIs(t, err, ErrNoAceFound)
}

type decision struct {
	granted bool
	oid     ObjectIdentity
	entry   *Entry
}

type recordingAuditLogger struct {
	decisions []decision
}

func (r *recordingAuditLogger) LogDecision(granted bool, oid ObjectIdentity, e *Entry) {
	r.decisions = append(r.decisions, decision{granted, oid, e})
}

func TestIsGrantedReportsDecisions(t *testing.T) {
	parent := New(ObjectIdentity{Type: "Blog", Identifier: "1"})
	require.NoError(t, parent.InsertObjectACE(0, bob, MaskEdit, false))
	a := New(ObjectIdentity{Type: "Post", Identifier: "1"})
	require.NoError(t, a.SetParent(parent))
	require.NoError(t, a.InsertObjectACE(0, alice, MaskView, true))

	rec := &recordingAuditLogger{}
	a.SetAuditLogger(rec)

	granted, err := a.IsGranted([]int32{MaskView}, []SecurityIdentity{alice})
	require.NoError(t, err)
	assert.True(t, granted)

	// decided by the parent's entry
	granted, err = a.IsGranted([]int32{MaskEdit}, []SecurityIdentity{bob})
	require.NoError(t, err)
	assert.False(t, granted)

	// nothing applies, nothing is reported
	_, err = a.IsGranted([]int32{MaskOwner}, []SecurityIdentity{alice})
	assert.ErrorIs(t, err, ErrNoAceFound)

	require.Len(t, rec.decisions, 2)
	assert.True(t, rec.decisions[0].granted)
	assert.Equal(t, a.ObjectIdentity(), rec.decisions[0].oid)
	assert.Same(t, a.ObjectACEs()[0], rec.decisions[0].entry)
	assert.False(t, rec.decisions[1].granted)
	assert.Equal(t, parent.ObjectIdentity(), rec.decisions[1].oid)
}

func TestEntryIsAuditable(t *testing.T) {
	yes, no := true, false
	e := NewEntry(alice, MaskView, true)
	assert.False(t, e.IsAuditable(true))
	assert.False(t, e.IsAuditable(false))

	e.AuditSuccess, e.AuditFailure = &yes, &no
	assert.True(t, e.IsAuditable(true))
	assert.False(t, e.IsAuditable(false))
}
