package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStory_AddPassageAndLookup(t *testing.T) {
	st := New()
	id := st.NextPassageID("Start")
	pg := NewPassage(id, "Start", "Start", "")
	require.NoError(t, st.AddPassage(pg))

	got, ok := st.PassageByID(id)
	require.True(t, ok)
	assert.Same(t, pg, got)

	byName, ok := st.PassageByName("Start")
	require.True(t, ok)
	assert.Same(t, pg, byName)
}

func TestStory_DuplicatePassageID(t *testing.T) {
	st := New()
	id := st.NextPassageID("A")
	require.NoError(t, st.AddPassage(NewPassage(id, "A", "A", "")))
	err := st.AddPassage(NewPassage(id, "A2", "A2", ""))
	assert.Error(t, err)
}

func TestStory_DuplicateNameFirstWins(t *testing.T) {
	st := New()
	first := NewPassage(st.NextPassageID("Room"), "Room", "Room", "")
	second := NewPassage(st.NextPassageID("Room"), "Room", "Room", "")
	require.NoError(t, st.AddPassage(first))
	require.NoError(t, st.AddPassage(second))

	byName, ok := st.PassageByName("Room")
	require.True(t, ok)
	assert.Same(t, first, byName)
}

func TestStory_ResolveStartPassage(t *testing.T) {
	st := New()
	other := NewPassage(st.NextPassageID("Other"), "Other", "Other", "")
	require.NoError(t, st.AddPassage(other))
	assert.Same(t, other, st.ResolveStartPassage(), "falls back to first declared passage")

	start := NewPassage(st.NextPassageID("Start"), "Start", "Start", "")
	require.NoError(t, st.AddPassage(start))
	assert.Same(t, start, st.ResolveStartPassage(), "prefers a passage literally named Start")

	require.NoError(t, st.SetStartPassage(other.ID))
	assert.Same(t, other, st.ResolveStartPassage(), "explicit StartPassageID takes priority")
}

func TestStory_VariablesInOrder(t *testing.T) {
	st := New()
	st.AddVariable(&Variable{Name: "b", Type: TypeInteger})
	st.AddVariable(&Variable{Name: "a", Type: TypeString})
	st.AddVariable(&Variable{Name: "b", Type: TypeFloat}) // redeclare, keeps original order slot

	vars := st.VariablesInOrder()
	require.Len(t, vars, 2)
	assert.Equal(t, "b", vars[0].Name)
	assert.Equal(t, "a", vars[1].Name)
	assert.Equal(t, TypeFloat, vars[0].Type, "last declaration wins for value, not for order")
}

func TestValidIFID(t *testing.T) {
	assert.True(t, ValidIFID("550E8400-E29B-41D4-A716-446655440000"))
	assert.False(t, ValidIFID("not-a-uuid"))
	assert.True(t, ValidIFID(NewIFID()))
}
