package ink

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/writewhisker/whisker-core/ast"
)

func buildStory() *ast.Story {
	st := ast.New()

	start := ast.NewPassage(st.NextPassageID("Start"), "Start", "Start", "")
	start.Content = "You stand at a crossroads."
	start.Choices = []ast.Choice{
		{Text: "Go north", Target: "Hall", Kind: ast.ChoiceOnce},
		{Text: "Leave", Target: "END", Kind: ast.ChoiceSticky},
	}
	_ = st.AddPassage(start)

	hall := ast.NewPassage(st.NextPassageID("Hall"), "Hall", "Hall", "")
	hall.Content = "A long hall."
	hall.Tags = []string{"indoor"}
	_ = st.AddPassage(hall)

	antechamber := ast.NewPassage(st.NextPassageID("Hall::Antechamber"), "Antechamber", "Hall::Antechamber", "")
	antechamber.Content = "A small antechamber."
	_ = st.AddPassage(antechamber)

	_ = st.SetStartPassage(start.ID)

	st.Lists["Inventory"] = &ast.List{
		Name: "Inventory",
		Items: []ast.ListItem{
			{Name: "sword"},
			{Name: "shield"},
			{Name: "torch"},
		},
	}
	return st
}

func TestExport_RootArrayShape(t *testing.T) {
	st := buildStory()
	data, err := Export(st)
	require.NoError(t, err)

	var doc map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &doc))
	_, hasRoot := doc["root"]
	assert.True(t, hasRoot, "exported document must carry a \"root\" array, not knots/start")
	_, hasKnots := doc["knots"]
	assert.False(t, hasKnots, "exported document must not carry the old bespoke \"knots\" field")
	_, hasStart := doc["start"]
	assert.False(t, hasStart, "exported document must not carry the old bespoke \"start\" field")

	var root []json.RawMessage
	require.NoError(t, json.Unmarshal(doc["root"], &root))
	require.GreaterOrEqual(t, len(root), 2)

	var first string
	require.NoError(t, json.Unmarshal(root[0], &first))
	assert.Equal(t, "->Start", first)

	var last string
	require.NoError(t, json.Unmarshal(root[len(root)-1], &last))
	assert.Equal(t, "done", last)
}

func TestImportExportRoundTrip(t *testing.T) {
	want := buildStory()
	data, err := Export(want)
	require.NoError(t, err)

	got, err := Import(data)
	require.NoError(t, err)

	diffs := Compare(want, got)
	assert.Empty(t, diffs, "%v", diffs)

	l, ok := got.Lists["Inventory"]
	require.True(t, ok)
	require.Len(t, l.Items, 3)
	assert.Equal(t, []string{"sword", "shield", "torch"}, []string{l.Items[0].Name, l.Items[1].Name, l.Items[2].Name})

	hall, ok := got.PassageByName("Hall::Antechamber")
	require.True(t, ok)
	assert.Equal(t, "A small antechamber.", hall.Content)
}

func TestImport_RejectsMissingDoneSentinel(t *testing.T) {
	src := `{"inkVersion": 20, "root": ["->Start", {"Start": {"text": ["^Hi."]}}]}`
	_, err := Import([]byte(src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "done")
}

func TestImport_RejectsOldBespokeSchema(t *testing.T) {
	src := `{"inkVersion": 20, "start": "Start", "knots": {"Start": {"text": ["^Hi."]}}}`
	_, err := Import([]byte(src))
	require.Error(t, err, "the old {start, knots} schema must not be accepted as a valid document")
}

func TestImport_RejectsOldVersion(t *testing.T) {
	src := `{"inkVersion": 5, "root": ["->Start", {"Start": {}}, "done"]}`
	_, err := Import([]byte(src))
	require.Error(t, err)
}
