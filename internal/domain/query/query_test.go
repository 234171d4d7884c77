package query

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/searchgate/internal/domain/geo"
	"github.com/kailas-cloud/searchgate/internal/domain/query/contentdom"
	"github.com/kailas-cloud/searchgate/internal/domain/query/strategy"
)

func TestNewGoal_DisjointAndOrdered(t *testing.T) {
	g := NewGoal([]string{"berlin", "wall", "berlin", "tour", ""}, []string{"tour", "cheap", "cheap"})

	assert.Equal(t, []string{"berlin", "wall"}, g.Include())
	assert.Equal(t, []string{"cheap", "tour"}, g.Exclude())
	assert.Equal(t, "berlin wall -cheap -tour", g.String())
}

func TestGoal_PhrasesAreQuoted(t *testing.T) {
	g := NewGoal([]string{"east side gallery", "berlin"}, nil)
	assert.Equal(t, `"east side gallery" berlin`, g.String())
}

func TestGoal_DirectiveLikeTermsAreQuoted(t *testing.T) {
	g := NewGoal([]string{"berlin", "/near", "site:example.org", "*"}, []string{"tld:de"})
	assert.Equal(t, `berlin "/near" "site:example.org" "*" -"tld:de"`, g.String())
	assert.Equal(t, CatchAll, CatchAllGoal().String())
}

func TestGoal_CatchAll(t *testing.T) {
	g := CatchAllGoal()
	assert.True(t, g.IsCatchAll())
	assert.False(t, g.IsEmpty())
	assert.True(t, NewGoal(nil, nil).IsEmpty())
}

func TestGoal_IncludeReturnsCopy(t *testing.T) {
	g := NewGoal([]string{"a"}, nil)
	inc := g.Include()
	inc[0] = "mutated"
	assert.Equal(t, []string{"a"}, g.Include())
}

func TestModifier_ZeroValue(t *testing.T) {
	var m Modifier
	assert.True(t, m.IsZero())
	assert.True(t, m.Equal(Modifier{Vocabulary: map[string]string{}, InURL: []string{}}))
}

func TestModifier_StringOrder(t *testing.T) {
	m := Modifier{
		Protocol:   ProtocolHTTPS,
		SiteHost:   "example.org",
		Near:       true,
		InURL:      []string{"b", "a"},
		NotInURL:   []string{"ads"},
		Vocabulary: map[string]string{"z": "1", "a": "2"},
		Radius:     geo.Circle{Lat: 1, Lon: 2, RadiusKm: 3},
		TLD:        "de",
		From:       time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	want := "/https site:example.org from:2024-01-02T00:00:00Z /near inurl:a inurl:b -inurl:ads " +
		"/vocabulary/a/2 /vocabulary/z/1 /radius/1/2/3 tld:de"
	assert.Equal(t, want, m.String())
	assert.False(t, m.IsZero())
}

func TestIdentity_IgnoresNavigatorOrderAndCase(t *testing.T) {
	goal := NewGoal([]string{"berlin"}, nil)
	a := NewParams(goal, Modifier{}, contentdom.Text, "de", []string{"hosts", "Authors"}, strategy.IfExist, true, 100)
	b := NewParams(goal, Modifier{}, contentdom.Text, "de", []string{"authors", "hosts", "hosts"}, strategy.IfExist, true, 100)

	assert.Equal(t, a.Identity(), b.Identity())
	assert.True(t, a.Identity().IsValid())
}

func TestIdentity_DiffersOnComputationParams(t *testing.T) {
	goal := NewGoal([]string{"berlin"}, nil)
	base := NewParams(goal, Modifier{}, contentdom.Text, "", nil, strategy.IfExist, true, 100)

	variants := []Params{
		NewParams(goal, Modifier{Near: true}, contentdom.Text, "", nil, strategy.IfExist, true, 100),
		NewParams(goal, Modifier{}, contentdom.Image, "", nil, strategy.IfExist, true, 100),
		NewParams(goal, Modifier{}, contentdom.Text, "en", nil, strategy.IfExist, true, 100),
		NewParams(goal, Modifier{}, contentdom.Text, "", []string{"hosts"}, strategy.IfExist, true, 100),
		NewParams(goal, Modifier{}, contentdom.Text, "", nil, strategy.CacheOnly, true, 100),
		NewParams(goal, Modifier{}, contentdom.Text, "", nil, strategy.IfExist, false, 100),
		NewParams(NewGoal([]string{"hamburg"}, nil), Modifier{}, contentdom.Text, "", nil, strategy.IfExist, true, 100),
	}
	for i, v := range variants {
		assert.NotEqual(t, base.Identity(), v.Identity(), "variant %d", i)
	}
}

func TestNewParams_ModifierLanguageWins(t *testing.T) {
	p := NewParams(NewGoal([]string{"x"}, nil), Modifier{Language: "fr"}, contentdom.Text, "de", nil, strategy.None, false, 10)
	require.Equal(t, "fr", p.Language)

	p = NewParams(NewGoal([]string{"x"}, nil), Modifier{}, contentdom.Text, " DE ", nil, strategy.None, false, 10)
	require.Equal(t, "de", p.Language)
}

func TestParams_WantsNavigator(t *testing.T) {
	p := NewParams(NewGoal([]string{"x"}, nil), Modifier{}, contentdom.Text, "", []string{"hosts", "filetype"}, strategy.None, false, 10)
	assert.True(t, p.WantsNavigator("hosts"))
	assert.True(t, p.WantsNavigator("filetype"))
	assert.False(t, p.WantsNavigator("authors"))
}

func TestIdentity_IsValid(t *testing.T) {
	assert.False(t, Identity("abc").IsValid())
	assert.False(t, Identity("zz"+string(make([]byte, 62))).IsValid())
}
