package result

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/searchgate/internal/domain/geo"
)

func urls(items []Item) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.URL
	}
	return out
}

func TestSort_Relevance(t *testing.T) {
	items := []Item{
		{URL: "a", Score: 1},
		{URL: "b", Score: 3},
		{URL: "c", Score: 3},
		{URL: "d", Score: 2},
	}
	got := Sort(items, OrderRelevance, geo.Circle{})
	assert.Equal(t, []string{"b", "c", "d", "a"}, urls(got))
	assert.Equal(t, "a", items[0].URL, "input must not be mutated")
}

func TestSort_DateNewestFirst(t *testing.T) {
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	items := []Item{
		{URL: "old", Date: base},
		{URL: "new", Date: base.Add(48 * time.Hour)},
		{URL: "mid", Date: base.Add(24 * time.Hour)},
	}
	assert.Equal(t, []string{"new", "mid", "old"}, urls(Sort(items, OrderDate, geo.Circle{})))
}

func TestSort_LocationNoGeoLast(t *testing.T) {
	center := geo.Circle{Lat: 52.52, Lon: 13.405, RadiusKm: 500}
	items := []Item{
		{URL: "nowhere"},
		{URL: "hamburg", Lat: 53.5511, Lon: 9.9937, HasGeo: true},
		{URL: "potsdam", Lat: 52.3906, Lon: 13.0645, HasGeo: true},
	}
	assert.Equal(t, []string{"potsdam", "hamburg", "nowhere"}, urls(Sort(items, OrderLocation, center)))
}

func TestSort_LocationWithoutCenterKeepsOrder(t *testing.T) {
	items := []Item{{URL: "x", HasGeo: true}, {URL: "y"}}
	assert.Equal(t, []string{"x", "y"}, urls(Sort(items, OrderLocation, geo.Circle{})))
}

func TestParseOrder(t *testing.T) {
	o, err := ParseOrder("date")
	require.NoError(t, err)
	assert.Equal(t, OrderDate, o)

	_, err = ParseOrder("random")
	assert.Error(t, err)
}

func TestPage(t *testing.T) {
	items := []Item{{URL: "a"}, {URL: "b"}, {URL: "c"}}
	assert.Equal(t, []string{"b", "c"}, urls(Page(items, 1, 10)))
	assert.Empty(t, Page(items, 5, 10))
	assert.Equal(t, []string{"a"}, urls(Page(items, -1, 1)))
	assert.Empty(t, Page(items, 0, 0))
}

func TestFacets_CloneIsDeep(t *testing.T) {
	f := Facets{"hosts": {"example.org": 2}}
	c := f.Clone()
	c["hosts"]["example.org"] = 9
	assert.Equal(t, 2, f["hosts"]["example.org"])
}

func TestFacets_Only(t *testing.T) {
	f := Facets{"hosts": {"a": 1}, "authors": {"b": 1}}
	got := f.Only(func(name string) bool { return name == "hosts" })
	assert.Len(t, got, 1)
	assert.Contains(t, got, "hosts")
}

func TestCounters_Total(t *testing.T) {
	assert.Equal(t, 7, Counters{LocalAvailable: 3, RemoteAvailable: 4}.Total())
}
