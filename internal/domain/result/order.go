package result

import (
	"fmt"
	"math"
	"sort"

	"github.com/kailas-cloud/searchgate/internal/domain/geo"
)

// Order is a resort criterion applied to a ready session.
type Order string

// Order constants.
const (
	OrderRelevance Order = "relevance"
	OrderDate      Order = "date"
	OrderLocation  Order = "location"
)

// IsValid checks if the order is one of the supported values.
func (o Order) IsValid() bool {
	return o == OrderRelevance || o == OrderDate || o == OrderLocation
}

// ParseOrder parses a resort order name.
func ParseOrder(s string) (Order, error) {
	o := Order(s)
	if !o.IsValid() {
		return "", fmt.Errorf("unknown order %q", s)
	}
	return o, nil
}

// Sort returns a stably sorted copy of items. Relevance sorts by score
// descending, date newest first, location by distance to center ascending with
// items lacking coordinates last. Location without a center keeps input order.
func Sort(items []Item, order Order, center geo.Circle) []Item {
	out := append([]Item(nil), items...)
	switch order {
	case OrderDate:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Date.After(out[j].Date)
		})
	case OrderLocation:
		if center.IsZero() {
			return out
		}
		dist := func(it Item) float64 {
			if !it.HasGeo {
				return math.Inf(1)
			}
			return center.DistanceKm(it.Lat, it.Lon)
		}
		sort.SliceStable(out, func(i, j int) bool {
			return dist(out[i]) < dist(out[j])
		})
	default:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].Score > out[j].Score
		})
	}
	return out
}
