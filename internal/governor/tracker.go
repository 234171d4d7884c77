package governor

import (
	"sync"
	"time"

	"github.com/kailas-cloud/searchgate/internal/domain/access"
)

// tracker holds the request timestamps of one client, oldest first.
type tracker struct {
	mu     sync.Mutex
	stamps []time.Time
}

// record appends now, trims to maxEntries and returns the window counts from
// the same snapshot.
func (t *tracker) record(now time.Time, maxEntries int) access.WindowCounts {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.stamps = append(t.stamps, now)
	if over := len(t.stamps) - maxEntries; maxEntries > 0 && over > 0 {
		t.stamps = append(t.stamps[:0], t.stamps[over:]...)
	}
	return t.countLocked(now)
}

// countLocked drops entries that left the longest window and counts the rest.
func (t *tracker) countLocked(now time.Time) access.WindowCounts {
	drop := 0
	for drop < len(t.stamps) && now.Sub(t.stamps[drop]) >= LongWindow {
		drop++
	}
	if drop > 0 {
		t.stamps = append(t.stamps[:0], t.stamps[drop:]...)
	}

	var n access.WindowCounts
	for i := len(t.stamps) - 1; i >= 0; i-- {
		age := now.Sub(t.stamps[i])
		if age < ShortWindow {
			n.ThreeSeconds++
		}
		if age < MediumWindow {
			n.OneMinute++
		}
		n.TenMinutes++
	}
	return n
}

// idle reports whether the tracker holds no request inside the longest window.
func (t *tracker) idle(now time.Time) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.stamps) == 0 || now.Sub(t.stamps[len(t.stamps)-1]) >= LongWindow
}
