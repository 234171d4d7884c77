package governor

import (
	"net/netip"
	"strings"

	"github.com/kailas-cloud/searchgate/internal/domain/access"
)

// addressList matches clients by exact identifier, CIDR prefix or host suffix.
type addressList struct {
	exact    map[string]struct{}
	prefixes []netip.Prefix
	suffixes []string
}

func newAddressList(patterns []string) *addressList {
	l := &addressList{exact: make(map[string]struct{})}
	for _, raw := range patterns {
		value := strings.TrimSpace(strings.ToLower(raw))
		if value == "" {
			continue
		}
		switch {
		case strings.Contains(value, "/"):
			if p, err := netip.ParsePrefix(value); err == nil {
				l.prefixes = append(l.prefixes, p.Masked())
			}
		case strings.HasPrefix(value, "*."):
			l.addSuffix(strings.TrimPrefix(value, "*."))
		case strings.HasPrefix(value, "."):
			l.addSuffix(strings.TrimPrefix(value, "."))
		default:
			if a, err := netip.ParseAddr(value); err == nil {
				value = a.Unmap().String()
			}
			l.exact[value] = struct{}{}
		}
	}
	if len(l.exact) == 0 && len(l.prefixes) == 0 && len(l.suffixes) == 0 {
		return nil
	}
	return l
}

func (l *addressList) addSuffix(suffix string) {
	if suffix == "" {
		return
	}
	for _, existing := range l.suffixes {
		if existing == suffix {
			return
		}
	}
	l.suffixes = append(l.suffixes, suffix)
}

// Match reports whether the client is on the list. A nil list matches nothing.
func (l *addressList) Match(c access.Client) bool {
	if l == nil {
		return false
	}
	id := strings.TrimSpace(strings.ToLower(c.ID))
	if _, ok := l.exact[id]; ok && id != "" {
		return true
	}
	if c.Addr.IsValid() {
		addr := c.Addr.Unmap()
		if _, ok := l.exact[addr.String()]; ok {
			return true
		}
		for _, p := range l.prefixes {
			if p.Contains(addr) {
				return true
			}
		}
	}
	for _, suffix := range l.suffixes {
		if id == suffix || strings.HasSuffix(id, "."+suffix) {
			return true
		}
	}
	return false
}
