package parser

import (
	"errors"
	"strings"

	"golang.org/x/net/idna"
)

var errEmptyHost = errors.New("empty host")

// normalizeHost converts a host name to lower-case ASCII (punycode) form.
func normalizeHost(raw string) (string, error) {
	h := strings.TrimSpace(raw)
	h = strings.TrimPrefix(h, "http://")
	h = strings.TrimPrefix(h, "https://")
	if i := strings.IndexByte(h, '/'); i >= 0 {
		h = h[:i]
	}
	h = strings.TrimPrefix(strings.TrimSuffix(h, "."), "www.")
	if h == "" {
		return "", errEmptyHost
	}
	ascii, err := idna.Lookup.ToASCII(h)
	if err != nil {
		return "", err
	}
	return strings.ToLower(ascii), nil
}

// normalizeTLD accepts "de", ".de" or "co.uk" and returns the punycode form.
func normalizeTLD(raw string) (string, error) {
	t := strings.TrimPrefix(strings.TrimSpace(raw), ".")
	if t == "" {
		return "", errEmptyValue
	}
	ascii, err := idna.Lookup.ToASCII(t)
	if err != nil {
		return "", err
	}
	return strings.ToLower(ascii), nil
}

var (
	errEmptyValue      = errors.New("empty value")
	errUnparseableDate = errors.New("unparseable date")
	errRadiusShape     = errors.New("expected /radius/<lat>/<lon>/<km>")
)
