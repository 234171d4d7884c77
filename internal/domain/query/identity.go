package query

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Identity is the canonical digest of a query's computation-affecting
// parameters. Requests with equal identity share one search session.
type Identity string

// NewIdentity hashes the canonical form of p.
func NewIdentity(p Params) Identity {
	var b strings.Builder
	field := func(name, value string) {
		b.WriteString(name)
		b.WriteByte('=')
		b.WriteString(strconv.Quote(value))
		b.WriteByte('\n')
	}
	field("goal", p.Goal.String())
	field("modifier", p.Modifier.String())
	field("contentdom", string(p.ContentDom))
	field("language", p.Language)
	field("nav", strings.Join(p.Navigators, ","))
	field("snippet", string(p.Snippet))
	field("global", strconv.FormatBool(p.Global))
	field("max", strconv.Itoa(p.MaxResults))

	h := sha256.Sum256([]byte(b.String()))
	return Identity(hex.EncodeToString(h[:]))
}

// IsValid reports whether s looks like an identity produced by NewIdentity.
func (id Identity) IsValid() bool {
	if len(id) != sha256.Size*2 {
		return false
	}
	_, err := hex.DecodeString(string(id))
	return err == nil
}

// String returns the hex digest.
func (id Identity) String() string { return string(id) }
