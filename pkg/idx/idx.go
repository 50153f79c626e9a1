// Package idx generates the sortable identifiers used for stored records and
// request correlation.
package idx

import (
	"crypto/rand"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

type ID string

// Zero is the empty ID.
const Zero ID = ""

// Record prefixes. Prefixed IDs keep keys in the shared stores readable.
const (
	PrefixUser   = "usr"
	PrefixClient = "cli"
	PrefixToken  = "tok"
	PrefixCode   = "cod"
)

// ErrInvalid reports a malformed ID string.
var ErrInvalid = errors.New("idx: invalid id")

var (
	mu      sync.Mutex
	entropy = ulid.Monotonic(rand.Reader, 0)
)

// New returns a ULID for the current UTC time drawn from a monotonic source,
// so IDs minted within the same millisecond still sort in creation order.
func New() ID {
	return NewAt(time.Now().UTC())
}

// NewAt generates an ID at t.
func NewAt(t time.Time) ID {
	mu.Lock()
	defer mu.Unlock()

	return ID(ulid.MustNew(ulid.Timestamp(t), entropy).String())
}

// NewPrefixed returns "<prefix>_<ulid>".
func NewPrefixed(prefix string) ID {
	return ID(prefix + "_" + New().String())
}

// Parse validates s as a bare or prefixed ULID.
func Parse(s string) (ID, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, ErrInvalid
	}

	raw := s
	if _, rest, ok := strings.Cut(s, "_"); ok {
		raw = rest
	}
	if _, err := ulid.ParseStrict(raw); err != nil {
		return Zero, ErrInvalid
	}

	return ID(s), nil
}

// MustParse parses or panics. Useful for hard-coded IDs in tests.
func MustParse(s string) ID {
	id, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ID) IsZero() bool { return id == Zero }

func (id ID) String() string { return string(id) }

// Prefix returns the record prefix, or "" for a bare ULID.
func (id ID) Prefix() string {
	p, _, ok := strings.Cut(string(id), "_")
	if !ok {
		return ""
	}
	return p
}

// Time extracts the embedded timestamp, or the zero time for invalid IDs.
func (id ID) Time() time.Time {
	raw := string(id)
	if _, rest, ok := strings.Cut(raw, "_"); ok {
		raw = rest
	}

	u, err := ulid.ParseStrict(raw)
	if err != nil {
		return time.Time{}
	}
	return ulid.Time(u.Time())
}
