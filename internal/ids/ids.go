// Package ids generates the time-sortable identifiers used for snapshot keys
// and the persistent host identity. Identifiers are ULIDs drawn from one
// shared monotonic entropy source, so ids minted within the same millisecond
// still sort in creation order.
package ids

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

// ID is a 26-character ULID string.
type ID string

func (id ID) String() string { return string(id) }

// IsZero reports whether the ID is the zero value.
func (id ID) IsZero() bool { return id == "" }

// Time returns the millisecond timestamp embedded in the id.
func (id ID) Time() (time.Time, error) {
	u, err := ulid.ParseStrict(string(id))
	if err != nil {
		return time.Time{}, fmt.Errorf("ids: parse %q: %w", string(id), err)
	}
	return ulid.Time(u.Time()), nil
}

var (
	monoMu      sync.Mutex
	monoEntropy io.Reader = ulid.Monotonic(rand.Reader, 0)
)

// New returns a fresh monotonic ID.
func New() (ID, error) {
	monoMu.Lock()
	defer monoMu.Unlock()
	u, err := ulid.New(ulid.Timestamp(time.Now()), monoEntropy)
	if err != nil {
		return "", fmt.Errorf("ids: generate: %w", err)
	}
	return ID(u.String()), nil
}

// MustNew is like New but panics on error. Use only in tests or init code.
func MustNew() ID {
	id, err := New()
	if err != nil {
		panic(fmt.Sprintf("ids.MustNew: %v", err))
	}
	return id
}

// Validate returns an error if s is not a well-formed ULID.
func Validate(s string) error {
	if _, err := ulid.ParseStrict(s); err != nil {
		return fmt.Errorf("ids: invalid id %q: %w", s, err)
	}
	return nil
}

// ResolveHost picks the host identity. An explicit override other than ""
// or "auto" must be a valid ULID and wins. Otherwise a persisted id is
// reused, and when there is none a new one is generated; fresh reports that
// case so the caller can persist it.
func ResolveHost(override, persisted string) (id ID, fresh bool, err error) {
	override = strings.TrimSpace(override)
	if override != "" && override != "auto" {
		if err := Validate(override); err != nil {
			return "", false, err
		}
		return ID(override), false, nil
	}
	if persisted = strings.TrimSpace(persisted); persisted != "" {
		if err := Validate(persisted); err != nil {
			return "", false, fmt.Errorf("ids: persisted host id: %w", err)
		}
		return ID(persisted), false, nil
	}
	id, err = New()
	if err != nil {
		return "", false, err
	}
	return id, true, nil
}
