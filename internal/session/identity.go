package session

import (
	"errors"
	"sync"

	"github.com/google/uuid"
)

// ErrIdentityUnavailable wraps every write failure caused by the identity
// provider. Writes fail fast with it rather than silently dropping data.
var ErrIdentityUnavailable = errors.New("identity unavailable")

// Identity yields a stable anonymous uid. The synchronizer asks for it
// lazily, on the first write attempt, and caches the answer.
type Identity interface {
	UID() (string, error)
}

// StaticIdentity is a fixed uid, used by gateways acting for a known client
// and by tests.
type StaticIdentity string

func (s StaticIdentity) UID() (string, error) {
	if s == "" {
		return "", errors.New("empty uid")
	}
	return string(s), nil
}

// AnonymousIdentity mints one random uid on first use and sticks with it for
// the life of the process.
type AnonymousIdentity struct {
	once sync.Once
	uid  string
}

func (a *AnonymousIdentity) UID() (string, error) {
	a.once.Do(func() { a.uid = uuid.NewString() })
	return a.uid, nil
}
