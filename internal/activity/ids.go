// AngelaMos | 2026
// ids.go

package activity

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(
		//nolint:gosec // G404: ulid entropy only needs to be unique, not secret
		mathrand.New(mathrand.NewSource(time.Now().UnixNano())),
		0,
	)
)

// NewID returns a ULID so entries sort by creation time.
func NewID(at time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), entropy).String()
}
