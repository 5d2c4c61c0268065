package repository

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// newPaymentID generates a ULID for the given creation time. ULIDs sort
// lexicographically by time, which gives the listing queries their stable
// creation order. The monotonic entropy source is not safe for concurrent
// use, hence the lock.
func newPaymentID(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}
