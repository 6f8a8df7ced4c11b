// Package id generates time-sortable identifiers for orders and journal
// rows. ULIDs sort lexicographically by creation time, which keeps SQLite
// indexes and journal scans in chronological order for free.
package id

import (
	cryptorand "crypto/rand"
	"encoding/binary"
	"io"
	"math/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	mu      sync.Mutex
	entropy io.Reader
)

func init() {
	var seed int64
	_ = binary.Read(cryptorand.Reader, binary.LittleEndian, &seed)
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	// Monotonic entropy keeps IDs generated within the same millisecond
	// strictly increasing.
	entropy = ulid.Monotonic(rand.New(rand.NewSource(seed)), 0)
}

// New returns a fresh ULID string.
func New() string {
	mu.Lock()
	defer mu.Unlock()

	v, err := ulid.New(ulid.Timestamp(time.Now().UTC()), entropy)
	if err != nil {
		panic(err)
	}
	return v.String()
}

// Sequence returns a deterministic generator ("pfx-000001", "pfx-000002",
// ...) for replay runs, where journal output must be byte-identical across
// repeated runs and ULIDs would not be.
func Sequence(prefix string) func() string {
	var n int
	var smu sync.Mutex
	return func() string {
		smu.Lock()
		defer smu.Unlock()
		n++
		return prefix + "-" + pad6(n)
	}
}

func pad6(n int) string {
	const digits = "0123456789"
	var b [6]byte
	for i := 5; i >= 0; i-- {
		b[i] = digits[n%10]
		n /= 10
	}
	return string(b[:])
}
