package sale

import (
	"crypto/rand"
	"encoding/binary"
	"io"
	"sync"
	"time"

	"github.com/bits-and-blooms/bloom/v3"
)

// NumberGenerator produces human-readable sale numbers.
type NumberGenerator interface {
	Generate(now time.Time) string
}

const (
	crockford = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

	numberPrefix   = "SALE-"
	suffixLen      = 6
	numbersCap     = 1_000_000
	numbersFPR     = 0.0001
	maxNumberRolls = 8
)

// Numbers generates numbers of the form SALE-YYYYMMDD-XXXXXX with a random
// Crockford base32 suffix. Numbers handed out before are tracked in a bloom
// filter and re-rolled; a false positive only costs another roll. The
// repository unique constraint remains the source of truth.
type Numbers struct {
	mu   sync.Mutex
	seen *bloom.BloomFilter
	rand io.Reader
}

var _ NumberGenerator = (*Numbers)(nil)

// NewNumbers returns a generator backed by crypto/rand.
func NewNumbers() *Numbers {
	return &Numbers{
		seen: bloom.NewWithEstimates(numbersCap, numbersFPR),
		rand: rand.Reader,
	}
}

// Remember marks existing numbers as taken.
func (g *Numbers) Remember(numbers ...string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, n := range numbers {
		g.seen.AddString(n)
	}
}

// Generate returns a fresh number for a sale created at now.
func (g *Numbers) Generate(now time.Time) string {
	g.mu.Lock()
	defer g.mu.Unlock()

	prefix := numberPrefix + now.UTC().Format("20060102") + "-"
	var n string
	for range maxNumberRolls {
		n = prefix + g.suffix()
		if !g.seen.TestString(n) {
			break
		}
	}
	g.seen.AddString(n)
	return n
}

func (g *Numbers) suffix() string {
	var b [4]byte
	if _, err := io.ReadFull(g.rand, b[:]); err != nil {
		// crypto/rand does not fail on supported platforms.
		panic(err)
	}
	v := binary.BigEndian.Uint32(b[:])

	out := make([]byte, suffixLen)
	for i := suffixLen - 1; i >= 0; i-- {
		out[i] = crockford[v&31]
		v >>= 5
	}
	return string(out)
}
