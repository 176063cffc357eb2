package services

import (
	"math/rand"
	"sync"
	"time"
)

// OutcomeDecider decides once per send whether a campaign goes out to the
// vendor or fails as a whole
type OutcomeDecider interface {
	Succeeds() bool
}

// RandomDecider succeeds with SuccessProbability
type RandomDecider struct {
	SuccessProbability float64

	mu  sync.Mutex
	rng *rand.Rand
}

// NewRandomDecider creates a decider seeded from the clock
func NewRandomDecider(p float64) *RandomDecider {
	return &RandomDecider{SuccessProbability: p, rng: rand.New(rand.NewSource(time.Now().UnixNano()))}
}

func (d *RandomDecider) Succeeds() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rng.Float64() < d.SuccessProbability
}

// FixedDecider always returns the same decision
type FixedDecider bool

func (d FixedDecider) Succeeds() bool { return bool(d) }
