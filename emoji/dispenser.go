package emoji

import (
	"math/rand/v2"
	"sync"
)

// Draws glyphs for a character without replacement until every candidate
// has been used, then reshuffles the full set.
//
// A Dispenser is safe for concurrent use.
type Dispenser struct {
	pool *Pool

	mu     sync.Mutex
	rng    *rand.Rand
	queues map[rune][]string
}

// Creates a Dispenser over pool.
//
// A nil rng uses a randomly seeded source.
func NewDispenser(pool *Pool, rng *rand.Rand) *Dispenser {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Dispenser{
		pool:   pool,
		rng:    rng,
		queues: make(map[rune][]string),
	}
}

// Returns the next glyph for r, or r itself if the pool has nothing for it.
func (d *Dispenser) Draw(r rune) string {
	d.mu.Lock()
	defer d.mu.Unlock()

	queue := d.queues[r]
	if len(queue) == 0 {
		queue = d.pool.Candidates(r)
		if queue == nil {
			return string(r)
		}
		d.rng.Shuffle(len(queue), func(i, j int) {
			queue[i], queue[j] = queue[j], queue[i]
		})
	}

	glyph := queue[0]
	d.queues[r] = queue[1:]
	return glyph
}
