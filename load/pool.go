package load

import "math/rand"

// DefaultPoolCapacity number of most recent identifiers kept per pool
const DefaultPoolCapacity = 1000

// Pool bounded, insertion ordered identifiers cache.
// Append does not evict, Trim drops the oldest elements above capacity.
type Pool struct {
	items    []string
	capacity int
}

func NewPool(capacity int) *Pool {
	if capacity <= 0 {
		capacity = DefaultPoolCapacity
	}
	return &Pool{capacity: capacity}
}

func (p *Pool) Append(ids ...string) {
	p.items = append(p.items, ids...)
}

// Replace drops all elements and appends ids
func (p *Pool) Replace(ids ...string) {
	p.items = append(p.items[:0], ids...)
}

// Trim keeps the last capacity elements in append order
func (p *Pool) Trim() {
	if over := len(p.items) - p.capacity; over > 0 {
		// copy so evicted elements do not pin the backing array
		kept := make([]string, p.capacity, p.capacity*2)
		copy(kept, p.items[over:])
		p.items = kept
	}
}

func (p *Pool) Len() int {
	return len(p.items)
}

func (p *Pool) Empty() bool {
	return len(p.items) == 0
}

// Pick uniform random element, with replacement, pool must not be empty
func (p *Pool) Pick(rnd *rand.Rand) string {
	return p.items[rnd.Intn(len(p.items))]
}

// Items copy of the elements in append order
func (p *Pool) Items() []string {
	out := make([]string, len(p.items))
	copy(out, p.items)
	return out
}
