package load

import "fmt"

// Category of a graph node, selects addresses or entities endpoints and pools
type Category int

const (
	Address Category = iota
	Entity
)

// Categories all node categories, uniformly sampled by node actions
var Categories = []Category{Address, Entity}

// Plural path segment and pool name
func (c Category) Plural() string {
	switch c {
	case Address:
		return "addresses"
	case Entity:
		return "entities"
	}
	panic(fmt.Sprintf("unknown category %d", int(c)))
}

// Singular response field name
func (c Category) Singular() string {
	switch c {
	case Address:
		return "address"
	case Entity:
		return "entity"
	}
	panic(fmt.Sprintf("unknown category %d", int(c)))
}

func (c Category) String() string {
	return c.Plural()
}

// Seed file categories
const (
	seedAddress  = "address"
	seedEntity   = "entity"
	seedTx       = "tx"
	seedTaxonomy = "taxonomy"
)

// State identifiers seen by one simulated user, never shared between users
type State struct {
	Addresses    *Pool
	Transactions *Pool
	Entities     *Pool
	AddressTags  *Pool
	EntityTags   *Pool
	Taxonomies   *Pool
	// MaxBlockHeight highest known block, 0 until stats succeeded
	MaxBlockHeight int64
}

func NewState() *State {
	return &State{
		Addresses:    NewPool(DefaultPoolCapacity),
		Transactions: NewPool(DefaultPoolCapacity),
		Entities:     NewPool(DefaultPoolCapacity),
		AddressTags:  NewPool(DefaultPoolCapacity),
		EntityTags:   NewPool(DefaultPoolCapacity),
		Taxonomies:   NewPool(DefaultPoolCapacity),
	}
}

// Pool node pool of category
func (s *State) Pool(c Category) *Pool {
	if c == Entity {
		return s.Entities
	}
	return s.Addresses
}

// TagPool tag pool of category
func (s *State) TagPool(c Category) *Pool {
	if c == Entity {
		return s.EntityTags
	}
	return s.AddressTags
}

func (s *State) pools() []*Pool {
	return []*Pool{s.Addresses, s.Transactions, s.Entities, s.AddressTags, s.EntityTags, s.Taxonomies}
}

// TrimAll trims every pool to its capacity
func (s *State) TrimAll() {
	for _, p := range s.pools() {
		p.Trim()
	}
}

// Seed appends id to the pool named by a seed file category, false if category is unknown
func (s *State) Seed(category string, id string) bool {
	var p *Pool
	switch category {
	case seedAddress:
		p = s.Addresses
	case seedEntity:
		p = s.Entities
	case seedTx:
		p = s.Transactions
	case seedTaxonomy:
		p = s.Taxonomies
	default:
		return false
	}
	p.Append(id)
	return true
}

// Records pools as seed file rows: category, id
func (s *State) Records() [][]string {
	rows := make([][]string, 0)
	for _, sp := range []struct {
		category string
		pool     *Pool
	}{
		{seedAddress, s.Addresses},
		{seedEntity, s.Entities},
		{seedTx, s.Transactions},
		{seedTaxonomy, s.Taxonomies},
	} {
		for _, id := range sp.pool.Items() {
			rows = append(rows, []string{sp.category, id})
		}
	}
	return rows
}
