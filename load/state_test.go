package load

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStateSeedAndRecords(t *testing.T) {
	s := NewState()
	assert.True(t, s.Seed("address", "1A"))
	assert.True(t, s.Seed("entity", "42"))
	assert.True(t, s.Seed("tx", "ff"))
	assert.True(t, s.Seed("taxonomy", "entity"))
	assert.False(t, s.Seed("block", "1"))

	assert.Equal(t, [][]string{
		{"address", "1A"},
		{"entity", "42"},
		{"tx", "ff"},
		{"taxonomy", "entity"},
	}, s.Records())
}

func TestStatePoolsByCategory(t *testing.T) {
	s := NewState()
	assert.Same(t, s.Addresses, s.Pool(Address))
	assert.Same(t, s.Entities, s.Pool(Entity))
	assert.Same(t, s.AddressTags, s.TagPool(Address))
	assert.Same(t, s.EntityTags, s.TagPool(Entity))
	assert.Equal(t, "addresses", Address.Plural())
	assert.Equal(t, "entity", Entity.Singular())
}

func TestStateTrimAll(t *testing.T) {
	s := NewState()
	for i := 0; i < DefaultPoolCapacity+1; i++ {
		s.Transactions.Append("tx")
		s.EntityTags.Append("tag")
	}
	s.TrimAll()
	assert.Equal(t, DefaultPoolCapacity, s.Transactions.Len())
	assert.Equal(t, DefaultPoolCapacity, s.EntityTags.Len())
}
