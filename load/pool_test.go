package load

import (
	"math/rand"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolTrimKeepsNewest(t *testing.T) {
	p := NewPool(3)
	p.Append("a", "b", "c", "d", "e")
	assert.Equal(t, 5, p.Len())
	p.Trim()
	assert.Equal(t, []string{"c", "d", "e"}, p.Items())
	p.Append("f")
	p.Trim()
	assert.Equal(t, []string{"d", "e", "f"}, p.Items())
}

func TestPoolTrimAtDefaultCapacity(t *testing.T) {
	p := NewPool(0)
	for i := 0; i < DefaultPoolCapacity+250; i++ {
		p.Append(strconv.Itoa(i))
	}
	p.Trim()
	items := p.Items()
	require.Len(t, items, DefaultPoolCapacity)
	assert.Equal(t, "250", items[0])
	assert.Equal(t, strconv.Itoa(DefaultPoolCapacity+249), items[len(items)-1])
}

func TestPoolReplace(t *testing.T) {
	p := NewPool(10)
	p.Append("a", "b")
	p.Replace("x")
	assert.Equal(t, []string{"x"}, p.Items())
	p.Replace()
	assert.True(t, p.Empty())
}

func TestPoolPickUniform(t *testing.T) {
	p := NewPool(10)
	p.Append("a", "b")
	rnd := rand.New(rand.NewSource(1))
	seen := map[string]int{}
	for i := 0; i < 1000; i++ {
		seen[p.Pick(rnd)]++
	}
	assert.Len(t, seen, 2)
	assert.InDelta(t, 500, seen["a"], 100)
}

func TestPoolItemsIsCopy(t *testing.T) {
	p := NewPool(10)
	p.Append("a")
	items := p.Items()
	items[0] = "changed"
	assert.Equal(t, []string{"a"}, p.Items())
}
