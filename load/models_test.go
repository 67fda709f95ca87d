package load

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIDUnmarshal(t *testing.T) {
	var n Neighbors
	require.NoError(t, json.Unmarshal([]byte(`{"neighbors":[{"id":"1Abc"},{"id":12345},{"id":null}]}`), &n))
	require.Len(t, n.Neighbors, 3)
	assert.Equal(t, ID("1Abc"), n.Neighbors[0].ID)
	assert.Equal(t, ID("12345"), n.Neighbors[1].ID)
	assert.Equal(t, ID(""), n.Neighbors[2].ID)

	var e EntityRef
	assert.Error(t, json.Unmarshal([]byte(`{"entity":{}}`), &e))
}

func TestCheckSchema(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		out   interface{}
		valid bool
	}{
		{"txs ok", `[{"tx_hash":"a"}]`, &[]TxRef{}, true},
		{"tx without hash", `[{"tx_hash":"a"},{"height":1}]`, &[]TxRef{}, false},
		{"stats zero blocks", `{"currencies":[{"name":"btc","no_blocks":0}]}`, &Stats{}, true},
		{"stats without blocks", `{"currencies":[{"name":"btc"}]}`, &Stats{}, false},
		{"stats without currencies", `{}`, &Stats{}, false},
		{"tx without outputs", `{"inputs":[]}`, &Tx{}, false},
		{"entity tags", `{"entity_tags":[{"label":"x"}]}`, &EntityTags{}, true},
		{"any", `{"whatever":1}`, new(interface{}), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, json.Unmarshal([]byte(tt.body), tt.out))
			err := checkSchema(tt.out)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
