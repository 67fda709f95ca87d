package mockapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, s *Server, path string) (int, map[string]interface{}, []interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var obj map[string]interface{}
	var arr []interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &obj); err != nil {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &arr), rec.Body.String())
	}
	return rec.Code, obj, arr
}

func TestStats(t *testing.T) {
	s := NewServer(Config{Currency: "btc", NoBlocks: 100})
	code, obj, _ := get(t, s, "/stats")
	require.Equal(t, http.StatusOK, code)
	currencies := obj["currencies"].([]interface{})
	require.Len(t, currencies, 1)
	c := currencies[0].(map[string]interface{})
	assert.Equal(t, "btc", c["name"])
	assert.Equal(t, float64(100), c["no_blocks"])
}

func TestUnknownCurrencyIsNotFound(t *testing.T) {
	s := NewServer(Config{Currency: "btc"})
	code, _, _ := get(t, s, "/ltc/blocks/1")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestBlockHeightBounds(t *testing.T) {
	s := NewServer(Config{Currency: "btc", NoBlocks: 10})
	code, _, arr := get(t, s, "/btc/blocks/9/txs")
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, arr, txsPerBlock)
	code, _, _ = get(t, s, "/btc/blocks/10/txs")
	assert.Equal(t, http.StatusNotFound, code)
	code, _, _ = get(t, s, "/btc/blocks/x")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestDeterministicData(t *testing.T) {
	s := NewServer(Config{Currency: "btc", NoBlocks: 10})
	_, first, _ := get(t, s, "/btc/txs/abc")
	_, second, _ := get(t, s, "/btc/txs/abc")
	assert.Equal(t, first, second)
	assert.NotEmpty(t, first["outputs"])
}

func TestNeighborsIDTypes(t *testing.T) {
	s := NewServer(Config{Currency: "btc"})
	_, obj, _ := get(t, s, "/btc/addresses/1Mock/neighbors?direction=in")
	n := obj["neighbors"].([]interface{})[0].(map[string]interface{})
	assert.IsType(t, "", n["id"])

	_, obj, _ = get(t, s, "/btc/entities/7/neighbors?direction=out")
	n = obj["neighbors"].([]interface{})[0].(map[string]interface{})
	assert.IsType(t, float64(0), n["id"])

	code, _, _ := get(t, s, "/btc/entities/7/neighbors?direction=up")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestEntityTagsShape(t *testing.T) {
	s := NewServer(Config{Currency: "btc"})
	code, obj, _ := get(t, s, "/btc/entities/3/tags")
	require.Equal(t, http.StatusOK, code)
	assert.Contains(t, obj, "entity_tags")
	code, _, arr := get(t, s, "/btc/addresses/1Mock/tags")
	require.Equal(t, http.StatusOK, code)
	assert.NotNil(t, arr)
}

func TestStubAndHits(t *testing.T) {
	s := NewServer(Config{Currency: "btc"})
	s.Stub(BlockTxsRoute, http.StatusOK, `[{"tx_hash":"abc"}]`)
	_, _, arr := get(t, s, "/btc/blocks/1/txs")
	require.Len(t, arr, 1)
	assert.Equal(t, "abc", arr[0].(map[string]interface{})["tx_hash"])
	get(t, s, "/stats")
	assert.Equal(t, 1, s.Hits(BlockTxsRoute))
	assert.Equal(t, 1, s.Hits(StatsRoute))
	assert.Equal(t, 2, s.TotalHits())
}

func TestErrorRate(t *testing.T) {
	s := NewServer(Config{Currency: "btc", ErrorRate: 1})
	code, obj, _ := get(t, s, "/stats")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "injected failure", obj["message"])
}
