package load

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pkg/errors"
	loadgen "github.com/skudasov/graphsense-loadgen"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, status int, body string) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", srv.Client(), loadgen.NopLogger())
}

func TestClientGet(t *testing.T) {
	c := serve(t, http.StatusOK, `[{"tx_hash":"abc"},{"tx_hash":"def"}]`)
	var txs []TxRef
	resp, err := c.Get(context.Background(), "/btc/blocks/1/txs", &txs)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, resp.BytesIn > 0)
	assert.Equal(t, []TxRef{{TxHash: "abc"}, {TxHash: "def"}}, txs)
}

func TestClientStatusError(t *testing.T) {
	c := serve(t, http.StatusNotFound, `{"message":"not found"}`)
	var txs []TxRef
	resp, err := c.Get(context.Background(), "/btc/blocks/1/txs", &txs)
	require.Error(t, err)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, se.Body, "not found")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestClientDecodeError(t *testing.T) {
	c := serve(t, http.StatusOK, `not json`)
	var txs []TxRef
	_, err := c.Get(context.Background(), "/btc/blocks/1/txs", &txs)
	assert.True(t, errors.Is(err, ErrDecode))
}

func TestClientSchemaError(t *testing.T) {
	c := serve(t, http.StatusOK, `[{"height":1}]`)
	var txs []TxRef
	_, err := c.Get(context.Background(), "/btc/blocks/1/txs", &txs)
	assert.True(t, errors.Is(err, ErrSchema))
}

func TestClientTransportError(t *testing.T) {
	c := NewClient("http://127.0.0.1:1", http.DefaultClient, loadgen.NopLogger())
	var v interface{}
	resp, err := c.Get(context.Background(), "/stats", &v)
	assert.Error(t, err)
	assert.Equal(t, 0, resp.StatusCode)
}
