package load

import (
	"net/http/httptest"
	"testing"

	loadgen "github.com/skudasov/graphsense-loadgen"
	"github.com/skudasov/graphsense-loadgen/mockapi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttackerFromName(t *testing.T) {
	assert.NotNil(t, AttackerFromName(WalkerHandle))
	assert.NotNil(t, AttackerFromName(WalkerHandle+"_rps"))
	assert.Nil(t, AttackerFromName("unknown"))
}

func TestCheckFromName(t *testing.T) {
	assert.NotNil(t, CheckFromName(WalkerHandle+"_strict"))
	assert.Nil(t, CheckFromName(WalkerHandle))
}

func TestWalkerUsersModeAgainstMockAPI(t *testing.T) {
	api := mockapi.NewServer(mockapi.Config{Currency: "btc", NoBlocks: 50})
	srv := httptest.NewServer(api.Handler())
	defer srv.Close()

	gen := &loadgen.GeneratorConfig{ReportDir: t.TempDir()}
	gen.Generator.Target = srv.URL
	gen.Generator.Currency = "btc"
	gen.Generator.ResponseTimeoutSec = 5
	lm, err := loadgen.NewLoadManager(&loadgen.SuiteConfig{}, gen)
	require.NoError(t, err)
	defer lm.Close()

	r, err := loadgen.NewRunner(WalkerHandle, lm, AttackerFromName(WalkerHandle), nil, loadgen.RunnerConfig{
		HandleName:    WalkerHandle,
		Mode:          loadgen.ModeUsers,
		ThinkTime:     loadgen.ThinkTime{MinMs: 5, MaxMs: 10},
		AttackTimeSec: 2,
		RampUpTimeSec: 1,
		MaxAttackers:  3,
		DoTimeoutSec:  5,
	})
	require.NoError(t, err)
	rep := r.Run()
	require.NotNil(t, rep)
	assert.False(t, rep.Failed)
	require.Contains(t, rep.Metrics, StatsLabel)
	for label, m := range rep.Metrics {
		assert.Equal(t, 1.0, m.Success, label)
	}
	assert.True(t, api.TotalHits() > 0)
}
