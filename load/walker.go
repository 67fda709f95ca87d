package load

import (
	"context"
	"io"
	"math/rand"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	loadgen "github.com/skudasov/graphsense-loadgen"
	"github.com/spf13/viper"
)

const (
	// maxSkipsPerDo consecutive skips after which Do gives up without a request
	maxSkipsPerDo   = 100
	defaultSeedRows = 4 * DefaultPoolCapacity
)

// seedData rows of the handle's csv_read file, read once and shared by all users of a runner
type seedData struct {
	once sync.Once
	rows [][]string
	err  error
}

// seedExport rows already written to csv_write by users of one runner
type seedExport struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func newSeedExport() *seedExport {
	return &seedExport{seen: make(map[string]struct{})}
}

// fresh rows not written before, at most limit rows are written in total
func (e *seedExport) fresh(rows [][]string, limit int) [][]string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([][]string, 0)
	for _, rec := range rows {
		if len(e.seen) >= limit {
			break
		}
		key := strings.Join(rec, ",")
		if _, ok := e.seen[key]; ok {
			continue
		}
		e.seen[key] = struct{}{}
		out = append(out, rec)
	}
	return out
}

// Walker one simulated user walking the analytics API, every Do runs one randomly chosen action
type Walker struct {
	loadgen.WithRunner
	// mu serializes Do calls, a timed out Do may still run when the next one starts
	mu        sync.Mutex
	SessionID string
	State     *State
	cfg       loadgen.RunnerConfig
	actions   []Action
	client    *Client
	currency  string
	rnd       *rand.Rand
	l         *loadgen.Logger
	seeds     *seedData
	exported  *seedExport
}

// NewWalker creates a ready to use walker with empty state
func NewWalker(client *Client, currency string, actions []Action, rnd *rand.Rand, l *loadgen.Logger) *Walker {
	return &Walker{
		SessionID: uuid.New().String(),
		State:     NewState(),
		actions:   actions,
		client:    client,
		currency:  currency,
		rnd:       rnd,
		l:         l,
		seeds:     &seedData{},
		exported:  newSeedExport(),
	}
}

// NewWalkerPrototype walker to be cloned by a runner, it is set up by Setup
func NewWalkerPrototype() *Walker {
	return &Walker{seeds: &seedData{}, exported: newSeedExport()}
}

func (w *Walker) Setup(c loadgen.RunnerConfig) error {
	m := w.GetManager()
	if m == nil || m.GeneratorConfig == nil {
		return errors.New("walker needs generator config to know the target")
	}
	gen := m.GeneratorConfig.Generator
	actions, err := SelectActions(c.Param("actions", ""))
	if err != nil {
		return errors.Wrap(err, "handle_params.actions")
	}
	timeout := viper.GetInt("http_timeout")
	if timeout == 0 {
		timeout = gen.ResponseTimeoutSec
	}
	w.cfg = c
	w.SessionID = uuid.New().String()
	w.l = w.GetRunner().L
	w.client = NewClient(gen.Target, loadgen.NewLoggingHTTPClient(viper.GetBool("dumptransport"), timeout), w.l)
	w.currency = gen.Currency
	w.actions = actions
	w.rnd = loadgen.NewRand()
	w.State = NewState()
	if c.ReadFromCsvName == "" {
		return nil
	}
	rows, err := w.seedRows(c)
	if err != nil {
		return errors.Wrapf(err, "seed from %s", c.ReadFromCsvName)
	}
	w.Seed(rows)
	return nil
}

func (w *Walker) seedRows(c loadgen.RunnerConfig) ([][]string, error) {
	w.seeds.once.Do(func() {
		limit, err := seedLimit(c)
		if err != nil {
			w.seeds.err = err
			return
		}
		for len(w.seeds.rows) < limit {
			rec, err := loadgen.DefaultReadCSV(w)
			if err == io.EOF {
				break
			}
			if err != nil {
				w.seeds.err = err
				return
			}
			w.seeds.rows = append(w.seeds.rows, rec)
		}
	})
	return w.seeds.rows, w.seeds.err
}

// seedLimit max rows read from csv_read and written to csv_write
func seedLimit(c loadgen.RunnerConfig) (int, error) {
	limit, err := strconv.Atoi(c.Param("seed_rows", strconv.Itoa(defaultSeedRows)))
	if err != nil {
		return 0, errors.Wrap(err, "handle_params.seed_rows")
	}
	return limit, nil
}

// Seed fills pools from category, id rows, then trims them
func (w *Walker) Seed(rows [][]string) {
	for _, rec := range rows {
		if len(rec) < 2 || !w.State.Seed(rec[0], rec[1]) {
			w.l.Infof("skipping seed row: %v", rec)
		}
	}
	w.State.TrimAll()
}

// Teardown stores discovered identifiers to csv_write, it can be used as csv_read of the next run.
// Users of one runner share the file, rows are written once and up to seed_rows in total.
func (w *Walker) Teardown() error {
	if w.cfg.WriteToCsvName == "" || w.State == nil {
		return nil
	}
	limit, err := seedLimit(w.cfg)
	if err != nil {
		return err
	}
	rows := w.exported.fresh(w.State.Records(), limit)
	if len(rows) == 0 {
		return nil
	}
	return loadgen.DefaultWriteCSV(w, rows...)
}

func (w *Walker) Clone(r *loadgen.Runner) loadgen.Attack {
	return &Walker{
		WithRunner: loadgen.WithRunner{R: r},
		seeds:      w.seeds,
		exported:   w.exported,
	}
}

// Do runs random actions until one makes a request, skipped actions are retried at once
func (w *Walker) Do(ctx context.Context) loadgen.DoResult {
	w.mu.Lock()
	defer w.mu.Unlock()
	ctx = loadgen.WithSessionId(ctx, w.SessionID)
	skips := 0
	for skips < maxSkipsPerDo && ctx.Err() == nil {
		res := w.Step(ctx)
		if res.Outcome == Skipped {
			skips++
			continue
		}
		return loadgen.DoResult{
			RequestLabel: res.Label,
			Error:        res.Err,
			StatusCode:   res.Response.StatusCode,
			BytesIn:      res.Response.BytesIn,
			BytesOut:     res.Response.BytesOut,
			Skips:        skips,
		}
	}
	return loadgen.DoResult{
		RequestLabel: loadgen.SkippedLabel,
		Skipped:      true,
		Skips:        skips,
	}
}

// Step runs one uniformly chosen action, pools are trimmed after every request
func (w *Walker) Step(ctx context.Context) Result {
	a := w.actions[w.rnd.Intn(len(w.actions))]
	res := a.Run(ctx, w)
	if res.Outcome != Skipped {
		w.State.TrimAll()
	}
	return res
}

func (w *Walker) fetch(ctx context.Context, label string, path string, out interface{}) Result {
	resp, err := w.client.Get(ctx, path, out)
	if err != nil {
		return Result{Outcome: Failed, Label: label, Response: resp, Err: err}
	}
	return Result{Outcome: Completed, Label: label, Response: resp}
}

// height uniform in [1, MaxBlockHeight]
func (w *Walker) height() int64 {
	return 1 + w.rnd.Int63n(w.State.MaxBlockHeight)
}

func (w *Walker) category() Category {
	return Categories[w.rnd.Intn(len(Categories))]
}

func (w *Walker) direction() string {
	if w.rnd.Intn(2) == 0 {
		return "in"
	}
	return "out"
}
