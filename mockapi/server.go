package mockapi

import (
	"context"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// Config mock API behavior
type Config struct {
	// Currency only currency with data, other currencies are 404
	Currency string
	// NoBlocks number of blocks reported by /stats
	NoBlocks int64
	// ErrorRate share of requests answered with 500, from 0 to 1
	ErrorRate float64
	// Latency added to every response
	Latency time.Duration
	// AccessLog logs every request
	AccessLog bool
}

type stub struct {
	status int
	body   string
}

// Server fake of the analytics API with deterministic data
type Server struct {
	cfg Config
	e   *echo.Echo

	mu    sync.Mutex
	rnd   *rand.Rand
	hits  map[string]int
	stubs map[string]stub
}

func NewServer(cfg Config) *Server {
	if cfg.Currency == "" {
		cfg.Currency = "btc"
	}
	if cfg.NoBlocks == 0 {
		cfg.NoBlocks = 100
	}
	s := &Server{
		cfg:   cfg,
		e:     echo.New(),
		rnd:   rand.New(rand.NewSource(time.Now().UnixNano())),
		hits:  make(map[string]int),
		stubs: make(map[string]stub),
	}
	s.e.HideBanner = true
	if cfg.AccessLog {
		s.e.Use(middleware.Logger())
	}
	s.e.Use(middleware.Recover())
	s.e.Use(s.track)
	s.routes()
	return s
}

func (s *Server) routes() {
	s.e.GET(StatsRoute, s.stats)
	s.e.GET(TaxonomiesRoute, s.taxonomies)
	s.e.GET(ConceptsRoute, s.concepts)

	cur := s.e.Group("/:currency", s.knownCurrency)
	cur.GET("/blocks/:height", s.block)
	cur.GET("/blocks/:height/txs", s.blockTxs)
	cur.GET("/txs/:tx", s.tx)
	cur.GET("/rates/:height", s.rates)
	cur.GET("/addresses", s.addresses)
	cur.GET("/entities", s.entities)
	cur.GET("/addresses/:address", s.address)
	cur.GET("/addresses/:address/entity", s.addressEntity)
	cur.GET("/addresses/:address/txs", s.addressTxs)
	cur.GET("/addresses/:address/links", s.addressLinks)
	cur.GET("/addresses/:address/tags", s.addressTags)
	cur.GET("/addresses/:address/neighbors", s.addressNeighbors)
	cur.GET("/entities/:entity", s.entity)
	cur.GET("/entities/:entity/tags", s.entityTags)
	cur.GET("/entities/:entity/neighbors", s.entityNeighbors)
	cur.GET("/entities/:entity/addresses", s.entityAddresses)
}

// Handler for httptest servers
func (s *Server) Handler() http.Handler {
	return s.e
}

func (s *Server) Start(addr string) error {
	return s.e.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.e.Shutdown(ctx)
}

// Stub answers route with a fixed status and body, route is a template, ex.: /:currency/blocks/:height/txs
func (s *Server) Stub(route string, status int, body string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stubs[route] = stub{status: status, body: body}
}

// Hits number of requests served by route template
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// TotalHits number of requests served by all routes
func (s *Server) TotalHits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.hits {
		total += n
	}
	return total
}

func (s *Server) track(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		route := c.Path()
		s.mu.Lock()
		s.hits[route]++
		st, stubbed := s.stubs[route]
		fail := s.cfg.ErrorRate > 0 && s.rnd.Float64() < s.cfg.ErrorRate
		s.mu.Unlock()
		if s.cfg.Latency > 0 {
			time.Sleep(s.cfg.Latency)
		}
		if stubbed {
			return c.Blob(st.status, echo.MIMEApplicationJSONCharsetUTF8, []byte(st.body))
		}
		if fail {
			return c.JSON(http.StatusInternalServerError, apiError{Message: "injected failure"})
		}
		return next(c)
	}
}

func (s *Server) knownCurrency(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if c.Param("currency") != s.cfg.Currency {
			return notFound(c, "unknown currency")
		}
		return next(c)
	}
}

func notFound(c echo.Context, msg string) error {
	return c.JSON(http.StatusNotFound, apiError{Message: msg})
}

func badRequest(c echo.Context, msg string) error {
	return c.JSON(http.StatusBadRequest, apiError{Message: msg})
}

// heightParam block height in [0, NoBlocks-1]
func (s *Server) heightParam(c echo.Context) (int64, bool) {
	h, err := strconv.ParseInt(c.Param("height"), 10, 64)
	if err != nil || h < 0 || h >= s.cfg.NoBlocks {
		return 0, false
	}
	return h, true
}

func entityParam(c echo.Context) (int64, bool) {
	e, err := strconv.ParseInt(c.Param("entity"), 10, 64)
	if err != nil || e <= 0 {
		return 0, false
	}
	return e, true
}
