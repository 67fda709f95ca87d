package loadgen

import (
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	graphite "github.com/cyberdelia/go-metrics-graphite"
	"github.com/rcrowley/go-metrics"
)

var once sync.Once

func StartGraphiteSender(prefix string, flushDuration time.Duration, url string) {
	once.Do(func() {
		log.Infof("[grafana-monitoring] setup graphite client with url: %s", url)
		addr, err := net.ResolveTCPAddr("tcp", url)
		if err != nil {
			log.Errorf("[grafana-monitoring] ResolveTCPAddr on [%s] failed error [%v] ", url, err)
			return
		}
		if flushDuration <= 0 {
			flushDuration = 1
		}
		go graphite.Graphite(
			metrics.DefaultRegistry,
			flushDuration*time.Second,
			prefix,
			addr,
		)
	})
}

func timeNow() time.Time {
	return time.Now()
}

func timeHumanReadable(t time.Time, timezone string) string {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return t.String()
	}
	return t.In(location).String()
}

func epochNowMillis(t time.Time) int64 {
	return t.UnixNano() / 1000000
}

var seedCounter int64

// newRand returns a source for one goroutine, seeds differ even when created in the same nanosecond
func newRand() *rand.Rand {
	seed := time.Now().UnixNano() + atomic.AddInt64(&seedCounter, 1)
	return rand.New(rand.NewSource(seed))
}

// NewRand is newRand for attackers
func NewRand() *rand.Rand {
	return newRand()
}
