/*
 *    Copyright [2020] Sergey Kudasov
 *
 *    Licensed under the Apache License, Version 2.0 (the "License");
 *    you may not use this file except in compliance with the License.
 *    You may obtain a copy of the License at
 *
 *      http://www.apache.org/licenses/LICENSE-2.0
 *
 *    Unless required by applicable law or agreed to in writing, software
 *    distributed under the License is distributed on an "AS IS" BASIS,
 *    WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 *    See the License for the specific language governing permissions and
 *    limitations under the License.
 */

package loadgen

import (
	"fmt"
	"sync"
	"time"

	"github.com/mackerelio/go-osstat/cpu"
	"github.com/mackerelio/go-osstat/memory"
	"github.com/mackerelio/go-osstat/network"
	"github.com/rcrowley/go-metrics"
)

var (
	hostMetricCPUNames     = []string{"cpu_used"}
	hostMetricMEMNames     = []string{"mem_total", "mem_free", "mem_used", "mem_cached", "mem_swap_total", "mem_swap_used", "mem_swap_free"}
	hostMetricNetworkNames = []string{"net_%s_rx", "net_%s_tx"}
)

type HostMetrics struct {
	hostPrefix       string
	networkInterface string

	cpuUserSystemPercent metrics.Gauge
	mem                  map[string]metrics.Gauge
	rx                   metrics.Gauge
	tx                   metrics.Gauge
}

// NewHostOSMetrics registers generator host gauges, they are flushed by the graphite sender
func NewHostOSMetrics(hostPrefix string, networkInterface string) *HostMetrics {
	m := &HostMetrics{
		hostPrefix:           hostPrefix,
		networkInterface:     networkInterface,
		cpuUserSystemPercent: RegisterGauge(hostMetricName(hostPrefix, hostMetricCPUNames[0])),
		mem:                  make(map[string]metrics.Gauge),
	}
	for _, name := range hostMetricMEMNames {
		m.mem[name] = RegisterGauge(hostMetricName(hostPrefix, name))
	}
	if networkInterface != "" {
		m.rx = RegisterGauge(hostMetricName(hostPrefix, fmt.Sprintf(hostMetricNetworkNames[0], networkInterface)))
		m.tx = RegisterGauge(hostMetricName(hostPrefix, fmt.Sprintf(hostMetricNetworkNames[1], networkInterface)))
	}
	return m
}

func hostMetricName(prefix, name string) string {
	if prefix == "" {
		return name
	}
	return prefix + "." + name
}

// GetCPU get user + system cpu used
func (m *HostMetrics) GetCPU() int64 {
	before, err := cpu.Get()
	if err != nil {
		log.Info("[ OS Metrics ] failed to get cpu Metrics")
		return 0
	}
	time.Sleep(1 * time.Second)
	after, err := cpu.Get()
	if err != nil {
		log.Info("[ OS Metrics ] failed to get cpu Metrics")
		return 0
	}
	total := float64(after.Total - before.Total)
	if total == 0 {
		return 0
	}
	return int64(100 - float64(after.Idle-before.Idle)/total*100)
}

func (m *HostMetrics) SelectNetworkInterface(stats []network.Stats) *network.Stats {
	for i := range stats {
		if stats[i].Name == m.networkInterface {
			return &stats[i]
		}
	}
	return nil
}

// GetNetwork get rx/tx for particular interface
func (m *HostMetrics) GetNetwork() (int64, int64) {
	before, err := network.Get()
	if err != nil {
		log.Info("[ OS Metrics ] failed to get network Metrics")
		return 0, 0
	}
	beforeData := m.SelectNetworkInterface(before)
	time.Sleep(1 * time.Second)
	after, err := network.Get()
	if err != nil {
		log.Info("[ OS Metrics ] failed to get network Metrics")
		return 0, 0
	}
	afterData := m.SelectNetworkInterface(after)
	if beforeData == nil || afterData == nil {
		log.Infof("[ OS Metrics ] interface %s doesn't exist", m.networkInterface)
		return 0, 0
	}
	return int64(afterData.RxBytes - beforeData.RxBytes), int64(afterData.TxBytes - beforeData.TxBytes)
}

// GetMem get all mem and swap used/free/total stats
func (m *HostMetrics) GetMem() *memory.Stats {
	mem, err := memory.Get()
	if err != nil {
		log.Info("[ OS Metrics ] failed to get memory Metrics")
		return nil
	}
	return mem
}

func (m *HostMetrics) update() {
	m.cpuUserSystemPercent.Update(m.GetCPU())
	if mem := m.GetMem(); mem != nil {
		m.mem["mem_total"].Update(int64(mem.Total))
		m.mem["mem_free"].Update(int64(mem.Free))
		m.mem["mem_used"].Update(int64(mem.Used))
		m.mem["mem_cached"].Update(int64(mem.Cached))
		m.mem["mem_swap_total"].Update(int64(mem.SwapTotal))
		m.mem["mem_swap_used"].Update(int64(mem.SwapUsed))
		m.mem["mem_swap_free"].Update(int64(mem.SwapFree))
	}
	if m.rx != nil {
		rx, tx := m.GetNetwork()
		m.rx.Update(rx)
		m.tx.Update(tx)
	}
}

// Watch updates generator host Metrics until returned stop func is called
func (m *HostMetrics) Watch(intervalSec int) func() {
	done := make(chan struct{})
	ticker := time.NewTicker(time.Duration(intervalSec) * time.Second)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				m.update()
			}
		}
	}()
	var once sync.Once
	return func() {
		once.Do(func() { close(done) })
	}
}

// RegisterGauge registers gauge metric to graphite, returns existing one if already registered
func RegisterGauge(name string) metrics.Gauge {
	return metrics.GetOrRegisterGauge(name, metrics.DefaultRegistry)
}
