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
	"strings"

	"github.com/iancoleman/strcase"
)

const graphiteDatasource = "${DS_LOCAL_GRAPHITE}"

var (
	percentiles      = []string{"50", "95", "99"}
	rpsLabelSuffixes = []string{"timer", "err"}

	// scale factors for graphs, Ms, Mb, etc
	cpuScaleFactor         = "1"
	percentilesScaleFactor = "0.000001"
	netScaleFactor         = "0.000001"
	memScaleFactor         = "0.000001"

	alias = "%s-%s"
	// Node dashboard
	percentileTargetTemplate = "alias(scale(%s.%s-timer.%s-percentile, %s), '%s')"
	rpsTargetTemplate        = "alias(perSecond(%s.%s-%s.count), '%s')"
	goroutinesTotalTemplate  = "alias(%s.goroutines-%s.value, '%s')"
	metricValueTemplate      = "alias(scale(%s.%s.value, %s), '%s')"

	// Summary dashboard
	summaryPercentileTargetTemplate = "alias(scale(percentileOfSeries(*.%s-timer.%s-percentile, %s, 'false'), %s), '%s')"
	summaryRPSTargetTemplate        = "alias(perSecond(sumSeries(*.%s-%s.count)), '%s')"
)

type DashboardInput struct {
	Name        string `json:"name"`
	Label       string `json:"label"`
	Description string `json:"description"`
	Type        string `json:"type"`
	PluginID    string `json:"pluginId"`
	PluginName  string `json:"pluginName"`
}

type Target struct {
	RefID  string `json:"refId,omitempty"`
	Target string `json:"target"`
}

type Axis struct {
	Format  string `json:"format,omitempty"`
	Mode    string `json:"mode,omitempty"`
	LogBase int    `json:"logBase,omitempty"`
	Show    bool   `json:"show"`
}

type Legend struct {
	Avg     bool `json:"avg"`
	Current bool `json:"current"`
	Max     bool `json:"max"`
	Show    bool `json:"show"`
	Values  bool `json:"values"`
}

type Panel struct {
	ID         int      `json:"id"`
	Title      string   `json:"title"`
	Type       string   `json:"type"`
	Datasource string   `json:"datasource"`
	Span       int      `json:"span"`
	Fill       int      `json:"fill"`
	Lines      bool     `json:"lines"`
	Linewidth  int      `json:"linewidth"`
	Legend     Legend   `json:"legend"`
	Targets    []Target `json:"targets"`
	Xaxis      Axis     `json:"xaxis"`
	Yaxes      []Axis   `json:"yaxes"`
}

type Row struct {
	Title     string  `json:"title"`
	Height    int     `json:"height"`
	ShowTitle bool    `json:"showTitle"`
	TitleSize string  `json:"titleSize"`
	Panels    []Panel `json:"panels"`
}

type TimeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type Dashboard struct {
	Inputs        []DashboardInput `json:"__inputs"`
	Editable      bool             `json:"editable"`
	Refresh       string           `json:"refresh"`
	Rows          []Row            `json:"rows"`
	SchemaVersion int              `json:"schemaVersion"`
	Style         string           `json:"style"`
	Time          TimeRange        `json:"time"`
	Title         string           `json:"title"`
	Version       int              `json:"version"`
}

// dashboardBuilder hands out unique panel ids within one dashboard
type dashboardBuilder struct {
	panelID int
}

func (b *dashboardBuilder) panel(title string, targets []Target, span int, yAxisFormat string) Panel {
	b.panelID++
	for i := range targets {
		targets[i].RefID = refID(i)
	}
	return Panel{
		ID:         b.panelID,
		Title:      title,
		Type:       "graph",
		Datasource: graphiteDatasource,
		Span:       span,
		Fill:       1,
		Lines:      true,
		Linewidth:  1,
		Legend:     Legend{Show: true, Values: true, Avg: true, Max: true},
		Targets:    targets,
		Xaxis:      Axis{Mode: "time", Show: true},
		Yaxes: []Axis{
			{Format: yAxisFormat, LogBase: 1, Show: true},
			{Format: yAxisFormat, LogBase: 1, Show: false},
		},
	}
}

// refID A..Z, then AA..
func refID(i int) string {
	s := ""
	for i >= 0 {
		s = string(rune('A'+i%26)) + s
		i = i/26 - 1
	}
	return s
}

func row(title string, panels ...Panel) Row {
	return Row{
		Title:     title,
		Height:    300,
		ShowTitle: true,
		TitleSize: "h6",
		Panels:    panels,
	}
}

// LabelTitle human readable panel title for a request label, ex.: node_tags_entities -> Node Tags Entities
func LabelTitle(label string) string {
	words := strings.Split(strcase.ToSnake(label), "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func percentileTargets(prefix, label string) []Target {
	targets := make([]Target, 0, len(percentiles))
	for _, p := range percentiles {
		targets = append(targets, Target{Target: fmt.Sprintf(
			percentileTargetTemplate, prefix, label, p, percentilesScaleFactor, fmt.Sprintf(alias, label, p),
		)})
	}
	return targets
}

func rpsTargets(prefix, label string) []Target {
	targets := make([]Target, 0, len(rpsLabelSuffixes))
	for _, suffix := range rpsLabelSuffixes {
		targets = append(targets, Target{Target: fmt.Sprintf(
			rpsTargetTemplate, prefix, label, suffix, fmt.Sprintf(alias, label, suffix),
		)})
	}
	return targets
}

func hostTargets(prefix string, scale string, names []string) []Target {
	targets := make([]Target, 0, len(names))
	for _, name := range names {
		targets = append(targets, Target{Target: fmt.Sprintf(metricValueTemplate, prefix, name, scale, name)})
	}
	return targets
}

// GrafanaGeneratorNodeDashboard one row per request label plus generator host row
func GrafanaGeneratorNodeDashboard(title string, labels []string, runners []string, prefix string, host string, networkIface string) Dashboard {
	b := &dashboardBuilder{}
	rows := make([]Row, 0, len(labels)+2)
	for _, label := range labels {
		name := LabelTitle(label)
		rows = append(rows, row(
			name,
			b.panel(fmt.Sprintf("%s response time (%s)", name, strings.Join(percentiles, ",")), percentileTargets(prefix, label), 6, "ms"),
			b.panel(fmt.Sprintf("%s RPS (Total+Errors)", name), rpsTargets(prefix, label), 6, "short"),
		))
	}
	goroutines := make([]Target, 0, len(runners))
	for _, r := range runners {
		goroutines = append(goroutines, Target{Target: fmt.Sprintf(goroutinesTotalTemplate, prefix, r, r)})
	}
	rows = append(rows, row("Generator Metrics", b.panel("Attackers", goroutines, 12, "short")))

	hostPrefix := prefix
	if host != "" {
		hostPrefix = prefix + "." + host
	}
	hostPanels := []Panel{
		b.panel("CPU used (%)", hostTargets(hostPrefix, cpuScaleFactor, hostMetricCPUNames), 4, "short"),
		b.panel("Memory (Mb)", hostTargets(hostPrefix, memScaleFactor, hostMetricMEMNames), 4, "short"),
	}
	if networkIface != "" {
		names := make([]string, 0, len(hostMetricNetworkNames))
		for _, n := range hostMetricNetworkNames {
			names = append(names, fmt.Sprintf(n, networkIface))
		}
		hostPanels = append(hostPanels, b.panel(
			fmt.Sprintf("Network (tx/rx) (Mb) %s", networkIface), hostTargets(hostPrefix, netScaleFactor, names), 4, "short",
		))
	}
	rows = append(rows, row("Generator host Metrics", hostPanels...))
	return DefaultDSDashboard(title, rows)
}

// GrafanaGeneratorsSummaryDashboard aggregates all generator nodes writing to graphite
func GrafanaGeneratorsSummaryDashboard(title string, labels []string) Dashboard {
	b := &dashboardBuilder{}
	perc := make([]Target, 0)
	rps := make([]Target, 0)
	for _, label := range labels {
		for _, p := range percentiles {
			perc = append(perc, Target{Target: fmt.Sprintf(
				summaryPercentileTargetTemplate, label, p, p, percentilesScaleFactor, fmt.Sprintf(alias, label, p),
			)})
		}
		for _, suffix := range rpsLabelSuffixes {
			rps = append(rps, Target{Target: fmt.Sprintf(
				summaryRPSTargetTemplate, label, suffix, fmt.Sprintf(alias, label, suffix),
			)})
		}
	}
	return DefaultDSDashboard(title, []Row{row(
		"Summary metrics",
		b.panel("Response time for all nodes", perc, 6, "ms"),
		b.panel("Total RPS for all nodes (Total+Errors)", rps, 6, "short"),
	)})
}

func DefaultDSDashboard(title string, rows []Row) Dashboard {
	return Dashboard{
		Inputs: []DashboardInput{
			{
				Name:       "DS_LOCAL_GRAPHITE",
				Label:      "Local Graphite",
				Type:       "datasource",
				PluginID:   "graphite",
				PluginName: "Graphite",
			},
		},
		Editable:      true,
		Refresh:       "5s",
		Rows:          rows,
		SchemaVersion: 14,
		Style:         "dark",
		Time:          TimeRange{From: "now-15m", To: "now"},
		Title:         title,
		Version:       1,
	}
}
