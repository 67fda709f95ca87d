package loadgen

import (
	"strings"
	"testing"
)

func TestLabelTitle(t *testing.T) {
	cases := map[string]string{
		"stats":                    "Stats",
		"node_tags_entities":       "Node Tags Entities",
		"node_neighbors_addresses": "Node Neighbors Addresses",
	}
	for in, want := range cases {
		if got := LabelTitle(in); got != want {
			t.Errorf("got %v want %v", got, want)
		}
	}
}

func TestRefID(t *testing.T) {
	for i, want := range map[int]string{0: "A", 25: "Z", 26: "AA", 27: "AB"} {
		if got := refID(i); got != want {
			t.Errorf("%d: got %v want %v", i, got, want)
		}
	}
}

func TestNodeDashboardRows(t *testing.T) {
	d := GrafanaGeneratorNodeDashboard("graphsense", []string{"stats", "block"}, []string{"walker"}, "graphsense", "gen1", "eth0")
	// one row per label, generator row and host row
	if got, want := len(d.Rows), 4; got != want {
		t.Fatalf("got %v want %v", got, want)
	}
	ids := map[int]bool{}
	for _, r := range d.Rows {
		for _, p := range r.Panels {
			if ids[p.ID] {
				t.Errorf("duplicate panel id %d", p.ID)
			}
			ids[p.ID] = true
		}
	}
	target := d.Rows[0].Panels[0].Targets[0].Target
	if !strings.Contains(target, "graphsense.stats-timer.50-percentile") {
		t.Errorf("got %v want stats percentile target", target)
	}
	if got, want := len(d.Rows[3].Panels), 3; got != want {
		t.Errorf("got %v want %v", got, want)
	}
}
