package loadgen

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/wcharczuk/go-chart"
)

type scalingPoint struct {
	nodes  float64
	maxRPS float64
}

type latencyPoint struct {
	sinceStartSec float64
	elapsedMs     float64
	ok            bool
}

// readScalingLog reads rows of handle, nodes, max rps, rows without nodes are numbered in order
func readScalingLog(r io.Reader) (map[string][]scalingPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 3
	res := make(map[string][]scalingPoint)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rps, err := strconv.ParseFloat(rec[2], 64)
		if err != nil {
			return nil, fmt.Errorf("bad max rps in scaling row %v: %w", rec, err)
		}
		nodes, err := strconv.ParseFloat(rec[1], 64)
		if err != nil {
			nodes = float64(len(res[rec[0]]) + 1)
		}
		res[rec[0]] = append(res[rec[0]], scalingPoint{nodes: nodes, maxRPS: rps})
	}
	for _, points := range res {
		sort.SliceStable(points, func(i, j int) bool { return points[i].nodes < points[j].nodes })
	}
	return res, nil
}

// readResultLog reads rows of label, begin unix ms, elapsed ms, ok|err
func readResultLog(r io.Reader) (map[string][]latencyPoint, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = 4
	res := make(map[string][]latencyPoint)
	var first int64
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		begin, err := strconv.ParseInt(rec[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad begin in result row %v: %w", rec, err)
		}
		elapsed, err := strconv.ParseInt(rec[2], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad elapsed in result row %v: %w", rec, err)
		}
		if first == 0 || begin < first {
			first = begin
		}
		res[rec[0]] = append(res[rec[0]], latencyPoint{
			sinceStartSec: float64(begin),
			elapsedMs:     float64(elapsed),
			ok:            rec[3] == resultOK,
		})
	}
	for _, points := range res {
		for i := range points {
			points[i].sinceStartSec = (points[i].sinceStartSec - float64(first)) / 1000
		}
		sort.SliceStable(points, func(i, j int) bool { return points[i].sinceStartSec < points[j].sinceStartSec })
	}
	return res, nil
}

func renderPNG(graph chart.Chart, outputPNG string) error {
	f, err := os.Create(outputPNG)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := graph.Render(chart.PNG, f); err != nil {
		return err
	}
	log.Infof("report written to %s", outputPNG)
	return nil
}

// ReportScaling plots max rps of every handle against number of network nodes
func ReportScaling(inputCSV string, outputPNG string) error {
	f, err := os.Open(inputCSV)
	if err != nil {
		return err
	}
	defer f.Close()
	handles, err := readScalingLog(f)
	if err != nil {
		return err
	}
	if len(handles) == 0 {
		return fmt.Errorf("no scaling data in %s", inputCSV)
	}
	names := make([]string, 0, len(handles))
	for name := range handles {
		names = append(names, name)
	}
	sort.Strings(names)
	series := make([]chart.Series, 0, len(names))
	for _, name := range names {
		s := chart.ContinuousSeries{Name: name}
		for _, p := range handles[name] {
			s.XValues = append(s.XValues, p.nodes)
			s.YValues = append(s.YValues, p.maxRPS)
		}
		series = append(series, s)
	}
	graph := chart.Chart{
		Title:  "Max RPS scaling",
		XAxis:  chart.XAxis{Name: "Nodes"},
		YAxis:  chart.YAxis{Name: "Max RPS"},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return renderPNG(graph, outputPNG)
}

// ReportLatency plots response time of successful requests for every label over the run
func ReportLatency(inputCSV string, outputPNG string) error {
	f, err := os.Open(inputCSV)
	if err != nil {
		return err
	}
	defer f.Close()
	labels, err := readResultLog(f)
	if err != nil {
		return err
	}
	series := make([]chart.Series, 0, len(labels))
	for _, label := range sortedKeys(labels) {
		s := chart.ContinuousSeries{Name: label}
		for _, p := range labels[label] {
			if !p.ok {
				continue
			}
			s.XValues = append(s.XValues, p.sinceStartSec)
			s.YValues = append(s.YValues, p.elapsedMs)
		}
		if len(s.XValues) < 2 {
			continue
		}
		series = append(series, s)
	}
	if len(series) == 0 {
		return fmt.Errorf("not enough successful requests in %s to plot", inputCSV)
	}
	graph := chart.Chart{
		Title:  "Response time",
		XAxis:  chart.XAxis{Name: "Seconds since start"},
		YAxis:  chart.YAxis{Name: "ms"},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return renderPNG(graph, outputPNG)
}

func sortedKeys(m map[string][]latencyPoint) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
