package main

import (
	"fmt"
	"io"
	"math"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"golang.org/x/exp/slices"

	"github.com/dd0wney/cluso-mvsplan/pkg/allocation"
	"github.com/dd0wney/cluso-mvsplan/pkg/fleet"
	"github.com/dd0wney/cluso-mvsplan/pkg/health"
	"github.com/dd0wney/cluso-mvsplan/pkg/partition"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FF00FF"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#00FFFF")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#00FF00")).
			Bold(true)
)

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFFF"))).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func formatGain(g float64) string {
	if math.IsInf(g, -1) {
		return "none"
	}
	return strconv.FormatFloat(g, 'f', 4, 64)
}

func renderPlan(w io.Writer, plan *fleet.Plan) error {
	res := plan.Fleet
	ids := make([]int, 0, len(res.Machines))
	for id := range res.Machines {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	t := newTable("PM", "nodes", "E_max(1)", "n_opt", "m_conf", "vCPU", "gain", "legal", "VMs", "first VM")
	illegal := 0
	for _, id := range ids {
		mr := res.Machines[id]
		opt := mr.Result.Optimal
		emax1 := 0
		if len(mr.Result.Curve) > 0 {
			emax1 = mr.Result.Curve[0]
		}
		legal := successStyle.Render("yes")
		if !mr.Legal {
			legal = errorStyle.Render("no")
			illegal++
		}
		t.Row(
			strconv.Itoa(id),
			strconv.Itoa(len(plan.PM.Nodes[id])),
			strconv.Itoa(emax1),
			strconv.Itoa(opt.VMs),
			strconv.Itoa(opt.MemConf),
			strconv.Itoa(opt.VCPUs),
			formatGain(opt.Gain),
			legal,
			strconv.Itoa(plan.VMs[id]),
			strconv.Itoa(plan.Offsets[id]),
		)
	}

	fmt.Fprintln(w, titleStyle.Render("Fleet run "+res.RunID.String()))
	fmt.Fprintln(w, t.Render())
	if illegal == 0 {
		fmt.Fprintln(w, successStyle.Render("All allocations are legal"))
	} else {
		fmt.Fprintln(w, errorStyle.Render(fmt.Sprintf("%d machine(s) exceed their VM limit or have no feasible allocation", illegal)))
	}
	renderQuality(w, "PM", plan.PMQuality)
	renderQuality(w, "VM", plan.VMQuality)
	if plan.Saved != nil {
		fmt.Fprintf(w, "Wrote %d sub-topologies with %d cross links\n", len(plan.Saved.Paths), len(plan.Saved.Links))
	}
	if len(plan.CSVPaths) > 0 {
		fmt.Fprintf(w, "Wrote %d candidate logs\n", len(plan.CSVPaths))
	}
	_, err := fmt.Fprintf(w, "Optimized in %s\n", res.Duration)
	return err
}

func renderQuality(w io.Writer, level string, m *partition.Metrics) {
	if m == nil {
		return
	}
	fmt.Fprintf(w, "%s split: %d parts, sizes %v, load balance %.2f, cut ratio %.2f\n",
		level, len(m.Parts), m.PartitionSizes, m.LoadBalance, m.CutRatio)
}

func renderSample(w io.Writer, s *allocation.CurveSample) error {
	t := newTable("n", "mean E_max", "std dev")
	for i := range s.Mean {
		t.Row(
			strconv.Itoa(i+1),
			strconv.FormatFloat(s.Mean[i], 'f', 2, 64),
			strconv.FormatFloat(s.StdDev[i], 'f', 2, 64),
		)
	}
	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("E_max over %d runs", len(s.Runs))))
	fmt.Fprintln(w, t.Render())
	_, err := fmt.Fprintf(w, "curve: %v\n", []int(s.Curve()))
	return err
}

func renderNmax(w io.Writer, mGraph, overhead, bound float64, limit, nmax int) error {
	t := newTable("n", "gain")
	for n := 2; n <= limit; n++ {
		g := allocation.SimplifiedGain(n, mGraph, overhead)
		cell := strconv.FormatFloat(g, 'f', 4, 64)
		if g > bound {
			cell = successStyle.Render(cell)
		}
		t.Row(strconv.Itoa(n), cell)
	}
	fmt.Fprintln(w, t.Render())
	_, err := fmt.Fprintf(w, "n_max: %d\n", nmax)
	return err
}

func renderReport(w io.Writer, r health.Report, names []string) error {
	t := newTable("check", "status", "message")
	for _, name := range names {
		c := r.Checks[name]
		status := string(c.Status)
		switch c.Status {
		case health.StatusHealthy:
			status = successStyle.Render(status)
		case health.StatusUnhealthy:
			status = errorStyle.Render(status)
		}
		t.Row(name, status, c.Message)
	}
	fmt.Fprintln(w, t.Render())
	_, err := fmt.Fprintf(w, "preflight: %s\n", r.Status)
	return err
}
