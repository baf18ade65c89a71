package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/DrSkyle/skybalance/pkg/engine"
	"github.com/DrSkyle/skybalance/pkg/engine/history"
	"github.com/DrSkyle/skybalance/pkg/engine/load"
	"github.com/charmbracelet/lipgloss"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00FF99"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF3333"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#AAAAAA"))
)

func printResult(w io.Writer, res *engine.Result) {
	fmt.Fprintln(w, headingStyle.Render("RUN SUMMARY"))
	fmt.Fprintf(w, "  Run:        %s\n", res.RunID)
	fmt.Fprintf(w, "  Cycles:     %d\n", res.Cycles)
	fmt.Fprintf(w, "  Threshold:  %.2f\n", res.Threshold)
	if res.Partial() {
		fmt.Fprintln(w, warnStyle.Render(fmt.Sprintf("  Partial:    %d failed fetches, %d storage errors",
			res.FailedFetches, res.StorageErrors)))
	}
	if res.State != nil {
		fmt.Fprintln(w, "")
		fmt.Fprintln(w, headingStyle.Render("FINAL POSITIONS"))
		for _, f := range res.State.Facilities() {
			fmt.Fprintf(w, "  %-10s %10.4f %10.4f  load %d\n", f.Name, f.Position.X, f.Position.Y, f.Load)
		}
	}
	fmt.Fprintln(w, "")
	printTrend(w, res.Trend)
}

func printTrend(w io.Writer, t history.Trend) {
	fmt.Fprintln(w, headingStyle.Render("TREND"))
	if t.Cycles == 0 {
		fmt.Fprintln(w, dimStyle.Render("  No ledger entries."))
		return
	}
	fmt.Fprintf(w, "  Run:               %s (%d cycles)\n", t.RunID, t.Cycles)
	fmt.Fprintf(w, "  Overloaded:        %d -> %d\n", t.FirstOverloaded, t.LastOverloaded)
	fmt.Fprintf(w, "  Non-increasing:    %t\n", t.NonIncreasing)
	fmt.Fprintf(w, "  Mean displacement: %.4f\n", t.MeanDisplacement)
	fmt.Fprintf(w, "  Load spread:       %.3f -> %.3f\n", t.FirstSpread, t.LastSpread)
	if t.Cycles > 1 {
		fmt.Fprintf(w, "  Similarity:        %.3f\n", t.Similarity)
	}
	for _, a := range t.Alerts {
		fmt.Fprintln(w, warnStyle.Render("  "+a))
	}
}

func printAnalysis(w io.Writer, a *engine.Analysis) {
	fmt.Fprintln(w, headingStyle.Render("CLASSIFICATION"))
	fmt.Fprintf(w, "  Threshold: %.2f  Total load: %d\n", a.Threshold, a.Table.Total())
	if a.Filtered > 0 || a.Unresolved > 0 {
		fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("  %d observations filtered, %d entities unresolved", a.Filtered, a.Unresolved)))
	}
	for _, name := range a.Table.Names() {
		fmt.Fprintf(w, "  %-10s %5d  %s\n", name, a.Table[name], classLabel(a.Class, name))
	}
	fmt.Fprintln(w, "")

	fmt.Fprintln(w, headingStyle.Render("PROPOSED MOVES"))
	if len(a.Plan.Instructions) == 0 {
		fmt.Fprintln(w, dimStyle.Render("  None."))
		return
	}
	fmt.Fprintln(w, "  "+strings.Join(a.Plan.Instructions, "\n  "))
}

func classLabel(c load.Classification, name string) string {
	switch {
	case c.IsOverloaded(name):
		return warnStyle.Render("OVERLOADED")
	case c.IsUnderutilized(name):
		return "underutilized"
	default:
		return dimStyle.Render("idle")
	}
}
