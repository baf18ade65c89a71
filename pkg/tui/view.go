package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/DrSkyle/skybalance/pkg/version"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.state {
	case ViewStateDetail:
		body = m.viewDetails()
	case ViewStateMoves:
		body = m.viewMoves()
	case ViewStateHelp:
		body = m.viewHelp()
	default:
		body = m.viewList()
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.viewHUD(),
		body,
		m.viewFooter(),
	)
}

func (m Model) viewHUD() string {
	status := "DONE"
	statusStyle := subtle
	if m.running {
		status = "BALANCING" + strings.Repeat(".", m.tickCount%4)
		statusStyle = special
	}
	if m.err != nil {
		status = "FAILED"
		statusStyle = danger
	}

	cycle := "baseline"
	threshold := "-"
	overloaded := 0
	if m.last != nil {
		cycle = fmt.Sprintf("%d/%d", m.last.Cycle+1, m.last.Iterations)
		threshold = fmt.Sprintf("%.2f", m.last.Threshold)
		overloaded = len(m.last.Class.Overloaded)
	}

	title := highlight.Render(fmt.Sprintf("%s %s", strings.ToUpper(version.AppName), version.Current))
	if m.isMock {
		title += warning.Render(" [MOCK]")
	}
	segStatus := statusStyle.Render(fmt.Sprintf("[ %-12s ]", status))
	segCycle := hudLabelStyle.Render("CYCLE:") + hudValueStyle.Render(cycle)
	segThreshold := hudLabelStyle.Render("THRESHOLD:") + hudValueStyle.Render(threshold)
	overStyle := hudValueStyle
	if overloaded > 0 {
		overStyle = danger
	}
	segOver := hudLabelStyle.Render("OVERLOADED:") + overStyle.Render(fmt.Sprintf("%d", overloaded))
	segWorkers := hudLabelStyle.Render("WORKERS:") + hudValueStyle.Render(fmt.Sprintf("%d/%d", m.stats.ActiveWorkers, m.stats.Concurrency))

	left := lipgloss.JoinHorizontal(lipgloss.Center, title, "  ", segStatus)
	right := lipgloss.JoinHorizontal(lipgloss.Center, segCycle, "  |  ", segThreshold, "  |  ", segOver, "  |  ", segWorkers)

	spacer := m.width - 4 - lipgloss.Width(left) - lipgloss.Width(right)
	if spacer < 1 {
		spacer = 1
	}
	content := lipgloss.JoinHorizontal(lipgloss.Top, left, strings.Repeat(" ", spacer), right)

	bar := m.progress.ViewAs(m.Progress())
	if m.running && m.last == nil {
		bar = m.spinner.View() + subtle.Render(" Measuring baseline...")
	}

	return lipgloss.JoinVertical(lipgloss.Left, hudStyle.Render(content), " "+bar)
}

func (m Model) viewFooter() string {
	parts := []string{"[j/k] move", "[enter] details", "[m] moves", "[s] sort", "[?] help", "[q] quit"}
	line := dimStyle.Render(strings.Join(parts, "  "))
	if m.statusMsg != "" {
		line += "   " + warning.Render(m.statusMsg)
	}
	if m.result != nil {
		line += "\n" + m.viewResult()
	}
	return line
}

func (m Model) viewResult() string {
	r := m.result
	trend := special.Render("non-increasing")
	if !r.Trend.NonIncreasing {
		trend = danger.Render("grew")
	}
	out := fmt.Sprintf("Run %s: %d cycles in %s, overloaded %d -> %d (%s), mean displacement %.4f",
		r.RunID, r.Cycles, time.Since(m.startTime).Round(time.Second),
		r.Trend.FirstOverloaded, r.Trend.LastOverloaded, trend, r.Trend.MeanDisplacement)
	if r.Partial() {
		out += warning.Render(fmt.Sprintf("  [PARTIAL: %d failed fetches, %d storage errors]", r.FailedFetches, r.StorageErrors))
	}
	for _, a := range r.Trend.Alerts {
		out += "\n" + warning.Render(a)
	}
	return out
}

func (m Model) viewHelp() string {
	rows := [][2]string{
		{"j / down", "next facility or move"},
		{"k / up", "previous facility or move"},
		{"enter", "toggle facility details"},
		{"m", "toggle the adjustment view"},
		{"s", "cycle sort: registry, load, name"},
		{"esc", "back to the facility list"},
		{"q", "quit (the run keeps its artifacts)"},
	}
	var s strings.Builder
	s.WriteString(highlight.Render("KEYS") + "\n\n")
	for _, r := range rows {
		s.WriteString(fmt.Sprintf("  %-10s %s\n", r[0], dimStyle.Render(r[1])))
	}
	return detailsBoxStyle.Render(s.String())
}
