package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

func (m Model) viewDetails() string {
	if m.cursor < 0 || m.cursor >= len(m.facilities) {
		return "No Facility Selected"
	}
	f := m.facilities[m.cursor]

	header := detailsHeaderStyle.Render(fmt.Sprintf("AIRPORT : %s", f.Name))

	state := special.Render("STATE:         UNDERUTILIZED")
	switch {
	case f.Overloaded:
		state = danger.Render("STATE:         OVERLOADED")
	case f.Load == 0:
		state = dimStyle.Render("STATE:         IDLE")
	}

	measured := fmt.Sprintf("MEASURED AT:   %.6f, %.6f", f.Position.X, f.Position.Y)
	next := "NEXT POSITION: unchanged"
	if m.last != nil {
		for _, a := range m.last.Adjusted {
			if a.Name == f.Name && a.Position != f.Position {
				next = fmt.Sprintf("NEXT POSITION: %.6f, %.6f", a.Position.X, a.Position.Y)
			}
		}
	}

	block := lipgloss.JoinVertical(lipgloss.Left,
		state,
		special.Render(fmt.Sprintf("LOAD:          %d", f.Load)),
		lipgloss.NewStyle().Foreground(lipgloss.Color("#00BFFF")).Render("LOAD HISTORY:  "+renderSparkline(m.loads[f.Name])),
		dimStyle.Render(measured),
		dimStyle.Render(next),
	)

	var pairs []string
	for _, l := range m.moveLines {
		if l.Overloaded == f.Name || l.Neighbor == f.Name {
			pairs = append(pairs, l.Text)
		}
	}
	if len(pairs) == 0 {
		pairs = []string{"No adjustments this cycle"}
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		header,
		"",
		block,
		"",
		highlight.Render("ADJUSTMENTS:"),
		dimStyle.Render(strings.Join(pairs, "\n")),
		"",
		strings.Repeat("─", 50),
		"[B]ack to List  [M]oves",
	)

	return detailsBoxStyle.Render(content)
}

func renderSparkline(data []float64) string {
	if len(data) == 0 {
		return "[NO DATA]"
	}
	bars := []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

	max := 0.0
	for _, v := range data {
		if v > max {
			max = v
		}
	}

	var s strings.Builder
	s.WriteString("[")
	for _, v := range data {
		if max == 0 {
			s.WriteString(bars[0])
			continue
		}
		idx := int((v / max) * float64(len(bars)-1))
		if idx >= len(bars) {
			idx = len(bars) - 1
		}
		s.WriteString(bars[idx])
	}
	s.WriteString("]")
	return s.String()
}
