package tui

import (
	"fmt"
	"strings"
)

func (m Model) viewList() string {
	s := strings.Builder{}

	if len(m.facilities) == 0 {
		if m.running {
			return fmt.Sprintf("\n\n   %s Waiting for the first cycle...", m.spinner.View())
		}
		return "\n\n   " + subtle.Render("No facilities reported.")
	}

	start, end := m.calculateWindow(len(m.facilities))

	headerTxt := fmt.Sprintf("  %-8s | %-10s | %-22s | %-6s | %s", "STATE", "AIRPORT", "POSITION", "LOAD", "TREND")
	s.WriteString(dimStyle.Render(headerTxt) + "\n")
	if m.SortMode != SortRegistry {
		s.WriteString(warning.Render(fmt.Sprintf("   [SORT: %s]", m.SortMode)) + "\n")
	} else {
		s.WriteString(dimStyle.Render("  "+strings.Repeat("─", 72)) + "\n")
	}

	for i := start; i < end; i++ {
		f := m.facilities[i]

		cursor := "  "
		if i == m.cursor {
			cursor = "> "
		}

		tag := iconOK.String()
		switch {
		case f.Overloaded:
			tag = iconOverloaded.String()
		case f.Load == 0:
			tag = iconIdle.String()
		}

		name := f.Name
		if len(name) > 10 {
			name = name[:9] + "…"
		}
		pos := fmt.Sprintf("%.4f, %.4f", f.Position.X, f.Position.Y)
		line := fmt.Sprintf("%-8s | %-10s | %-22s | %-6d | %s", tag, name, pos, f.Load, renderSparkline(m.loads[f.Name]))

		if i == m.cursor {
			s.WriteString(listSelectedStyle.Render(cursor+line) + "\n")
		} else {
			s.WriteString(listNormalStyle.Render(cursor+line) + "\n")
		}
	}

	return s.String()
}

func (m Model) calculateWindow(total int) (int, int) {
	windowSize := m.height - 10 // HUD, header and footer
	if windowSize < 5 {
		windowSize = 5
	}

	start := m.cursor - (windowSize / 2)
	if start < 0 {
		start = 0
	}

	end := start + windowSize
	if end > total {
		end = total
		start = end - windowSize
		if start < 0 {
			start = 0
		}
	}
	return start, end
}
