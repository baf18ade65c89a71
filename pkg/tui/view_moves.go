package tui

import (
	"fmt"
	"strings"
)

// MoveLine is one row of the adjustment tree.
type MoveLine struct {
	Overloaded string
	Neighbor   string
	Text       string
	Level      int
	Skipped    bool
}

// buildMoveLines flattens a cycle's moves into overloaded -> neighbor rows,
// in the order they were applied.
func buildMoveLines(msg CycleMsg) []MoveLine {
	type entry struct {
		neighbor string
		step     float64
		skipped  bool
	}
	var order []string
	groups := map[string][]entry{}
	add := func(over string, e entry) {
		if _, ok := groups[over]; !ok {
			order = append(order, over)
		}
		groups[over] = append(groups[over], e)
	}
	for _, mv := range msg.Moves {
		add(mv.Overloaded, entry{neighbor: mv.Neighbor, step: mv.Step})
	}
	for _, mv := range msg.Skipped {
		add(mv.Overloaded, entry{neighbor: mv.Neighbor, skipped: true})
	}

	loads := map[string]int{}
	for _, f := range msg.Facilities {
		loads[f.Name] = f.Load
	}

	var lines []MoveLine
	for _, over := range order {
		lines = append(lines, MoveLine{
			Overloaded: over,
			Text:       fmt.Sprintf("%s (load %d)", over, loads[over]),
		})
		kids := groups[over]
		for i, k := range kids {
			prefix := " ├─ "
			if i == len(kids)-1 {
				prefix = " └─ "
			}
			text := fmt.Sprintf("%s%s (load %d) step %.5f", prefix, k.neighbor, loads[k.neighbor], k.step)
			if k.skipped {
				text = fmt.Sprintf("%s%s skipped: coincident coordinates", prefix, k.neighbor)
			}
			lines = append(lines, MoveLine{
				Overloaded: over,
				Neighbor:   k.neighbor,
				Text:       text,
				Level:      1,
				Skipped:    k.skipped,
			})
		}
	}
	return lines
}

func (m Model) viewMoves() string {
	s := strings.Builder{}

	headerTxt := "   ADJUSTMENTS (Overloaded -> Neighbor)"
	if m.last != nil {
		headerTxt += fmt.Sprintf("  cycle %d, displacement %.5f", m.last.Cycle+1, m.last.Displacement)
	}
	s.WriteString(dimStyle.Render(headerTxt) + "\n")
	s.WriteString(dimStyle.Render("   "+strings.Repeat("─", 60)) + "\n")

	if len(m.moveLines) == 0 {
		if m.running && m.last == nil {
			return s.String() + fmt.Sprintf("\n   %s Waiting for the first cycle...", m.spinner.View())
		}
		return s.String() + "\n   " + subtle.Render("No overloaded facility moved this cycle.")
	}

	start, end := m.calculateMovesWindow(len(m.moveLines))
	for i := start; i < end; i++ {
		line := m.moveLines[i]
		text := line.Text
		switch {
		case line.Level == 0:
			text = danger.Render(text)
		case line.Skipped:
			text = warning.Render(text)
		}
		if i == m.movesCursor {
			s.WriteString(listSelectedStyle.Render("> "+text) + "\n")
		} else {
			s.WriteString(listNormalStyle.Render("  "+text) + "\n")
		}
	}
	return s.String()
}

func (m Model) calculateMovesWindow(total int) (int, int) {
	windowSize := m.height - 10
	if windowSize < 5 {
		windowSize = 5
	}
	start := m.movesCursor - windowSize/2
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
