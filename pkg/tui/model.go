// Package tui renders a live dashboard of a rebalancing run.
package tui

import (
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/DrSkyle/skybalance/pkg/airspace"
	"github.com/DrSkyle/skybalance/pkg/engine"
	"github.com/DrSkyle/skybalance/pkg/engine/swarm"
)

type ViewState int

const (
	ViewStateList ViewState = iota
	ViewStateDetail
	ViewStateMoves
	ViewStateHelp
)

// Sort modes for the facility list.
const (
	SortRegistry = ""
	SortLoad     = "LOAD"
	SortName     = "NAME"
)

// CycleMsg carries a finished cycle into the program.
type CycleMsg engine.CycleReport

// DoneMsg ends the run.
type DoneMsg struct {
	Result *engine.Result
	Err    error
}

type tickMsg time.Time

type Model struct {
	spinner  spinner.Model
	progress progress.Model
	Engine   *swarm.Engine

	// state
	state    ViewState
	running  bool
	quitting bool
	err      error
	width    int
	height   int
	isMock   bool

	// data
	last       *CycleMsg
	facilities []airspace.Facility
	loads      map[string][]float64
	moveLines  []MoveLine
	result     *engine.Result
	stats      swarm.Stats

	startTime time.Time

	SortMode string

	statusMsg  string
	statusTime time.Time

	// navigation
	cursor      int
	movesCursor int

	tickCount int
}

func NewModel(e *swarm.Engine, isMock bool) Model {
	s := spinner.New()
	s.Spinner = spinner.Points
	s.Style = special

	prog := progress.New(progress.WithGradient("#00FF99", "#00CCFF"))

	return Model{
		spinner:   s,
		progress:  prog,
		running:   true,
		isMock:    isMock,
		Engine:    e,
		state:     ViewStateList,
		loads:     make(map[string][]float64),
		startTime: time.Now(),
		width:     100,
		height:    30,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width / 3

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tickMsg:
		m.tickCount++
		if m.Engine != nil {
			m.stats = m.Engine.GetStats()
		}
		if m.statusMsg != "" && time.Since(m.statusTime) > 3*time.Second {
			m.statusMsg = ""
		}
		return m, tick()

	case CycleMsg:
		m.applyCycle(msg)

	case DoneMsg:
		m.running = false
		m.result = msg.Result
		m.err = msg.Err
		m.setStatus("Run complete")
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit
	case "up", "k":
		if m.state == ViewStateMoves {
			if m.movesCursor > 0 {
				m.movesCursor--
			}
		} else if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.state == ViewStateMoves {
			if m.movesCursor < len(m.moveLines)-1 {
				m.movesCursor++
			}
		} else if m.cursor < len(m.facilities)-1 {
			m.cursor++
		}
	case "enter", " ":
		if m.state == ViewStateDetail {
			m.state = ViewStateList
		} else if len(m.facilities) > 0 {
			m.state = ViewStateDetail
		}
	case "m":
		if m.state == ViewStateMoves {
			m.state = ViewStateList
		} else {
			m.state = ViewStateMoves
		}
	case "s":
		switch m.SortMode {
		case SortRegistry:
			m.SortMode = SortLoad
		case SortLoad:
			m.SortMode = SortName
		default:
			m.SortMode = SortRegistry
		}
		m.resort()
		m.setStatus("Sort: " + m.sortLabel())
	case "?":
		if m.state == ViewStateHelp {
			m.state = ViewStateList
		} else {
			m.state = ViewStateHelp
		}
	case "esc", "backspace":
		m.state = ViewStateList
	}
	return m, nil
}

func (m *Model) applyCycle(msg CycleMsg) {
	m.last = &msg
	for _, f := range msg.Facilities {
		m.loads[f.Name] = append(m.loads[f.Name], float64(f.Load))
	}
	m.facilities = make([]airspace.Facility, len(msg.Facilities))
	copy(m.facilities, msg.Facilities)
	m.resort()
	m.moveLines = buildMoveLines(msg)
	if m.movesCursor >= len(m.moveLines) {
		m.movesCursor = 0
	}
	if m.cursor >= len(m.facilities) {
		m.cursor = 0
	}
}

// resort orders the list. The registry order is the report's order.
func (m *Model) resort() {
	if m.last == nil {
		return
	}
	switch m.SortMode {
	case SortLoad:
		sort.SliceStable(m.facilities, func(i, j int) bool {
			return m.facilities[i].Load > m.facilities[j].Load
		})
	case SortName:
		sort.SliceStable(m.facilities, func(i, j int) bool {
			return m.facilities[i].Name < m.facilities[j].Name
		})
	default:
		copy(m.facilities, m.last.Facilities)
	}
}

func (m Model) sortLabel() string {
	if m.SortMode == SortRegistry {
		return "REGISTRY"
	}
	return m.SortMode
}

func (m *Model) setStatus(s string) {
	m.statusMsg = s
	m.statusTime = time.Now()
}

// Progress returns the completed fraction of the run.
func (m Model) Progress() float64 {
	if m.last == nil || m.last.Iterations == 0 {
		return 0
	}
	return float64(m.last.Cycle+1) / float64(m.last.Iterations)
}
