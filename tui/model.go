// Package tui is the terminal driver: it reads keys, feeds them to the
// engine and renders the board with bubbletea.
package tui

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/brensch/gridsnake/game"
	"github.com/brensch/gridsnake/rules"
	"github.com/brensch/gridsnake/store"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// Sink receives every game when it ends, or when the player quits mid-game.
type Sink interface {
	GameFinished(state *game.GameState, rows []store.TurnRow) error
}

// NewEngineFunc starts a fresh game; called at startup and on restart.
type NewEngineFunc func() (*rules.Engine, error)

// Config tunes the driver.
type Config struct {
	// Tick > 0 advances the snake on its own every Tick in the last
	// direction. Zero keeps the game strictly turn based.
	Tick time.Duration
	// Best is the high score shown in the header.
	Best int32
}

type tickMsg time.Time

type savedMsg struct {
	gameID string
	err    error
}

var (
	headStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10")).Bold(true)
	bodyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	foodStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	emptyStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	boardStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// Model is the bubbletea model for one terminal session. It can play any
// number of games back to back.
type Model struct {
	newEngine NewEngineFunc
	sink      Sink
	cfg       Config

	engine   *rules.Engine
	recorder *store.Recorder
	finished bool
	won      bool
	message  string
	games    int
	err      error
}

// New creates the model and starts the first game.
func New(newEngine NewEngineFunc, sink Sink, cfg Config) (*Model, error) {
	m := &Model{newEngine: newEngine, sink: sink, cfg: cfg}
	if err := m.start(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Model) start() error {
	e, err := m.newEngine()
	if err != nil {
		return fmt.Errorf("start game: %w", err)
	}
	m.engine = e
	m.recorder = store.NewRecorder("tui", e.Snapshot())
	m.finished = false
	m.won = false
	m.message = "Move with w/a/s/d or the arrow keys."
	m.games++
	return nil
}

// Engine exposes the current game.
func (m *Model) Engine() *rules.Engine { return m.engine }

// Message is the last status line shown under the board.
func (m *Model) Message() string { return m.message }

// Finished reports whether the current game has ended.
func (m *Model) Finished() bool { return m.finished }

// Won reports whether the current game ended with the board full.
func (m *Model) Won() bool { return m.won }

// Err is the last archive error, if any.
func (m *Model) Err() error { return m.err }

func (m *Model) Init() tea.Cmd {
	if m.cfg.Tick > 0 {
		return m.tickCmd()
	}
	return nil
}

func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(m.cfg.Tick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		key := msg.String()
		if game.IsQuit(key) {
			return m, tea.Sequence(m.finish(), tea.Quit)
		}
		if m.finished {
			if key == "r" || key == "enter" {
				if err := m.start(); err != nil {
					m.err = err
					return m, tea.Quit
				}
			}
			return m, nil
		}
		return m, m.step(game.ParseDirection(key), true)

	case tickMsg:
		if m.finished {
			return m, m.tickCmd()
		}
		cmd := m.step(m.engine.State().LastDirection, false)
		return m, tea.Batch(cmd, m.tickCmd())

	case savedMsg:
		if msg.err != nil {
			m.err = msg.err
			m.message += fmt.Sprintf(" (archive failed: %v)", msg.err)
		}
		return m, nil
	}
	return m, nil
}

// step applies one direction. explain controls whether no-op moves produce
// a status message; ticks stay quiet.
func (m *Model) step(dir game.Direction, explain bool) tea.Cmd {
	out, err := m.engine.Move(dir)
	m.recorder.Observe(dir, out, m.engine.State())

	if (out == rules.OutcomeIgnored || out == rules.OutcomeRejected) && !explain {
		return nil
	}
	m.message = rules.Describe(out, err, m.engine.State())

	switch {
	case out == rules.OutcomeAte && errors.Is(err, rules.ErrBoardFull):
		m.won = true
		return m.finish()
	case out == rules.OutcomeGameOver:
		return m.finish()
	}
	return nil
}

// finish hands the game to the sink once.
func (m *Model) finish() tea.Cmd {
	if m.finished {
		return nil
	}
	m.finished = true
	if s := m.engine.State(); s.Score > m.cfg.Best {
		m.cfg.Best = s.Score
	}
	if m.sink == nil {
		return nil
	}
	state := m.engine.Snapshot()
	rows := m.recorder.Rows()
	sink := m.sink
	return func() tea.Msg {
		return savedMsg{gameID: state.ID, err: sink.GameFinished(state, rows)}
	}
}

func (m *Model) View() string {
	s := m.engine.State()

	var b strings.Builder
	fmt.Fprintf(&b, "Score: %d   Length: %d   Best: %d   Game: %d\n", s.Score, s.Len(), m.cfg.Best, m.games)
	b.WriteString(boardStyle.Render(renderBoard(s)))
	b.WriteString("\n")
	if m.message != "" {
		b.WriteString(statusStyle.Render(m.message))
		b.WriteString("\n")
	}
	if m.finished {
		b.WriteString(s.HistoryString())
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("r: play again  q: quit"))
	} else {
		b.WriteString(helpStyle.Render("w/a/s/d or arrows: move  q: quit"))
	}
	b.WriteString("\n")
	return b.String()
}

func renderBoard(s *game.GameState) string {
	plain := strings.Split(strings.TrimSuffix(s.Render(), "\n"), "\n")
	var b strings.Builder
	for y, row := range plain {
		if y > 0 {
			b.WriteByte('\n')
		}
		for _, c := range row {
			cell := string(c) + " "
			switch c {
			case 'H':
				b.WriteString(headStyle.Render("@ "))
			case 'o':
				b.WriteString(bodyStyle.Render("o "))
			case '*':
				b.WriteString(foodStyle.Render("* "))
			default:
				b.WriteString(emptyStyle.Render(cell))
			}
		}
	}
	return b.String()
}
