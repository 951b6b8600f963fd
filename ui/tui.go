package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/prodops/declfast/engine"
)

// Snapshot is one point-in-time reading of the pipeline counters
type Snapshot struct {
	Discovered  int64
	Declared    int64
	Duplicates  int64
	Skipped     int64
	Transferred int64
	CopyFailed  int64

	DeclareLive  int64
	TransferLive int64
	MaxDeclare   int64
	MaxTransfer  int64

	Done bool
}

func snapshot(c *engine.Counters, maxDeclare, maxTransfer int) Snapshot {
	return Snapshot{
		Discovered:   c.Discovered.Load(),
		Declared:     c.Declared.Load(),
		Duplicates:   c.Duplicates.Load(),
		Skipped:      c.Skipped.Load(),
		Transferred:  c.Transferred.Load(),
		CopyFailed:   c.CopyFailed.Load(),
		DeclareLive:  c.DeclareLive.Load(),
		TransferLive: c.TransferLive.Load(),
		MaxDeclare:   int64(maxDeclare),
		MaxTransfer:  int64(maxTransfer),
		Done:         c.Done.Load(),
	}
}

// tickMsg carries the next snapshot into the model
type tickMsg Snapshot

// Model implements the tea.Model interface over live pipeline counters
type Model struct {
	counters    *engine.Counters
	maxDeclare  int
	maxTransfer int

	state    Snapshot
	started  time.Time
	spinner  spinner.Model
	progress progress.Model

	width  int
	height int

	// Styles
	titleStyle   lipgloss.Style
	infoStyle    lipgloss.Style
	warnStyle    lipgloss.Style
	helpStyle    lipgloss.Style
	successStyle lipgloss.Style
}

// NewModel creates a TUI model reading the given counters.
func NewModel(counters *engine.Counters, maxDeclare, maxTransfer int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	prog := progress.New(progress.WithDefaultGradient())

	return Model{
		counters:     counters,
		maxDeclare:   maxDeclare,
		maxTransfer:  maxTransfer,
		state:        snapshot(counters, maxDeclare, maxTransfer),
		started:      time.Now(),
		spinner:      s,
		progress:     prog,
		titleStyle:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		warnStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		helpStyle:    lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
		successStyle: lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

func (m Model) tick() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return tickMsg(snapshot(m.counters, m.maxDeclare, m.maxTransfer))
	})
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.tick(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 14

	case tickMsg:
		m.state = Snapshot(msg)
		if m.state.Done {
			return m, tea.Quit
		}
		cmds = append(cmds, m.tick())

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sb strings.Builder

	header := fmt.Sprintf("%s Declfast %s", m.spinner.View(), m.titleStyle.Render("Declare & Transfer Pipeline"))
	sb.WriteString(header + "\n")

	processed := m.state.Declared + m.state.Duplicates + m.state.Skipped
	percent := declareProgress(processed, m.state.Discovered)

	opsInfo := fmt.Sprintf("Elapsed: %s | Declare workers: %d/%d | Transfer workers: %d/%d",
		time.Since(m.started).Round(time.Second),
		m.state.DeclareLive, m.state.MaxDeclare,
		m.state.TransferLive, m.state.MaxTransfer)

	sb.WriteString(m.infoStyle.Render(opsInfo) + "\n")
	sb.WriteString(m.progress.ViewAs(percent) + "\n\n")

	sb.WriteString(fmt.Sprintf("Discovered:  %d\n", m.state.Discovered))
	sb.WriteString(fmt.Sprintf("Declared:    %d\n", m.state.Declared))
	sb.WriteString(fmt.Sprintf("Duplicates:  %d\n", m.state.Duplicates))
	sb.WriteString(fmt.Sprintf("Skipped:     %d\n", m.state.Skipped))
	sb.WriteString(fmt.Sprintf("Transferred: %d\n", m.state.Transferred))

	failed := fmt.Sprintf("Failed:      %d", m.state.CopyFailed)
	if m.state.CopyFailed > 0 {
		failed = m.warnStyle.Render(failed)
	}
	sb.WriteString(failed + "\n")

	help := m.helpStyle.Render("q/ctrl+c: quit")
	if m.state.Done {
		help = m.successStyle.Render("Pipeline Complete!") + " Press 'q' to exit."
	}
	sb.WriteString(help)

	return sb.String()
}

// declareProgress is the fraction of discovered files that have cleared the
// declare stage. Discovery streams, so the denominator can still grow;
// until anything is discovered the bar sits at zero.
func declareProgress(processed, discovered int64) float64 {
	if discovered <= 0 {
		return 0
	}
	p := float64(processed) / float64(discovered)
	if p > 1 {
		p = 1
	}
	return p
}

// Run drives the TUI until the pipeline reports done or the user quits.
func Run(counters *engine.Counters, maxDeclare, maxTransfer int) error {
	p := tea.NewProgram(NewModel(counters, maxDeclare, maxTransfer))
	_, err := p.Run()
	return err
}
