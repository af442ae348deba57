package main

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/config"
	"github.com/terramodulus/ferricia/gateway"
	"github.com/terramodulus/ferricia/physics"
	"github.com/terramodulus/ferricia/registry"
	"github.com/terramodulus/ferricia/snapshot"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	statStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	bodyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	sleepStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type interactiveModel struct {
	g       *gateway.Gateway
	cancel  context.CancelFunc
	input   textinput.Model
	snap    *snapshot.Snapshot
	message string
	msgErr  bool
	spawned int
}

type snapMsg struct {
	snap *snapshot.Snapshot
}

type cmdDoneMsg struct {
	err  error
	text string
}

func newInteractiveModel(g *gateway.Gateway, cancel context.CancelFunc) *interactiveModel {
	ti := textinput.New()
	ti.Placeholder = "spawn | impulse <handle> <x> <y> <z> | destroy <handle> | quit"
	ti.Prompt = "> "
	ti.Width = 60
	ti.Focus()
	return &interactiveModel{g: g, cancel: cancel, input: ti}
}

func (m *interactiveModel) Init() tea.Cmd {
	return m.pollSnapshot()
}

func (m *interactiveModel) pollSnapshot() tea.Cmd {
	return tea.Tick(50*time.Millisecond, func(time.Time) tea.Msg {
		return snapMsg{snap: m.g.Snapshot()}
	})
}

func (m *interactiveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.cancel()
			return m, tea.Quit

		case "enter":
			line := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if line == "" {
				return m, nil
			}
			if line == "quit" || line == "q" {
				m.cancel()
				return m, tea.Quit
			}
			return m, m.execute(line)
		}

	case snapMsg:
		m.snap = msg.snap
		return m, m.pollSnapshot()

	case cmdDoneMsg:
		m.msgErr = msg.err != nil
		if msg.err != nil {
			m.message = msg.err.Error()
		} else {
			m.message = msg.text
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// execute parses one command line and submits it to the engine off the
// UI goroutine.
func (m *interactiveModel) execute(line string) tea.Cmd {
	fields := strings.Fields(line)
	switch fields[0] {
	case "spawn":
		i := m.spawned
		m.spawned++
		return func() tea.Msg {
			res, err := m.g.SubmitWait(createBody(i))
			if err != nil {
				return cmdDoneMsg{err: err}
			}
			if res.Err != nil {
				return cmdDoneMsg{err: res.Err}
			}
			return cmdDoneMsg{text: fmt.Sprintf("spawned body %#x", uint64(res.Handle))}
		}

	case "impulse":
		if len(fields) != 5 {
			return reportf("usage: impulse <handle> <x> <y> <z>")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return func() tea.Msg { return cmdDoneMsg{err: err} }
		}
		var v [3]float64
		for i, f := range fields[2:] {
			v[i], err = strconv.ParseFloat(f, 64)
			if err != nil {
				return func() tea.Msg { return cmdDoneMsg{err: err} }
			}
		}
		return func() tea.Msg {
			t, err := m.g.InvokeAction(h, physics.Impulse{Linear: ferricia.Vec3{X: v[0], Y: v[1], Z: v[2]}})
			if err != nil {
				return cmdDoneMsg{err: err}
			}
			if res, err := m.g.Wait(t, 2*time.Second); err != nil {
				return cmdDoneMsg{err: err}
			} else if res.Err != nil {
				return cmdDoneMsg{err: res.Err}
			}
			return cmdDoneMsg{text: "impulse applied"}
		}

	case "destroy":
		if len(fields) != 2 {
			return reportf("usage: destroy <handle>")
		}
		h, err := parseHandle(fields[1])
		if err != nil {
			return func() tea.Msg { return cmdDoneMsg{err: err} }
		}
		return func() tea.Msg {
			t, err := m.g.DestroyResource(h)
			if err != nil {
				return cmdDoneMsg{err: err}
			}
			if res, err := m.g.Wait(t, 2*time.Second); err != nil {
				return cmdDoneMsg{err: err}
			} else if res.Err != nil {
				return cmdDoneMsg{err: res.Err}
			}
			return cmdDoneMsg{text: fmt.Sprintf("destroyed %#x", uint64(h))}
		}
	}
	return reportf("unknown command %q", fields[0])
}

func reportf(format string, args ...any) tea.Cmd {
	text := fmt.Sprintf(format, args...)
	return func() tea.Msg { return cmdDoneMsg{text: text} }
}

func parseHandle(s string) (registry.Handle, error) {
	v, err := strconv.ParseUint(strings.TrimPrefix(s, "0x"), 16, 64)
	if err != nil {
		return 0, fmt.Errorf("handle %q is not hex: %w", s, err)
	}
	return registry.Handle(v), nil
}

func (m *interactiveModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Ferricia"))
	b.WriteString(" " + ferricia.Version)
	b.WriteString("\n\n")

	if m.snap == nil {
		b.WriteString("Waiting for first snapshot...\n")
	} else {
		s := m.snap
		b.WriteString(statStyle.Render(fmt.Sprintf(
			"tick %d  live %d  steps/tick %d  draws %d",
			s.Tick, s.Loop.Live, s.Loop.PhysicsSteps, s.Frame.Draws)))
		b.WriteString("\n\n")

		handles := make([]registry.Handle, 0, len(s.Bodies))
		for h := range s.Bodies {
			handles = append(handles, h)
		}
		sort.Slice(handles, func(i, j int) bool { return handles[i] < handles[j] })
		for _, h := range handles {
			bd := s.Bodies[h]
			line := fmt.Sprintf("  %#016x  pos (%6.2f %6.2f %6.2f)  vel (%6.2f %6.2f %6.2f)",
				uint64(h),
				bd.Transform.Position.X, bd.Transform.Position.Y, bd.Transform.Position.Z,
				bd.Velocity.X, bd.Velocity.Y, bd.Velocity.Z)
			if bd.Sleeping {
				b.WriteString(sleepStyle.Render(line + "  zzz"))
			} else {
				b.WriteString(bodyStyle.Render(line))
			}
			b.WriteString("\n")
		}
		if len(handles) == 0 {
			b.WriteString(helpStyle.Render("  no bodies, try `spawn`"))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(m.input.View())
	b.WriteString("\n")

	if m.message != "" {
		if m.msgErr {
			b.WriteString(errorStyle.Render(m.message))
		} else {
			b.WriteString(resultStyle.Render(m.message))
		}
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("enter submit • ctrl+c quit"))
	return b.String()
}

func runInteractive(cfg config.Config, packFile string) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	g := newGateway(ctx, cfg)
	if err := g.Start(ctx); err != nil {
		return err
	}
	defer g.Stop()

	if packFile != "" {
		data, err := os.ReadFile(packFile)
		if err != nil {
			return fmt.Errorf("read pack: %w", err)
		}
		if err := loadPack(g, data); err != nil {
			return err
		}
	}

	p := tea.NewProgram(newInteractiveModel(g, cancel), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
