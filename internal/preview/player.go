// Package preview plays an encoded stream in the terminal.
package preview

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zsiec/bwrle/internal/codec"
)

var counterStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("0")).
	Background(lipgloss.Color("15")).
	Padding(0, 1)

var helpStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

// Options configures playback.
type Options struct {
	// Start skips this many frames before playing.
	Start int
	// Overlay draws the frame counter above the picture.
	Overlay bool
	// Loop restarts at Start when the stream ends instead of quitting.
	Loop bool
}

type tickMsg time.Time

// Model is the bubbletea model of the player.
type Model struct {
	data   []byte
	format codec.Format
	opts   Options

	reader   *codec.Reader
	frame    *codec.Frame
	interval time.Duration

	playing bool
	shown   bool
	ended   bool
	cols    int
	rows    int
}

// New prepares a player for data. The stream header, if format.Header is
// set, decides the geometry and frame rate.
func New(data []byte, format codec.Format, opts Options) (*Model, error) {
	m := &Model{data: data, format: format, opts: opts, playing: true}
	if err := m.rewind(); err != nil {
		return nil, err
	}

	fps := m.reader.Format().FrameRate
	if fps == 0 {
		fps = codec.DefaultFrameRate
	}
	m.interval = time.Second / time.Duration(fps)
	m.frame = m.reader.NewFrame()
	m.step()
	return m, nil
}

func (m *Model) rewind() error {
	r, err := codec.NewReader(m.data, m.format)
	if err != nil {
		return fmt.Errorf("open stream: %w", err)
	}
	for r.Index() < m.opts.Start {
		if !r.Skip() {
			break
		}
	}
	m.reader = r
	m.ended = false
	return nil
}

// step decodes the next frame. It reports false at the end of the stream.
func (m *Model) step() bool {
	if m.reader.Next(m.frame) {
		m.shown = true
		return true
	}
	m.ended = true
	return false
}

// FrameIndex returns the index of the displayed frame, or -1 before any.
func (m *Model) FrameIndex() int {
	if !m.shown {
		return -1
	}
	return m.reader.Index() - 1
}

// Playing reports whether playback is running.
func (m *Model) Playing() bool {
	return m.playing
}

func (m *Model) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m *Model) Init() tea.Cmd {
	if m.ended && !m.shown {
		return tea.Quit
	}
	return m.tick()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		case " ", "p":
			m.playing = !m.playing
		case "right", "l", "n":
			if !m.playing {
				m.step()
			}
		case "r", "home":
			if err := m.rewind(); err == nil {
				m.step()
			}
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.cols, m.rows = msg.Width, msg.Height
		return m, nil

	case tickMsg:
		if m.playing && !m.step() {
			if !m.opts.Loop {
				return m, tea.Quit
			}
			if err := m.rewind(); err != nil || !m.step() {
				return m, tea.Quit
			}
		}
		return m, m.tick()
	}

	return m, nil
}

func (m *Model) View() string {
	rows := m.rows
	if m.opts.Overlay {
		rows--
	}
	rows-- // help line

	picture := Render(m.frame, m.cols, rows)
	help := helpStyle.Render("space pause • → step • r restart • q quit")

	if !m.opts.Overlay {
		return lipgloss.JoinVertical(lipgloss.Left, picture, help)
	}

	status := fmt.Sprintf("frame %d", m.FrameIndex())
	if !m.playing {
		status += " [paused]"
	}
	if m.ended {
		status += " [end]"
	}
	f := m.reader.Format()
	counter := counterStyle.Render(fmt.Sprintf("%s  %dx%d@%d", status, f.Width, f.Height, f.FrameRate))

	return lipgloss.JoinVertical(lipgloss.Left, counter, picture, help)
}

// Run plays the model in the alternate screen until the user quits, the
// stream ends or ctx is cancelled.
func Run(ctx context.Context, m *Model) error {
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
