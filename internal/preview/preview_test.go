package preview

import (
	"bytes"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zsiec/bwrle/internal/codec"
)

// checker returns a frame whose left half is white on even frames and
// right half on odd ones.
func checker(w, h int, odd bool) *codec.Frame {
	f := codec.NewFrame(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x < w/2) != odd {
				f.SetGray(x, y, 255)
			}
		}
	}
	return f
}

func stream(t *testing.T, n int) []byte {
	t.Helper()
	var buf bytes.Buffer
	enc := codec.NewEncoder(&buf, codec.EncoderOptions{Header: true, FrameRate: 50})
	for i := 0; i < n; i++ {
		require.NoError(t, enc.WriteFrame(checker(8, 4, i%2 == 1)))
	}
	return buf.Bytes()
}

func key(s string) tea.KeyMsg {
	switch s {
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func isQuit(cmd tea.Cmd) bool {
	if cmd == nil {
		return false
	}
	_, ok := cmd().(tea.QuitMsg)
	return ok
}

func TestRender(t *testing.T) {
	f := codec.NewFrame(4, 2)
	f.SetGray(0, 0, 255) // top only
	f.SetGray(1, 1, 255) // bottom only
	f.SetGray(2, 0, 255) // both
	f.SetGray(2, 1, 255)

	assert.Equal(t, "▀▄█ ", Render(f, 80, 24))
}

func TestRenderOddHeight(t *testing.T) {
	f := codec.NewFrame(2, 3)
	for x := 0; x < 2; x++ {
		for y := 0; y < 3; y++ {
			f.SetGray(x, y, 255)
		}
	}
	assert.Equal(t, "██\n▀▀", Render(f, 80, 24))
}

func TestRenderDownscales(t *testing.T) {
	f := codec.NewFrame(320, 240)
	out := Render(f, 80, 20)

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 20)
	for _, l := range lines {
		assert.LessOrEqual(t, len([]rune(l)), 80)
	}
	assert.Equal(t, "", Render(nil, 80, 20))
}

func TestScale(t *testing.T) {
	assert.Equal(t, 1, scale(320, 240, 0, 0))
	assert.Equal(t, 1, scale(320, 240, 320, 120))
	assert.Equal(t, 4, scale(320, 240, 80, 60))
	assert.Equal(t, 6, scale(320, 240, 80, 20))
}

func TestModelPlayback(t *testing.T) {
	m, err := New(stream(t, 3), codec.Format{Header: true}, Options{Overlay: true})
	require.NoError(t, err)

	assert.Equal(t, 0, m.FrameIndex())
	assert.NotNil(t, m.Init())

	_, cmd := m.Update(tickMsg{})
	assert.Equal(t, 1, m.FrameIndex())
	assert.False(t, isQuit(cmd))

	_, cmd = m.Update(tickMsg{})
	assert.Equal(t, 2, m.FrameIndex())
	assert.False(t, isQuit(cmd))

	_, cmd = m.Update(tickMsg{})
	assert.True(t, isQuit(cmd), "quits at end of stream")
	assert.Contains(t, m.View(), "[end]")
}

func TestModelPauseAndStep(t *testing.T) {
	m, err := New(stream(t, 3), codec.Format{Header: true}, Options{Overlay: true})
	require.NoError(t, err)

	m.Update(key(" "))
	assert.False(t, m.Playing())
	assert.Contains(t, m.View(), "[paused]")

	m.Update(tickMsg{})
	assert.Equal(t, 0, m.FrameIndex(), "ticks do not advance while paused")

	m.Update(key("right"))
	assert.Equal(t, 1, m.FrameIndex())

	m.Update(key("r"))
	assert.Equal(t, 0, m.FrameIndex())

	m.Update(key(" "))
	assert.True(t, m.Playing())

	_, cmd := m.Update(key("q"))
	assert.True(t, isQuit(cmd))
}

func TestModelLoopAndStart(t *testing.T) {
	m, err := New(stream(t, 3), codec.Format{Header: true}, Options{Start: 1, Loop: true})
	require.NoError(t, err)
	assert.Equal(t, 1, m.FrameIndex())

	m.Update(tickMsg{})
	assert.Equal(t, 2, m.FrameIndex())

	_, cmd := m.Update(tickMsg{})
	assert.False(t, isQuit(cmd))
	assert.Equal(t, 1, m.FrameIndex(), "loops back to the start frame")
}

func TestModelWindowSize(t *testing.T) {
	m, err := New(stream(t, 1), codec.Format{Header: true}, Options{})
	require.NoError(t, err)

	m.Update(tea.WindowSizeMsg{Width: 4, Height: 3})
	lines := strings.Split(m.View(), "\n")
	assert.Equal(t, "██", strings.TrimRight(lines[0], " "))
}

func TestModelEmptyStream(t *testing.T) {
	header, err := codec.Header{Width: 8, Height: 4, FrameRate: 10}.MarshalBinary()
	require.NoError(t, err)

	m, err := New(header, codec.Format{Header: true}, Options{})
	require.NoError(t, err)
	assert.Equal(t, -1, m.FrameIndex())
	assert.True(t, isQuit(m.Init()))

	_, err = New([]byte{1}, codec.Format{Header: true}, Options{})
	assert.Error(t, err)
}
