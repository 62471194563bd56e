package cli

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	tea "charm.land/bubbletea/v2"

	"github.com/gokatarajesh/maths-quiz/internal/worksheet"
)

// sheetModel browses a worksheet, revealing answers one at a time.
type sheetModel struct {
	ws     *worksheet.Worksheet
	rand   func() *rand.Rand
	cursor int
	notice string
	done   bool
}

var _ tea.Model = (*sheetModel)(nil)

func newSheetModel(ws *worksheet.Worksheet, rnd func() *rand.Rand) *sheetModel {
	return &sheetModel{ws: ws, rand: rnd}
}

func (m *sheetModel) Init() tea.Cmd {
	return nil
}

func (m *sheetModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	key, ok := msg.(tea.KeyPressMsg)
	if !ok {
		return m, nil
	}
	m.notice = ""
	n := len(m.ws.Items)

	switch k := key.String(); k {
	case "ctrl+c", "esc", "q":
		m.done = true
		return m, tea.Quit
	case "up", "k":
		m.cursor = max(m.cursor-1, 0)
	case "down", "j":
		m.cursor = min(m.cursor+1, max(n-1, 0))
	case "enter", "space":
		m.ws.Toggle(m.cursor)
	case "a":
		m.ws.RevealAll()
	case "h":
		m.ws.HideAll()
	case "r":
		m.ws.Regenerate(m.rand())
		m.cursor = 0
	default:
		i, err := strconv.Atoi(k)
		if err != nil || i < 1 || i > n {
			m.notice = fmt.Sprintf("Enter a number from 1 to %d.", min(n, 9))
			return m, nil
		}
		m.cursor = i - 1
		m.ws.Toggle(m.cursor)
	}
	return m, nil
}

func (m *sheetModel) finished() bool {
	return m.done
}

func (m *sheetModel) View() tea.View {
	return tea.NewView(m.render())
}

func (m *sheetModel) render() string {
	var body strings.Builder
	// Render only fails when the writer does.
	_ = worksheet.Render(&body, m.ws, false)

	// Mark the cursor on the numbered line of the selected item.
	lines := strings.Split(body.String(), "\n")
	prefix := fmt.Sprintf("%2d. ", m.cursor+1)
	for i, line := range lines {
		if strings.HasPrefix(line, prefix) {
			lines[i] = accentStyle.Render("›") + line
		} else if i > 1 {
			lines[i] = " " + line
		}
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines, "\n"))
	if m.notice != "" {
		b.WriteString(hintStyle.Render(m.notice) + "\n")
	}
	if !m.done {
		b.WriteString("\n" + hintStyle.Render("↑↓ move · enter toggle · 1-9 jump · a reveal all · h hide all · r regenerate · q quit") + "\n")
	}
	return b.String()
}
