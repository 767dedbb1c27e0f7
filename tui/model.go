// Package tui renders the board in the terminal and turns key presses into
// drag gestures on a board.Controller.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/rajan-marasini/task-kanban/board"
	"github.com/rajan-marasini/task-kanban/domain"
)

type loadedMsg struct{ err error }

type droppedMsg struct {
	result board.DropResult
	err    error
}

// Model is the bubbletea model of the board screen. While a task is grabbed
// the cursor follows it and every move becomes a drag-over on the element
// next to it.
type Model struct {
	ctx  context.Context
	ctrl *board.Controller
	keys keyMap
	help help.Model

	col int
	row int

	grabbed  string
	lastOver board.Target
	pending  int

	status string
	err    error

	width  int
	height int
}

// New builds the model. The board is loaded by Init.
func New(ctx context.Context, ctrl *board.Controller) *Model {
	return &Model{
		ctx:  ctx,
		ctrl: ctrl,
		keys: defaultKeys(),
		help: help.New(),
	}
}

// Run starts the program and blocks until the user quits. Pending drops are
// awaited before it returns.
func Run(ctx context.Context, ctrl *board.Controller, opts ...tea.ProgramOption) error {
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(ctx)}, opts...)
	_, err := tea.NewProgram(New(ctx, ctrl), opts...).Run()
	ctrl.Wait()
	return err
}

func (m *Model) Init() tea.Cmd {
	return m.resync()
}

func (m *Model) resync() tea.Cmd {
	return func() tea.Msg {
		return loadedMsg{err: m.ctrl.Resync(m.ctx)}
	}
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case loadedMsg:
		m.err = msg.err
		if msg.err == nil {
			m.status = "board loaded"
		}
		m.clampCursor()
		return m, nil

	case droppedMsg:
		m.pending--
		switch {
		case msg.err != nil:
			m.err = msg.err
		case msg.result.Err != nil:
			m.err = fmt.Errorf("save failed: %w", msg.result.Err)
		default:
			m.err = msg.result.ResyncErr
			m.status = fmt.Sprintf("saved %q at position %d", msg.result.Task.Title, msg.result.Placement.Position)
		}
		if m.grabbed == "" {
			m.clampCursor()
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Refresh):
		if m.grabbed != "" {
			return m, nil
		}
		m.status = "refreshing..."
		return m, m.resync()
	case key.Matches(msg, m.keys.Grab):
		m.grab()
	case key.Matches(msg, m.keys.Drop):
		return m, m.drop()
	case key.Matches(msg, m.keys.Release):
		m.release()
	case key.Matches(msg, m.keys.Left):
		m.move(-1, 0)
	case key.Matches(msg, m.keys.Right):
		m.move(1, 0)
	case key.Matches(msg, m.keys.Up):
		m.move(0, -1)
	case key.Matches(msg, m.keys.Down):
		m.move(0, 1)
	}
	return m, nil
}

func (m *Model) grab() {
	if m.grabbed != "" {
		return
	}
	t, ok := m.current()
	if !ok {
		return
	}
	if m.ctrl.DragStart(t.ID) {
		m.grabbed = t.ID
		m.lastOver = board.Target{}
		m.status = fmt.Sprintf("grabbed %q", t.Title)
		m.err = nil
	}
}

// drop ends the drag over the last hovered element, or over the task's own
// column when nothing was hovered.
func (m *Model) drop() tea.Cmd {
	if m.grabbed == "" {
		return nil
	}
	over := m.lastOver
	if !over.Present() {
		if col, _, ok := m.ctrl.Locate(m.grabbed); ok {
			over = board.OverColumn(col)
		}
	}
	d := m.ctrl.DragEnd(m.grabbed, over)
	m.grabbed = ""
	m.lastOver = board.Target{}
	if d == nil {
		return nil
	}
	m.pending++
	m.status = "saving..."
	return func() tea.Msg {
		res, err := d.Wait(m.ctx)
		return droppedMsg{result: res, err: err}
	}
}

func (m *Model) release() {
	if m.grabbed == "" {
		return
	}
	m.ctrl.DragEnd(m.grabbed, board.Target{})
	m.grabbed = ""
	m.lastOver = board.Target{}
	m.status = "released outside the board; nothing saved (r to refresh)"
}

func (m *Model) move(dCol, dRow int) {
	cols := m.ctrl.Columns()
	if len(cols) == 0 {
		return
	}
	if m.grabbed == "" {
		m.col = clamp(m.col+dCol, 0, len(cols)-1)
		m.row += dRow
		m.clampCursor()
		return
	}

	col, row, ok := m.ctrl.Locate(m.grabbed)
	if !ok {
		return
	}
	colIdx := columnIndex(cols, col)
	var over board.Target
	if dCol != 0 {
		next := colIdx + dCol
		if next < 0 || next >= len(cols) {
			return
		}
		lane := m.ctrl.Lane(cols[next].ID)
		if len(lane) == 0 {
			over = board.OverColumn(cols[next].ID)
		} else {
			over = board.OverTask(lane[clamp(row, 0, len(lane)-1)].ID)
		}
	} else {
		lane := m.ctrl.Lane(col)
		next := row + dRow
		if next < 0 || next >= len(lane) {
			return
		}
		over = board.OverTask(lane[next].ID)
	}

	m.ctrl.DragOver(m.grabbed, over)
	m.lastOver = over
	if col, row, ok := m.ctrl.Locate(m.grabbed); ok {
		m.col = columnIndex(cols, col)
		m.row = row
	}
}

func (m *Model) current() (domain.Task, bool) {
	cols := m.ctrl.Columns()
	if m.col < 0 || m.col >= len(cols) {
		return domain.Task{}, false
	}
	lane := m.ctrl.Lane(cols[m.col].ID)
	if m.row < 0 || m.row >= len(lane) {
		return domain.Task{}, false
	}
	return lane[m.row], true
}

func (m *Model) clampCursor() {
	cols := m.ctrl.Columns()
	if len(cols) == 0 {
		m.col, m.row = 0, 0
		return
	}
	m.col = clamp(m.col, 0, len(cols)-1)
	lane := m.ctrl.Lane(cols[m.col].ID)
	m.row = clamp(m.row, 0, max(0, len(lane)-1))
}

func columnIndex(cols []domain.Column, id string) int {
	for i, c := range cols {
		if c.ID == id {
			return i
		}
	}
	return 0
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
