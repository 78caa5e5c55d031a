package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"unreflect/internal/output"
	"unreflect/internal/unreal"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#0B3D91")).
			Padding(0, 1)

	classStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	kindStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#0B3D91"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

func cmdBrowse(args []string) error {
	fs := flag.NewFlagSet("browse", flag.ExitOnError)
	tf := addTargetFlags(fs)

	if err := fs.Parse(args); err != nil {
		return err
	}
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("browse needs a terminal")
	}

	s, err := tf.open()
	if err != nil {
		return err
	}
	defer s.Close()

	m := newBrowseModel(s.eng.Objects(), s)
	if _, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil && h > 0 {
		m.height = h
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type browseState int

const (
	stateList browseState = iota
	stateObject
	stateEdit
)

// fieldRow is one line of the object view.
type fieldRow struct {
	owner *unreal.Class
	field *unreal.Field
}

type browseModel struct {
	all      []*unreal.Object
	shown    []*unreal.Object
	resolver refResolver

	filter textinput.Model
	edit   textinput.Model

	state    browseState
	selected int
	offset   int
	height   int

	// Object view; stack holds the objects navigated away from.
	obj       *unreal.Object
	rows      []fieldRow
	row       int
	rowOffset int
	stack     []*unreal.Object

	status string
	err    error
}

func newBrowseModel(objs []*unreal.Object, r refResolver) *browseModel {
	ti := textinput.New()
	ti.Prompt = "filter: "
	ti.Placeholder = "path or class"
	ti.Width = 60
	ti.Focus()

	m := &browseModel{
		all:      objs,
		resolver: r,
		filter:   ti,
		height:   24,
	}
	m.applyFilter()
	return m
}

func (m *browseModel) Init() tea.Cmd { return textinput.Blink }

func (m *browseModel) applyFilter() {
	q := strings.ToLower(strings.TrimSpace(m.filter.Value()))
	m.shown = m.shown[:0]
	for _, o := range m.all {
		if q == "" || strings.Contains(strings.ToLower(o.Path), q) || strings.Contains(strings.ToLower(o.Class.String()), q) {
			m.shown = append(m.shown, o)
		}
	}
	m.selected, m.offset = 0, 0
}

func (m *browseModel) open(o *unreal.Object) {
	m.obj = o
	m.rows = m.rows[:0]
	chain := o.Class.Chain()
	for i := len(chain) - 1; i >= 0; i-- {
		for _, f := range chain[i].Fields {
			m.rows = append(m.rows, fieldRow{owner: chain[i], field: f})
		}
	}
	m.row, m.rowOffset = 0, 0
	m.state = stateObject
}

// pageSize is the number of list rows that fit below the header and above
// the help line.
func (m *browseModel) pageSize() int {
	if n := m.height - 6; n > 1 {
		return n
	}
	return 1
}

func scroll(sel, offset, page int) int {
	if sel < offset {
		return sel
	}
	if sel >= offset+page {
		return sel - page + 1
	}
	return offset
}

func (m *browseModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.state {
		case stateList:
			return m.updateList(msg)
		case stateObject:
			return m.updateObject(msg)
		case stateEdit:
			return m.updateEdit(msg)
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case stateList:
		m.filter, cmd = m.filter.Update(msg)
	case stateEdit:
		m.edit, cmd = m.edit.Update(msg)
	}
	return m, cmd
}

func (m *browseModel) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		if m.filter.Value() == "" {
			return m, tea.Quit
		}
		m.filter.SetValue("")
		m.applyFilter()
		return m, nil
	case "up":
		if m.selected > 0 {
			m.selected--
		}
	case "down":
		if m.selected < len(m.shown)-1 {
			m.selected++
		}
	case "pgdown":
		m.selected = min(m.selected+m.pageSize(), max(len(m.shown)-1, 0))
	case "pgup":
		m.selected = max(m.selected-m.pageSize(), 0)
	case "enter":
		if len(m.shown) > 0 {
			m.stack = m.stack[:0]
			m.open(m.shown[m.selected])
		}
		return m, nil
	default:
		var cmd tea.Cmd
		before := m.filter.Value()
		m.filter, cmd = m.filter.Update(msg)
		if m.filter.Value() != before {
			m.applyFilter()
		}
		return m, cmd
	}
	m.offset = scroll(m.selected, m.offset, m.pageSize())
	return m, nil
}

func (m *browseModel) updateObject(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status, m.err = "", nil
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "esc", "backspace":
		if n := len(m.stack); n > 0 {
			prev := m.stack[n-1]
			m.stack = m.stack[:n-1]
			m.open(prev)
			return m, nil
		}
		m.state = stateList
		return m, nil
	case "up", "k":
		if m.row > 0 {
			m.row--
		}
	case "down", "j":
		if m.row < len(m.rows)-1 {
			m.row++
		}
	case "r":
		m.obj.Invalidate()
		m.status = "refreshed"
	case "enter":
		if len(m.rows) == 0 {
			return m, nil
		}
		v, _, err := m.obj.Get(m.rows[m.row].field.Name)
		if err != nil {
			m.err = err
			return m, nil
		}
		if next, ok := v.(*unreal.Object); ok && next != nil {
			m.stack = append(m.stack, m.obj)
			m.open(next)
		}
		return m, nil
	case "e":
		if len(m.rows) == 0 {
			return m, nil
		}
		r := m.rows[m.row]
		if r.owner != m.obj.Class || !r.field.CanEncode() {
			m.err = fmt.Errorf("%s is not writable here", r.field.Name)
			return m, nil
		}
		ti := textinput.New()
		ti.Prompt = r.field.Name + " = "
		ti.Width = 60
		ti.SetValue(m.valueText(r.field))
		ti.Focus()
		m.edit = ti
		m.state = stateEdit
		return m, textinput.Blink
	}
	m.rowOffset = scroll(m.row, m.rowOffset, m.pageSize())
	return m, nil
}

func (m *browseModel) updateEdit(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.state = stateObject
		return m, nil
	case "enter":
		f := m.rows[m.row].field
		m.state = stateObject
		v, err := parseValue(f, m.edit.Value(), m.resolver)
		if err != nil {
			m.err = err
			return m, nil
		}
		if _, err := m.obj.Set(f.Name, v); err != nil {
			m.err = err
			return m, nil
		}
		m.status = "wrote " + f.Name
		return m, nil
	}
	var cmd tea.Cmd
	m.edit, cmd = m.edit.Update(msg)
	return m, cmd
}

func (m *browseModel) valueText(f *unreal.Field) string {
	v, _, err := m.obj.Get(f.Name)
	if err != nil {
		return "! " + err.Error()
	}
	switch x := output.Value(v, 0).(type) {
	case nil:
		return "null"
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, ",")
	default:
		return fmt.Sprint(x)
	}
}

func (m *browseModel) View() string {
	var b strings.Builder
	page := m.pageSize()

	switch m.state {
	case stateList:
		b.WriteString(titleStyle.Render("unreflect"))
		fmt.Fprintf(&b, " %d/%d objects\n\n", len(m.shown), len(m.all))
		b.WriteString(m.filter.View())
		b.WriteString("\n\n")
		end := min(m.offset+page, len(m.shown))
		for i := m.offset; i < end; i++ {
			o := m.shown[i]
			line := fmt.Sprintf("%-60s %s", o.Path, classStyle.Render(o.Class.String()))
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteByte('\n')
		}
		b.WriteString(helpStyle.Render("type to filter • ↑/↓ select • enter open • esc clear/quit"))

	case stateObject, stateEdit:
		b.WriteString(titleStyle.Render(m.obj.String()))
		fmt.Fprintf(&b, " %s @0x%x\n\n", classStyle.Render(m.obj.Class.String()), m.obj.Address)
		end := min(m.rowOffset+page, len(m.rows))
		for i := m.rowOffset; i < end; i++ {
			r := m.rows[i]
			line := fmt.Sprintf("%-28s %-22s %s", r.field.Name, kindStyle.Render(r.field.Kind.String()), m.valueText(r.field))
			if i == m.row {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteByte('\n')
		}
		b.WriteByte('\n')
		if m.state == stateEdit {
			b.WriteString(m.edit.View())
			b.WriteByte('\n')
			b.WriteString(helpStyle.Render("enter write • esc cancel"))
			break
		}
		if m.err != nil {
			b.WriteString(errorStyle.Render("error: " + m.err.Error()))
			b.WriteByte('\n')
		} else if m.status != "" {
			b.WriteString(m.status)
			b.WriteByte('\n')
		}
		b.WriteString(helpStyle.Render("↑/↓ select • enter follow • e edit • r refresh • esc back • q quit"))
	}
	return b.String()
}
