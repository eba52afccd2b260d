package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	wasmtypes "github.com/wippyai/wasm-types"
	"github.com/wippyai/wasm-types/engine"
	"github.com/wippyai/wasm-types/registry"
	"github.com/wippyai/wasm-types/types"
	"github.com/wippyai/wasm-types/wasm"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	groupStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#98FB98"))

	typeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#87CEEB"))

	selectedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4"))

	resultStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#90EE90"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B"))

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666"))
)

type browserModel struct {
	err      error
	eng      *engine.Engine
	set      *registry.ModuleTypeSet
	filename string
	groups   []groupInfo
	lookup   textinput.Model
	result   string
	selected int
	state    modelState
}

type groupInfo struct {
	members []memberInfo
}

type memberInfo struct {
	local  wasmtypes.ModuleTypeIndex
	shared wasmtypes.SharedTypeIndex
	def    *types.Definition
}

type modelState int

const (
	stateSelectGroup modelState = iota
	stateShowGroup
	stateLookup
)

func newBrowserModel(filename string) *browserModel {
	return &browserModel{
		filename: filename,
		state:    stateSelectGroup,
	}
}

type loadedMsg struct {
	err    error
	eng    *engine.Engine
	set    *registry.ModuleTypeSet
	groups []groupInfo
}

func (m *browserModel) Init() tea.Cmd {
	return m.loadModule
}

func (m *browserModel) loadModule() tea.Msg {
	ctx := context.Background()

	data, err := os.ReadFile(m.filename)
	if err != nil {
		return loadedMsg{err: err}
	}

	decoded, err := wasm.DecodeModuleTypes(data)
	if err != nil {
		return loadedMsg{err: err}
	}

	eng, err := engine.New(ctx)
	if err != nil {
		return loadedMsg{err: err}
	}

	set, err := eng.RegisterTypes(data)
	if err != nil {
		eng.Close(ctx)
		return loadedMsg{err: err}
	}

	var groups []groupInfo
	local := wasmtypes.ModuleTypeIndex(0)
	for _, g := range decoded {
		gi := groupInfo{}
		for range g.Types {
			shared, _ := set.SharedIndex(local)
			def, _ := eng.Types().Borrow(shared)
			gi.members = append(gi.members, memberInfo{local: local, shared: shared, def: def})
			local++
		}
		groups = append(groups, gi)
	}

	return loadedMsg{eng: eng, set: set, groups: groups}
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.state == stateLookup && msg.String() == "q" {
				break
			}
			ctx := context.Background()
			if m.set != nil {
				m.set.Close()
			}
			if m.eng != nil {
				m.eng.Close(ctx)
			}
			return m, tea.Quit

		case "up", "k":
			if m.state == stateSelectGroup && m.selected > 0 {
				m.selected--
			}

		case "down", "j":
			if m.state == stateSelectGroup && m.selected < len(m.groups)-1 {
				m.selected++
			}

		case "enter":
			switch m.state {
			case stateSelectGroup:
				m.state = stateShowGroup
			case stateShowGroup:
				m.state = stateSelectGroup
			case stateLookup:
				m.result = m.resolveIndex(m.lookup.Value())
			}

		case "/":
			if m.state == stateSelectGroup {
				m.lookup = textinput.New()
				m.lookup.Prompt = "index: "
				m.lookup.Placeholder = "shared type index"
				m.lookup.Width = 24
				m.lookup.Focus()
				m.result = ""
				m.state = stateLookup
				return m, nil
			}

		case "esc":
			switch m.state {
			case stateShowGroup, stateLookup:
				m.state = stateSelectGroup
				m.result = ""
			}
		}

	case loadedMsg:
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.eng = msg.eng
		m.set = msg.set
		m.groups = msg.groups
	}

	if m.state == stateLookup {
		var cmd tea.Cmd
		m.lookup, cmd = m.lookup.Update(msg)
		return m, cmd
	}

	return m, nil
}

// resolveIndex roots a handle for the given engine index so the displayed
// definition is pinned while formatted, then releases it.
func (m *browserModel) resolveIndex(value string) string {
	idx, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
	if err != nil {
		return "not a type index: " + value
	}
	h, ok := m.eng.Types().RootHandle(wasmtypes.SharedTypeIndex(idx))
	if !ok {
		return fmt.Sprintf("index %d is not registered", idx)
	}
	defer h.Close()

	out := fmt.Sprintf("[%d] %s", h.Index(), h.Definition())
	if local, ok := m.set.LocalIndex(h.Index()); ok {
		out += fmt.Sprintf(" (module-local %d)", local)
	}
	return out
}

func (m *browserModel) View() string {
	if m.err != nil {
		return errorStyle.Render(fmt.Sprintf("Error: %v\n\nPress q to quit.", m.err))
	}

	if m.eng == nil {
		return "Loading module..."
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render("Type Registry"))
	b.WriteString(" ")
	b.WriteString(m.filename)
	b.WriteString("\n\n")

	switch m.state {
	case stateSelectGroup:
		fmt.Fprintf(&b, "%d types in %d recursion groups (registry holds %d live types)\n\n",
			m.set.Len(), m.set.GroupLen(), m.eng.Types().Len())
		for i, g := range m.groups {
			line := m.formatGroup(i, g)
			if i == m.selected {
				b.WriteString(selectedStyle.Render("> " + line))
			} else {
				b.WriteString("  " + line)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("↑/↓ select • enter inspect • / lookup index • q quit"))

	case stateShowGroup:
		g := m.groups[m.selected]
		fmt.Fprintf(&b, "Group %s\n\n", groupStyle.Render(strconv.Itoa(m.selected)))
		for _, mem := range g.members {
			fmt.Fprintf(&b, "  [%d -> %d] %s\n",
				mem.local, mem.shared, typeStyle.Render(mem.def.String()))
		}
		b.WriteString("\n")
		b.WriteString(helpStyle.Render("enter/esc back • q quit"))

	case stateLookup:
		b.WriteString("Look up a shared type index:\n\n")
		b.WriteString(m.lookup.View())
		b.WriteString("\n\n")
		if m.result != "" {
			b.WriteString(resultStyle.Render(m.result))
			b.WriteString("\n\n")
		}
		b.WriteString(helpStyle.Render("enter resolve • esc back"))
	}

	return b.String()
}

func (m *browserModel) formatGroup(i int, g groupInfo) string {
	first := ""
	if len(g.members) > 0 {
		first = " " + typeStyle.Render(g.members[0].def.String())
	}
	return groupStyle.Render(fmt.Sprintf("group %d", i)) +
		fmt.Sprintf(" (%d members)", len(g.members)) + first
}

func runInteractive(filename string) error {
	p := tea.NewProgram(newBrowserModel(filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
