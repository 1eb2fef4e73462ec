// Package tui provides a terminal user interface for nbsconvert
package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/filepicker"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/james-see/nbsconvert/pkg/converter"
	"github.com/james-see/nbsconvert/pkg/pitch"
	"github.com/james-see/nbsconvert/pkg/song"
)

// Note block color scheme (spruce wood and redstone)
var (
	woodBrown = lipgloss.Color("#A0723C")
	redstone  = lipgloss.Color("#FF3B30")
	leafGreen = lipgloss.Color("#7CBD2F")
	ironGray  = lipgloss.Color("#B8B8B8")
	obsidian  = lipgloss.Color("#1F1A24")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(leafGreen).
			Background(obsidian).
			Padding(0, 2).
			MarginBottom(1)

	menuStyle = lipgloss.NewStyle().
			Foreground(ironGray).
			PaddingLeft(2)

	selectedStyle = lipgloss.NewStyle().
			Foreground(leafGreen).
			Bold(true).
			PaddingLeft(2)

	statusStyle = lipgloss.NewStyle().
			Foreground(woodBrown).
			PaddingTop(1)

	errorStyle = lipgloss.NewStyle().
			Foreground(redstone).
			Bold(true)

	successStyle = lipgloss.NewStyle().
			Foreground(leafGreen).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#666666")).
			MarginTop(1)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(woodBrown).
			Padding(1, 2)
)

// State is the screen the model is showing.
type State int

const (
	StateMenu State = iota
	StateFilePicker
	StateConverting
	StateResult
	StateSong
)

// MenuItem represents a menu option. An empty ToFormat opens the song view.
type MenuItem struct {
	Title       string
	Description string
	ToFormat    song.Format
	Quit        bool
}

var menuItems = []MenuItem{
	{Title: "→ NBS", Description: "Convert a song to a Note Block Studio .nbs file", ToFormat: song.FormatNBS},
	{Title: "→ TEXT", Description: "Convert a song to a tick:key:instrument note list", ToFormat: song.FormatText},
	{Title: "→ MACRO", Description: "Convert a song to a tick-delta macro stream", ToFormat: song.FormatMacro},
	{Title: "→ MIDI", Description: "Export a song as a Standard MIDI File", ToFormat: song.FormatMIDI},
	{Title: "Inspect", Description: "Browse the notes of a song and fix out-of-range keys"},
	{Title: "Exit", Description: "Exit the application", Quit: true},
}

// Model is the bubbletea model for the converter UI.
type Model struct {
	state        State
	menuIndex    int
	filePicker   filepicker.Model
	spinner      spinner.Model
	notes        table.Model
	conv         *converter.Converter
	song         *song.Song
	selectedFile string
	outputFile   string
	conversion   MenuItem
	result       *converter.ConversionResult
	status       string
	err          error
	width        int
	height       int
}

// conversionDoneMsg reports a finished conversion.
type conversionDoneMsg struct {
	outputFile string
	result     *converter.ConversionResult
	err        error
}

// songLoadedMsg carries a decoded song for the song view
type songLoadedMsg struct {
	song *song.Song
	err  error
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick)
}

// New returns a model at the main menu.
func New(opts converter.Options) Model {
	fp := filepicker.New()
	fp.AllowedTypes = allowedTypes()
	fp.CurrentDirectory, _ = os.Getwd()

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(leafGreen)

	t := table.New(
		table.WithColumns([]table.Column{
			{Title: "Tick", Width: 7},
			{Title: "Layer", Width: 5},
			{Title: "Instrument", Width: 14},
			{Title: "Key", Width: 4},
			{Title: "Vel", Width: 4},
		}),
		table.WithFocused(true),
		table.WithHeight(12),
	)
	ts := table.DefaultStyles()
	ts.Header = ts.Header.BorderForeground(woodBrown).Bold(true)
	ts.Selected = ts.Selected.Foreground(obsidian).Background(leafGreen)
	t.SetStyles(ts)

	return Model{
		state:      StateMenu,
		menuIndex:  0,
		filePicker: fp,
		spinner:    s,
		notes:      t,
		conv:       converter.New(opts),
	}
}

func allowedTypes() []string {
	return []string{".nbs", ".mcsp", ".mcsp2", ".txt", ".macro", ".mid", ".midi"}
}

// Update routes messages by state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The file picker consumes every message while it is open.
	if m.state == StateFilePicker {
		if keyMsg, ok := msg.(tea.KeyMsg); ok {
			switch keyMsg.String() {
			case "esc":
				m.state = StateMenu
				return m, nil
			case "q", "ctrl+c":
				return m, tea.Quit
			}
		}

		var cmd tea.Cmd
		m.filePicker, cmd = m.filePicker.Update(msg)

		if didSelect, path := m.filePicker.DidSelectFile(msg); didSelect {
			m.selectedFile = path
			m.state = StateConverting
			if m.conversion.ToFormat == "" {
				return m, tea.Batch(m.spinner.Tick, m.loadSong())
			}
			return m, tea.Batch(m.spinner.Tick, m.performConversion())
		}

		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.filePicker.SetHeight(msg.Height - 10)
		m.notes.SetHeight(max(msg.Height-16, 5))
		return m, nil

	case tea.KeyMsg:
		switch m.state {
		case StateMenu:
			return m.updateMenu(msg)
		case StateResult:
			return m.updateResult(msg)
		case StateSong:
			return m.updateSong(msg)
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case conversionDoneMsg:
		m.state = StateResult
		m.outputFile = msg.outputFile
		m.result = msg.result
		m.err = msg.err
		return m, nil

	case songLoadedMsg:
		if msg.err != nil {
			m.state = StateResult
			m.err = msg.err
			return m, nil
		}
		m.state = StateSong
		m.song = msg.song
		m.status = ""
		m.notes.SetRows(noteRows(m.song))
		return m, nil
	}

	return m, nil
}

func (m Model) updateMenu(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		if m.menuIndex > 0 {
			m.menuIndex--
		}
	case "down", "j":
		if m.menuIndex < len(menuItems)-1 {
			m.menuIndex++
		}
	case "enter":
		if menuItems[m.menuIndex].Quit {
			return m, tea.Quit
		}
		m.conversion = menuItems[m.menuIndex]
		m.state = StateFilePicker
		return m, m.filePicker.Init()
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateResult(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc":
		m.state = StateMenu
		m.err = nil
		m.result = nil
		m.selectedFile = ""
		m.outputFile = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

var policyKeys = map[string]pitch.Policy{
	"c": pitch.Clamp,
	"t": pitch.Transpose,
	"s": pitch.InstrumentShift,
}

func (m Model) updateSong(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if p, ok := policyKeys[key]; ok {
		n := pitch.Apply(m.song, p)
		m.status = fmt.Sprintf("%s: %d notes corrected", p, n)
		m.notes.SetRows(noteRows(m.song))
		return m, nil
	}

	switch key {
	case "w":
		out := strings.TrimSuffix(m.selectedFile, filepath.Ext(m.selectedFile)) + ".fixed" + converter.Extension(m.song.Format)
		data, err := m.conv.Encode(m.song, m.song.Format)
		if err == nil {
			err = os.WriteFile(out, data, 0644)
		}
		if err != nil {
			m.status = errorStyle.Render(err.Error())
		} else {
			m.status = "wrote " + filepath.Base(out)
		}
		return m, nil
	case "esc":
		m.state = StateMenu
		m.song = nil
		m.status = ""
		return m, nil
	case "q", "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.notes, cmd = m.notes.Update(msg)
	return m, cmd
}

func (m Model) performConversion() tea.Cmd {
	conv := m.conv
	input := m.selectedFile
	target := m.conversion.ToFormat
	return func() tea.Msg {
		data, err := os.ReadFile(input)
		if err != nil {
			return conversionDoneMsg{err: err}
		}

		res, err := conv.Convert(input, data, target)
		if err != nil {
			return conversionDoneMsg{err: err}
		}

		outputFile := converter.OutputPath(input, target)

		err = os.WriteFile(outputFile, res.Data, 0644)
		if err != nil {
			return conversionDoneMsg{err: err}
		}

		return conversionDoneMsg{outputFile: outputFile, result: res}
	}
}

func (m Model) loadSong() tea.Cmd {
	conv := m.conv
	input := m.selectedFile
	return func() tea.Msg {
		s, err := conv.DecodeFile(input)
		return songLoadedMsg{song: s, err: err}
	}
}

// noteRows lists every note of s as a table row.
func noteRows(s *song.Song) []table.Row {
	palette := s.Format.Palette()
	playable := s.Format.PlayableRange()
	var rows []table.Row
	for tick, n := range s.Notes() {
		name := fmt.Sprintf("custom %d", n.Instrument)
		if inst, ok := palette.Lookup(n.Instrument); ok {
			name = inst.String()
		}
		layer := "-"
		if n.Layer >= 0 {
			layer = strconv.Itoa(n.Layer)
		}
		key := strconv.Itoa(n.Key)
		if !playable.Contains(n.Key) {
			key += "!"
		}
		rows = append(rows, table.Row{strconv.Itoa(tick), layer, name, key, strconv.Itoa(n.Velocity)})
	}
	return rows
}

// View renders the current screen under the logo.
func (m Model) View() string {
	var s strings.Builder

	header := asciiLogo()
	s.WriteString(header)
	s.WriteString("\n")

	switch m.state {
	case StateMenu:
		s.WriteString(m.viewMenu())
	case StateFilePicker:
		s.WriteString(m.viewFilePicker())
	case StateConverting:
		s.WriteString(m.viewConverting())
	case StateResult:
		s.WriteString(m.viewResult())
	case StateSong:
		s.WriteString(m.viewSong())
	}

	s.WriteString("\n")
	s.WriteString(helpStyle.Render("↑/↓ move • enter pick • q quit"))

	return s.String()
}

func (m Model) viewMenu() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" NBSCONVERT "))
	s.WriteString("\n\n")

	for i, item := range menuItems {
		if i == m.menuIndex {
			s.WriteString(selectedStyle.Render(fmt.Sprintf("▸ %s", item.Title)))
			s.WriteString("\n")
			s.WriteString(lipgloss.NewStyle().Foreground(woodBrown).PaddingLeft(4).Render(item.Description))
		} else {
			s.WriteString(menuStyle.Render(fmt.Sprintf("  %s", item.Title)))
		}
		s.WriteString("\n")
	}

	s.WriteString(statusStyle.Render(fmt.Sprintf("pitch policy: %s", m.conv.GetOptions().Policy)))

	return boxStyle.Render(s.String())
}

func (m Model) viewFilePicker() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" SELECT SONG FILE "))
	s.WriteString("\n\n")
	s.WriteString(m.filePicker.View())
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("esc: menu"))

	return s.String()
}

func (m Model) viewConverting() string {
	var s strings.Builder

	s.WriteString(titleStyle.Render(" WORKING "))
	s.WriteString("\n\n")
	s.WriteString(fmt.Sprintf("%s Reading %s...\n", m.spinner.View(), filepath.Base(m.selectedFile)))
	if m.conversion.ToFormat != "" {
		s.WriteString(statusStyle.Render(fmt.Sprintf("  %s → %s", converter.DetectFormat(m.selectedFile), m.conversion.ToFormat)))
	}

	return boxStyle.Render(s.String())
}

func (m Model) viewResult() string {
	var s strings.Builder

	if m.err != nil {
		s.WriteString(titleStyle.Render(" FAILED "))
		s.WriteString("\n\n")
		s.WriteString(errorStyle.Render("✗ " + m.err.Error()))
	} else {
		s.WriteString(titleStyle.Render(" DONE "))
		s.WriteString("\n\n")
		s.WriteString(successStyle.Render(fmt.Sprintf("✓ %s written", m.conversion.ToFormat)))
		s.WriteString("\n\n")
		fmt.Fprintf(&s, "%-10s %s\n", "From:", filepath.Base(m.selectedFile))
		fmt.Fprintf(&s, "%-10s %s", "To:", filepath.Base(m.outputFile))
		if r := m.result; r != nil {
			s.WriteString(fmt.Sprintf("\nNotes:  %d", r.Song.NoteCount()))
			if r.Corrected > 0 {
				s.WriteString(fmt.Sprintf("\nCorrected: %d", r.Corrected))
			}
			if r.Dropped > 0 {
				s.WriteString(statusStyle.Render(fmt.Sprintf("\nDropped (custom instruments): %d", r.Dropped)))
			}
			if r.MIDI != nil && r.MIDI.Dropped() > 0 {
				s.WriteString(statusStyle.Render(fmt.Sprintf("\nDropped (unmapped MIDI): %d", r.MIDI.Dropped())))
			}
		}
	}

	s.WriteString("\n\n")
	s.WriteString(helpStyle.Render("enter: menu"))

	return boxStyle.Render(s.String())
}

func (m Model) viewSong() string {
	var s strings.Builder

	title := m.song.Title()
	if title == "" {
		title = filepath.Base(m.selectedFile)
	}
	s.WriteString(titleStyle.Render(fmt.Sprintf(" %s ", strings.ToUpper(title))))
	s.WriteString("\n")
	s.WriteString(fmt.Sprintf("%s • %d notes • %.2f t/s • %s\n\n",
		m.song.Format, m.song.NoteCount(), m.song.Speed(), m.song.Duration().Round(100_000_000)))
	s.WriteString(m.notes.View())
	if m.status != "" {
		s.WriteString("\n")
		s.WriteString(statusStyle.Render(m.status))
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("c: clamp • t: transpose • s: shift instrument • w: write • esc: back"))

	return boxStyle.Render(s.String())
}

func asciiLogo() string {
	logo := `
   _   _ ____  ____   ____ ___  _   ___     _______ ____ _____
  | \ | | __ )/ ___| / ___/ _ \| \ | \ \   / / ____|  _ \_   _|
  |  \| |  _ \\___ \| |  | | | |  \| |\ \ / /|  _| | |_) || |
  | |\  | |_) |___) | |__| |_| | |\  | \ V / | |___|  _ < | |
  |_| \_|____/|____/ \____\___/|_| \_|  \_/  |_____|_| \_\|_|
`
	return lipgloss.NewStyle().Foreground(leafGreen).Render(logo)
}

// Run starts the program on the alternate screen.
func Run(opts converter.Options) error {
	p := tea.NewProgram(New(opts), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
