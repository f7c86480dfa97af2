// Package tui is the terminal presentation surface. It owns no repository
// state of its own: everything it shows comes from render events, and every
// user action leaves as a command. The surface can be torn down and
// recreated at any point; attach rehydrates it.
package tui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/chmouel/lazypanel/internal/models"
	"github.com/chmouel/lazypanel/internal/panel"
)

// Message types for the Bubble Tea surface.
type (
	eventMsg struct {
		ev panel.Event
		ok bool
	}
)

type modalKind int

const (
	modalNone modalKind = iota
	modalConfirm
	modalFallback
	modalNotice
	modalDiff
	modalHelp
)

type inputKind int

const (
	inputNone inputKind = iota
	inputCommit
	inputBranch
)

type changeKind int

const (
	changeStaged changeKind = iota
	changeUnstaged
	changeUntracked
)

type changeEntry struct {
	path string
	kind changeKind
}

// Model is the surface's Bubble Tea model.
type Model struct {
	surface panel.Surface

	// UI components
	spinner   spinner.Model
	input     textinput.Model
	diffView  viewport.Model
	inputMode inputKind

	// Mirrored host state; replaced wholesale on every render event.
	snapshot     *models.StatusSnapshot
	branches     []models.Branch
	commits      []models.CommitInfo
	activeTab    models.Tab
	commitsLimit int
	generating   bool
	busy         map[string]bool

	// Per-tab selection
	changeIndex int
	branchIndex int
	commitIndex int

	// Modal round-trip state
	modal        modalKind
	modalMessage string
	modalID      int
	diffTitle    string

	// Transient notification line
	note      string
	noteLevel panel.Severity

	windowWidth  int
	windowHeight int
	quitting     bool
}

// NewModel creates a surface bound to the given transport endpoint.
func NewModel(surface panel.Surface) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(colorAccent)

	input := textinput.New()
	input.Placeholder = "Commit message..."
	input.Width = 60

	return &Model{
		surface:   surface,
		spinner:   sp,
		input:     input,
		diffView:  viewport.New(80, 20),
		activeTab: models.TabChanges,
		busy:      make(map[string]bool),
	}
}

// Init attaches to the host and starts listening for events.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		func() tea.Msg {
			m.surface.Send(panel.Command{Type: panel.CmdAttach})
			return nil
		},
		m.waitForEvent(),
	)
}

func (m *Model) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		ev, ok := m.surface.Recv()
		return eventMsg{ev: ev, ok: ok}
	}
}

func (m *Model) send(cmd panel.Command) {
	m.surface.Send(cmd)
}

// Update handles messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.windowWidth = msg.Width
		m.windowHeight = msg.Height
		m.diffView.Width = maxInt(msg.Width-6, 20)
		m.diffView.Height = maxInt(msg.Height-8, 5)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case eventMsg:
		if !msg.ok {
			m.quitting = true
			return m, tea.Quit
		}
		m.applyEvent(msg.ev)
		return m, m.waitForEvent()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.modal != modalNone {
		return m.handleModalKey(msg)
	}
	if m.inputMode != inputNone {
		return m.handleInputKey(msg)
	}

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		m.surface.Close()
		return m, tea.Quit

	case "1":
		m.send(panel.Command{Type: panel.CmdSwitchTab, Tab: models.TabChanges})
	case "2":
		m.send(panel.Command{Type: panel.CmdSwitchTab, Tab: models.TabBranches})
	case "3":
		m.send(panel.Command{Type: panel.CmdSwitchTab, Tab: models.TabCommits})
	case "tab":
		m.send(panel.Command{Type: panel.CmdSwitchTab, Tab: m.nextTab()})

	case "r":
		m.send(panel.Command{Type: panel.CmdRefresh})
	case "?":
		m.modal = modalHelp

	case "j", "down":
		m.moveSelection(1)
	case "k", "up":
		m.moveSelection(-1)
	}

	switch m.activeTab {
	case models.TabChanges:
		return m.handleChangesKey(msg)
	case models.TabBranches:
		return m.handleBranchesKey(msg)
	case models.TabCommits:
		return m.handleCommitsKey(msg)
	}
	return m, nil
}

func (m *Model) handleChangesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	entry, ok := m.selectedChange()

	switch msg.String() {
	case "s":
		if ok && entry.kind != changeStaged {
			m.send(panel.Command{Type: panel.CmdStageFile, Path: entry.path})
		}
	case "u":
		if ok && entry.kind == changeStaged {
			m.send(panel.Command{Type: panel.CmdUnstageFile, Path: entry.path})
		}
	case "a":
		m.send(panel.Command{Type: panel.CmdStageAll})
	case "d", "enter":
		if ok {
			m.send(panel.Command{Type: panel.CmdOpenDiff, Path: entry.path})
		}
	case "x":
		if ok {
			m.send(panel.Command{Type: panel.CmdDiscard, Path: entry.path})
		}
	case "c":
		m.inputMode = inputCommit
		m.input.Placeholder = "Commit message..."
		m.input.Focus()
		return m, textinput.Blink
	case "C":
		if m.input.Value() != "" {
			m.send(panel.Command{Type: panel.CmdCommitAndPush, Message: m.input.Value()})
			m.input.SetValue("")
		}
	case "g":
		m.send(panel.Command{Type: panel.CmdGenerateMessage})
	case "G":
		m.send(panel.Command{Type: panel.CmdStopGeneration})
	case "P":
		m.send(panel.Command{Type: panel.CmdPush})
	case "p":
		m.send(panel.Command{Type: panel.CmdPull})
	case "f":
		m.send(panel.Command{Type: panel.CmdFetch})
	}
	return m, nil
}

func (m *Model) handleBranchesKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	branch, ok := m.selectedBranch()

	switch msg.String() {
	case "enter", "space":
		if ok && !branch.Current {
			m.send(panel.Command{Type: panel.CmdSwitchBranch, Name: branch.Name})
		}
	case "n":
		m.inputMode = inputBranch
		m.input.Placeholder = "New branch name..."
		m.input.Focus()
		return m, textinput.Blink
	case "D":
		if ok && !branch.Current {
			m.send(panel.Command{Type: panel.CmdDeleteBranch, Name: branch.Name})
		}
	}
	return m, nil
}

func (m *Model) handleCommitsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		if m.commitIndex < len(m.commits) {
			m.send(panel.Command{Type: panel.CmdOpenCommitDiff, Hash: m.commits[m.commitIndex].Hash})
		}
	case "m":
		m.send(panel.Command{Type: panel.CmdLoadMore})
	}
	return m, nil
}

func (m *Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		m.inputMode = inputNone
		m.input.Blur()
		return m, nil
	case "enter":
		value := m.input.Value()
		mode := m.inputMode
		m.inputMode = inputNone
		m.input.Blur()
		m.input.SetValue("")
		switch mode {
		case inputCommit:
			m.send(panel.Command{Type: panel.CmdCommit, Message: value})
		case inputBranch:
			m.send(panel.Command{Type: panel.CmdCreateBranch, Name: value})
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) handleModalKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.modal {
	case modalConfirm, modalFallback:
		switch msg.String() {
		case "y", "enter":
			m.send(panel.Command{Type: panel.CmdReply, ID: m.modalID, Accepted: true})
			m.closeModal()
		case "n", "esc", "q":
			m.send(panel.Command{Type: panel.CmdReply, ID: m.modalID, Accepted: false})
			m.closeModal()
		}
	case modalDiff:
		switch msg.String() {
		case "q", "esc", "enter":
			m.closeModal()
		default:
			var cmd tea.Cmd
			m.diffView, cmd = m.diffView.Update(msg)
			return m, cmd
		}
	case modalNotice, modalHelp:
		switch msg.String() {
		case "q", "esc", "enter":
			m.closeModal()
		}
	}
	return m, nil
}

func (m *Model) closeModal() {
	m.modal = modalNone
	m.modalMessage = ""
	m.modalID = 0
}

// applyEvent folds one host event into the mirrored state.
func (m *Model) applyEvent(ev panel.Event) {
	switch ev.Type {
	case panel.EventRender:
		m.applyRender(ev.State)
	case panel.EventClearLoading:
		delete(m.busy, ev.Token)
	case panel.EventClearAllLoading:
		m.busy = make(map[string]bool)
	case panel.EventMessageGenerated:
		m.input.SetValue(ev.Message)
		m.inputMode = inputCommit
		m.input.Focus()
	case panel.EventNotify:
		if ev.Blocking {
			m.modal = modalNotice
			m.modalMessage = ev.Message
			return
		}
		m.note = ev.Message
		m.noteLevel = ev.Level
	case panel.EventConfirm:
		m.modal = modalConfirm
		m.modalMessage = ev.Message
		m.modalID = ev.ID
	case panel.EventOfferFallback:
		m.modal = modalFallback
		m.modalMessage = ev.Message
		m.modalID = ev.ID
	case panel.EventDiff:
		m.modal = modalDiff
		m.diffTitle = ev.Title
		m.diffView.SetContent(wordwrap.String(ev.Body, m.diffView.Width))
		m.diffView.GotoTop()
	}
}

func (m *Model) applyRender(state *panel.RenderState) {
	if state == nil {
		return
	}
	m.snapshot = state.Snapshot
	m.branches = state.Branches
	m.commits = state.Commits
	m.activeTab = state.ActiveTab
	m.commitsLimit = state.CommitsLimit
	m.generating = state.Generating

	m.busy = make(map[string]bool)
	for _, token := range state.Busy {
		m.busy[token] = true
	}

	m.clampSelections()
}

func (m *Model) clampSelections() {
	m.changeIndex = clamp(m.changeIndex, 0, len(m.changeEntries())-1)
	m.branchIndex = clamp(m.branchIndex, 0, len(m.branches)-1)
	m.commitIndex = clamp(m.commitIndex, 0, len(m.commits)-1)
}

func (m *Model) moveSelection(delta int) {
	switch m.activeTab {
	case models.TabChanges:
		m.changeIndex = clamp(m.changeIndex+delta, 0, len(m.changeEntries())-1)
	case models.TabBranches:
		m.branchIndex = clamp(m.branchIndex+delta, 0, len(m.branches)-1)
	case models.TabCommits:
		m.commitIndex = clamp(m.commitIndex+delta, 0, len(m.commits)-1)
	}
}

func (m *Model) nextTab() models.Tab {
	switch m.activeTab {
	case models.TabChanges:
		return models.TabBranches
	case models.TabBranches:
		return models.TabCommits
	default:
		return models.TabChanges
	}
}

// changeEntries flattens the snapshot into one selectable list: staged
// first, then unstaged, then untracked.
func (m *Model) changeEntries() []changeEntry {
	if m.snapshot == nil {
		return nil
	}
	var entries []changeEntry
	for _, p := range m.snapshot.Staged {
		entries = append(entries, changeEntry{path: p, kind: changeStaged})
	}
	for _, p := range m.snapshot.Unstaged {
		entries = append(entries, changeEntry{path: p, kind: changeUnstaged})
	}
	for _, p := range m.snapshot.Untracked {
		entries = append(entries, changeEntry{path: p, kind: changeUntracked})
	}
	return entries
}

func (m *Model) selectedChange() (changeEntry, bool) {
	entries := m.changeEntries()
	if m.changeIndex < 0 || m.changeIndex >= len(entries) {
		return changeEntry{}, false
	}
	return entries[m.changeIndex], true
}

func (m *Model) selectedBranch() (models.Branch, bool) {
	if m.branchIndex < 0 || m.branchIndex >= len(m.branches) {
		return models.Branch{}, false
	}
	return m.branches[m.branchIndex], true
}

func clamp(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
