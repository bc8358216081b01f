package main

import (
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/jmallory/narrative-engine/pkg/scene"
)

// uiMode selects which screen the UI is on. The game screen is the
// default; modals take over input until dismissed.
type uiMode int

const (
	modeGame uiMode = iota
	modeSaveModal
	modeLoadModal
	modeResetConfirm
	modeQuitConfirm
)

// ConsoleUI is the BubbleTea model that runs the UI.
// https://github.com/charmbracelet/bubbletea
type ConsoleUI struct {
	config        *ConsoleConfig
	client        *http.Client
	view          *GameView
	sceneViewport viewport.Model
	metaViewport  viewport.Model
	ready         bool
	width         int
	height        int
	err           error
	loading       bool
	status        string

	mode         uiMode
	saves        *SaveList
	selectedSlot int
}

type gameViewMsg struct {
	view *GameView
	err  error
}

type saveListMsg struct {
	saves *SaveList
	err   error
}

type slotActionMsg struct {
	status string
	err    error
}

var (
	scenePanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(1).
			PaddingLeft(3).
			PaddingRight(0)

	metaPanelStyle = lipgloss.NewStyle().
			PaddingTop(2).
			PaddingBottom(0).
			PaddingLeft(0).
			PaddingRight(2)

	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")). // pink
			Bold(true)

	speakerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("212")). // purple
			Bold(true)

	sceneTextStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")) // green

	choiceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")) // teal

	lockedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")) // red

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")) // yellow

	promptStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey

	modalStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("62")).
			Padding(1, 2).
			Background(lipgloss.Color("235")).
			Foreground(lipgloss.Color("255"))

	modalTitleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true).
			Align(lipgloss.Center)

	modalItemStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("255"))

	modalSelectedItemStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("0")).
				Background(lipgloss.Color("205")).
				Bold(true)

	separatorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")) // dark grey
)

func NewConsoleUI(cfg *ConsoleConfig, client *http.Client, view *GameView) ConsoleUI {
	sceneVp := viewport.New(60, 20)
	sceneVp.MouseWheelEnabled = true

	metaVp := viewport.New(20, 20)

	return ConsoleUI{
		config:        cfg,
		client:        client,
		view:          view,
		sceneViewport: sceneVp,
		metaViewport:  metaVp,
	}
}

func (m ConsoleUI) Init() tea.Cmd {
	return nil
}

func (m ConsoleUI) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeSaveModal, modeLoadModal:
		return m.updateSlotModal(msg)
	case modeResetConfirm:
		return m.updateResetModal(msg)
	case modeQuitConfirm:
		return m.updateQuitModal(msg)
	}

	var vpCmd, mvCmd tea.Cmd

	switch msg := msg.(type) {
	case tea.MouseMsg:
		m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)
		return m, vpCmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.ready = true
		m.writeSceneContent()
		m.writeMetadata()

	case gameViewMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.view = msg.view
		}
		m.writeSceneContent()
		m.writeMetadata()

	case slotActionMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = msg.status
		}
		m.writeSceneContent()
		return m, m.refreshGame()

	case tea.KeyMsg:
		return m.handleGameKey(msg)
	}

	m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)
	m.metaViewport, mvCmd = m.metaViewport.Update(msg)
	return m, tea.Batch(vpCmd, mvCmd)
}

func (m ConsoleUI) handleGameKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.loading {
		return m, nil
	}
	m.status = ""

	switch msg.Type {
	case tea.KeyCtrlC, tea.KeyEsc:
		m.mode = modeQuitConfirm
		return m, nil
	case tea.KeyEnter:
		if m.view != nil && m.view.CanContinue {
			m.loading = true
			return m, m.doContinue()
		}
		return m, nil
	}

	key := msg.String()
	switch key {
	case "b":
		if m.view != nil && m.view.CanGoBack {
			m.loading = true
			return m, m.doBack()
		}
	case "s":
		m.mode = modeSaveModal
		m.selectedSlot = 0
		return m, m.loadSaveList()
	case "l":
		m.mode = modeLoadModal
		m.selectedSlot = 0
		return m, m.loadSaveList()
	case "r":
		m.mode = modeResetConfirm
		return m, nil
	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		index := int(key[0] - '1')
		if m.view == nil || index >= len(m.view.Choices) {
			return m, nil
		}
		if !m.view.Choices[index].Check.CanSelect {
			m.status = m.view.Choices[index].Check.Reason
			m.writeSceneContent()
			return m, nil
		}
		m.loading = true
		return m, m.doChoice(index)
	}

	var vpCmd tea.Cmd
	m.sceneViewport, vpCmd = m.sceneViewport.Update(msg)
	return m, vpCmd
}

// Commands

func (m ConsoleUI) refreshGame() tea.Cmd {
	return func() tea.Msg {
		view, err := getGame(m.client, m.config.APIBaseURL)
		return gameViewMsg{view, err}
	}
}

func (m ConsoleUI) doChoice(index int) tea.Cmd {
	return func() tea.Msg {
		view, err := postChoice(m.client, m.config.APIBaseURL, index)
		return gameViewMsg{view, err}
	}
}

func (m ConsoleUI) doContinue() tea.Cmd {
	return func() tea.Msg {
		view, err := postContinue(m.client, m.config.APIBaseURL)
		return gameViewMsg{view, err}
	}
}

func (m ConsoleUI) doBack() tea.Cmd {
	return func() tea.Msg {
		view, err := postBack(m.client, m.config.APIBaseURL)
		return gameViewMsg{view, err}
	}
}

func (m ConsoleUI) doReset() tea.Cmd {
	return func() tea.Msg {
		view, err := postReset(m.client, m.config.APIBaseURL)
		return gameViewMsg{view, err}
	}
}

func (m ConsoleUI) loadSaveList() tea.Cmd {
	return func() tea.Msg {
		saves, err := listSaves(m.client, m.config.APIBaseURL)
		return saveListMsg{saves, err}
	}
}

func (m ConsoleUI) doSave(slot int) tea.Cmd {
	return func() tea.Msg {
		sg, err := saveToSlot(m.client, m.config.APIBaseURL, slot)
		if err != nil {
			return slotActionMsg{"", err}
		}
		return slotActionMsg{fmt.Sprintf("Saved to slot %d (%s)", slot, sg.Metadata.SavedAt), nil}
	}
}

func (m ConsoleUI) doLoad(slot int) tea.Cmd {
	return func() tea.Msg {
		if err := loadFromSlot(m.client, m.config.APIBaseURL, slot); err != nil {
			return slotActionMsg{"", err}
		}
		return slotActionMsg{fmt.Sprintf("Loaded slot %d", slot), nil}
	}
}

func (m ConsoleUI) doDelete(slot int) tea.Cmd {
	return func() tea.Msg {
		if err := deleteSlot(m.client, m.config.APIBaseURL, slot); err != nil {
			return slotActionMsg{"", err}
		}
		return slotActionMsg{fmt.Sprintf("Deleted slot %d", slot), nil}
	}
}

// doExport copies the slot's save file to the system clipboard.
func (m ConsoleUI) doExport(slot int) tea.Cmd {
	return func() tea.Msg {
		data, err := exportSlot(m.client, m.config.APIBaseURL, slot)
		if err != nil {
			return slotActionMsg{"", err}
		}
		if err := clipboard.WriteAll(string(data)); err != nil {
			return slotActionMsg{"", fmt.Errorf("failed to copy to clipboard: %w", err)}
		}
		return slotActionMsg{fmt.Sprintf("Slot %d copied to clipboard", slot), nil}
	}
}

// Modals

func (m ConsoleUI) updateSlotModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case saveListMsg:
		if msg.err != nil {
			m.err = msg.err
			m.mode = modeGame
			m.writeSceneContent()
			return m, nil
		}
		m.saves = msg.saves

	case slotActionMsg:
		m.mode = modeGame
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
		} else {
			m.err = nil
			m.status = msg.status
		}
		m.writeSceneContent()
		return m, m.refreshGame()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.mode = modeGame
			return m, nil
		case tea.KeyUp:
			if m.selectedSlot > 0 {
				m.selectedSlot--
			}
		case tea.KeyDown:
			if m.selectedSlot < 2 {
				m.selectedSlot++
			}
		case tea.KeyEnter:
			slot := m.selectedSlot + 1
			if m.mode == modeSaveModal {
				return m, m.doSave(slot)
			}
			if m.slotOccupied(slot) {
				return m, m.doLoad(slot)
			}
			return m, nil
		}

		switch msg.String() {
		case "d":
			slot := m.selectedSlot + 1
			if m.slotOccupied(slot) {
				return m, m.doDelete(slot)
			}
		case "x":
			slot := m.selectedSlot + 1
			if m.slotOccupied(slot) {
				return m, m.doExport(slot)
			}
		}
	}

	return m, nil
}

func (m ConsoleUI) slotOccupied(slot int) bool {
	if m.saves == nil || slot < 1 || slot > len(m.saves.Slots) {
		return false
	}
	return m.saves.Slots[slot-1] != nil
}

func (m ConsoleUI) updateResetModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "y", "Y":
			m.mode = modeGame
			m.loading = true
			return m, m.doReset()
		case "n", "N", "esc", "ctrl+c":
			m.mode = modeGame
			return m, nil
		}
	}
	return m, nil
}

func (m ConsoleUI) updateQuitModal(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEnter:
			return m, tea.Quit
		default:
			switch msg.String() {
			case "y", "Y":
				return m, tea.Quit
			case "n", "N":
				m.mode = modeGame
				return m, nil
			}
		}
	}
	return m, nil
}

// Rendering

func (m *ConsoleUI) resize() {
	sceneWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - sceneWidth - 6

	m.sceneViewport.Width = sceneWidth - 2
	m.sceneViewport.Height = m.height - 5
	m.metaViewport.Width = metaWidth - 2
	m.metaViewport.Height = m.height - 4
}

func (m *ConsoleUI) writeSceneContent() {
	width := m.sceneViewport.Width - 6
	if width < 20 {
		width = 20
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("THE LONG NIGHT") + "\n\n")
	content.WriteString(separatorStyle.Render(strings.Repeat("─", width)) + "\n\n")

	if m.view != nil && m.view.Scene != nil {
		sc := m.view.Scene

		if sc.Content.Speaker != "" {
			content.WriteString(speakerStyle.Render(displayName(sc.Content.Speaker)+":") + "\n")
		}
		content.WriteString(sceneTextStyle.Render(wordwrap.String(sc.Content.Text, width)) + "\n\n")

		if len(m.view.Choices) > 0 {
			for _, ca := range m.view.Choices {
				line := fmt.Sprintf("%d. %s", ca.Index+1, ca.Choice.Text)
				if ca.Check.CanSelect {
					content.WriteString(choiceStyle.Render(wordwrap.String(line, width)) + "\n")
				} else {
					content.WriteString(lockedStyle.Render(wordwrap.String(line+"  ["+ca.Check.Reason+"]", width)) + "\n")
				}
			}
			content.WriteString("\n")
		} else if m.view.CanContinue {
			content.WriteString(promptStyle.Render("Press Enter to continue...") + "\n\n")
		} else if sc.Type == scene.TypeEnding {
			content.WriteString(titleStyle.Render("THE END") + "\n\n")
			content.WriteString(promptStyle.Render("Press r to start over.") + "\n\n")
		}
	}

	if m.status != "" {
		content.WriteString(statusStyle.Render(m.status) + "\n")
	}
	if m.err != nil {
		content.WriteString(errorStyle.Render("Error: "+m.err.Error()) + "\n")
	}
	if m.loading {
		content.WriteString(statusStyle.Render("...") + "\n")
	}

	m.sceneViewport.SetContent(content.String())
	m.sceneViewport.GotoTop()
}

func (m *ConsoleUI) writeMetadata() {
	if m.view == nil || m.view.GameState == nil {
		return
	}
	gs := m.view.GameState

	var content strings.Builder
	content.WriteString(titleStyle.Render("STATUS") + "\n\n")

	content.WriteString("Scene:\n")
	content.WriteString(gs.CurrentScene + "\n\n")

	if gs.CurrentPath != "" {
		content.WriteString("Path:\n")
		content.WriteString(string(gs.CurrentPath) + "\n\n")
	}

	if gs.DayTime != nil {
		content.WriteString("Time:\n")
		content.WriteString(fmt.Sprintf("Day %d, %s\n\n", gs.DayTime.Day, gs.DayTime.TimeOfDay))
	}

	if gs.WorkAssignment != "" {
		content.WriteString("Assignment:\n")
		content.WriteString(string(gs.WorkAssignment) + "\n\n")
	}

	content.WriteString("Inventory:\n")
	if len(gs.Inventory) == 0 {
		content.WriteString("Empty\n")
	} else {
		for _, item := range gs.Inventory {
			content.WriteString("• " + displayName(item) + "\n")
		}
	}
	content.WriteString("\n")

	if len(gs.Evidence) > 0 {
		content.WriteString("Evidence:\n")
		for _, ev := range gs.Evidence {
			content.WriteString("• " + displayName(ev) + "\n")
		}
		content.WriteString("\n")
	}

	if len(gs.Relationships) > 0 {
		content.WriteString("Relationships:\n")
		ids := make([]string, 0, len(gs.Relationships))
		for id := range gs.Relationships {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			content.WriteString(fmt.Sprintf("• %s: %+d\n", displayName(id), gs.Relationships[id]))
		}
		content.WriteString("\n")
	}

	content.WriteString(fmt.Sprintf("Scenes: %d  Choices: %d\n\n", gs.Stats.ScenesVisited, gs.Stats.ChoicesMade))

	content.WriteString("Keys:\n")
	content.WriteString("• 1-9: Choose\n")
	content.WriteString("• Enter: Continue\n")
	content.WriteString("• b: Back\n")
	content.WriteString("• s/l: Save/Load\n")
	content.WriteString("• r: Restart\n")
	content.WriteString("• Ctrl+C: Quit\n")

	m.metaViewport.SetContent(content.String())
}

func (m ConsoleUI) renderSlotModal() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	if m.mode == modeSaveModal {
		content.WriteString(modalTitleStyle.Render("Save Game"))
	} else {
		content.WriteString(modalTitleStyle.Render("Load Game"))
	}
	content.WriteString("\n\n")

	if m.saves == nil {
		content.WriteString(statusStyle.Render("Loading slots..."))
	} else {
		for i := 0; i < 3; i++ {
			label := fmt.Sprintf("Slot %d: empty", i+1)
			if meta := m.saves.Slots[i]; meta != nil {
				label = fmt.Sprintf("Slot %d: %s · %s", i+1, meta.CurrentScene, meta.SavedAt)
			}
			if i == m.selectedSlot {
				content.WriteString(modalSelectedItemStyle.Render("▶ " + label))
			} else {
				content.WriteString(modalItemStyle.Render("  " + label))
			}
			content.WriteString("\n")
		}
		content.WriteString("\n")
		content.WriteString(promptStyle.Render("↑/↓ select · Enter confirm · d delete · x copy to clipboard · Esc cancel"))
	}

	modal := modalStyle.Width(64).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) renderConfirmModal(title, question string) string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var content strings.Builder
	content.WriteString(modalTitleStyle.Render(title))
	content.WriteString("\n\n")
	content.WriteString(question)
	content.WriteString("\n\n")
	content.WriteString(promptStyle.Render("Press Y to confirm, N to cancel"))

	modal := modalStyle.Width(50).Render(content.String())
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, modal, lipgloss.WithWhitespaceChars(" "))
}

func (m ConsoleUI) View() string {
	switch m.mode {
	case modeSaveModal, modeLoadModal:
		return m.renderSlotModal()
	case modeResetConfirm:
		return m.renderConfirmModal("Restart?", "Unsaved progress will be lost.")
	case modeQuitConfirm:
		return m.renderConfirmModal("Quit Game?", "Are you sure you want to quit?")
	}

	if !m.ready {
		return "\n  Initializing..."
	}

	sceneWidth := int(float64(m.width)*0.72) - 4
	metaWidth := m.width - sceneWidth - 6

	scenePanel := scenePanelStyle.Width(sceneWidth).Height(m.height - 2).Render(
		m.sceneViewport.View(),
	)

	metaPanel := metaPanelStyle.Width(metaWidth).Height(m.height - 2).Render(
		m.metaViewport.View(),
	)

	return lipgloss.JoinHorizontal(lipgloss.Top, scenePanel, metaPanel)
}

// displayName turns a snake_case id into a title-cased label.
func displayName(id string) string {
	words := strings.Split(id, "_")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
