package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"scoopbox/internal/cache"
	"scoopbox/internal/config"
	"scoopbox/internal/manager"
	"scoopbox/internal/progress"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type viewMode int

const (
	viewNormal viewMode = iota
	viewSearch
	viewConfirm
)

type confirmAction int

const (
	confirmInstall confirmAction = iota
	confirmUninstall
)

// logLines is how many progress messages stay on screen.
const logLines = 6

type Model struct {
	mgr    manager.PackageManager
	cfg    *config.Config
	store  *cache.Manager
	events *progress.Channel

	keys        keyMap
	spinner     spinner.Model
	searchInput textinput.Model

	width    int
	height   int
	cursor   int
	scroll   int
	viewMode viewMode

	installed    []string
	installedSet map[string]bool
	results      []string // nil outside a search
	query        string

	confirmAct  confirmAction
	confirmPkgs []string
	skipped     []string

	// settle holds packages of a batch that partly failed. The next
	// installed list decides which of them went through.
	settle    []string
	settleAct confirmAction

	statusMsg string
	statusErr bool
	log       []string
	busy      int
	loading   bool
}

// NewModel builds the front-end. store and events may be nil.
func NewModel(mgr manager.PackageManager, cfg *config.Config, store *cache.Manager, events *progress.Channel) Model {
	ti := textinput.New()
	ti.Placeholder = "Search apps..."
	ti.CharLimit = 100
	ti.Width = 40

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = searchStyle

	return Model{
		mgr:          mgr,
		cfg:          cfg,
		store:        store,
		events:       events,
		keys:         defaultKeyMap(),
		spinner:      sp,
		searchInput:  ti,
		installedSet: make(map[string]bool),
		busy:         1,
		loading:      true,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadInstalled(), m.waitForEvent(), m.spinner.Tick)
}

func (m Model) notifier() progress.Notifier {
	if m.events == nil {
		return nil
	}
	return m.events
}

func (m Model) waitForEvent() tea.Cmd {
	if m.events == nil {
		return nil
	}
	events := m.events.Events()
	return func() tea.Msg {
		return progressMsg{event: <-events}
	}
}

func (m Model) loadInstalled() tea.Cmd {
	return func() tea.Msg {
		names, err := m.mgr.ListInstalled(context.Background(), m.notifier())
		return installedLoadedMsg{names: names, err: err}
	}
}

func (m Model) searchPackages(term string) tea.Cmd {
	return func() tea.Msg {
		names, err := m.mgr.Search(context.Background(), term, m.notifier())
		return searchResultsMsg{term: term, names: names, err: err}
	}
}

func (m Model) installPackages(pkgs []string) tea.Cmd {
	return func() tea.Msg {
		err := m.mgr.Install(context.Background(), pkgs, m.notifier())
		return installResultMsg{pkgs: pkgs, err: err}
	}
}

func (m Model) uninstallPackages(pkgs []string) tea.Cmd {
	return func() tea.Msg {
		err := m.mgr.Uninstall(context.Background(), pkgs, m.notifier())
		return uninstallResultMsg{pkgs: pkgs, err: err}
	}
}

func (m Model) clearCache() tea.Cmd {
	store := m.store
	return func() tea.Msg {
		store.Clear()
		return cacheClearedMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ensureCursorVisible()
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progressMsg:
		m.appendLog(msg.event.Message)
		return m, m.waitForEvent()

	case installedLoadedMsg:
		m.loading = false
		m.busy--
		if msg.err != nil {
			m.settle = nil
			m.setStatus(fmt.Sprintf("Error listing apps: %v", msg.err), true)
			return m, nil
		}
		m.setInstalled(msg.names)
		m.settleSelection()
		return m, nil

	case searchResultsMsg:
		m.busy--
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Search failed: %v", msg.err), true)
			return m, nil
		}
		m.results = msg.names
		m.query = msg.term
		m.cursor = 0
		m.scroll = 0
		m.setStatus(fmt.Sprintf("%d app(s) found for '%s'", len(msg.names), msg.term), false)
		return m, nil

	case installResultMsg:
		m.busy--
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Install failed: %v", msg.err), true)
			m.settle, m.settleAct = msg.pkgs, confirmInstall
		} else {
			m.setStatus(fmt.Sprintf("Installed %s", summarize(msg.pkgs)), false)
			m.deselect(msg.pkgs)
		}
		m.busy++
		return m, m.loadInstalled()

	case uninstallResultMsg:
		m.busy--
		if msg.err != nil {
			m.setStatus(fmt.Sprintf("Uninstall failed: %v", msg.err), true)
			m.settle, m.settleAct = msg.pkgs, confirmUninstall
		} else {
			m.setStatus(fmt.Sprintf("Uninstalled %s", summarize(msg.pkgs)), false)
			m.deselect(msg.pkgs)
		}
		m.busy++
		return m, m.loadInstalled()

	case cacheClearedMsg:
		m.setStatus("Cache cleared", false)
		return m, nil

	case tea.KeyMsg:
		cmd := m.handleKey(msg)
		return m, cmd
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	switch m.viewMode {
	case viewSearch:
		return m.handleSearchKey(msg)
	case viewConfirm:
		return m.handleConfirmKey(msg)
	default:
		return m.handleNormalKey(msg)
	}
}

func (m *Model) handleNormalKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Quit):
		return tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.ensureCursorVisible()
		}

	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.visibleItems())-1 {
			m.cursor++
			m.ensureCursorVisible()
		}

	case key.Matches(msg, m.keys.Search):
		m.viewMode = viewSearch
		m.searchInput.Focus()
		return textinput.Blink

	case key.Matches(msg, m.keys.Escape):
		if m.results != nil {
			m.results = nil
			m.query = ""
			m.searchInput.SetValue("")
			m.cursor = 0
			m.scroll = 0
		}

	case key.Matches(msg, m.keys.Select):
		if pkg, ok := m.current(); ok {
			m.cfg.ToggleSelected(pkg)
			m.saveConfig()
		}

	case key.Matches(msg, m.keys.SelectAll):
		if len(m.installed) == 0 {
			m.setStatus("No installed apps to select.", true)
			break
		}
		for _, p := range m.installed {
			m.cfg.Select(p)
		}
		m.saveConfig()
		m.setStatus(fmt.Sprintf("Selected %d installed app(s)", len(m.installed)), false)

	case key.Matches(msg, m.keys.ClearSel):
		m.cfg.ClearSelected()
		m.saveConfig()
		m.setStatus("Selection cleared", false)

	case key.Matches(msg, m.keys.Install):
		m.prepareInstall()

	case key.Matches(msg, m.keys.Uninstall):
		m.prepareUninstall()

	case key.Matches(msg, m.keys.Refresh):
		m.busy++
		return m.loadInstalled()

	case key.Matches(msg, m.keys.ClearCache):
		if m.store != nil {
			return m.clearCache()
		}
	}

	return nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "esc":
		m.viewMode = viewNormal
		m.searchInput.Blur()
		m.searchInput.SetValue("")
		return nil

	case "enter":
		term := strings.TrimSpace(m.searchInput.Value())
		if len([]rune(term)) < manager.MinSearchLen {
			m.setStatus(fmt.Sprintf("Enter at least %d characters.", manager.MinSearchLen), true)
			return nil
		}
		if !m.mgr.IsSearchCached(term) {
			m.setStatus(fmt.Sprintf("First search for '%s'; this can take a moment. Results will be cached.", term), false)
		}
		m.viewMode = viewNormal
		m.searchInput.Blur()
		m.busy++
		return m.searchPackages(term)
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return cmd
}

func (m *Model) handleConfirmKey(msg tea.KeyMsg) tea.Cmd {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		pkgs := m.confirmPkgs
		m.viewMode = viewNormal
		m.confirmPkgs = nil
		m.busy++
		if m.confirmAct == confirmInstall {
			m.appendLog(fmt.Sprintf("Starting install of %d app(s)...", len(pkgs)))
			return m.installPackages(pkgs)
		}
		m.appendLog(fmt.Sprintf("Starting uninstall of %d app(s)...", len(pkgs)))
		return m.uninstallPackages(pkgs)

	case key.Matches(msg, m.keys.Cancel):
		m.viewMode = viewNormal
		m.confirmPkgs = nil
	}
	return nil
}

// targets is the selection, or the package under the cursor when nothing is
// selected.
func (m *Model) targets() []string {
	if len(m.cfg.Selected) > 0 {
		pkgs := append([]string(nil), m.cfg.Selected...)
		sort.Strings(pkgs)
		return pkgs
	}
	if pkg, ok := m.current(); ok {
		return []string{pkg}
	}
	return nil
}

func (m *Model) prepareInstall() {
	targets := m.targets()
	if len(targets) == 0 {
		m.setStatus("Select at least one app to install.", true)
		return
	}

	var todo, already []string
	for _, p := range targets {
		if m.isInstalled(p) {
			already = append(already, p)
		} else {
			todo = append(todo, p)
		}
	}
	if len(todo) == 0 {
		m.setStatus("Already installed: "+summarize(already), false)
		return
	}

	m.skipped = already
	m.confirmPkgs = todo
	m.confirmAct = confirmInstall
	m.viewMode = viewConfirm
}

func (m *Model) prepareUninstall() {
	var todo []string
	for _, p := range m.targets() {
		if m.isInstalled(p) {
			todo = append(todo, p)
		}
	}
	if len(todo) == 0 {
		m.setStatus("Select at least one installed app to uninstall.", true)
		return
	}

	m.skipped = nil
	m.confirmPkgs = todo
	m.confirmAct = confirmUninstall
	m.viewMode = viewConfirm
}

func (m *Model) setInstalled(names []string) {
	m.installed = names
	m.installedSet = make(map[string]bool, len(names))
	for _, n := range names {
		m.installedSet[strings.ToLower(n)] = true
	}
	if m.results == nil && m.cursor >= len(names) {
		m.cursor = max(len(names)-1, 0)
	}
}

func (m Model) isInstalled(pkg string) bool {
	return m.installedSet[strings.ToLower(pkg)]
}

// settleSelection deselects the packages of a partly failed batch that the
// fresh installed list shows as done. Failed and untried ones stay selected.
func (m *Model) settleSelection() {
	if m.settle == nil {
		return
	}
	var done []string
	for _, p := range m.settle {
		if m.isInstalled(p) == (m.settleAct == confirmInstall) {
			done = append(done, p)
		}
	}
	m.settle = nil
	if len(done) > 0 {
		m.deselect(done)
	}
}

func (m *Model) deselect(pkgs []string) {
	for _, p := range pkgs {
		m.cfg.Deselect(p)
	}
	m.saveConfig()
}

func (m *Model) saveConfig() {
	if err := m.cfg.Save(); err != nil {
		m.setStatus(fmt.Sprintf("Could not save selection: %v", err), true)
	}
}

func (m *Model) setStatus(msg string, isErr bool) {
	m.statusMsg = msg
	m.statusErr = isErr
}

func (m *Model) appendLog(msg string) {
	if msg == "" {
		return
	}
	m.log = append(m.log, msg)
	if len(m.log) > logLines {
		m.log = m.log[len(m.log)-logLines:]
	}
}

func (m Model) current() (string, bool) {
	items := m.visibleItems()
	if len(items) == 0 || m.cursor >= len(items) {
		return "", false
	}
	return items[m.cursor], true
}

func (m Model) visibleItems() []string {
	if m.results != nil {
		return m.results
	}
	return m.installed
}

// maxVisibleItems returns how many package lines fit beside the header,
// search bar, log pane, status and help.
func (m Model) maxVisibleItems() int {
	overhead := 12 + logLines
	available := m.height - overhead
	if available < 1 {
		return 1
	}
	return available
}

// ensureCursorVisible adjusts scroll to keep cursor in view
func (m *Model) ensureCursorVisible() {
	maxVisible := m.maxVisibleItems()

	if m.cursor < m.scroll {
		m.scroll = m.cursor
	}
	if m.cursor >= m.scroll+maxVisible {
		m.scroll = m.cursor - maxVisible + 1
	}
}

func (m Model) View() string {
	if m.loading {
		return m.spinner.View() + " Loading installed apps..."
	}

	var b strings.Builder

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		titleStyle.Render("scoopbox"),
		toolStyle.Render(fmt.Sprintf("[%s]", m.mgr.Name())),
	)
	b.WriteString(header)
	if m.busy > 0 {
		b.WriteString(" " + m.spinner.View())
	}
	b.WriteString("\n")
	b.WriteString(strings.Repeat("─", min(m.width, 60)))
	b.WriteString("\n")

	switch {
	case m.viewMode == viewSearch:
		b.WriteString(searchStyle.Render("Search: "))
		b.WriteString(m.searchInput.View())
	case m.results != nil:
		b.WriteString(searchStyle.Render("Search: "))
		b.WriteString(m.query)
		b.WriteString(dimStyle.Render("  (/ to edit, Esc to clear)"))
	default:
		b.WriteString(dimStyle.Render("Press / to search"))
	}
	b.WriteString("\n")

	items := m.visibleItems()
	maxVisible := m.maxVisibleItems()
	title := "INSTALLED"
	if m.results != nil {
		title = "SEARCH RESULTS"
	}
	b.WriteString(headerStyle.Render(title))
	if n := len(m.cfg.Selected); n > 0 {
		b.WriteString(markStyle.Render(fmt.Sprintf(" %d selected", n)))
	}
	if len(items) > maxVisible {
		b.WriteString(dimStyle.Render(fmt.Sprintf(" (%d-%d of %d)", m.scroll+1, min(m.scroll+maxVisible, len(items)), len(items))))
	}
	b.WriteString("\n")
	if len(items) == 0 {
		b.WriteString(dimStyle.Render("  nothing here"))
		b.WriteString("\n")
	}
	m.renderItemsViewport(&b, items, m.scroll, maxVisible)

	if len(m.log) > 0 {
		b.WriteString(logStyle.Render(strings.Join(m.log, "\n")))
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		if m.statusErr {
			b.WriteString(errorStyle.Render(m.statusMsg))
		} else {
			b.WriteString(successStyle.Render(m.statusMsg))
		}
		b.WriteString("\n")
	}

	if m.store != nil {
		st := m.store.Stats()
		b.WriteString(dimStyle.Render(fmt.Sprintf("cache: %d searches, %d package buckets, %d buckets", st.Searches, st.Packages, st.Buckets)))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(helpLine(m.keys.Up, m.keys.Down, m.keys.Select, m.keys.SelectAll, m.keys.ClearSel, m.keys.Install, m.keys.Uninstall)))
	b.WriteString("\n")
	b.WriteString(helpStyle.Render(helpLine(m.keys.Search, m.keys.Refresh, m.keys.ClearCache, m.keys.Quit)))

	if m.viewMode == viewConfirm {
		action := "Install"
		if m.confirmAct == confirmUninstall {
			action = "Uninstall"
		}
		msg := fmt.Sprintf("%s %d app(s)?\n\n%s", action, len(m.confirmPkgs), summarize(m.confirmPkgs))
		if len(m.skipped) > 0 {
			msg += fmt.Sprintf("\n\nSkipping already installed: %s", summarize(m.skipped))
		}
		msg += "\n\n[y] Yes  [n] No"
		return m.renderWithModal(b.String(), "Confirm", msg)
	}

	return b.String()
}

func (m Model) renderItemsViewport(b *strings.Builder, items []string, scroll, maxItems int) {
	rendered := 0
	for i, pkg := range items {
		if i < scroll {
			continue
		}
		if rendered >= maxItems {
			break
		}

		prefix := "  "
		name := normalStyle.Render(pkg)
		if i == m.cursor {
			prefix = "> "
			name = cursorStyle.Render(pkg)
		}

		mark := " "
		if m.cfg.IsSelected(pkg) {
			mark = markStyle.Render("●")
		}

		status := dimStyle.Render("[ ]")
		if m.isInstalled(pkg) {
			status = installedStyle.Render("[✓]")
		}

		fmt.Fprintf(b, "%s%s %s  %s\n", prefix, mark, name, status)
		rendered++
	}
}

func (m Model) renderWithModal(bg, title, content string) string {
	lines := strings.Split(bg, "\n")

	modalContent := fmt.Sprintf("%s\n\n%s",
		titleStyle.Render(title),
		content,
	)
	modal := modalStyle.Render(modalContent)
	modalLines := strings.Split(modal, "\n")

	startY := (len(lines) - len(modalLines)) / 2
	if startY < 0 {
		startY = 0
	}

	for i, mLine := range modalLines {
		lineIdx := startY + i
		if lineIdx < len(lines) {
			lines[lineIdx] = mLine
		} else {
			lines = append(lines, mLine)
		}
	}

	return strings.Join(lines, "\n")
}

// summarize lists up to five names.
func summarize(pkgs []string) string {
	if len(pkgs) > 5 {
		return strings.Join(pkgs[:5], ", ") + "..."
	}
	return strings.Join(pkgs, ", ")
}
