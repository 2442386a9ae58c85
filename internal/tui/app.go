// internal/tui/app.go
//
// This is the main TUI for the compliance assistant.
// It uses bubbletea, which follows The Elm Architecture:
//
// 1. Model: the App, which owns the session state for this run
// 2. Update: applies messages (keys, pastes, finished uploads, answers)
// 3. View: renders the state to a string
//
// Network calls never touch the state directly. They run inside tea.Cmds
// and come back as messages, so every mutation happens in Update.

package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kingrea/compliance-assistant/internal/backend"
	"github.com/kingrea/compliance-assistant/internal/config"
	"github.com/kingrea/compliance-assistant/internal/ingest"
	"github.com/kingrea/compliance-assistant/internal/logbook"
	"github.com/kingrea/compliance-assistant/internal/query"
	"github.com/kingrea/compliance-assistant/internal/session"
)

// focusArea is the panel receiving keys.
type focusArea int

const (
	focusPaths     focusArea = iota // path input, doubles as the drop target
	focusDocuments                  // uploaded documents list
	focusQuestion                   // question textarea
	focusCount
)

const logPanelLines = 6

// fileUploadedMsg carries the outcome of one file of the running batch.
type fileUploadedMsg struct {
	token   uint64
	outcome ingest.Outcome
}

// uploadRun tracks the batch being uploaded, one file per command.
type uploadRun struct {
	token   uint64
	batch   *ingest.Batch
	pending []ingest.Candidate
	total   int
	report  ingest.Report
}

type clearUploadErrorMsg struct {
	token uint64
}

type answerMsg struct {
	result query.Result
}

type healthMsg struct {
	message string
	err     error
}

// AppOption customizes App construction for tests and alternate runtimes.
type AppOption func(*App)

// WithUploader replaces the backend client for uploads.
func WithUploader(u ingest.Uploader) AppOption {
	return func(a *App) {
		if u != nil {
			a.uploader = u
		}
	}
}

// WithAsker replaces the backend client for questions.
func WithAsker(q query.Asker) AppOption {
	return func(a *App) {
		if q != nil {
			a.asker = q
		}
	}
}

// WithClearDelay overrides how long an upload error stays up after a
// partially successful batch.
func WithClearDelay(d time.Duration) AppOption {
	return func(a *App) {
		if d > 0 {
			a.clearDelay = d
		}
	}
}

// WithClock controls upload timestamps.
func WithClock(clock func() time.Time) AppOption {
	return func(a *App) {
		if clock != nil {
			a.clock = clock
		}
	}
}

// App is the main application model. In bubbletea, this holds ALL your state.
type App struct {
	config  *config.Config
	logbook *logbook.Logbook
	client  *backend.Client

	uploader   ingest.Uploader
	asker      query.Asker
	clock      func() time.Time
	clearDelay time.Duration
	ingest     *ingest.Controller
	query      *query.Controller

	state  session.State
	upload uploadRun
	focus  focusArea

	// UI components
	paths     textinput.Model
	question  textarea.Model
	documents list.Model
	spinner   spinner.Model
	statusMsg string

	width  int
	height int
}

// documentItem implements list.Item for an uploaded document.
type documentItem struct {
	doc ingest.UploadedDocument
}

func (i documentItem) Title() string       { return "✓ " + i.doc.Name }
func (i documentItem) Description() string { return i.doc.Meta() }
func (i documentItem) FilterValue() string { return i.doc.Name }

// NewApp creates a new App instance for the project rooted at projectDir.
func NewApp(projectDir string, opts ...AppOption) (*App, error) {
	cfg, err := config.NewConfig(projectDir)
	if err != nil {
		return nil, err
	}
	lb, err := logbook.New(cfg.SessionLogPath())
	if err != nil {
		return nil, err
	}
	client := backend.New(cfg.BackendOrigin())

	paths := textinput.New()
	paths.Prompt = "› "
	paths.Placeholder = "paste or type file paths, then Enter"
	paths.CharLimit = 0

	question := textarea.New()
	question.Placeholder = "What are the compliance requirements for...?"
	question.ShowLineNumbers = false
	question.CharLimit = 0
	question.SetHeight(4)

	documents := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	documents.SetShowTitle(false)
	documents.SetShowStatusBar(false)
	documents.SetShowHelp(false)
	documents.SetFilteringEnabled(false)
	documents.DisableQuitKeybindings()

	spin := spinner.New(spinner.WithSpinner(spinner.Dot))

	app := &App{
		config:     cfg,
		logbook:    lb,
		client:     client,
		uploader:   client,
		asker:      client,
		clock:      time.Now,
		clearDelay: session.ErrorClearDelay,
		paths:      paths,
		question:   question,
		documents:  documents,
		spinner:    spin,
		focus:      focusQuestion,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(app)
		}
	}
	app.ingest = ingest.NewController(app.uploader, ingest.WithClock(app.clock), ingest.WithLogbook(lb))
	app.query = query.NewController(app.asker, query.WithLogbook(lb))
	app.setFocus(focusPaths)
	lb.Info("Session opened · backend %s", client.Origin())
	return app, nil
}

// State returns a copy of the session state.
func (a *App) State() session.State {
	return a.state.Clone()
}

func (a *App) logInfo(format string, args ...any) {
	a.logbook.Info(format, args...)
}

func (a *App) logWarn(format string, args ...any) {
	a.logbook.Warn(format, args...)
}

// Init is called once when the program starts.
func (a *App) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, a.checkHealth())
}

// Update is called when a message is received.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		inner := max(20, msg.Width-8)
		a.paths.Width = inner - 4
		a.question.SetWidth(inner)
		a.documents.SetSize(inner, max(4, msg.Height/4))
		return a, nil

	case fileUploadedMsg:
		return a, a.recordUpload(msg)

	case clearUploadErrorMsg:
		a.state.ClearUploadError(msg.token)
		return a, nil

	case answerMsg:
		a.state.FinishQuestion(msg.result.Answer)
		if msg.result.Failed() {
			a.statusMsg = "Question failed · see log"
		} else {
			a.statusMsg = ""
		}
		return a, nil

	case healthMsg:
		if msg.err != nil {
			a.logWarn("Backend unreachable: %v", msg.err)
			a.statusMsg = fmt.Sprintf("Backend %s is not reachable", a.client.Origin())
		} else {
			a.logInfo("Backend says: %s", msg.message)
			a.statusMsg = fmt.Sprintf("Connected to %s", a.client.Origin())
		}
		return a, nil

	case spinner.TickMsg:
		if !a.busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return a, tea.Quit
		case "tab":
			return a, a.setFocus((a.focus + 1) % focusCount)
		case "shift+tab":
			return a, a.setFocus((a.focus + focusCount - 1) % focusCount)
		case "esc":
			a.state.DismissAnswer()
			return a, nil
		}
		switch a.focus {
		case focusPaths:
			return a, a.handlePathKey(msg)
		case focusDocuments:
			return a, a.handleDocumentKey(msg)
		case focusQuestion:
			return a, a.handleQuestionKey(msg)
		}
	}

	return a, a.updateFocused(msg)
}

func (a *App) updateFocused(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	switch a.focus {
	case focusPaths:
		a.paths, cmd = a.paths.Update(msg)
	case focusDocuments:
		a.documents, cmd = a.documents.Update(msg)
	case focusQuestion:
		a.question, cmd = a.question.Update(msg)
	}
	return cmd
}

// setFocus moves keyboard focus. Entering the path input is the terminal's
// drag-enter on the drop target; leaving it is drag-leave.
func (a *App) setFocus(next focusArea) tea.Cmd {
	prev := a.focus
	if prev == focusPaths && next != focusPaths {
		a.state.HandleDrag(session.DragLeave)
		a.paths.Blur()
	}
	if prev == focusQuestion && next != focusQuestion {
		a.question.Blur()
	}
	a.focus = next
	switch next {
	case focusPaths:
		a.state.HandleDrag(session.DragEnter)
		return a.paths.Focus()
	case focusQuestion:
		return a.question.Focus()
	}
	return nil
}

func (a *App) handlePathKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Paste {
		if !a.state.HandleDrag(session.Drop) {
			return nil
		}
		return a.withSpinner(a.beginUpload(a.candidatesFrom(string(msg.Runes))))
	}
	if a.state.Uploading {
		return nil
	}
	if msg.Type == tea.KeyEnter {
		raw := a.paths.Value()
		a.paths.Reset()
		return a.withSpinner(a.beginUpload(a.candidatesFrom(raw)))
	}
	a.state.HandleDrag(session.DragOver)
	var cmd tea.Cmd
	a.paths, cmd = a.paths.Update(msg)
	return cmd
}

func (a *App) handleDocumentKey(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "x", "delete", "backspace":
		idx := a.documents.Index()
		if idx >= 0 && idx < len(a.state.Documents) {
			name := a.state.Documents[idx].Name
			if a.state.RemoveDocument(idx) {
				a.logInfo("Removed from list: %s", name)
			}
		}
		return a.syncDocuments()
	}
	var cmd tea.Cmd
	a.documents, cmd = a.documents.Update(msg)
	return cmd
}

func (a *App) handleQuestionKey(msg tea.KeyMsg) tea.Cmd {
	if a.state.Loading {
		return nil
	}
	switch msg.String() {
	case "enter":
		return a.withSpinner(a.beginQuestion())
	case "alt+enter":
		// The textarea's own binding inserts the newline.
		var cmd tea.Cmd
		a.question, cmd = a.question.Update(tea.KeyMsg{Type: tea.KeyEnter})
		a.state.Question = a.question.Value()
		return cmd
	case "ctrl+l":
		a.question.Reset()
		a.state.ClearQuestion()
		return nil
	}
	var cmd tea.Cmd
	a.question, cmd = a.question.Update(msg)
	a.state.Question = a.question.Value()
	return cmd
}

func (a *App) withSpinner(cmd tea.Cmd) tea.Cmd {
	if cmd == nil {
		return nil
	}
	return tea.Batch(cmd, a.spinner.Tick)
}

func (a *App) busy() bool {
	return a.state.Uploading || a.state.Loading
}

// candidatesFrom turns typed or pasted text into upload candidates. Paths
// that cannot be read are reported in the status line and skipped.
func (a *App) candidatesFrom(raw string) []ingest.Candidate {
	var (
		candidates []ingest.Candidate
		skipped    []string
	)
	for _, path := range splitPaths(raw) {
		candidate, err := ingest.CandidateFromPath(path)
		if err != nil {
			a.logWarn("Skipping %s: %v", path, err)
			skipped = append(skipped, filepath.Base(path))
			continue
		}
		candidates = append(candidates, candidate)
	}
	if len(skipped) > 0 {
		a.statusMsg = fmt.Sprintf("Skipped unreadable: %s", strings.Join(skipped, ", "))
	}
	return candidates
}

// beginUpload opens the uploading window and returns the command for the
// first file, or nil when the batch is empty or another one is in flight.
func (a *App) beginUpload(candidates []ingest.Candidate) tea.Cmd {
	token, ok := a.state.BeginBatch(len(candidates))
	if !ok {
		return nil
	}
	batch := a.ingest.NewBatch(context.Background(), len(candidates))
	a.upload = uploadRun{
		token:   token,
		batch:   batch,
		pending: candidates,
		total:   len(candidates),
		report:  ingest.Report{BatchID: batch.ID},
	}
	return a.nextUpload()
}

// nextUpload returns the command for the next pending file, or finishes the
// batch when none is left.
func (a *App) nextUpload() tea.Cmd {
	if len(a.upload.pending) == 0 {
		return a.finishUpload()
	}
	candidate := a.upload.pending[0]
	a.upload.pending = a.upload.pending[1:]
	token, batch := a.upload.token, a.upload.batch
	return func() tea.Msg {
		return fileUploadedMsg{token: token, outcome: batch.Upload(candidate)}
	}
}

func (a *App) recordUpload(msg fileUploadedMsg) tea.Cmd {
	if msg.token != a.upload.token || a.upload.batch == nil {
		return nil
	}
	a.state.RecordOutcome(msg.token, msg.outcome)
	a.upload.report.Add(msg.outcome)
	if msg.outcome.Document != nil {
		a.syncDocuments()
	}
	return a.nextUpload()
}

func (a *App) finishUpload() tea.Cmd {
	token, report := a.upload.token, a.upload.report
	a.upload = uploadRun{token: token}
	scheduled := a.state.FinishBatch(token)
	a.statusMsg = fmt.Sprintf("Uploaded %d of %d file(s)",
		len(report.Documents), len(report.Documents)+len(report.Failures))
	if !scheduled {
		return nil
	}
	return tea.Tick(a.clearDelay, func(time.Time) tea.Msg {
		return clearUploadErrorMsg{token: token}
	})
}

// beginQuestion starts the round trip for the current draft, or returns nil
// when the draft is blank or an answer is pending.
func (a *App) beginQuestion() tea.Cmd {
	a.state.Question = a.question.Value()
	question, ok := a.state.BeginQuestion()
	if !ok {
		return nil
	}
	ctrl := a.query
	return func() tea.Msg {
		result, err := ctrl.Submit(context.Background(), question)
		if err != nil {
			result = query.Result{Answer: query.ErrorAnswer, Err: err}
		}
		return answerMsg{result: result}
	}
}

func (a *App) checkHealth() tea.Cmd {
	if a.client == nil {
		return nil
	}
	client := a.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		message, err := client.Health(ctx)
		return healthMsg{message: message, err: err}
	}
}

func (a *App) syncDocuments() tea.Cmd {
	items := make([]list.Item, len(a.state.Documents))
	for i, doc := range a.state.Documents {
		items[i] = documentItem{doc: doc}
	}
	return a.documents.SetItems(items)
}

var (
	accentColor = lipgloss.Color("#5B8DEF")
	mutedColor  = lipgloss.Color("#888888")
	borderColor = lipgloss.Color("#444444")
	errorColor  = lipgloss.Color("#CC3333")
)

// View renders the current state to a string.
func (a *App) View() string {
	width := a.width
	if width <= 0 {
		width = 100
	}
	header := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FF6B6B")).Render("⬡ COMPLIANCE ASSISTANT"),
		lipgloss.NewStyle().Foreground(mutedColor).Render("AI-Powered Regulatory Document Analysis"),
	)
	sections := []string{
		header,
		a.panel("Upload Documents", a.renderUploadSection(width-8), a.focus != focusQuestion, width),
		a.panel("Ask a Question", a.renderQuestionSection(), a.focus == focusQuestion, width),
	}
	if a.state.Answer != "" {
		sections = append(sections, a.renderResponse(width))
	}
	if logPanel := a.renderLogPanel(); logPanel != "" {
		sections = append(sections, logPanel)
	}
	footer := lipgloss.NewStyle().
		Foreground(mutedColor).
		Render(a.footerText())
	sections = append(sections, footer)
	return strings.Join(sections, "\n")
}

func (a *App) panel(title, body string, focused bool, width int) string {
	border := borderColor
	if focused {
		border = accentColor
	}
	head := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render(title)
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1).
		Width(max(20, width-2)).
		Render(head + "\n" + body)
}

func (a *App) renderUploadSection(width int) string {
	label := "Paste, drop or type file paths"
	icon := "📄"
	if a.state.Uploading {
		done := len(a.upload.report.Documents) + len(a.upload.report.Failures)
		label = fmt.Sprintf("%s Uploading... (%d/%d)", a.spinner.View(), done+1, a.upload.total)
		icon = "⏳"
	}
	zoneBorder := borderColor
	if a.state.DragActive {
		zoneBorder = accentColor
	}
	zone := lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(zoneBorder).
		Padding(0, 1).
		Width(max(20, width)).
		Render(lipgloss.JoinVertical(lipgloss.Left,
			fmt.Sprintf("%s %s", icon, label),
			lipgloss.NewStyle().Foreground(mutedColor).Render("PDF, DOC, DOCX, TXT (Max 10MB each)"),
			a.paths.View(),
		))

	lines := []string{
		lipgloss.NewStyle().Foreground(mutedColor).Render("Add regulatory compliance documents for analysis"),
		zone,
	}
	if a.state.UploadError != "" {
		lines = append(lines, lipgloss.NewStyle().Foreground(errorColor).Render(a.state.UploadError))
	}
	if n := len(a.state.Documents); n > 0 {
		lines = append(lines,
			lipgloss.NewStyle().Bold(true).Render(fmt.Sprintf("📋 Uploaded Documents (%d)", n)),
			a.documents.View(),
		)
	}
	return strings.Join(lines, "\n")
}

func (a *App) renderQuestionSection() string {
	button := "🔍 Enter · Analyze & Answer"
	if a.state.Loading {
		button = a.spinner.View() + " Analyzing..."
	}
	hints := []string{fmt.Sprintf("%d characters", utf8.RuneCountInString(a.question.Value()))}
	if !a.state.Loading {
		hints = append(hints, "alt+enter newline")
		if a.question.Value() != "" {
			hints = append(hints, "ctrl+l clear")
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().Foreground(mutedColor).Render("Query the compliance documents with specific questions"),
		a.question.View(),
		lipgloss.NewStyle().Foreground(mutedColor).Render(strings.Join(hints, " · ")),
		button,
	)
}

func (a *App) renderResponse(width int) string {
	head := lipgloss.NewStyle().Bold(true).Foreground(accentColor).Render("Response") +
		lipgloss.NewStyle().Foreground(mutedColor).Render("  (esc to close)")
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(accentColor).
		Padding(0, 1).
		Width(max(20, width-2)).
		Render(head + "\n" + a.state.Answer)
}

func (a *App) renderLogPanel() string {
	if a.logbook == nil {
		return ""
	}
	lines, total := a.logbook.Tail(logPanelLines)
	if len(lines) == 0 {
		return ""
	}
	fileName := filepath.Base(a.logbook.Path())
	if fileName == "." || fileName == "" {
		fileName = "log"
	}
	head := lipgloss.NewStyle().
		Bold(true).
		Foreground(accentColor).
		Render(fmt.Sprintf("LOG · %s · %d entries", fileName, total))
	body := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#AAAAAA")).
		Render(strings.Join(lines, "\n"))
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Render(fmt.Sprintf("%s\n%s", head, body))
}

func (a *App) footerText() string {
	keys := "tab switch panel · ctrl+c quit"
	if a.focus == focusDocuments {
		keys = "↑/↓ select · x remove · " + keys
	}
	if a.statusMsg == "" {
		return keys
	}
	return a.statusMsg + " · " + keys
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
