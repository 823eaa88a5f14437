package ui

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/abelbrown/newslens/internal/feeds"
	"github.com/abelbrown/newslens/internal/insight"
	"github.com/abelbrown/newslens/internal/pipeline"
	"github.com/abelbrown/newslens/internal/prompt"
	"github.com/abelbrown/newslens/internal/session"
)

// Pipeline is what the App drives. *pipeline.Pipeline satisfies it.
type Pipeline interface {
	Articles(ctx context.Context, category string) ([]feeds.Entry, error)
	Refresh(ctx context.Context, category string) ([]feeds.Entry, error)
	Analyze(ctx context.Context, entry feeds.Entry, lang prompt.Language) (*insight.Analysis, error)
	Compare(ctx context.Context, a, b feeds.Entry, lang prompt.Language) (*insight.Comparison, error)
	Ask(ctx context.Context, thread pipeline.Thread, entry feeds.Entry, lang prompt.Language, question string) (insight.ChatTurn, error)
}

// App is the root Bubble Tea model.
// IMPORTANT: Update never calls the pipeline. It returns Cmds that do, and
// results come back as messages.
type App struct {
	ctx        context.Context
	pipeline   Pipeline
	state      *session.State
	categories []string
	tab        int

	entries  []feeds.Entry
	cursor   int
	fetchErr error

	analyses map[string]*insight.Analysis
	failures map[string]error
	pending  map[string]bool

	comparing  bool
	compared   [2]string
	comparison *insight.Comparison
	compareErr error

	chatting bool
	asking   bool
	chatKey  string
	input    textinput.Model
	spinner  spinner.Model

	loading bool
	notice  string
	width   int
	height  int
	ready   bool
}

// NewApp creates the App. ctx bounds every pipeline call the App starts.
func NewApp(ctx context.Context, p Pipeline, state *session.State, categories []string) App {
	tab := slices.Index(categories, state.Category())
	if tab < 0 {
		tab = 0
	}
	if len(categories) > 0 {
		state.SetCategory(categories[tab])
	}

	input := textinput.New()
	input.Placeholder = "Ask about this article"
	input.CharLimit = 300
	input.Prompt = "? "

	return App{
		ctx:        ctx,
		pipeline:   p,
		state:      state,
		categories: categories,
		tab:        tab,
		analyses:   make(map[string]*insight.Analysis),
		failures:   make(map[string]error),
		pending:    make(map[string]bool),
		input:      input,
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(StatusBarKey)),
		loading:    len(categories) > 0,
	}
}

// Init loads the first category.
func (a App) Init() tea.Cmd {
	if len(a.categories) == 0 {
		return nil
	}
	return tea.Batch(a.load(false), a.spinner.Tick)
}

// Update handles messages and returns the updated model and any commands.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if a.chatting {
			return a.handleChatKey(msg)
		}
		return a.handleKeyMsg(msg)

	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.input.Width = max(10, msg.Width-6)
		a.ready = true
		return a, nil

	case spinner.TickMsg:
		if !a.busy() {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case ArticlesLoaded:
		if msg.Category != a.state.Category() {
			return a, nil
		}
		a.loading = false
		a.entries = msg.Entries
		a.fetchErr = msg.Err
		if a.cursor >= len(a.entries) {
			a.cursor = max(0, len(a.entries)-1)
		}
		return a, nil

	case AnalysisDone:
		if msg.Language != a.state.Language() {
			return a, nil
		}
		delete(a.pending, msg.Key)
		if msg.Err != nil {
			a.failures[msg.Key] = msg.Err
		} else {
			a.analyses[msg.Key] = msg.Analysis
			delete(a.failures, msg.Key)
		}
		return a, nil

	case ComparisonDone:
		if msg.A != a.compared[0] || msg.B != a.compared[1] || msg.Language != a.state.Language() {
			return a, nil
		}
		a.comparing = false
		a.comparison = msg.Comparison
		a.compareErr = msg.Err
		return a, nil

	case ChatAnswered:
		a.asking = false
		if msg.Err != nil {
			a.notice = session.Notice(msg.Err, a.state.Language())
		}
		return a, nil
	}

	return a, nil
}

// handleKeyMsg processes keyboard input outside the chat box.
func (a App) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a.notice = ""

	switch msg.String() {
	case "q", "ctrl+c":
		return a, tea.Quit

	case "tab":
		return a.switchTab(a.tab + 1)

	case "shift+tab":
		return a.switchTab(a.tab - 1)

	case "j", "down":
		if a.cursor < len(a.entries)-1 {
			a.cursor++
		}
		return a, nil

	case "k", "up":
		if a.cursor > 0 {
			a.cursor--
		}
		return a, nil

	case "g", "home":
		a.cursor = 0
		return a, nil

	case "G", "end":
		if len(a.entries) > 0 {
			a.cursor = len(a.entries) - 1
		}
		return a, nil

	case "enter":
		e, ok := a.current()
		if !ok {
			return a, nil
		}
		if !a.state.Toggle(e.Key()) {
			return a, nil
		}
		return a, a.requestAnalysis(e)

	case "c":
		e, ok := a.current()
		if !ok {
			return a, nil
		}
		a.state.Expand(e.Key())
		a.chatting = true
		a.chatKey = e.Key()
		a.input.SetValue("")
		return a, tea.Batch(a.input.Focus(), a.requestAnalysis(e))

	case " ", "space":
		if e, ok := a.current(); ok {
			a.state.Pick(e.Key())
		}
		return a, nil

	case "x":
		picks := a.state.Picks()
		if len(picks) < session.MaxPicks {
			a.notice = "Pick two articles with space first."
			return a, nil
		}
		ea, okA := a.find(picks[0])
		eb, okB := a.find(picks[1])
		if !okA || !okB {
			a.state.ClearPicks()
			return a, nil
		}
		a.comparing = true
		a.compared = [2]string{picks[0], picks[1]}
		a.comparison = nil
		a.compareErr = nil
		return a, tea.Batch(a.compare(ea, eb), a.spinner.Tick)

	case "esc":
		a.comparing = false
		a.comparison = nil
		a.compareErr = nil
		a.compared = [2]string{}
		return a, nil

	case "L":
		return a.cycleLanguage()

	case "r":
		a.loading = true
		return a, tea.Batch(a.load(true), a.spinner.Tick)
	}

	return a, nil
}

// handleChatKey processes keyboard input while the chat box has focus.
func (a App) handleChatKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "esc":
		a.chatting = false
		a.input.Blur()
		return a, nil

	case "ctrl+c":
		return a, tea.Quit

	case "enter":
		question := strings.TrimSpace(a.input.Value())
		if question == "" {
			a.notice = session.LabelsFor(a.state.Language()).EmptyAsk
			return a, nil
		}
		e, ok := a.find(a.chatKey)
		if !ok {
			a.chatting = false
			a.input.Blur()
			return a, nil
		}
		a.chatting = false
		a.asking = true
		a.input.Blur()
		a.input.SetValue("")
		return a, tea.Batch(a.ask(e, question), a.spinner.Tick)
	}

	var cmd tea.Cmd
	a.input, cmd = a.input.Update(msg)
	return a, cmd
}

func (a App) switchTab(i int) (tea.Model, tea.Cmd) {
	if len(a.categories) == 0 {
		return a, nil
	}
	a.tab = (i + len(a.categories)) % len(a.categories)
	a.state.SetCategory(a.categories[a.tab])
	a.entries = nil
	a.cursor = 0
	a.fetchErr = nil
	a.comparing = false
	a.comparison = nil
	a.compareErr = nil
	a.compared = [2]string{}
	a.loading = true
	return a, tea.Batch(a.load(false), a.spinner.Tick)
}

// cycleLanguage switches output language. Results in the old language are
// dropped and open panels are analyzed again.
func (a App) cycleLanguage() (tea.Model, tea.Cmd) {
	langs := prompt.Languages
	next := langs[(slices.Index(langs, a.state.Language())+1)%len(langs)]
	a.state.SetLanguage(next)

	a.analyses = make(map[string]*insight.Analysis)
	a.failures = make(map[string]error)
	a.pending = make(map[string]bool)
	a.comparing = false
	a.comparison = nil
	a.compareErr = nil

	var cmds []tea.Cmd
	for _, e := range a.entries {
		if a.state.Expanded(e.Key()) {
			cmds = append(cmds, a.requestAnalysis(e))
		}
	}
	return a, tea.Batch(cmds...)
}

// requestAnalysis starts an analysis unless one is done or running.
func (a App) requestAnalysis(e feeds.Entry) tea.Cmd {
	key := e.Key()
	if a.analyses[key] != nil || a.pending[key] {
		return nil
	}
	a.pending[key] = true
	delete(a.failures, key)
	return tea.Batch(a.analyze(e), a.spinner.Tick)
}

func (a App) load(refresh bool) tea.Cmd {
	p, ctx, category := a.pipeline, a.ctx, a.state.Category()
	return func() tea.Msg {
		var entries []feeds.Entry
		var err error
		if refresh {
			entries, err = p.Refresh(ctx, category)
		} else {
			entries, err = p.Articles(ctx, category)
		}
		return ArticlesLoaded{Category: category, Entries: entries, Err: err}
	}
}

func (a App) analyze(e feeds.Entry) tea.Cmd {
	p, ctx, lang := a.pipeline, a.ctx, a.state.Language()
	return func() tea.Msg {
		res, err := p.Analyze(ctx, e, lang)
		return AnalysisDone{Key: e.Key(), Language: lang, Analysis: res, Err: err}
	}
}

func (a App) compare(ea, eb feeds.Entry) tea.Cmd {
	p, ctx, lang := a.pipeline, a.ctx, a.state.Language()
	return func() tea.Msg {
		res, err := p.Compare(ctx, ea, eb, lang)
		return ComparisonDone{A: ea.Key(), B: eb.Key(), Language: lang, Comparison: res, Err: err}
	}
}

func (a App) ask(e feeds.Entry, question string) tea.Cmd {
	p, ctx, lang, state := a.pipeline, a.ctx, a.state.Language(), a.state
	return func() tea.Msg {
		turn, err := p.Ask(ctx, state, e, lang, question)
		return ChatAnswered{Key: e.Key(), Turn: turn, Err: err}
	}
}

func (a App) busy() bool {
	return a.loading || a.comparing || a.asking || len(a.pending) > 0
}

func (a App) current() (feeds.Entry, bool) {
	if a.cursor < 0 || a.cursor >= len(a.entries) {
		return feeds.Entry{}, false
	}
	return a.entries[a.cursor], true
}

func (a App) find(key string) (feeds.Entry, bool) {
	for _, e := range a.entries {
		if e.Key() == key {
			return e, true
		}
	}
	return feeds.Entry{}, false
}

// activity describes what is running, for the status bar.
func (a App) activity() string {
	var what string
	switch {
	case a.loading:
		what = "Loading"
	case a.comparing:
		what = "Comparing"
	case a.asking:
		what = "Asking"
	case len(a.pending) > 0:
		what = "Analyzing"
	default:
		return ""
	}
	return a.spinner.View() + " " + what
}

// View renders the UI.
func (a App) View() string {
	if !a.ready {
		return "Loading..."
	}

	lang := a.state.Language()
	labels := session.LabelsFor(lang)
	page := session.RenderModel(a.state, a.entries, session.Results{
		Categories: a.categories,
		FetchErr:   a.fetchErr,
		Analyses:   a.analyses,
		Failures:   a.failures,
		Now:        time.Now(),
	})

	header := RenderTabs(a.categories, a.tab, a.width-4) + MetaItem.Render(" "+string(lang))

	var detail string
	switch {
	case a.comparison != nil || a.compareErr != nil:
		ea, _ := a.find(a.compared[0])
		eb, _ := a.find(a.compared[1])
		detail = RenderComparison(session.ComparisonPanelFor(ea, eb, a.comparison, a.compareErr, lang), labels, a.width)
	default:
		if e, ok := a.current(); ok {
			for _, c := range page.Cards {
				if c.Key == e.Key() {
					detail = RenderCard(c, labels, a.width)
					break
				}
			}
		}
	}

	var input string
	if a.chatting {
		input = InputBar.Width(a.width).Render(a.input.View())
	}

	notice := a.notice
	if notice == "" {
		notice = page.Notice
	}
	var noticeBar string
	if notice != "" {
		noticeBar = ErrorStyle.Width(a.width).Render(notice)
	}

	used := 2 // header + status bar
	for _, part := range []string{detail, input, noticeBar} {
		if part != "" {
			used += lipgloss.Height(part)
		}
	}
	listHeight := max(3, a.height-used)

	parts := []string{header, RenderStream(page.Articles, a.cursor, a.width, listHeight)}
	for _, part := range []string{detail, input, noticeBar} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	parts = append(parts, RenderStatusBar(a.cursor, len(a.entries), a.width, a.activity(), a.chatting))
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

// Cursor returns the current cursor position (for testing).
func (a App) Cursor() int {
	return a.cursor
}

// Entries returns the current entries (for testing).
func (a App) Entries() []feeds.Entry {
	return a.entries
}
