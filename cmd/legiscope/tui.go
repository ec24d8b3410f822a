package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"

	"legiscope/internal/backend"
	"legiscope/internal/export"
	"legiscope/internal/history"
	"legiscope/internal/session"
)

const (
	bootstrapTimeout = 10 * time.Second
	archiveTimeout   = 5 * time.Second
	chatMaxLines     = 14
	logRingSize      = 50
)

type tabID int

const (
	tabChat tabID = iota
	tabHistory
	tabCodes
	tabHelp
	tabCount
)

// legalBackend is what the interface needs from the HTTP client.
type legalBackend interface {
	session.Asker
	session.Catalog
}

type recordSaver interface {
	Save(ctx context.Context, rec history.Record) error
}

type tuiDeps struct {
	client    legalBackend
	archive   recordSaver
	exportDir string
	logger    *zap.Logger
	now       func() time.Time
}

type model struct {
	sess      *session.Session
	client    legalBackend
	archive   recordSaver
	exportDir string
	logger    *zap.Logger
	now       func() time.Time

	ready       bool
	statusLine  string
	logs        []string
	activeTab   tabID
	listCursor  int
	codeCursor  int
	quitConfirm bool

	width  int
	height int

	input    textinput.Model
	filter   textinput.Model
	timeline viewport.Model
	sidebar  viewport.Model
	detail   viewport.Model
	spinner  spinner.Model

	renderer      *glamour.TermRenderer
	rendererWidth int
	detailKey     string

	theme uiTheme
}

type bootstrapDoneMsg struct {
	result session.BootstrapResult
}

type chatDoneMsg struct {
	pending session.Pending
	reply   backend.ChatReply
	err     error
}

type archiveDoneMsg struct {
	recordID string
	err      error
}

type exportDoneMsg struct {
	files export.Files
	err   error
}

func newModel(deps tuiDeps) model {
	logger := deps.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.now
	if now == nil {
		now = time.Now
	}

	input := textinput.New()
	input.Prompt = "❯ "
	input.CharLimit = 4000
	input.Placeholder = "Posez votre question juridique puis Entrée."
	input.Focus()

	filter := textinput.New()
	filter.Prompt = "filtre ❯ "
	filter.CharLimit = 120
	filter.Placeholder = "code civil, travail..."

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	timeline := viewport.New(0, 0)
	timeline.MouseWheelEnabled = true
	timeline.MouseWheelDelta = 4
	sidebar := viewport.New(0, 0)
	detail := viewport.New(0, 0)
	detail.MouseWheelEnabled = true
	detail.MouseWheelDelta = 4

	return model{
		sess:       session.New(deps.client, session.WithLogger(logger.Named("session"))),
		client:     deps.client,
		archive:    deps.archive,
		exportDir:  deps.exportDir,
		logger:     logger,
		now:        now,
		statusLine: "connexion au backend...",
		logs:       []string{},
		activeTab:  tabChat,
		input:      input,
		filter:     filter,
		timeline:   timeline,
		sidebar:    sidebar,
		detail:     detail,
		spinner:    sp,
		theme:      newTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.bootstrapCmd())
}

func (m model) bootstrapCmd() tea.Cmd {
	client := m.client
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
		defer cancel()
		return bootstrapDoneMsg{result: session.Bootstrap(ctx, client)}
	}
}

// chatCmd runs only the network leg; the reply is applied in Update.
func (m model) chatCmd(p session.Pending) tea.Cmd {
	sess := m.sess
	return func() tea.Msg {
		reply, err := sess.Exchange(context.Background(), p)
		return chatDoneMsg{pending: p, reply: reply, err: err}
	}
}

func (m model) archiveCmd(rec history.Record) tea.Cmd {
	if m.archive == nil {
		return nil
	}
	store := m.archive
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), archiveTimeout)
		defer cancel()
		return archiveDoneMsg{recordID: rec.ID, err: store.Save(ctx, rec)}
	}
}

func (m model) exportCmd(rec history.Record) tea.Cmd {
	dir := m.exportDir
	at := m.now()
	return func() tea.Msg {
		files, err := export.Write(dir, rec, at)
		return exportDoneMsg{files: files, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case bootstrapDoneMsg:
		m.sess.ApplyBootstrap(msg.result)
		m.ready = true
		if msg.result.HealthErr != nil {
			m.logError(msg.result.HealthErr)
			m.statusLine = "backend injoignable · les questions seront tentées quand même"
		} else {
			m.statusLine = fmt.Sprintf("prêt · backend %s", m.sess.Connection())
		}
		if msg.result.CodesErr != nil {
			m.appendLog("catalogue indisponible: " + compactSingleLine(msg.result.CodesErr.Error(), 160))
		} else {
			m.appendLog(fmt.Sprintf("%d codes chargés", len(msg.result.Codes)))
		}
		m.renderPanes()
	case chatDoneMsg:
		out := m.sess.Resolve(msg.pending, msg.reply, msg.err)
		if errors.Is(out.Err, session.ErrStale) {
			break
		}
		if !out.OK {
			m.statusLine = "échec de la requête"
			m.appendLog("erreur: " + compactSingleLine(out.ErrText, 180))
		} else {
			m.statusLine = fmt.Sprintf("analyse reçue · %d article(s)", len(out.Record.Articles))
			m.appendLog("analyse " + out.Record.Analysis.Kind.String() + " · " + compactSingleLine(out.Record.OriginalQuestion, 80))
			m.listCursor = 0
			if cmd := m.archiveCmd(out.Record); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}
		m.renderPanes()
	case archiveDoneMsg:
		if msg.err != nil {
			m.logger.Warn("archive save failed", zap.String("record", msg.recordID), zap.Error(msg.err))
			m.appendLog("archivage échoué: " + compactSingleLine(msg.err.Error(), 160))
		} else {
			m.appendLog("analyse archivée")
		}
		m.renderPanes()
	case exportDoneMsg:
		if msg.err != nil {
			m.logError(msg.err)
		} else {
			m.statusLine = "exporté : " + msg.files.HTML
			m.appendLog("export " + msg.files.Markdown)
		}
		m.renderPanes()
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resize()
		m.renderPanes()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)
	case tea.MouseMsg:
		if m.quitConfirm {
			break
		}
		var cmd tea.Cmd
		switch m.activeTab {
		case tabChat:
			m.timeline, cmd = m.timeline.Update(msg)
		case tabHistory:
			m.detail, cmd = m.detail.Update(msg)
		}
		cmds = append(cmds, cmd)
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, tea.Batch(cmds...)
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()
	if key == "ctrl+c" {
		return m, tea.Quit
	}
	if m.quitConfirm {
		switch key {
		case "y", "Y", "o", "O", "enter":
			return m, tea.Quit
		case "n", "N", "esc":
			m.quitConfirm = false
			m.statusLine = "retour au chat"
		}
		return m, nil
	}

	switch key {
	case "tab":
		m.switchTab((m.activeTab + 1) % tabCount)
		return m, nil
	case "shift+tab":
		m.switchTab((m.activeTab + tabCount - 1) % tabCount)
		return m, nil
	case "ctrl+e":
		rec, ok := m.sess.History().Active()
		if !ok {
			rec, ok = m.sess.History().Latest()
		}
		if !ok {
			m.statusLine = "rien à exporter"
			return m, nil
		}
		m.statusLine = "export en cours..."
		return m, m.exportCmd(rec)
	}

	var cmds []tea.Cmd
	switch m.activeTab {
	case tabChat:
		switch key {
		case "esc":
			m.quitConfirm = true
			return m, nil
		case "enter":
			p, ok := m.sess.Begin(m.input.Value())
			if !ok {
				return m, nil
			}
			m.input.SetValue("")
			m.statusLine = "analyse en cours..."
			m.renderPanes()
			m.timeline.GotoBottom()
			return m, m.chatCmd(p)
		case "ctrl+l":
			m.sess.ClearErr()
			return m, nil
		case "pgup", "ctrl+b":
			m.timeline.LineUp(8)
			return m, nil
		case "pgdown", "ctrl+f":
			m.timeline.LineDown(8)
			return m, nil
		case "up":
			if strings.TrimSpace(m.input.Value()) == "" {
				m.timeline.LineUp(4)
				return m, nil
			}
		case "down":
			if strings.TrimSpace(m.input.Value()) == "" {
				m.timeline.LineDown(4)
				return m, nil
			}
		case "home":
			m.timeline.GotoTop()
			return m, nil
		case "end":
			m.timeline.GotoBottom()
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		cmds = append(cmds, cmd)
	case tabHistory:
		nav := m.sess.History()
		switch nav.View() {
		case history.ViewListing:
			switch key {
			case "up", "k":
				m.listCursor = maxInt(0, m.listCursor-1)
			case "down", "j":
				m.listCursor = minInt(nav.Len()-1, m.listCursor+1)
			case "enter":
				if nav.Select(m.listCursor) {
					m.detail.GotoTop()
				}
			case "esc":
				m.switchTab(tabChat)
			}
		case history.ViewDetail:
			switch key {
			case "esc", "backspace":
				nav.Back()
			case "up", "k":
				m.detail.LineUp(2)
			case "down", "j":
				m.detail.LineDown(2)
			case "pgup":
				m.detail.LineUp(10)
			case "pgdown":
				m.detail.LineDown(10)
			}
		default:
			if key == "esc" {
				m.switchTab(tabChat)
			}
		}
		m.renderPanes()
	case tabCodes:
		codes := m.filteredCodes()
		switch key {
		case "up":
			m.codeCursor = maxInt(0, m.codeCursor-1)
		case "down":
			m.codeCursor = clampInt(m.codeCursor+1, 0, maxInt(0, len(codes)-1))
		case "enter":
			if m.codeCursor < len(codes) {
				m.sess.Scope().Select(codes[m.codeCursor])
				m.statusLine = "périmètre : " + m.scopeLabel()
			}
		case "ctrl+x":
			m.sess.Scope().Clear()
			m.statusLine = "périmètre : " + m.scopeLabel()
		case "esc":
			m.switchTab(tabChat)
		default:
			var cmd tea.Cmd
			m.filter, cmd = m.filter.Update(msg)
			cmds = append(cmds, cmd)
			m.codeCursor = clampInt(m.codeCursor, 0, maxInt(0, len(m.filteredCodes())-1))
		}
	case tabHelp:
		if key == "esc" {
			m.switchTab(tabChat)
		}
	}
	return m, tea.Batch(cmds...)
}

func (m *model) switchTab(tab tabID) {
	m.activeTab = tab
	m.input.Blur()
	m.filter.Blur()
	switch tab {
	case tabChat:
		m.input.Focus()
	case tabCodes:
		m.filter.Focus()
	}
	m.renderPanes()
}

func (m *model) filteredCodes() []backend.Code {
	return m.sess.Scope().Filter(m.filter.Value())
}

func (m *model) scopeLabel() string {
	if code, ok := m.sess.Scope().Selected(); ok {
		return code.Label
	}
	return "Tous les codes"
}

func (m *model) appendLog(line string) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return
	}
	m.logs = append(m.logs, fmt.Sprintf("%s %s", m.now().Format("15:04:05"), compactSingleLine(trimmed, 220)))
	if len(m.logs) > logRingSize {
		m.logs = m.logs[len(m.logs)-logRingSize:]
	}
}

func (m *model) logError(err error) {
	if err == nil {
		return
	}
	m.logger.Warn("tui error", zap.Error(err))
	m.appendLog("erreur: " + err.Error())
	m.statusLine = "erreur: " + compactSingleLine(err.Error(), 160)
}
