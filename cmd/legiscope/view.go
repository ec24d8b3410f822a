package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"legiscope/internal/export"
	"legiscope/internal/history"
	"legiscope/internal/session"
	"legiscope/internal/transcript"
)

type uiTheme struct {
	root        lipgloss.Style
	header      lipgloss.Style
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	panel       lipgloss.Style
	panelTitle  lipgloss.Style
	footer      lipgloss.Style
	status      lipgloss.Style
	errorStatus lipgloss.Style
	banner      lipgloss.Style
	inputPanel  lipgloss.Style
	author      map[transcript.Author]lipgloss.Style
	helpText    lipgloss.Style
	pick        lipgloss.Style
	selected    lipgloss.Style
	modalFrame  lipgloss.Style
	accent      lipgloss.Style
	connection  map[session.Connection]lipgloss.Style
}

func newTheme() uiTheme {
	pink := lipgloss.Color("#ff71ce")
	blue := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	amber := lipgloss.Color("#ffd166")
	bg := lipgloss.Color("#120924")
	panelBg := lipgloss.Color("#1b0f35")
	text := lipgloss.Color("#f3f3ff")
	muted := lipgloss.Color("#9ca3d8")

	return uiTheme{
		root: lipgloss.NewStyle().
			Background(bg).
			Foreground(text).
			Padding(0, 1),
		header: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(text).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		tabActive: lipgloss.NewStyle().
			Background(pink).
			Foreground(lipgloss.Color("#22062f")).
			Bold(true).
			Padding(0, 1),
		tabInactive: lipgloss.NewStyle().
			Background(lipgloss.Color("#2a184a")).
			Foreground(muted).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(blue).
			Padding(0, 1),
		panelTitle: lipgloss.NewStyle().
			Foreground(mint).
			Bold(true),
		footer: lipgloss.NewStyle().
			Background(panelBg).
			Foreground(muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(pink).
			Padding(0, 1),
		status:      lipgloss.NewStyle().Foreground(blue).Bold(true),
		errorStatus: lipgloss.NewStyle().Foreground(pink).Bold(true),
		banner: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#22062f")).
			Background(pink).
			Bold(true).
			Padding(0, 1),
		inputPanel: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mint).
			Padding(0, 1),
		author: map[transcript.Author]lipgloss.Style{
			transcript.AuthorUser:      lipgloss.NewStyle().Foreground(mint).Bold(true),
			transcript.AuthorAssistant: lipgloss.NewStyle().Foreground(pink).Bold(true),
		},
		helpText: lipgloss.NewStyle().Foreground(muted),
		pick:     lipgloss.NewStyle().Foreground(pink).Bold(true),
		selected: lipgloss.NewStyle().Foreground(mint).Bold(true),
		modalFrame: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.ThickBorder()).
			BorderForeground(blue).
			Padding(1, 2),
		accent: lipgloss.NewStyle().Foreground(mint).Bold(true),
		connection: map[session.Connection]lipgloss.Style{
			session.ConnUnknown:     lipgloss.NewStyle().Foreground(muted),
			session.ConnOnline:      lipgloss.NewStyle().Foreground(mint).Bold(true),
			session.ConnOffline:     lipgloss.NewStyle().Foreground(amber).Bold(true),
			session.ConnUnreachable: lipgloss.NewStyle().Foreground(pink).Bold(true),
		},
	}
}

func (m model) View() string {
	var out string
	if m.quitConfirm {
		out = m.renderQuitModal()
	} else {
		out = lipgloss.JoinVertical(lipgloss.Left,
			m.renderHeader(),
			m.renderContent(),
			m.renderInput(),
			m.renderFooter(),
		)
	}
	return m.theme.root.Render(out)
}

func (m *model) renderHeader() string {
	tabs := []struct {
		id    tabID
		label string
	}{
		{tabChat, "Chat"},
		{tabHistory, fmt.Sprintf("Historique (%d)", m.sess.History().Len())},
		{tabCodes, "Codes"},
		{tabHelp, "Aide"},
	}
	segments := make([]string, 0, len(tabs)+1)
	for _, tab := range tabs {
		style := m.theme.tabInactive
		if tab.id == m.activeTab {
			style = m.theme.tabActive
		}
		segments = append(segments, style.Render(tab.label))
	}
	conn := m.sess.Connection()
	meta := fmt.Sprintf(" Backend: %s · %d codes · Périmètre: %s",
		m.theme.connection[conn].Render(conn.String()),
		len(m.sess.Scope().Catalog()),
		m.scopeLabel(),
	)
	segments = append(segments, m.theme.helpText.Render(meta))
	joined := lipgloss.JoinHorizontal(lipgloss.Left, segments...)
	return m.theme.header.Width(maxInt(20, m.width-4)).Render(joined)
}

func (m *model) renderContent() string {
	contentHeight := maxInt(8, m.height-12)
	contentWidth := maxInt(40, m.width-4)

	switch m.activeTab {
	case tabChat:
		leftWidth, rightWidth := chatPanelWidths(contentWidth)
		left := m.theme.panel.Width(leftWidth).Height(contentHeight).Render(
			m.theme.panelTitle.Render("Conversation") + "\n" + m.timeline.View(),
		)
		right := m.theme.panel.Width(rightWidth).Height(contentHeight).Render(
			m.theme.panelTitle.Render("Session") + "\n" + m.sidebar.View(),
		)
		return lipgloss.JoinHorizontal(lipgloss.Top, left, right)
	case tabHistory:
		panel := m.theme.panel.Width(contentWidth).Height(contentHeight)
		nav := m.sess.History()
		switch nav.View() {
		case history.ViewDetail:
			rec, _ := nav.Active()
			title := "Analyse · " + compactSingleLine(rec.OriginalQuestion, maxInt(20, contentWidth-30))
			return panel.Render(m.theme.panelTitle.Render(title) + "\n" + m.detail.View())
		case history.ViewListing:
			return panel.Render(m.theme.panelTitle.Render("Historique de la session") + "\n" + m.renderHistoryList())
		default:
			return panel.Render(m.theme.panelTitle.Render("Historique de la session") + "\n" +
				m.theme.helpText.Render("Aucune analyse pour l'instant. Posez une question dans l'onglet Chat."))
		}
	case tabCodes:
		panel := m.theme.panel.Width(contentWidth).Height(contentHeight)
		return panel.Render(m.theme.panelTitle.Render("Codes juridiques") + "\n" + m.renderCodes(contentHeight-3))
	case tabHelp:
		panel := m.theme.panel.Width(contentWidth).Height(contentHeight)
		return panel.Render(m.theme.panelTitle.Render("Aide") + "\n" + m.renderHelp())
	default:
		return ""
	}
}

func (m *model) renderInput() string {
	contentWidth := maxInt(40, m.width-4)
	if m.activeTab != tabChat {
		return m.theme.inputPanel.Width(contentWidth).Render(m.theme.helpText.Render("Saisie disponible dans l'onglet Chat. Tab pour y revenir."))
	}
	inputView := m.input.View()
	if m.sess.Busy() {
		inputView = m.spinner.View() + " analyse en cours... " + inputView
	}
	if errText := m.sess.Err(); errText != "" {
		inputView = m.theme.banner.Render(compactSingleLine(errText, maxInt(20, contentWidth-8))) + "\n" + inputView
	}
	return m.theme.inputPanel.Width(contentWidth).Render(inputView)
}

func (m *model) renderFooter() string {
	contentWidth := maxInt(40, m.width-4)
	statusStyle := m.theme.status
	lower := strings.ToLower(m.statusLine)
	if strings.Contains(lower, "échec") || strings.Contains(lower, "erreur") || strings.Contains(lower, "injoignable") {
		statusStyle = m.theme.errorStatus
	}
	line := statusStyle.Render(compactSingleLine(m.statusLine, 180))
	var hints string
	switch m.activeTab {
	case tabHistory:
		hints = "Touches : ↑/↓ choisir · Entrée ouvrir · Échap/Retour liste · Ctrl+E exporter · Tab onglet suivant"
	case tabCodes:
		hints = "Touches : tapez pour filtrer · ↑/↓ choisir · Entrée (dé)sélectionner · Ctrl+X tous les codes · Échap chat"
	default:
		hints = "Touches : Entrée envoyer · PgUp/PgDn défiler · Ctrl+L masquer l'erreur · Ctrl+E exporter · Échap quitter · Ctrl+C"
	}
	return m.theme.footer.Width(contentWidth).Render(line + "\n" + m.theme.helpText.Render(hints))
}

func (m *model) renderQuitModal() string {
	canvasWidth := maxInt(40, m.width-4)
	canvasHeight := maxInt(12, m.height-4)
	modalWidth := clampInt(int(float64(canvasWidth)*0.56), 32, 78)
	if modalWidth > canvasWidth-2 {
		modalWidth = canvasWidth - 2
	}

	accent := m.theme.accent.Render(strings.Repeat("=", 32))
	body := strings.Join([]string{
		m.theme.errorStatus.Render("QUITTER LEGISCOPE ?"),
		"",
		accent,
		m.theme.helpText.Render("L'historique de la session ne sera pas conservé."),
		m.theme.helpText.Render("Utilisez Ctrl+E pour exporter une analyse avant de partir."),
		accent,
		"",
		m.theme.pick.Render("[O / Entrée] Quitter") + "    " + m.theme.helpText.Render("[N / Échap] Revenir"),
	}, "\n")
	panel := m.theme.modalFrame.Width(modalWidth).Render(body)
	return lipgloss.Place(
		canvasWidth,
		canvasHeight,
		lipgloss.Center,
		lipgloss.Center,
		panel,
		lipgloss.WithWhitespaceBackground(lipgloss.Color("#120924")),
	)
}

func chatPanelWidths(contentWidth int) (left, right int) {
	left = int(float64(contentWidth) * 0.7)
	right = contentWidth - left - 1
	if right < 28 {
		right = 28
		left = contentWidth - right - 1
	}
	return left, right
}

func (m *model) resize() {
	contentWidth := maxInt(40, m.width-4)
	m.input.Width = maxInt(20, contentWidth-6)
	m.filter.Width = maxInt(20, contentWidth-16)
}

// renderPanes refreshes every viewport from session state.
func (m *model) renderPanes() {
	contentHeight := maxInt(8, m.height-12)
	contentWidth := maxInt(40, m.width-4)
	leftWidth, rightWidth := chatPanelWidths(contentWidth)

	atBottom := m.timeline.AtBottom()
	m.timeline.Width = maxInt(20, leftWidth-4)
	m.timeline.Height = maxInt(5, contentHeight-3)
	m.timeline.SetContent(m.renderTimeline())
	if atBottom {
		m.timeline.GotoBottom()
	}

	m.sidebar.Width = maxInt(20, rightWidth-4)
	m.sidebar.Height = maxInt(5, contentHeight-3)
	m.sidebar.SetContent(m.renderSidebar())
	m.sidebar.GotoBottom()

	m.detail.Width = maxInt(20, contentWidth-4)
	m.detail.Height = maxInt(5, contentHeight-3)
	if rec, ok := m.sess.History().Active(); ok {
		key := fmt.Sprintf("%s/%d", rec.ID, m.detail.Width)
		if key != m.detailKey {
			m.detail.SetContent(m.renderDetail(rec))
			m.detail.GotoTop()
			m.detailKey = key
		}
	}
}

func (m *model) renderTimeline() string {
	messages := m.sess.Transcript().Messages()
	if len(messages) == 0 {
		return m.theme.helpText.Render("Aucun message. Posez une question pour lancer l'analyse.")
	}
	width := maxInt(24, m.timeline.Width-2)
	var b strings.Builder
	for _, msg := range messages {
		label := "vous"
		if msg.Author == transcript.AuthorAssistant {
			label = "assistant"
		}
		b.WriteString(m.theme.author[msg.Author].Render(fmt.Sprintf("%s [%s]", msg.SentAt.Format("15:04:05"), label)))
		b.WriteString("\n")
		b.WriteString(wrapText(compactMessage(msg.Text, chatMaxLines), width))
		b.WriteString("\n\n")
	}
	if m.sess.Busy() {
		b.WriteString(m.theme.helpText.Render(m.spinner.View() + " l'assistant rédige son analyse..."))
	}
	return strings.TrimSpace(b.String())
}

func (m *model) renderSidebar() string {
	lines := []string{
		"État : " + m.sess.Connection().String(),
		"Requête : " + m.sess.State().String(),
		"Périmètre : " + m.scopeLabel(),
		fmt.Sprintf("Analyses : %d", m.sess.History().Len()),
	}
	if rec, ok := m.sess.History().Latest(); ok {
		lines = append(lines, "Dernière : "+shortTime(rec.Timestamp)+" ("+string(rec.Mode)+")")
	}
	lines = append(lines, "", m.theme.panelTitle.Render("Journal"))
	if len(m.logs) == 0 {
		lines = append(lines, m.theme.helpText.Render("(vide)"))
	}
	width := maxInt(16, m.sidebar.Width-1)
	for _, line := range m.logs {
		lines = append(lines, m.theme.helpText.Render(wrapText(line, width)))
	}
	return strings.Join(lines, "\n")
}

func (m *model) renderHistoryList() string {
	records := m.sess.History().Records()
	width := maxInt(30, m.width-12)
	lines := make([]string, 0, len(records))
	for i, rec := range records {
		row := fmt.Sprintf("%2d. %s  %s  [%s]", i+1, shortTime(rec.Timestamp), rec.OriginalQuestion, rec.ScopeLabel())
		row = compactSingleLine(row, width)
		if i == m.listCursor {
			lines = append(lines, m.theme.pick.Render("▸ "+row))
			continue
		}
		lines = append(lines, "  "+row)
	}
	return strings.Join(lines, "\n")
}

// renderDetail renders the export report through glamour; a renderer
// failure falls back to the raw Markdown.
func (m *model) renderDetail(rec history.Record) string {
	doc := export.Markdown(rec)
	if m.renderer == nil || m.rendererWidth != m.detail.Width {
		renderer, err := glamour.NewTermRenderer(
			glamour.WithStylePath("dark"),
			glamour.WithWordWrap(maxInt(20, m.detail.Width-2)),
		)
		if err != nil {
			m.appendLog("rendu indisponible: " + compactSingleLine(err.Error(), 120))
			return wrapText(doc, m.detail.Width)
		}
		m.renderer = renderer
		m.rendererWidth = m.detail.Width
	}
	rendered, err := m.renderer.Render(doc)
	if err != nil {
		return wrapText(doc, m.detail.Width)
	}
	return strings.TrimRight(rendered, "\n")
}

func (m *model) renderCodes(height int) string {
	codes := m.filteredCodes()
	lines := []string{m.filter.View(), ""}
	if len(m.sess.Scope().Catalog()) == 0 {
		lines = append(lines, m.theme.helpText.Render("Catalogue indisponible : les questions portent sur tous les codes."))
		return strings.Join(lines, "\n")
	}
	if len(codes) == 0 {
		lines = append(lines, m.theme.helpText.Render("Aucun code ne correspond au filtre."))
		return strings.Join(lines, "\n")
	}

	// Keep the cursor visible in short terminals.
	visible := maxInt(3, height-3)
	start := 0
	if m.codeCursor >= visible {
		start = m.codeCursor - visible + 1
	}
	end := minInt(len(codes), start+visible)
	for i := start; i < end; i++ {
		code := codes[i]
		mark := "[ ]"
		style := m.theme.helpText
		if m.sess.Scope().IsSelected(code) {
			mark = "[x]"
			style = m.theme.selected
		}
		row := fmt.Sprintf("%s %s", mark, code.Label)
		if i == m.codeCursor {
			lines = append(lines, m.theme.pick.Render("▸ "+row))
			continue
		}
		lines = append(lines, style.Render("  "+row))
	}
	return strings.Join(lines, "\n")
}

func (m *model) renderHelp() string {
	lines := []string{
		"Touches",
		"- Tab / Maj+Tab : changer d'onglet",
		"- Entrée (Chat) : envoyer la question ; ignorée pendant une analyse en cours",
		"- PgUp/PgDn, ↑/↓ (saisie vide) : faire défiler la conversation",
		"- Ctrl+L : masquer le bandeau d'erreur",
		"- Ctrl+E : exporter l'analyse affichée (ou la plus récente) en Markdown et HTML",
		"- Échap (Chat) : quitter ; ailleurs : retour",
		"- Ctrl+C : quitter immédiatement",
		"",
		"Historique",
		"- Chaque analyse réussie s'ouvre directement en détail",
		"- Échap ou Retour arrière : revenir à la liste ; Entrée : rouvrir une analyse",
		"- Les réponses non structurées apparaissent sous « Réponse brute »",
		"",
		"Codes",
		"- Tapez pour filtrer le catalogue",
		"- Entrée sélectionne un code ; le resélectionner revient à « Tous les codes »",
		"- Ctrl+X : revenir à tous les codes",
	}
	if m.exportDir != "" {
		lines = append(lines, "", "Exports : "+m.exportDir)
	}
	return m.theme.helpText.Render(strings.Join(lines, "\n"))
}
