package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/csheth/mdtranslate/internal/document"
	"github.com/csheth/mdtranslate/internal/session"
)

func (m *model) View() string {
	switch m.stage {
	case stageUpload:
		return m.viewUpload()
	case stageHistory:
		return m.viewHistory()
	case stageSettings:
		return m.viewSettings()
	case stageExport:
		return m.viewExport()
	default:
		return m.viewWorkspace()
	}
}

func (m *model) viewUpload() string {
	var b strings.Builder
	b.WriteString(sectionHeaderStyle.Render("Open a document"))
	b.WriteRune('\n')
	b.WriteString(m.pathInput.View())
	b.WriteRune('\n')
	b.WriteString(helperStyle.Render("Markdown, text and PDF files or an http(s) URL. Enter opens, Esc goes back."))
	return joinNonEmpty([]string{m.headerView(), boxStyle.Render(b.String()), m.messageView()})
}

func (m *model) viewWorkspace() string {
	return lipgloss.JoinVertical(
		lipgloss.Left,
		m.headerView(),
		m.renderWorkspace(),
		m.progressView(),
		m.messageView(),
		m.help.View(m.keys),
	)
}

func (m *model) viewHistory() string {
	hints := helperStyle.Render("Enter loads • x deletes • / filters • Esc back")
	return joinNonEmpty([]string{m.history.View(), hints, m.messageView()})
}

func (m *model) viewSettings() string {
	body := joinNonEmpty([]string{
		sectionHeaderStyle.Render("Settings"),
		m.settings.View(),
		helperStyle.Render("Tab moves • Space toggles auto-save • Enter saves • Esc cancels"),
	})
	return joinNonEmpty([]string{m.headerView(), boxStyle.Render(body), m.messageView()})
}

func (m *model) viewExport() string {
	rows := []string{sectionHeaderStyle.Render("Export")}
	for i, kind := range document.Kinds {
		label := fmt.Sprintf("  %-11s → %s", kind, kind.FileName())
		if i == m.exportCursor {
			label = selectedRowStyle.Render("▸ " + strings.TrimPrefix(label, "  "))
		}
		rows = append(rows, label)
	}
	rows = append(rows, "", helperStyle.Render(wordwrap.String("Enter writes the file to "+m.exportDir()+" • y copies to the clipboard • Esc cancels", 60)))
	return joinNonEmpty([]string{m.headerView(), boxStyle.Render(strings.Join(rows, "\n")), m.messageView()})
}

func (m *model) headerView() string {
	from, to := m.direction.Labels()
	meta := []string{fmt.Sprintf("%s → %s", from, to), string(m.layout.Mode())}
	if m.title != "" {
		meta = append(meta, m.title)
	}
	if m.snapshot.DocumentID != "" {
		meta = append(meta, m.snapshot.DocumentID)
	}
	return lipgloss.JoinHorizontal(
		lipgloss.Top,
		titleStyle.Render("mdtranslate"),
		"  ",
		statusBarStyle.Render(strings.Join(meta, "  •  ")),
	)
}

func (m *model) progressView() string {
	p := m.progress()
	if p.Total == 0 {
		return taglineStyle.Render(heroTagline)
	}
	percent := float64(p.Completed) / float64(p.Total)
	status := fmt.Sprintf("%d/%d chunks", p.Completed, p.Total)
	switch {
	case m.snapshot.IsTranslating:
		status = m.spinner.View() + " " + status
	case m.snapshot.Outcome == session.OutcomeCompleted:
		status = successStyle.Render(status + " done")
	case m.snapshot.Outcome == session.OutcomeInterrupted:
		status = errorStyle.Render(status + " interrupted")
	}
	return m.meter.ViewAs(percent) + "  " + status
}

func (m *model) messageView() string {
	if m.errMessage != "" {
		return errorStyle.Render(m.errMessage)
	}
	message := m.info
	if m.busy() && !m.snapshot.IsTranslating {
		message = m.spinner.View() + " " + message
	}
	return helperStyle.Render(message)
}

func (m *model) exportDir() string {
	if m.config.ExportDir == "" {
		return "."
	}
	return m.config.ExportDir
}

func joinNonEmpty(parts []string) string {
	filtered := make([]string, 0, len(parts))
	for _, part := range parts {
		if strings.TrimSpace(part) == "" {
			continue
		}
		filtered = append(filtered, part)
	}
	return strings.Join(filtered, "\n\n")
}
