package editorconsole

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"journalflow/internal/bootstrap/logging"
	domain "journalflow/internal/domain/editorial"
	"journalflow/internal/ports"
	"journalflow/internal/usecase/editorial"
)

const maxShownEvents = 5
const maxAuditLines = 8

// Workflow is the slice of the editorial service the console drives.
type Workflow interface {
	RequireEditor(ctx context.Context, actorID uint64) error
	ListManuscripts(ctx context.Context, filter ports.ManuscriptFilter) ([]domain.Manuscript, error)
	GetManuscript(ctx context.Context, manuscriptID uint64) (editorial.ManuscriptDetail, error)
	Screen(ctx context.Context, input editorial.ScreenInput) (domain.Manuscript, error)
	AssignHandlingEditor(ctx context.Context, input editorial.AssignEditorInput) (domain.Manuscript, error)
}

type EditorOptions struct {
	ActorID         uint64
	StatusFilter    string
	MineOnly        bool
	RefreshInterval time.Duration
}

type editorModel struct {
	ctx             context.Context
	service         Workflow
	actorID         uint64
	statuses        []domain.ManuscriptStatus
	mineOnly        bool
	refreshInterval time.Duration

	items         []domain.Manuscript
	selectedIndex int
	detail        editorial.ManuscriptDetail
	hasDetail     bool
	status        string
	auditLogs     []string
}

type queueLoadedMsg struct {
	items []domain.Manuscript
	err   error
}

type detailLoadedMsg struct {
	manuscriptID uint64
	detail       editorial.ManuscriptDetail
	err          error
}

type tickMsg struct{}

type actionDoneMsg struct {
	action       string
	trackingCode string
	result       string
	err          error
}

// NewEditorModel builds the queue console. An unknown status filter falls back to
// the open editorial statuses.
func NewEditorModel(ctx context.Context, service Workflow, options EditorOptions) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &editorModel{
		ctx:             ctx,
		service:         service,
		actorID:         options.ActorID,
		statuses:        parseStatusFilter(options.StatusFilter),
		mineOnly:        options.MineOnly,
		refreshInterval: interval,
		status:          "loading",
	}
}

func (m *editorModel) Init() tea.Cmd {
	return tea.Batch(m.loadQueueCmd(), m.tickCmd())
}

func (m *editorModel) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadQueueCmd(), m.tickCmd())
	case queueLoadedMsg:
		if msg.err != nil {
			m.status = "refresh failed: " + msg.err.Error()
			return m, nil
		}
		m.items = msg.items
		if len(m.items) == 0 {
			m.selectedIndex = 0
			m.hasDetail = false
			m.status = "queue is empty"
			return m, nil
		}
		if m.selectedIndex >= len(m.items) {
			m.selectedIndex = len(m.items) - 1
		}
		m.status = fmt.Sprintf("refreshed, %d manuscripts", len(m.items))
		return m, m.loadDetailCmd()
	case detailLoadedMsg:
		selected, ok := m.selected()
		if !ok || selected.ID != msg.manuscriptID {
			return m, nil
		}
		if msg.err != nil {
			m.hasDetail = false
			m.status = "detail failed: " + msg.err.Error()
			return m, nil
		}
		m.detail = msg.detail
		m.hasDetail = true
		return m, nil
	case actionDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = fmt.Sprintf("%s done: %s", msg.action, msg.result)
		}
		m.appendAuditLog(msg.action, msg.trackingCode, msg.result, msg.err)
		return m, m.loadQueueCmd()
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "g":
			m.status = "refreshing"
			return m, m.loadQueueCmd()
		case "up", "k":
			if m.selectedIndex > 0 {
				m.selectedIndex--
				return m, m.loadDetailCmd()
			}
			return m, nil
		case "down", "j":
			if m.selectedIndex < len(m.items)-1 {
				m.selectedIndex++
				return m, m.loadDetailCmd()
			}
			return m, nil
		case "p":
			return m, m.proceedCmd()
		case "a":
			return m, m.takeOverCmd()
		}
	}
	return m, nil
}

func (m *editorModel) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	selectedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62"))

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Editorial Queue"))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf(
		"actor=%d statuses=%s mine=%t refresh=%s",
		m.actorID,
		joinStatuses(m.statuses),
		m.mineOnly,
		m.refreshInterval,
	)))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Queue"))
	builder.WriteString("\n")
	if len(m.items) == 0 {
		builder.WriteString(dimStyle.Render("- no manuscripts"))
		builder.WriteString("\n\n")
	} else {
		for index, item := range m.items {
			line := fmt.Sprintf("%s [%s] editor=%s %s", item.TrackingCode, item.Status, editorLabel(item.HandlingEditorID), item.Title)
			if index == m.selectedIndex {
				builder.WriteString(selectedStyle.Render("> " + line))
			} else {
				builder.WriteString("  " + line)
			}
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Detail"))
	builder.WriteString("\n")
	if !m.hasDetail {
		builder.WriteString(dimStyle.Render("- no detail"))
		builder.WriteString("\n\n")
	} else {
		d := m.detail
		builder.WriteString(fmt.Sprintf("Tracking: %s (v%d)\n", d.Manuscript.TrackingCode, d.Manuscript.Version))
		builder.WriteString(fmt.Sprintf("Title: %s\n", d.Manuscript.Title))
		builder.WriteString(fmt.Sprintf("Status: %s\n", d.Manuscript.Status))
		builder.WriteString(fmt.Sprintf("Category: %s\n", d.Manuscript.Category))
		builder.WriteString(fmt.Sprintf("Authors: %s\n", authorNames(d.Authors)))
		builder.WriteString(fmt.Sprintf("Handling editor: %s\n", editorLabel(d.Manuscript.HandlingEditorID)))
		builder.WriteString(fmt.Sprintf("Reviews: completed=%d outstanding=%d complete=%t %s\n",
			d.Tally.Completed, d.Tally.Outstanding, d.Tally.Complete(), recommendationSummary(d.Tally)))

		builder.WriteString("\nRecent Events:\n")
		if len(d.Events) == 0 {
			builder.WriteString("- none\n")
		} else {
			start := len(d.Events) - maxShownEvents
			if start < 0 {
				start = 0
			}
			for _, event := range d.Events[start:] {
				line := fmt.Sprintf("- e%d user=%d %s %s->%s", event.EventID, event.ActorID, event.Action, firstNonEmpty(event.FromStatus, "-"), event.ToStatus)
				if note := firstLine(event.Note); note != "" {
					line += " " + note
				}
				builder.WriteString(line + "\n")
			}
		}
		builder.WriteString("\n")
	}

	builder.WriteString(sectionStyle.Render("Status"))
	builder.WriteString("\n")
	builder.WriteString("- " + firstNonEmpty(m.status, "ready"))
	builder.WriteString("\n\n")

	builder.WriteString(sectionStyle.Render("Actions"))
	builder.WriteString("\n")
	builder.WriteString("- p proceed to screening\n")
	builder.WriteString("- a take over as handling editor\n")
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Audit Log"))
	builder.WriteString("\n")
	if len(m.auditLogs) == 0 {
		builder.WriteString(dimStyle.Render("- no actions"))
		builder.WriteString("\n\n")
	} else {
		for _, line := range m.auditLogs {
			builder.WriteString("- " + line)
			builder.WriteString("\n")
		}
		builder.WriteString("\n")
	}

	builder.WriteString(dimStyle.Render("Keys: up/k down/j move  g refresh  p/a actions  q quit"))
	return builder.String()
}

func (m *editorModel) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *editorModel) loadQueueCmd() tea.Cmd {
	return func() tea.Msg {
		filter := ports.ManuscriptFilter{Statuses: m.statuses}
		if m.mineOnly {
			filter.HandlingEditorID = m.actorID
		}
		items, err := m.service.ListManuscripts(m.ctx, filter)
		if err != nil {
			return queueLoadedMsg{err: err}
		}
		sortQueue(items)
		return queueLoadedMsg{items: items}
	}
}

func (m *editorModel) loadDetailCmd() tea.Cmd {
	selected, ok := m.selected()
	if !ok {
		return nil
	}
	return func() tea.Msg {
		detail, err := m.service.GetManuscript(m.ctx, selected.ID)
		return detailLoadedMsg{manuscriptID: selected.ID, detail: detail, err: err}
	}
}

func (m *editorModel) proceedCmd() tea.Cmd {
	selected, ok := m.selected()
	if !ok {
		m.status = "nothing selected"
		return nil
	}
	m.status = "screening..."
	return func() tea.Msg {
		updated, err := m.service.Screen(m.ctx, editorial.ScreenInput{
			ManuscriptID: selected.ID,
			ActorID:      m.actorID,
			Decision:     string(domain.ScreenProceed),
		})
		if err != nil {
			return actionDoneMsg{action: "proceed", trackingCode: selected.TrackingCode, err: err}
		}
		return actionDoneMsg{action: "proceed", trackingCode: selected.TrackingCode, result: string(updated.Status)}
	}
}

func (m *editorModel) takeOverCmd() tea.Cmd {
	selected, ok := m.selected()
	if !ok {
		m.status = "nothing selected"
		return nil
	}
	if selected.HandlingEditorID != nil && *selected.HandlingEditorID == m.actorID {
		m.status = "already handling " + selected.TrackingCode
		return nil
	}
	m.status = "assigning..."
	return func() tea.Msg {
		updated, err := m.service.AssignHandlingEditor(m.ctx, editorial.AssignEditorInput{
			ManuscriptID: selected.ID,
			ActorID:      m.actorID,
			EditorID:     m.actorID,
		})
		if err != nil {
			return actionDoneMsg{action: "assign", trackingCode: selected.TrackingCode, err: err}
		}
		return actionDoneMsg{action: "assign", trackingCode: selected.TrackingCode, result: string(updated.Status)}
	}
}

func (m *editorModel) selected() (domain.Manuscript, bool) {
	if m.selectedIndex < 0 || m.selectedIndex >= len(m.items) {
		return domain.Manuscript{}, false
	}
	return m.items[m.selectedIndex], true
}

func (m *editorModel) appendAuditLog(action string, trackingCode string, result string, opErr error) {
	outcome := strings.TrimSpace(result)
	if opErr != nil {
		outcome = "error: " + editorial.ResultLabel(opErr)
	}
	if outcome == "" {
		outcome = "ok"
	}

	timestamp := time.Now().UTC().Format(time.RFC3339)
	line := fmt.Sprintf("%s manuscript=%s action=%s result=%s", timestamp, trackingCode, action, outcome)
	m.auditLogs = append([]string{line}, m.auditLogs...)
	if len(m.auditLogs) > maxAuditLines {
		m.auditLogs = m.auditLogs[:maxAuditLines]
	}

	attrs := []slog.Attr{
		slog.Uint64("actor_id", m.actorID),
		slog.String("tracking_code", trackingCode),
		slog.String("action", action),
		slog.String("result", outcome),
	}
	if opErr != nil && !errors.Is(opErr, domain.ErrValidation) {
		attrs = append(attrs, slog.String("detail", opErr.Error()))
	}
	logging.Info(m.ctx, "editor console action", attrs...)
}

func parseStatusFilter(input string) []domain.ManuscriptStatus {
	var out []domain.ManuscriptStatus
	for _, part := range strings.Split(input, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		status, err := domain.ParseManuscriptStatus(part)
		if err != nil {
			continue
		}
		out = append(out, status)
	}
	if len(out) == 0 {
		return []domain.ManuscriptStatus{
			domain.StatusSubmitted,
			domain.StatusScreening,
			domain.StatusReviewing,
			domain.StatusFinalDecision,
		}
	}
	return out
}

// sortQueue puts the oldest submissions first so the queue drains in arrival order.
func sortQueue(items []domain.Manuscript) {
	sort.SliceStable(items, func(i int, j int) bool {
		if items[i].SubmittedAt.Equal(items[j].SubmittedAt) {
			return items[i].ID < items[j].ID
		}
		return items[i].SubmittedAt.Before(items[j].SubmittedAt)
	})
}

func joinStatuses(statuses []domain.ManuscriptStatus) string {
	parts := make([]string, 0, len(statuses))
	for _, s := range statuses {
		parts = append(parts, string(s))
	}
	return strings.Join(parts, ",")
}

func editorLabel(id *uint64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}

func authorNames(authors []domain.AuthorRecord) string {
	if len(authors) == 0 {
		return "-"
	}
	names := make([]string, 0, len(authors))
	for _, a := range authors {
		name := a.Name
		if a.IsPrimary {
			name += "*"
		}
		names = append(names, name)
	}
	return strings.Join(names, ", ")
}

func recommendationSummary(t domain.ReviewTally) string {
	parts := make([]string, 0, len(t.Recommendations))
	for _, rec := range domain.Recommendations() {
		if n := t.Recommendations[rec]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", rec, n))
		}
	}
	return strings.Join(parts, " ")
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		normalized := strings.TrimSpace(value)
		if normalized != "" {
			return normalized
		}
	}
	return ""
}

func firstLine(body string) string {
	for _, raw := range strings.Split(body, "\n") {
		line := strings.TrimSpace(raw)
		if line != "" {
			return line
		}
	}
	return ""
}
