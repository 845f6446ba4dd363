package view

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/clubledger/internal/repair"
)

const planTimeout = 30 * time.Second

type OrphanModel struct {
	CommonModel
	toolkit *repair.Toolkit

	queue   []repair.Change
	current *repair.Change

	examined   int
	totalCount int
	applied    int
	skipped    int

	status  string
	loading bool
}

func NewOrphanModel(toolkit *repair.Toolkit) OrphanModel {
	return OrphanModel{
		toolkit: toolkit,
		loading: true,
	}
}

func (m OrphanModel) Title() string { return "Review Orphans" }
func (m OrphanModel) ShortHelp() string {
	return "a/enter: link | s: skip | Esc: back"
}

func (m OrphanModel) Init() tea.Cmd {
	return m.loadPlanCmd()
}

func (m OrphanModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEsc {
			return m, Back
		}

		if m.loading || m.current == nil {
			return m, nil
		}

		switch msg.String() {
		case "a", "enter":
			m.loading = true
			return m, m.applyCmd(*m.current)
		case "s":
			m.skipped++
			m.status = fmt.Sprintf("Skipped %s", m.current.ExternalID)
			m.nextChange()
		}

	case loadPlanMsg:
		m.loading = false
		if msg.err != nil {
			m.status = fmt.Sprintf("Error planning links: %v", msg.err)
			break
		}

		m.examined = msg.report.Examined
		m.queue = msg.report.Changes
		m.totalCount = len(m.queue)
		m.nextChange()

	case applyResultMsg:
		m.loading = false

		switch {
		case msg.err != nil:
			m.status = fmt.Sprintf("Error linking %s: %v", msg.change.ExternalID, msg.err)
		case msg.applied:
			m.applied++
			m.status = fmt.Sprintf("Linked %s", msg.change.ExternalID)
		default:
			m.status = fmt.Sprintf("%s was already linked", msg.change.ExternalID)
		}

		m.nextChange()
	}

	return m, nil
}

func (m *OrphanModel) nextChange() {
	if len(m.queue) == 0 {
		m.current = nil
		return
	}

	m.current = &m.queue[0]
	m.queue = m.queue[1:]
}

func (m OrphanModel) View() string {
	if m.loading && m.current == nil {
		return lipgloss.NewStyle().Padding(2).Render("Resolving orphaned records...")
	}

	if m.current == nil {
		summary := fmt.Sprintf(
			"Examined %d orphaned records, %d resolvable.\nLinked %d, skipped %d.\n\nEsc: back",
			m.examined, m.totalCount, m.applied, m.skipped,
		)

		if m.status != "" {
			summary = m.status + "\n\n" + summary
		}

		return lipgloss.NewStyle().Padding(2).Render(summary)
	}

	reviewed := m.totalCount - len(m.queue)

	card := lipgloss.NewStyle().
		Padding(1, 2).
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("63")).
		Width(60).
		Render(fmt.Sprintf(
			"Record:  %s\nField:   %s\nMember:  %s",
			m.current.ExternalID,
			m.current.Field,
			activeStyle(m.current.To),
		))

	content := lipgloss.JoinVertical(lipgloss.Left,
		fmt.Sprintf("Reviewing %d/%d", reviewed, m.totalCount),
		"",
		card,
		"",
		lipgloss.NewStyle().Faint(true).Render(m.ShortHelp()),
	)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

// Messages

type loadPlanMsg struct {
	report *repair.Report
	err    error
}

func (m OrphanModel) loadPlanCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), planTimeout)
		defer cancel()

		report, err := m.toolkit.LinkOrphans(ctx, repair.Options{DryRun: true})

		return loadPlanMsg{report: report, err: err}
	}
}

type applyResultMsg struct {
	change  repair.Change
	applied bool
	err     error
}

func (m OrphanModel) applyCmd(c repair.Change) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		ok, err := m.toolkit.ApplyLink(ctx, c)

		return applyResultMsg{change: c, applied: ok, err: err}
	}
}
