package view

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
)

const browseLimit = 500

var dateLabels = []string{"All Time", "This Month", "Last Month"}

type LedgerModel struct {
	CommonModel
	ledgerService *ledger.Service

	table   table.Model
	records []*ledger.Record

	// Filter cycling
	typeFilterIdx   int
	statusFilterIdx int
	dateFilterIdx   int
	orphansOnly     bool

	filter  ledger.ListFilter
	detail  bool
	loading bool
	err     error
	now     func() time.Time
}

func NewLedgerModel(ledgerSvc *ledger.Service) LedgerModel {
	columns := []table.Column{
		{Title: "Created", Width: 12},
		{Title: "External ID", Width: 30},
		{Title: "Type", Width: 18},
		{Title: "Status", Width: 11},
		{Title: "Amount", Width: 14},
		{Title: "Member", Width: 36},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return LedgerModel{
		ledgerService: ledgerSvc,
		table:         t,
		filter:        ledger.ListFilter{Limit: browseLimit},
		loading:       true,
		now:           time.Now,
	}
}

func (m LedgerModel) Title() string { return "Ledger" }
func (m LedgerModel) ShortHelp() string {
	return "Esc: back | enter: details | t: type | s: status | d: date | o: orphans | r: refresh"
}

func (m LedgerModel) Init() tea.Cmd {
	return m.loadRecordsCmd()
}

func (m LedgerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loadLedgerMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.records = msg.records
		m.refreshTable()

		return m, nil

	case tea.WindowSizeMsg:
		m.Width, m.Height = msg.Width, msg.Height
		m.table.SetHeight(msg.Height - 10)

		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.detail {
				m.detail = false
				return m, nil
			}

			return m, Back
		case "enter":
			m.detail = !m.detail
			return m, nil
		case "r":
			m.loading = true
			return m, m.loadRecordsCmd()
		case "t":
			m.typeFilterIdx = (m.typeFilterIdx + 1) % (len(ledger.Types) + 1)
			return m.reload()
		case "s":
			m.statusFilterIdx = (m.statusFilterIdx + 1) % (len(ledger.Statuses) + 1)
			return m.reload()
		case "d":
			m.dateFilterIdx = (m.dateFilterIdx + 1) % len(dateLabels)
			return m.reload()
		case "o":
			m.orphansOnly = !m.orphansOnly
			return m.reload()
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m LedgerModel) reload() (tea.Model, tea.Cmd) {
	m.applyFilter()
	m.loading = true

	return m, m.loadRecordsCmd()
}

func (m LedgerModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading ledger...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v\n\n[r] retry | Esc: back", m.err))
	}

	typeLabel, statusLabel, orphanLabel := "All", "All", "No"
	if m.filter.Type != nil {
		typeLabel = string(*m.filter.Type)
	}

	if m.filter.Status != nil {
		statusLabel = string(*m.filter.Status)
	}

	if m.orphansOnly {
		orphanLabel = "Yes"
	}

	header := fmt.Sprintf(
		"Filter: [t] Type: %s | [s] Status: %s | [d] Date: %s | [o] Orphans only: %s",
		activeStyle(typeLabel),
		activeStyle(statusLabel),
		activeStyle(dateLabels[m.dateFilterIdx]),
		activeStyle(orphanLabel),
	)

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
		lipgloss.NewStyle().Faint(true).Render(fmt.Sprintf("%d records | %s", len(m.records), m.ShortHelp())),
	)

	if m.detail {
		if rec := m.selected(); rec != nil {
			panel := lipgloss.NewStyle().
				Padding(1, 2).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("63")).
				Width(48).
				Render(recordDetail(rec))

			content = lipgloss.JoinHorizontal(lipgloss.Top, content, panel)
		}
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m LedgerModel) selected() *ledger.Record {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.records) {
		return nil
	}

	return m.records[idx]
}

func recordDetail(r *ledger.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", r.ExternalID)
	fmt.Fprintf(&b, "Type:      %s\n", r.Type)
	fmt.Fprintf(&b, "Status:    %s\n", r.Status)
	fmt.Fprintf(&b, "Amount:    %s\n", FormatAmount(r.Amount, r.Currency))

	if r.AmountRefunded > 0 {
		fmt.Fprintf(&b, "Refunded:  %s\n", FormatAmount(r.AmountRefunded, r.Currency))
	}

	if r.ExternalParentID != "" {
		fmt.Fprintf(&b, "Parent:    %s\n", r.ExternalParentID)
	}

	if r.CurrentPeriodStart != nil || r.CurrentPeriodEnd != nil {
		fmt.Fprintf(&b, "Period:    %s .. %s\n", FormatDate(r.CurrentPeriodStart), FormatDate(r.CurrentPeriodEnd))
	}

	if r.CanceledAt != nil {
		fmt.Fprintf(&b, "Canceled:  %s\n", FormatDate(r.CanceledAt))
	}

	if !r.Linked() {
		b.WriteString("\nNot linked to a member\n")
	}

	if len(r.Metadata) > 0 {
		b.WriteString("\nMetadata:\n")

		for _, k := range slices.Sorted(maps.Keys(r.Metadata)) {
			fmt.Fprintf(&b, "  %s: %v\n", k, r.Metadata[k])
		}
	}

	return b.String()
}

func (m *LedgerModel) applyFilter() {
	m.filter.Type = nil
	if m.typeFilterIdx > 0 {
		m.filter.Type = new(ledger.Types[m.typeFilterIdx-1])
	}

	m.filter.Status = nil
	if m.statusFilterIdx > 0 {
		m.filter.Status = new(ledger.Statuses[m.statusFilterIdx-1])
	}

	m.filter.OrphanedOnly = m.orphansOnly

	now := m.now()

	switch m.dateFilterIdx {
	case 1:
		s := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		e := s.AddDate(0, 1, 0).Add(-time.Nanosecond)
		m.filter.CreatedFrom = &s
		m.filter.CreatedUntil = &e
	case 2:
		s := time.Date(now.Year(), now.Month()-1, 1, 0, 0, 0, 0, now.Location())
		e := s.AddDate(0, 1, 0).Add(-time.Nanosecond)
		m.filter.CreatedFrom = &s
		m.filter.CreatedUntil = &e
	default:
		m.filter.CreatedFrom = nil
		m.filter.CreatedUntil = nil
	}
}

func (m *LedgerModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.records))
	for _, r := range m.records {
		memberID := "-"
		if r.MemberID != nil {
			memberID = r.MemberID.String()
		}

		rows = append(rows, table.Row{
			FormatDate(r.GatewayCreatedAt),
			r.ExternalID,
			string(r.Type),
			string(r.Status),
			FormatAmount(r.Amount, r.Currency),
			memberID,
		})
	}

	m.table.SetRows(rows)
}

// Messages

type loadLedgerMsg struct {
	records []*ledger.Record
	err     error
}

func (m LedgerModel) loadRecordsCmd() tea.Cmd {
	filter := m.filter

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		records, err := m.ledgerService.List(ctx, filter)

		return loadLedgerMsg{records: records, err: err}
	}
}
