package main

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/MrJamesThe3rd/clubledger/cmd/console/internal/view"
	"github.com/MrJamesThe3rd/clubledger/internal/config"
	"github.com/MrJamesThe3rd/clubledger/internal/database"
	"github.com/MrJamesThe3rd/clubledger/internal/ledger"
	ledgerStore "github.com/MrJamesThe3rd/clubledger/internal/ledger/store"
	"github.com/MrJamesThe3rd/clubledger/internal/logging"
	"github.com/MrJamesThe3rd/clubledger/internal/member"
	memberStore "github.com/MrJamesThe3rd/clubledger/internal/member/store"
	"github.com/MrJamesThe3rd/clubledger/internal/repair"
)

type model struct {
	ledgerService *ledger.Service
	toolkit       *repair.Toolkit

	currentView View

	ledgerView view.LedgerModel
	orphanView view.OrphanModel
}

type View int

const (
	ViewMenu    View = 0
	ViewLedger  View = 1
	ViewOrphans View = 2
)

func initialModel(ledgerSvc *ledger.Service, toolkit *repair.Toolkit) model {
	return model{
		ledgerService: ledgerSvc,
		toolkit:       toolkit,
		currentView:   ViewMenu,
		ledgerView:    view.NewLedgerModel(ledgerSvc),
		orphanView:    view.NewOrphanModel(toolkit),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}

		if m.currentView == ViewMenu {
			switch msg.String() {
			case "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewLedger
				m.ledgerView = view.NewLedgerModel(m.ledgerService)

				return m, m.ledgerView.Init()
			case "2":
				m.currentView = ViewOrphans
				m.orphanView = view.NewOrphanModel(m.toolkit)

				return m, m.orphanView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewLedger:
		var newModel tea.Model
		newModel, cmd = m.ledgerView.Update(msg)
		m.ledgerView = newModel.(view.LedgerModel)
	case ViewOrphans:
		var newModel tea.Model
		newModel, cmd = m.orphanView.Update(msg)
		m.orphanView = newModel.(view.OrphanModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"ClubLedger Console\n\n" +
				"1. Browse Ledger\n" +
				"2. Review Orphans\n\n" +
				"q. Quit",
		)
	case ViewLedger:
		return m.ledgerView.View()
	case ViewOrphans:
		return m.orphanView.View()
	}

	return "Unknown View"
}

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// The terminal belongs to the program, so logs go to a file.
	logFile, err := tea.LogToFile(filepath.Join(os.TempDir(), "clubledger-console.log"), "")
	if err != nil {
		slog.Error("failed to open log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	if _, err := logging.New(logFile, cfg.Log.Level, cfg.Log.Format); err != nil {
		slog.Error("failed to configure logging", "error", err)
		os.Exit(1)
	}

	db, err := database.New(context.Background(), cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	var (
		ledgerService = ledger.NewService(ledgerStore.New(db))
		memberService = member.NewService(memberStore.New(db))
		toolkit       = repair.New(ledgerService, memberService)
	)

	p := tea.NewProgram(initialModel(ledgerService, toolkit), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run console", "error", err)
		os.Exit(1)
	}
}
