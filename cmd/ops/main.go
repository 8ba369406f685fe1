package main

import (
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/joho/godotenv"

	"github.com/kwabenaio/sika/cmd/ops/internal/view"
	"github.com/kwabenaio/sika/internal/btcinvoice"
	btcStore "github.com/kwabenaio/sika/internal/btcinvoice/store"
	"github.com/kwabenaio/sika/internal/config"
	"github.com/kwabenaio/sika/internal/database"
	"github.com/kwabenaio/sika/internal/limit"
	limitStore "github.com/kwabenaio/sika/internal/limit/store"
	"github.com/kwabenaio/sika/internal/mail"
	"github.com/kwabenaio/sika/internal/pricing"
	pricingStore "github.com/kwabenaio/sika/internal/pricing/store"
	"github.com/kwabenaio/sika/internal/processor"
	"github.com/kwabenaio/sika/internal/processor/blockchain"
	"github.com/kwabenaio/sika/internal/processor/coinapult"
	"github.com/kwabenaio/sika/internal/processor/gocoin"
	"github.com/kwabenaio/sika/internal/profile"
	profileStore "github.com/kwabenaio/sika/internal/profile/store"
	"github.com/kwabenaio/sika/internal/transfer"
	transferStore "github.com/kwabenaio/sika/internal/transfer/store"
)

type model struct {
	transferService *transfer.Service
	invoiceService  *btcinvoice.Service
	pricingService  *pricing.Service

	currentView View

	transfersView view.TransfersModel
	invoicesView  view.InvoicesModel
	pricingView   view.PricingModel
}

type View int

const (
	ViewMenu      View = 0
	ViewTransfers View = 1
	ViewInvoices  View = 2
	ViewPricing   View = 3
)

func initialModel() model {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var notifier transfer.Notifier = mail.Noop{}
	if cfg.Mail.BaseURL != "" {
		notifier = mail.NewSender(cfg.Mail.BaseURL, cfg.Mail.Token, cfg.Mail.From)
	}

	processors := processor.NewService(map[processor.Kind]processor.Client{
		processor.KindGoCoin: gocoin.New(
			cfg.Processors.GoCoin.BaseURL,
			cfg.Processors.GoCoin.Token,
			cfg.Processors.GoCoin.Secret,
		),
		processor.KindBlockchain: blockchain.New(
			cfg.Processors.Blockchain.BaseURL,
			cfg.Processors.Blockchain.XPub,
			cfg.Processors.Blockchain.Key,
			cfg.Processors.Blockchain.Secret,
		),
		processor.KindCoinapult: coinapult.New(
			cfg.Processors.Coinapult.BaseURL,
			cfg.Processors.Coinapult.Key,
			cfg.Processors.Coinapult.Secret,
		),
	})

	pricingSvc := pricing.NewService(pricingStore.New(db))
	limitSvc := limit.NewService(limitStore.New(db))
	profileSvc := profile.NewService(profileStore.New(db))

	transferSvc := transfer.NewService(
		transferStore.New(db), pricingSvc, profileSvc, limitSvc, notifier)

	invoiceSvc := btcinvoice.NewService(
		btcStore.New(db), processors, pricingSvc, transferSvc,
		notifier, cfg.Processors.CallbackURL, cfg.Invoice.Timeout)

	return model{
		transferService: transferSvc,
		invoiceService:  invoiceSvc,
		pricingService:  pricingSvc,
		currentView:     ViewMenu,
		transfersView:   view.NewTransfersModel(transferSvc),
		invoicesView:    view.NewInvoicesModel(invoiceSvc),
		pricingView:     view.NewPricingModel(pricingSvc),
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if m.currentView == ViewMenu {
			switch msg.String() {
			case "ctrl+c", "q":
				return m, tea.Quit
			case "1":
				m.currentView = ViewTransfers
				m.transfersView = view.NewTransfersModel(m.transferService)

				return m, m.transfersView.Init()
			case "2":
				m.currentView = ViewInvoices
				m.invoicesView = view.NewInvoicesModel(m.invoiceService)

				return m, m.invoicesView.Init()
			case "3":
				m.currentView = ViewPricing
				m.pricingView = view.NewPricingModel(m.pricingService)

				return m, m.pricingView.Init()
			}
		}
	case view.BackMsg:
		m.currentView = ViewMenu
		return m, nil
	}

	switch m.currentView {
	case ViewTransfers:
		var newModel tea.Model
		newModel, cmd = m.transfersView.Update(msg)
		m.transfersView = newModel.(view.TransfersModel)
	case ViewInvoices:
		var newModel tea.Model
		newModel, cmd = m.invoicesView.Update(msg)
		m.invoicesView = newModel.(view.InvoicesModel)
	case ViewPricing:
		var newModel tea.Model
		newModel, cmd = m.pricingView.Update(msg)
		m.pricingView = newModel.(view.PricingModel)
	}

	return m, cmd
}

func (m model) View() string {
	switch m.currentView {
	case ViewMenu:
		return lipgloss.NewStyle().Padding(2).Render(
			"Sika Ops\n\n" +
				"1. Transfers\n" +
				"2. Review Invoices\n" +
				"3. Publish Pricing\n\n" +
				"q. Quit",
		)
	case ViewTransfers:
		return m.transfersView.View()
	case ViewInvoices:
		return m.invoicesView.View()
	case ViewPricing:
		return m.pricingView.View()
	}

	return "Unknown View"
}

func main() {
	p := tea.NewProgram(initialModel())
	if _, err := p.Run(); err != nil {
		slog.Error("failed to run TUI", "error", err)
		os.Exit(1)
	}
}
