package view

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/btcinvoice"
)

// invoiceFilters cycles through the operational views: the review queue
// first, since that is what this screen exists for.
var invoiceFilters = []struct {
	label  string
	states []btcinvoice.State
}{
	{"Review Queue", []btcinvoice.State{btcinvoice.StateMerchantReview, btcinvoice.StateUnderpaid}},
	{"Awaiting Payment", []btcinvoice.State{btcinvoice.StateUnpaid}},
	{"Settled", []btcinvoice.State{btcinvoice.StatePaid, btcinvoice.StateReadyToShip}},
	{"All", nil},
}

type InvoicesModel struct {
	svc *btcinvoice.Service

	table    table.Model
	invoices []*btcinvoice.Invoice

	filterIdx int
	loading   bool
	err       error
	status    string
}

func NewInvoicesModel(svc *btcinvoice.Service) InvoicesModel {
	columns := []table.Column{
		{Title: "Created", Width: 16},
		{Title: "Processor", Width: 10},
		{Title: "State", Width: 16},
		{Title: "Balance Due", Width: 16},
		{Title: "Rate", Width: 10},
		{Title: "Address", Width: 36},
	}

	return InvoicesModel{
		svc:   svc,
		table: newListTable(columns),
	}
}

func (m InvoicesModel) Title() string { return "BTC Invoices" }
func (m InvoicesModel) ShortHelp() string {
	return "Esc: back | r: refresh | f: filter | y: confirm ready-to-ship | x: invalidate"
}

func (m InvoicesModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m InvoicesModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case invoicesLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.invoices = msg.invoices
		m.refreshTable()

		return m, nil

	case invoiceActionMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %v", msg.action, msg.err)
		} else {
			m.status = fmt.Sprintf("%s done", msg.action)
		}

		return m, m.loadCmd()

	case tea.WindowSizeMsg:
		m.table.SetHeight(msg.Height - 10)
		return m, nil
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch keyMsg.String() {
		case "esc":
			return m, Back
		case "r":
			m.loading = true
			return m, m.loadCmd()
		case "f":
			m.filterIdx = (m.filterIdx + 1) % len(invoiceFilters)
			return m, m.loadCmd()
		case "y":
			return m, m.actionCmd("Confirm ready-to-ship", m.svc.ConfirmReadyToShip)
		case "x":
			return m, m.actionCmd("Invalidate", m.svc.Invalidate)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m InvoicesModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading invoices...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	header := fmt.Sprintf("Filter: [f] %s", activeStyle(invoiceFilters[m.filterIdx].label))

	tableView := lipgloss.NewStyle().
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		Render(m.table.View())

	content := lipgloss.JoinVertical(lipgloss.Left,
		lipgloss.NewStyle().PaddingBottom(1).Render(header),
		tableView,
	)

	if m.status != "" {
		content = lipgloss.NewStyle().Faint(true).Render(m.status) + "\n" + content
	}

	return lipgloss.NewStyle().Padding(1).Render(content)
}

func (m *InvoicesModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.invoices))
	for _, inv := range m.invoices {
		rows = append(rows, table.Row{
			FormatDate(inv.CreatedAt),
			string(inv.Processor),
			string(inv.State),
			FormatBTC(inv.BalanceDue),
			fmt.Sprintf("%.2f", inv.BTCRate),
			inv.BTCAddress,
		})
	}

	m.table.SetRows(rows)
}

type invoicesLoadedMsg struct {
	invoices []*btcinvoice.Invoice
	err      error
}

func (m InvoicesModel) loadCmd() tea.Cmd {
	states := invoiceFilters[m.filterIdx].states

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		invoices, err := m.svc.List(ctx, states)

		return invoicesLoadedMsg{invoices: invoices, err: err}
	}
}

type invoiceActionMsg struct {
	action string
	err    error
}

func (m InvoicesModel) actionCmd(action string, fn func(ctx context.Context, id uuid.UUID) error) tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.invoices) {
		return nil
	}

	inv := m.invoices[idx]

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return invoiceActionMsg{action: action, err: fn(ctx, inv.ID)}
	}
}
