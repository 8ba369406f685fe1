package view

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/kwabenaio/sika/internal/transfer"
)

type TransfersModel struct {
	svc *transfer.Service

	table     table.Model
	transfers []*transfer.Transfer

	stateFilterIdx int
	filter         transfer.ListFilter
	loading        bool
	err            error
	status         string
}

var transferStateFilters = []*transfer.State{
	nil,
	new(transfer.StateInit),
	new(transfer.StatePaid),
	new(transfer.StateProcessed),
	new(transfer.StateInvalid),
	new(transfer.StateCancelled),
}

func NewTransfersModel(svc *transfer.Service) TransfersModel {
	columns := []table.Column{
		{Title: "Created", Width: 16},
		{Title: "Reference", Width: 10},
		{Title: "State", Width: 10},
		{Title: "Sent", Width: 14},
		{Title: "Payout", Width: 16},
		{Title: "Recipient", Width: 24},
	}

	return TransfersModel{
		svc:   svc,
		table: newListTable(columns),
	}
}

func (m TransfersModel) Title() string { return "Transfers" }
func (m TransfersModel) ShortHelp() string {
	return "Esc: back | r: refresh | s: state filter | p: mark processed | i: mark invalid"
}

func (m TransfersModel) Init() tea.Cmd {
	return m.loadCmd()
}

func (m TransfersModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case transfersLoadedMsg:
		m.loading = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}

		m.err = nil
		m.transfers = msg.transfers
		m.refreshTable()

		return m, nil

	case transferTransitionMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Transition failed: %v", msg.err)
		} else {
			m.status = fmt.Sprintf("Transfer %s %s", msg.reference, msg.action)
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
		case "s":
			m.stateFilterIdx = (m.stateFilterIdx + 1) % len(transferStateFilters)
			m.filter.State = transferStateFilters[m.stateFilterIdx]

			return m, m.loadCmd()
		case "p":
			return m, m.transitionCmd("processed", m.svc.SetProcessed)
		case "i":
			return m, m.transitionCmd("invalidated", m.svc.SetInvalid)
		}
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)

	return m, cmd
}

func (m TransfersModel) View() string {
	if m.loading {
		return lipgloss.NewStyle().Padding(2).Render("Loading transfers...")
	}

	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(fmt.Sprintf("Error: %v", m.err))
	}

	stateLabel := "All"
	if f := transferStateFilters[m.stateFilterIdx]; f != nil {
		stateLabel = string(*f)
	}

	header := fmt.Sprintf("Filter: [s] State: %s", activeStyle(stateLabel))

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

func (m *TransfersModel) refreshTable() {
	rows := make([]table.Row, 0, len(m.transfers))
	for _, t := range m.transfers {
		rows = append(rows, table.Row{
			FormatDate(t.CreatedAt),
			t.ReferenceNumber,
			string(t.State),
			FormatMoney(t.SentAmount, t.SentCurrency),
			FormatMoney(t.ReceivedAmount, t.ReceivedCurrency),
			t.Recipient.Name,
		})
	}

	m.table.SetRows(rows)
}

type transfersLoadedMsg struct {
	transfers []*transfer.Transfer
	err       error
}

func (m TransfersModel) loadCmd() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		transfers, err := m.svc.List(ctx, m.filter)

		return transfersLoadedMsg{transfers: transfers, err: err}
	}
}

type transferTransitionMsg struct {
	reference string
	action    string
	err       error
}

func (m TransfersModel) transitionCmd(action string, fn func(ctx context.Context, id uuid.UUID) error) tea.Cmd {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.transfers) {
		return nil
	}

	t := m.transfers[idx]

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		return transferTransitionMsg{
			reference: t.ReferenceNumber,
			action:    action,
			err:       fn(ctx, t.ID),
		}
	}
}
