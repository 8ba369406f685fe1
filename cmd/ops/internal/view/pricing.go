package view

import (
	"fmt"
	"strconv"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/kwabenaio/sika/internal/pricing"
)

// PricingModel publishes a new pricing version for a site. Publishing
// closes the open version, so the confirmation step matters.
type PricingModel struct {
	svc *pricing.Service

	form      *huh.Form
	published *pricing.Version
	err       error

	formSite        string
	formMarkup      string
	formFee         string
	formFeeCurrency string
}

func NewPricingModel(svc *pricing.Service) PricingModel {
	m := PricingModel{svc: svc}
	m.resetForm()

	return m
}

func (m PricingModel) Title() string { return "Publish Pricing" }
func (m PricingModel) ShortHelp() string {
	return "Esc: back | Enter: next field | n: publish another"
}

func (m *PricingModel) resetForm() {
	m.formSite = ""
	m.formMarkup = ""
	m.formFee = ""
	m.formFeeCurrency = string(pricing.Base)
	m.published = nil
	m.err = nil

	m.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Key("site").
				Title("Site").
				Placeholder("sikamoney").
				Value(&m.formSite).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("site cannot be empty")
					}
					return nil
				}),

			huh.NewInput().
				Key("markup").
				Title("Markup (fraction, e.g. 0.03)").
				Value(&m.formMarkup).
				Validate(func(s string) error {
					v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
					if err != nil {
						return fmt.Errorf("markup must be a number")
					}
					if v < 0 || v > 1 {
						return fmt.Errorf("markup must be between 0 and 1")
					}
					return nil
				}),

			huh.NewInput().
				Key("fee").
				Title("Fixed fee").
				Value(&m.formFee).
				Validate(func(s string) error {
					v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
					if err != nil {
						return fmt.Errorf("fee must be a number")
					}
					if v < 0 {
						return fmt.Errorf("fee cannot be negative")
					}
					return nil
				}),

			huh.NewInput().
				Key("fee_currency").
				Title("Fee currency").
				Value(&m.formFeeCurrency).
				Validate(func(s string) error {
					if len(strings.TrimSpace(s)) != 3 {
						return fmt.Errorf("use a 3-letter currency code")
					}
					return nil
				}),
		),
	).WithWidth(45).WithShowHelp(false)
}

func (m PricingModel) Init() tea.Cmd {
	return m.form.Init()
}

func (m PricingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case pricingPublishedMsg:
		m.published = msg.version
		m.err = msg.err
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			return m, Back
		case "n":
			if m.published != nil || m.err != nil {
				m.resetForm()
				return m, m.form.Init()
			}
		}
	}

	if m.published != nil || m.err != nil {
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State != huh.StateCompleted {
		return m, cmd
	}

	return m, m.publishCmd()
}

func (m PricingModel) View() string {
	if m.err != nil {
		return lipgloss.NewStyle().Padding(2).Render(
			fmt.Sprintf("Publish failed: %v\n\nPress n to try again.", m.err))
	}

	if m.published != nil {
		v := m.published
		summary := fmt.Sprintf(
			"Published pricing for %s\n\nVersion:  %s\nMarkup:   %.2f%%\nFee:      %s\nEffective: %s",
			v.Site,
			v.ID,
			v.Markup*100,
			FormatMoney(v.Fee, v.FeeCurrency),
			FormatDate(v.Start),
		)

		return lipgloss.NewStyle().Padding(2).Render(summary + "\n\nPress n to publish another.")
	}

	return lipgloss.NewStyle().Padding(1).Render(m.form.View())
}

type pricingPublishedMsg struct {
	version *pricing.Version
	err     error
}

func (m PricingModel) publishCmd() tea.Cmd {
	// Validated by the form already.
	markup, _ := strconv.ParseFloat(strings.TrimSpace(m.formMarkup), 64)
	fee, _ := strconv.ParseFloat(strings.TrimSpace(m.formFee), 64)

	params := pricing.PublishParams{
		Site:        strings.TrimSpace(m.formSite),
		Markup:      markup,
		Fee:         fee,
		FeeCurrency: pricing.Currency(strings.ToUpper(strings.TrimSpace(m.formFeeCurrency))),
	}

	return func() tea.Msg {
		ctx, cancel := DbCtx()
		defer cancel()

		v, err := m.svc.Publish(ctx, params)

		return pricingPublishedMsg{version: v, err: err}
	}
}
