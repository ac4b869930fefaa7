package login

import (
	"context"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/school-notify/internal/theme"
)

// Validator checks a candidate token against the API before the session
// is established.
type Validator func(ctx context.Context, token string) error

// AuthenticatedMsg is dispatched once a token has been validated.
type AuthenticatedMsg struct {
	Token string
}

// validationResultMsg is the internal outcome of the token check.
type validationResultMsg struct {
	token string
	err   error
}

// Model is the token entry view shown when no session exists.
type Model struct {
	input    textinput.Model
	validate Validator
	checking bool
	err      error
	width    int
	height   int
}

// New creates the login view. The validator is called with the entered
// token before an AuthenticatedMsg is emitted.
func New(validate Validator, width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "paste your API token"
	ti.EchoMode = textinput.EchoPassword
	ti.EchoCharacter = '*'
	ti.CharLimit = 512
	ti.Width = 48

	return Model{
		input:    ti,
		validate: validate,
		width:    width,
		height:   height,
	}
}

// Init focuses the token input.
func (m Model) Init() tea.Cmd {
	return m.input.Focus()
}

// Update handles messages for the login view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case validationResultMsg:
		m.checking = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		return m, func() tea.Msg {
			return AuthenticatedMsg{Token: msg.token}
		}

	case tea.KeyMsg:
		if msg.String() == "enter" && !m.checking {
			token := strings.TrimSpace(m.input.Value())
			if token == "" {
				return m, nil
			}
			m.checking = true
			m.err = nil
			validate := m.validate
			return m, func() tea.Msg {
				err := validate(context.Background(), token)
				return validationResultMsg{token: token, err: err}
			}
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the login view.
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(theme.HeaderStyle.Render("School Notify"))
	b.WriteString("\n\n")
	b.WriteString("Sign in with your school-admin API token.\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	switch {
	case m.checking:
		b.WriteString(theme.ReadStyle.Render("Checking token..."))
	case m.err != nil:
		b.WriteString(theme.ErrorStyle.Render("Sign-in failed: " + m.err.Error()))
	default:
		b.WriteString(theme.HelpStyle.Render("enter to sign in, ctrl+c to quit"))
	}

	box := lipgloss.NewStyle().
		Padding(1, 3).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(theme.ColorBorder).
		Render(b.String())

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, box)
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
