package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/term"

	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// ConfirmRequest is what the operator is asked to approve before deploying.
type ConfirmRequest struct {
	Network   string
	URL       string
	NetworkID string
	Deployer  string
	Pending   []string // migration ids that will run
	Reset     bool
}

// Confirmer asks the operator to approve a deployment.
type Confirmer func(req ConfirmRequest) (bool, error)

// confirmModel asks the operator to type the network name before deploying.
type confirmModel struct {
	req       ConfirmRequest
	input     textinput.Model
	err       string
	confirmed bool
	done      bool
}

func newConfirmModel(req ConfirmRequest) confirmModel {
	ti := textinput.New()
	ti.Placeholder = req.Network
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 30
	return confirmModel{req: req, input: ti}
}

func (m confirmModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m confirmModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			m.done = true
			return m, tea.Quit
		case tea.KeyEnter:
			if strings.TrimSpace(m.input.Value()) == m.req.Network {
				m.confirmed = true
				m.done = true
				return m, tea.Quit
			}
			m.err = fmt.Sprintf("type %q to continue, or Esc to cancel", m.req.Network)
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m confirmModel) View() string {
	if m.done {
		return ""
	}

	var s strings.Builder
	s.WriteString(titleStyle.Render("Confirm Deployment") + "\n")

	details := fmt.Sprintf(
		"  Network:    %s\n"+
			"  Node:       %s\n"+
			"  Network ID: %s\n"+
			"  Deployer:   %s\n",
		m.req.Network, m.req.URL, m.req.NetworkID, m.req.Deployer,
	)
	if len(m.req.Pending) > 0 {
		details += "  Migrations: " + strings.Join(m.req.Pending, ", ") + "\n"
	} else {
		details += "  Migrations: none pending\n"
	}
	s.WriteString(boxStyle.Render(details))

	if m.req.Reset {
		s.WriteString("\n\n")
		s.WriteString(warningStyle.Render("--reset: every contract will be deployed again"))
	}

	s.WriteString("\n\n")
	s.WriteString(subtitleStyle.Render("Type the network name to deploy:") + "\n")
	s.WriteString(m.input.View())
	if m.err != "" {
		s.WriteString("\n" + errorStyle.Render(m.err))
	}
	s.WriteString("\n")
	s.WriteString(helpStyle.Render("Enter to confirm • Esc to cancel"))
	return s.String()
}

// promptConfirm runs the confirmation prompt on in/out. It refuses to run
// when in is not a terminal.
func promptConfirm(in io.Reader, out io.Writer) Confirmer {
	return func(req ConfirmRequest) (bool, error) {
		if f, ok := in.(*os.File); ok && !isTerminal(f) {
			return false, errors.NewValidationError("yes",
				"network "+req.Network+" requires confirmation; pass --yes when not attached to a terminal", nil)
		}

		p := tea.NewProgram(newConfirmModel(req), tea.WithInput(in), tea.WithOutput(out))
		final, err := p.Run()
		if err != nil {
			return false, errors.Wrap(err, "confirmation prompt")
		}
		return final.(confirmModel).confirmed, nil
	}
}

func isTerminal(f *os.File) bool {
	return term.IsTerminal(f.Fd())
}
