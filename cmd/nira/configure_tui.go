package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

const (
	fieldOrg = iota
	fieldKeyID
	fieldKeySecret
	fieldCount
)

const (
	txtOrgPlaceholder    = "yourorg.nira.app"
	txtKeyIDPlaceholder  = "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx"
	txtSecretPlaceholder = "••••••••"
	txtVerifying         = "Verifying API key..."
	txtCustomURLNote     = "Use the .nira.app name assigned to you even if you have a custom URL."
	txtConfigureHelp     = "'Tab'/'Enter' next field. 'Enter' on the last field submits. 'Esc'/'Ctrl+C' to quit."
)

var (
	focusedStyle     = green
	blurredStyle     = gray
	helpStyle        = gray
	errorTextStyle   = red
	errorHeaderStyle = red.Bold(true)
	spinnerStyle     = cyan
	titleStyle       = cyan.Bold(true)
)

var fieldLabels = [fieldCount]string{
	"Nira organization name",
	fmt.Sprintf("API key id (%d characters)", apiKeyIDLen),
	fmt.Sprintf("API key secret (%d characters)", apiKeySecretLen),
}

var errConfigureCancelled = errors.New("configure cancelled by user")

type ConfigureTUIOpts struct {
	Org          string
	APIKeyID     string
	APIKeySecret string
	ConfigPath   string
	// SubmitHandler validates and verifies the credentials. Its error is
	// shown and the form stays open.
	SubmitHandler func(org, keyID, keySecret string) error
}

type configureModel struct {
	opts *ConfigureTUIOpts

	inputs  [fieldCount]textinput.Model
	focus   int
	spinner spinner.Model

	isLoading    bool
	done         bool
	errorMessage string
}

type credentialsVerifiedMsg struct{ err error }

func newConfigureModel(opts *ConfigureTUIOpts) configureModel {
	values := [fieldCount]string{opts.Org, opts.APIKeyID, opts.APIKeySecret}
	placeholders := [fieldCount]string{txtOrgPlaceholder, txtKeyIDPlaceholder, txtSecretPlaceholder}
	limits := [fieldCount]int{128, apiKeyIDLen, apiKeySecretLen}

	m := configureModel{opts: opts}
	for i := range fieldCount {
		in := textinput.New()
		in.Placeholder = placeholders[i]
		in.CharLimit = limits[i]
		in.Width = 48
		in.PromptStyle = blurredStyle
		in.TextStyle = blurredStyle
		in.PlaceholderStyle = gray
		in.SetValue(values[i])
		m.inputs[i] = in
	}
	m.inputs[fieldKeySecret].EchoMode = textinput.EchoPassword
	m.inputs[fieldKeySecret].EchoCharacter = '•'

	// start on the first empty field
	m.focus = fieldOrg
	for i := range fieldCount {
		if values[i] == "" {
			m.focus = i
			break
		}
	}
	m.setFocus(m.focus)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = spinnerStyle
	m.spinner = s
	return m
}

func (m *configureModel) setFocus(i int) {
	for j := range fieldCount {
		if j == i {
			m.inputs[j].Focus()
			m.inputs[j].PromptStyle = focusedStyle
			m.inputs[j].TextStyle = focusedStyle
		} else {
			m.inputs[j].Blur()
			m.inputs[j].PromptStyle = blurredStyle
			m.inputs[j].TextStyle = blurredStyle
		}
	}
	m.focus = i
}

func (m configureModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick)
}

func (m configureModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyTab, tea.KeyDown:
			if !m.isLoading {
				m.setFocus((m.focus + 1) % fieldCount)
			}
			return m, textinput.Blink

		case tea.KeyShiftTab, tea.KeyUp:
			if !m.isLoading {
				m.setFocus((m.focus + fieldCount - 1) % fieldCount)
			}
			return m, textinput.Blink

		case tea.KeyEnter:
			if m.isLoading {
				return m, nil
			}
			if m.focus < fieldCount-1 {
				m.setFocus(m.focus + 1)
				return m, textinput.Blink
			}
			return m.submit()
		}

		if m.isLoading {
			return m, nil
		}
		m.errorMessage = ""
		var cmd tea.Cmd
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
		return m, cmd

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case credentialsVerifiedMsg:
		m.isLoading = false
		if msg.err != nil {
			m.errorMessage = fmt.Sprintf("%s %s", errorHeaderStyle.Render("ERROR:"), msg.err.Error())
			m.setFocus(m.focus)
			return m, textinput.Blink
		}
		m.done = true
		m.errorMessage = ""
		return m, tea.Quit
	}

	return m, nil
}

func (m configureModel) submit() (tea.Model, tea.Cmd) {
	m.errorMessage = ""
	m.isLoading = true
	for i := range fieldCount {
		m.inputs[i].Blur()
	}

	org := strings.TrimSpace(m.inputs[fieldOrg].Value())
	keyID := strings.TrimSpace(m.inputs[fieldKeyID].Value())
	secret := strings.TrimSpace(m.inputs[fieldKeySecret].Value())
	handler := m.opts.SubmitHandler

	return m, func() tea.Msg {
		return credentialsVerifiedMsg{err: handler(org, keyID, secret)}
	}
}

func (m configureModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Nira client configuration"))
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s%s\n", gray.Render("Config  "), green.Render(m.opts.ConfigPath))
	fmt.Fprintf(&b, "\n%s\n\n", yellow.Render(txtCustomURLNote))

	for i := range fieldCount {
		b.WriteString(fieldLabels[i])
		b.WriteString("\n")
		b.WriteString(m.inputs[i].View())
		b.WriteString("\n\n")
	}

	if m.isLoading {
		fmt.Fprintf(&b, "%s %s\n\n", m.spinner.View(), txtVerifying)
	}
	if m.errorMessage != "" {
		b.WriteString(errorTextStyle.Render(m.errorMessage))
		b.WriteString("\n\n")
	}
	b.WriteString(helpStyle.Render(txtConfigureHelp))
	b.WriteString("\n")
	return b.String()
}

// RunConfigureTUI shows the credential form until the handler accepts the
// input or the user quits.
func RunConfigureTUI(opts ConfigureTUIOpts) error {
	model, err := tea.NewProgram(newConfigureModel(&opts)).Run()
	if err != nil {
		return fmt.Errorf("configure form: %w", err)
	}
	if fm, ok := model.(configureModel); ok && fm.done {
		return nil
	}
	return errConfigureCancelled
}
