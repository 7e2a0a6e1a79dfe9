// GoChat TUI client.
//
// Screens
// -------
//
//	stateLogin – centered create-account / login form (username only)
//	stateChat  – full-screen chat: recipient + message inputs, scrollable log
//	stateList  – Ctrl+F overlay: account search by regex
//
// Concurrency
// -----------
//
//	clientlib.Client owns one connection per configured replica and a
//	background goroutine that follows the primary across elections. Every
//	frame it receives is forwarded to a channel the Bubbletea event loop
//	drains one message at a time via waitForFrame.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"gochat/internal/clientlib"
	"gochat/internal/config"
	"gochat/internal/protocol"
)

var (
	purple = lipgloss.Color("99")
	cyan   = lipgloss.Color("86")
	green  = lipgloss.Color("82")
	red    = lipgloss.Color("196")
	yellow = lipgloss.Color("220")
	gray   = lipgloss.Color("241")
	white  = lipgloss.Color("255")
	orange = lipgloss.Color("214")
	blue   = lipgloss.Color("75")
	teal   = lipgloss.Color("30")

	headerStyle = lipgloss.NewStyle().Bold(true).Background(purple).Foreground(white).Padding(0, 1)
	listHeader  = lipgloss.NewStyle().Bold(true).Background(teal).Foreground(white).Padding(0, 1)
	footerStyle = lipgloss.NewStyle().Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(gray).Padding(0, 1)
	titleStyle        = lipgloss.NewStyle().Bold(true).Foreground(purple).Padding(0, 2)
	labelStyle        = lipgloss.NewStyle().Foreground(gray).Width(10)
	focusedLabelStyle = lipgloss.NewStyle().Foreground(cyan).Width(10)
	hintStyle         = lipgloss.NewStyle().Foreground(gray).Italic(true)
	successStyle      = lipgloss.NewStyle().Foreground(green)
	errorStyle        = lipgloss.NewStyle().Foreground(red)
	sysStyle          = lipgloss.NewStyle().Foreground(yellow).Italic(true)
	myNameStyle       = lipgloss.NewStyle().Bold(true).Foreground(orange)
	peerStyle         = lipgloss.NewStyle().Bold(true).Foreground(blue)
)

type frameMsg struct {
	h    protocol.Header
	body []byte
}
type disconnectedMsg struct{}

type appState int

const (
	stateLogin appState = iota
	stateChat
	stateList
)

type model struct {
	client *clientlib.Client
	frames chan frameMsg

	state appState
	me    string

	loginIsCreate bool
	loginField    textinput.Model
	statusMsg     string

	ready         bool
	viewport      viewport.Model
	recipientIn   textinput.Model
	messageIn     textinput.Model
	chatFocus     int
	chatLines     []string

	listQuery  textinput.Model
	listStatus string

	width, height int
}

func newModel(client *clientlib.Client, frames chan frameMsg) model {
	lf := textinput.New()
	lf.Placeholder = "username"
	lf.Focus()
	lf.CharLimit = 32
	lf.Width = 32

	ri := textinput.New()
	ri.Placeholder = "recipient"
	ri.CharLimit = 32
	ri.Width = 24
	ri.Focus()

	mi := textinput.New()
	mi.Placeholder = "message"
	mi.CharLimit = 500

	lq := textinput.New()
	lq.Placeholder = "regex, e.g. ^al"
	lq.CharLimit = 64
	lq.Width = 36

	return model{
		client:      client,
		frames:      frames,
		loginField:  lf,
		recipientIn: ri,
		messageIn:   mi,
		listQuery:   lq,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForFrame(m.frames))
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width, m.vpHeight())
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = m.vpHeight()
		}
		return m, nil

	case frameMsg:
		m = m.handleFrame(msg.h, msg.body)
		return m, waitForFrame(m.frames)

	case disconnectedMsg:
		m.statusMsg = "disconnected from cluster"
		return m, tea.Quit

	case tea.KeyMsg:
		switch m.state {
		case stateLogin:
			return m.handleLoginKey(msg)
		case stateChat:
			return m.handleChatKey(msg)
		case stateList:
			return m.handleListKey(msg)
		}
	}
	return m, nil
}

func (m model) vpHeight() int {
	h := m.height - 3
	if h < 1 {
		h = 1
	}
	return h
}

func (m model) handleLoginKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyCtrlR:
		m.loginIsCreate = !m.loginIsCreate
		m.statusMsg = ""
		return m, nil
	case tea.KeyEnter:
		user := strings.TrimSpace(m.loginField.Value())
		if user == "" {
			m.statusMsg = "username is required"
			return m, nil
		}
		if m.loginIsCreate {
			m.client.Send(protocol.OpCreateAccount, protocol.EncodeArgs(protocol.OpCreateAccount, map[string]string{"username": user}))
		} else {
			m.client.Send(protocol.OpLogin, protocol.EncodeArgs(protocol.OpLogin, map[string]string{"username": user}))
		}
		m.statusMsg = "contacting cluster…"
		return m, nil
	}
	var cmd tea.Cmd
	m.loginField, cmd = m.loginField.Update(msg)
	return m, cmd
}

func (m model) handleChatKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.client.Send(protocol.OpLogoff, nil)
		return m, tea.Quit
	case tea.KeyCtrlL:
		m.client.Send(protocol.OpLogoff, nil)
		return m, nil
	case tea.KeyCtrlD:
		m.client.Send(protocol.OpDeleteAccount, nil)
		return m, nil
	case tea.KeyCtrlF:
		m.state = stateList
		m.listStatus = ""
		m.listQuery.Focus()
		return m, textinput.Blink
	case tea.KeyTab:
		m.chatFocus = (m.chatFocus + 1) % 2
		if m.chatFocus == 0 {
			m.recipientIn.Focus()
			m.messageIn.Blur()
		} else {
			m.recipientIn.Blur()
			m.messageIn.Focus()
		}
		return m, textinput.Blink
	case tea.KeyEnter:
		recipient := strings.TrimSpace(m.recipientIn.Value())
		message := strings.TrimSpace(m.messageIn.Value())
		if recipient == "" || message == "" {
			return m, nil
		}
		m.client.Send(protocol.OpSendMsg, protocol.EncodeArgs(protocol.OpSendMsg, map[string]string{"recipient": recipient, "message": message}))
		m.messageIn.Reset()
		return m, nil
	case tea.KeyPgUp:
		m.viewport.HalfViewUp()
		return m, nil
	case tea.KeyPgDown:
		m.viewport.HalfViewDown()
		return m, nil
	}
	var cmd tea.Cmd
	if m.chatFocus == 0 {
		m.recipientIn, cmd = m.recipientIn.Update(msg)
	} else {
		m.messageIn, cmd = m.messageIn.Update(msg)
	}
	return m, cmd
}

func (m model) handleListKey(msg tea.KeyMsg) (model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		m.client.Send(protocol.OpLogoff, nil)
		return m, tea.Quit
	case tea.KeyEsc:
		m.state = stateChat
		m.recipientIn.Focus()
		return m, textinput.Blink
	case tea.KeyEnter:
		query := strings.TrimSpace(m.listQuery.Value())
		m.client.Send(protocol.OpListAccounts, protocol.EncodeArgs(protocol.OpListAccounts, map[string]string{"query": query}))
		m.listStatus = "searching…"
		return m, nil
	}
	var cmd tea.Cmd
	m.listQuery, cmd = m.listQuery.Update(msg)
	return m, cmd
}

func (m model) handleFrame(h protocol.Header, body []byte) model {
	switch h.Op {
	case protocol.OpCreateAccountResponse:
		resp, err := protocol.DecodeCreateAccountResponse(body)
		if err != nil {
			return m
		}
		if resp.Status == protocol.StatusSuccess {
			m.me = resp.Username
			m.state = stateChat
			m.recipientIn.Focus()
		} else {
			m.statusMsg = resp.Status
		}

	case protocol.OpLogInResponse:
		resp, err := protocol.DecodeLogInResponse(body)
		if err != nil {
			return m
		}
		if resp.Status == protocol.StatusSuccess {
			m.me = resp.Username
			m.state = stateChat
			m.recipientIn.Focus()
		} else {
			m.statusMsg = resp.Status
		}

	case protocol.OpListAccountsResponse:
		resp, err := protocol.DecodeListAccountsResponse(body)
		if err != nil {
			return m
		}
		if resp.Status == protocol.StatusSuccess {
			m.listStatus = successStyle.Render("matches: " + resp.Accounts)
		} else {
			m.listStatus = errorStyle.Render(resp.Status)
		}

	case protocol.OpSendMessageResponse:
		resp, err := protocol.DecodeSendMessageResponse(body)
		if err != nil {
			return m
		}
		if resp.Status != protocol.StatusSuccess {
			m.appendChat(errorStyle.Render("⚠ " + resp.Status))
		}

	case protocol.OpRecvMessage:
		args, err := protocol.DecodeRecvMessage(body)
		if err != nil {
			return m
		}
		m.appendChat(peerStyle.Render(args.Sender) + ": " + args.Message)

	case protocol.OpDeleteAccountResponse:
		resp, err := protocol.DecodeDeleteAccountResponse(body)
		if err != nil {
			return m
		}
		if resp.Status == protocol.StatusSuccess {
			m.appendChat(sysStyle.Render("account deleted"))
			m.state = stateLogin
			m.me = ""
		} else {
			m.appendChat(errorStyle.Render(resp.Status))
		}

	case protocol.OpLogOffResponse:
		resp, _ := protocol.DecodeLogOffResponse(body)
		if resp.Status == protocol.StatusSuccess {
			m.state = stateLogin
			m.me = ""
		}
	}
	return m
}

func (m *model) appendChat(line string) {
	m.chatLines = append(m.chatLines, line)
	m.viewport.SetContent(strings.Join(m.chatLines, "\n"))
	m.viewport.GotoBottom()
}

func (m model) View() string {
	switch m.state {
	case stateLogin:
		return m.viewLogin()
	case stateChat:
		return m.viewChat()
	case stateList:
		return m.viewList()
	}
	return ""
}

func (m model) viewLogin() string {
	if m.width == 0 {
		return "\n  Connecting to cluster…"
	}
	mode, other := "Login", "Create account"
	if m.loginIsCreate {
		mode, other = "Create account", "Login"
	}
	title := titleStyle.Render("  GoChat Terminal  ")
	form := lipgloss.JoinVertical(lipgloss.Left,
		title, "",
		labelStyle.Render("Username")+"  "+m.loginField.View(), "",
		hintStyle.Render(fmt.Sprintf("Enter: %s   Ctrl+R: switch to %s   Ctrl+C: quit", mode, other)),
		"", errorStyle.Render(m.statusMsg),
	)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}

func (m model) viewChat() string {
	if !m.ready {
		return "\n  Connecting…"
	}
	hdr := headerStyle.Width(m.width).Render(fmt.Sprintf(
		" GoChat · %s · Tab: switch field · Ctrl+F: search · Ctrl+L: logoff · Ctrl+D: delete · Ctrl+C: quit", m.me))
	input := lipgloss.JoinHorizontal(lipgloss.Left,
		labelStyle.Render("To"), " ", m.recipientIn.View(), "   ",
		labelStyle.Render("Message"), " ", m.messageIn.View())
	footer := footerStyle.Width(m.width - 2).Render(input)
	return lipgloss.JoinVertical(lipgloss.Left, hdr, m.viewport.View(), footer)
}

func (m model) viewList() string {
	hdr := listHeader.Width(m.width).Render(" Search Accounts · Esc: back · Enter: search")
	body := lipgloss.JoinVertical(lipgloss.Left,
		hdr, "",
		focusedLabelStyle.Render("Query")+"  "+m.listQuery.View(), "",
		m.listStatus,
	)
	return body
}

func waitForFrame(ch <-chan frameMsg) tea.Cmd {
	return func() tea.Msg {
		f, ok := <-ch
		if !ok {
			return disconnectedMsg{}
		}
		return f
	}
}

func main() {
	root := &cobra.Command{
		Use:   "gochat-client config-path",
		Short: "Run the gochat terminal client",
		Args:  cobra.ExactArgs(1),
		RunE:  runClient,
	}
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runClient(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}

	frames := make(chan frameMsg, 64)
	client, err := clientlib.Connect(cfg, uuid.NewString(), func(h protocol.Header, body []byte) {
		frames <- frameMsg{h: h, body: body}
	})
	if err != nil {
		return err
	}
	defer client.Close()

	p := tea.NewProgram(newModel(client, frames), tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err = p.Run()
	return err
}
