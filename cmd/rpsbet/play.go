package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/lox/rpsbet/internal/client"
	"github.com/lox/rpsbet/internal/protocol"
)

// PlayCmd is the interactive terminal client.
type PlayCmd struct {
	Server string `kong:"default='ws://localhost:8080/ws',help='Server URL'"`
	Name   string `kong:"help='Player name (a generated one is used if empty)'"`
}

func (c *PlayCmd) Run() error {
	ch := make(chan *protocol.Message, 32)
	cl := client.New(c.Server, zerolog.Nop())
	for _, t := range []protocol.MessageType{
		protocol.TypeJoined, protocol.TypeState, protocol.TypeBalance,
		protocol.TypePlayerCommitted, protocol.TypeRoundResult,
		protocol.TypeRoundDraw, protocol.TypeRoundAborted, protocol.TypeLockChanged,
		protocol.TypeWithdrawal, protocol.TypeError,
	} {
		cl.On(t, func(msg *protocol.Message) { ch <- msg })
	}

	if err := cl.Connect(); err != nil {
		return err
	}
	defer cl.Close()
	go func() {
		<-cl.Done()
		close(ch)
	}()

	if err := cl.Join(c.Name); err != nil {
		return err
	}

	m := newPlayModel(cl, ch)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("212")).MarginBottom(1)
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
	lockedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true)
	winStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("84")).Bold(true)
	errStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("203"))
	logStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	helpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1)
)

type serverMsg struct{ msg *protocol.Message }

type disconnectedMsg struct{}

type playModel struct {
	client  *client.Client
	ch      chan *protocol.Message
	spin    spinner.Model
	address string
	balance int64
	pending int64
	state   protocol.StateData
	log     []string
	errLine string
}

func newPlayModel(cl *client.Client, ch chan *protocol.Message) playModel {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	return playModel{client: cl, ch: ch, spin: sp}
}

func (m playModel) listen() tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-m.ch
		if !ok {
			return disconnectedMsg{}
		}
		return serverMsg{msg: msg}
	}
}

func (m playModel) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.listen())
}

func (m playModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "r":
			return m.commit("rock")
		case "p":
			return m.commit("paper")
		case "s":
			return m.commit("scissors")
		case "d":
			m.errLine = ""
			_ = m.client.Distribute()
		case "w":
			m.errLine = ""
			_ = m.client.Withdraw()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case serverMsg:
		return m.handleServer(msg.msg)

	case disconnectedMsg:
		m.errLine = "disconnected from server"
		return m, tea.Quit
	}
	return m, nil
}

func (m playModel) commit(choice string) (tea.Model, tea.Cmd) {
	m.errLine = ""
	_ = m.client.Commit(choice, m.state.Bet)
	return m, nil
}

func (m playModel) handleServer(msg *protocol.Message) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case protocol.TypeJoined:
		var joined protocol.JoinedData
		if err := msg.DecodeData(&joined); err == nil {
			m.address = joined.Address
			m.balance = joined.Balance
			m.state = joined.State
			m.appendLog(fmt.Sprintf("joined as %s", joined.Address))
		}

	case protocol.TypeState:
		var state protocol.StateData
		if err := msg.DecodeData(&state); err == nil {
			m.state = state
		}

	case protocol.TypeBalance:
		var balance protocol.BalanceData
		if err := msg.DecodeData(&balance); err == nil {
			m.balance = balance.Balance
			m.pending = balance.Pending
		}

	case protocol.TypePlayerCommitted:
		var committed protocol.PlayerCommittedData
		if err := msg.DecodeData(&committed); err == nil {
			m.state.Stage = committed.Stage
			m.state.Pot = m.state.Bet * int64(committed.Stage)
			m.appendLog(fmt.Sprintf("%s played %s (slot %d)", committed.Address, committed.Choice, committed.Slot))
			m.refresh()
		}

	case protocol.TypeRoundResult:
		var result protocol.RoundResultData
		if err := msg.DecodeData(&result); err == nil {
			m.state.Stage = 0
			m.state.Pot = 0
			m.appendLog(winStyle.Render(fmt.Sprintf("%s wins %d (%s vs %s)",
				result.WinnerAddress, result.Payout, result.Choices[0], result.Choices[1])))
			m.refresh()
		}

	case protocol.TypeRoundDraw:
		var draw protocol.RoundDrawData
		if err := msg.DecodeData(&draw); err == nil {
			m.appendLog(fmt.Sprintf("draw (%s vs %s), pot held until an admin aborts",
				draw.Choices[0], draw.Choices[1]))
		}

	case protocol.TypeRoundAborted:
		var aborted protocol.RoundAbortedData
		if err := msg.DecodeData(&aborted); err == nil {
			m.state.Stage = 0
			m.state.Pot = 0
			m.appendLog("round aborted, stakes credited back; press w to withdraw")
			m.refresh()
		}

	case protocol.TypeLockChanged:
		var change protocol.LockChangedData
		if err := msg.DecodeData(&change); err == nil {
			m.state.Locked = change.Locked
			if change.Locked {
				m.appendLog("commits locked by admin")
			} else {
				m.appendLog("commits unlocked")
			}
		}

	case protocol.TypeWithdrawal:
		var withdrawal protocol.WithdrawalData
		if err := msg.DecodeData(&withdrawal); err == nil {
			m.appendLog(fmt.Sprintf("withdrew %d", withdrawal.Amount))
			m.refresh()
		}

	case protocol.TypeError:
		var e protocol.ErrorData
		if err := msg.DecodeData(&e); err == nil {
			m.errLine = fmt.Sprintf("%s (%s)", e.Message, e.Code)
		}
	}
	return m, m.listen()
}

func (m *playModel) refresh() {
	_ = m.client.Send(protocol.TypeGetState, nil)
	_ = m.client.Send(protocol.TypeGetBalance, nil)
}

func (m *playModel) appendLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > 8 {
		m.log = m.log[len(m.log)-8:]
	}
}

func (m playModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("rpsbet - rock paper scissors for money"))
	b.WriteString("\n")

	row := func(label, value string) {
		b.WriteString(labelStyle.Render(fmt.Sprintf("%-10s", label)))
		b.WriteString(valueStyle.Render(value))
		b.WriteString("\n")
	}
	row("player", m.address)
	row("balance", fmt.Sprintf("%d", m.balance))
	if m.pending > 0 {
		row("pending", fmt.Sprintf("%d (press w to withdraw)", m.pending))
	}
	row("bet", fmt.Sprintf("%d", m.state.Bet))
	row("pot", fmt.Sprintf("%d", m.state.Pot))

	status := fmt.Sprintf("%s waiting for players (%d/2)", m.spin.View(), m.state.Stage)
	if m.state.Stage == 2 {
		status = "round full, press d to settle"
	}
	if m.state.Locked {
		status = lockedStyle.Render("locked")
	}
	row("round", status)

	if len(m.log) > 0 {
		b.WriteString("\n")
		for _, line := range m.log {
			b.WriteString(logStyle.Render("> ") + line + "\n")
		}
	}
	if m.errLine != "" {
		b.WriteString("\n" + errStyle.Render(m.errLine) + "\n")
	}

	b.WriteString(helpStyle.Render("[r]ock [p]aper [s]cissors [d]istribute [w]ithdraw [q]uit"))
	return b.String()
}
