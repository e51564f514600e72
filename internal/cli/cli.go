// Package cli renders the diagnostic conversation on a terminal.
//
// The UI owns everything about presentation: menu rendering, numbering, and
// input validation for selections. The engine only ever sees a zero-based
// index for menu steps, so the menu contract holds by construction.
package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Cyph3rcat/ctrlfix/internal/config"
	"github.com/Cyph3rcat/ctrlfix/internal/flow"
	"github.com/Cyph3rcat/ctrlfix/internal/models"
)

var (
	botStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
	menuStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	hintStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Italic(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("229")).Bold(true)
)

// UI runs one conversation session over a reader/writer pair.
type UI struct {
	engine  *flow.Engine
	scanner *bufio.Scanner
	out     io.Writer
}

// New creates a terminal UI bound to the given streams.
func New(engine *flow.Engine, in io.Reader, out io.Writer) *UI {
	return &UI{
		engine:  engine,
		scanner: bufio.NewScanner(in),
		out:     out,
	}
}

// Run drives the session until it completes, the input stream ends, or the
// context is cancelled.
func (u *UI) Run(ctx context.Context, s *models.Session) error {
	replies, err := u.engine.Start(ctx, s)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	u.printReplies(replies)

	for !s.Completed {
		if err := ctx.Err(); err != nil {
			return err
		}
		input, ok, err := u.readInput(s)
		if err != nil {
			return err
		}
		if !ok {
			slog.Info("UI.Run: input stream closed", "ticketID", s.TicketID)
			fmt.Fprintln(u.out, hintStyle.Render("Session ended before the ticket was filed."))
			return nil
		}

		replies, err := u.engine.Advance(ctx, s, input)
		if err != nil {
			if errors.Is(err, models.ErrSessionCompleted) {
				break
			}
			return fmt.Errorf("conversation failed: %w", err)
		}
		u.printReplies(replies)
	}
	return nil
}

// readInput gathers one unit of input for the current step. Menu steps render
// the options and validate the selection locally; everything else is a free
// line. The second return is false when the stream ends.
func (u *UI) readInput(s *models.Session) (string, bool, error) {
	if opts := u.engine.MenuOptions(s.CurrentStep); opts != nil {
		return u.selectOption(opts)
	}
	return u.readLine()
}

func (u *UI) readLine() (string, bool, error) {
	fmt.Fprint(u.out, promptStyle.Render("> "))
	if !u.scanner.Scan() {
		return "", false, u.scanner.Err()
	}
	return u.scanner.Text(), true, nil
}

// selectOption renders a numbered menu and re-asks until the user picks a
// valid entry. The engine receives the zero-based index as a string.
func (u *UI) selectOption(opts []config.MenuOption) (string, bool, error) {
	for i, label := range config.Labels(opts) {
		fmt.Fprintln(u.out, menuStyle.Render(fmt.Sprintf("  %d. %s", i+1, label)))
	}
	for {
		fmt.Fprint(u.out, promptStyle.Render(fmt.Sprintf("Pick 1-%d > ", len(opts))))
		if !u.scanner.Scan() {
			return "", false, u.scanner.Err()
		}
		choice, err := strconv.Atoi(strings.TrimSpace(u.scanner.Text()))
		if err != nil || choice < 1 || choice > len(opts) {
			fmt.Fprintln(u.out, errorStyle.Render(fmt.Sprintf("Please enter a number between 1 and %d.", len(opts))))
			continue
		}
		return strconv.Itoa(choice - 1), true, nil
	}
}

func (u *UI) printReplies(replies []string) {
	for _, r := range replies {
		fmt.Fprintln(u.out, botStyle.Render(r))
	}
}
