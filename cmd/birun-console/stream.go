package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"

	"github.com/birun/console/pkg/stream"
	cli "github.com/urfave/cli/v3"
)

func newExecCommand() *cli.Command {
	return &cli.Command{
		Name:      "exec",
		Usage:     "Run a script on a server and stream its output",
		ArgsUsage: "<script-id> <server-id>",
		Action:    withApp(execScript),
	}
}

func newTerminalCommand() *cli.Command {
	return &cli.Command{
		Name:      "terminal",
		Aliases:   []string{"ssh"},
		Usage:     "Open an interactive terminal on a server",
		ArgsUsage: "<server-id>",
		Description: "Lines read from stdin are sent as input. Ctrl-C is forwarded to the remote shell.\n" +
			"Commands: :history, :resize <cols> <rows>, :run <script-type> <file>, :quit",
		Action: withApp(openTerminal),
	}
}

// lineWriter prints appended session lines, serialized across sessions.
type lineWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func (lw *lineWriter) observe(_ *stream.Session, u stream.Update) {
	if !u.Appended {
		return
	}

	lw.mu.Lock()
	defer lw.mu.Unlock()

	line := u.Line
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}

	_, _ = io.WriteString(lw.out, line)
}

func streamManager(command *cli.Command, a *app) (*stream.Manager, error) {
	client, err := a.api()
	if err != nil {
		return nil, err
	}

	lw := &lineWriter{out: command.Root().Writer}

	return stream.NewManager(stream.Config{
		Endpoint:       client.StreamURL,
		Header:         client.AuthHeader(),
		ConnectTimeout: a.settings.connectTimeout,
		Publisher:      a.bus,
		Observer:       lw.observe,
		Tracer:         a.tracer,
		Logger:         a.logger,
	})
}

// sessionResult turns the final state of s into the command's exit error.
func sessionResult(s *stream.Session) error {
	switch s.State() {
	case stream.StateFinished:
		if status := s.Status(); status != "" && status != "completed" && status != "success" {
			return fmt.Errorf("execution %d finished with status %s", s.ExecutionID(), status)
		}

		return nil
	case stream.StateError:
		lines := s.Lines()
		if len(lines) > 0 {
			return errors.New(strings.TrimSpace(lines[len(lines)-1]))
		}

		return errors.New("stream failed")
	default:
		return nil
	}
}

func execScript(ctx context.Context, command *cli.Command, a *app) error {
	scriptID, err := idArg(command, 0, "script id")
	if err != nil {
		return err
	}

	serverID, err := idArg(command, 1, "server id")
	if err != nil {
		return err
	}

	m, err := streamManager(command, a)
	if err != nil {
		return err
	}
	defer m.StopAll()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	s, err := m.Open(ctx, stream.ScriptKey(scriptID, serverID))
	if err != nil {
		return err
	}

	<-s.Done()

	return sessionResult(s)
}

func openTerminal(ctx context.Context, command *cli.Command, a *app) error {
	serverID, err := idArg(command, 0, "server id")
	if err != nil {
		return err
	}

	m, err := streamManager(command, a)
	if err != nil {
		return err
	}
	defer m.StopAll()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGTERM)
	defer stop()

	interrupts := make(chan os.Signal, 1)
	signal.Notify(interrupts, os.Interrupt)
	defer signal.Stop(interrupts)

	s, err := m.Open(ctx, stream.TerminalKey(serverID))
	if err != nil {
		return err
	}

	lines := make(chan string)
	go scanLines(command.Root().Reader, lines)

	errOut := command.Root().ErrWriter

	for {
		select {
		case <-s.Done():
			return sessionResult(s)
		case <-interrupts:
			if err := s.CtrlC(); err != nil {
				fmt.Fprintln(errOut, err)
			}
		case line, ok := <-lines:
			if !ok {
				s.Stop()
				return nil
			}

			quit, err := terminalLine(s, line, command.Root().Writer)
			if err != nil {
				fmt.Fprintln(errOut, err)
			}

			if quit {
				s.Stop()
				return nil
			}
		}
	}
}

func scanLines(r io.Reader, lines chan<- string) {
	defer close(lines)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		lines <- scanner.Text()
	}
}

// terminalLine sends line as input unless it is a local command.
func terminalLine(s *stream.Session, line string, out io.Writer) (bool, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], ":") {
		return false, s.SendInput(line)
	}

	switch fields[0] {
	case ":quit", ":q":
		return true, nil
	case ":history":
		for i, entry := range s.HistoryEntries() {
			fmt.Fprintf(out, "%4d  %s\n", i+1, entry)
		}

		return false, nil
	case ":resize":
		if len(fields) != 3 {
			return false, errors.New("usage: :resize <cols> <rows>")
		}

		cols, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("invalid cols %q", fields[1])
		}

		rows, err := strconv.Atoi(fields[2])
		if err != nil {
			return false, fmt.Errorf("invalid rows %q", fields[2])
		}

		return false, s.Resize(cols, rows)
	case ":run":
		if len(fields) != 3 {
			return false, errors.New("usage: :run <script-type> <file>")
		}

		content, err := os.ReadFile(fields[2])
		if err != nil {
			return false, err
		}

		return false, s.RunScript(fields[1], string(content))
	default:
		return false, s.SendInput(line)
	}
}
