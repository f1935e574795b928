// Package prompt runs the interactive console inside the daemon process:
// the same command grammar as the raw socket, line-edited, with the reply
// rendered underneath.
package prompt

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/chzyer/readline"
	"github.com/fatih/color"

	"github.com/hpungsan/clipd/internal/protocol"
)

// Submitter executes commands. The dispatcher implements it.
type Submitter interface {
	Submit(ctx context.Context, cmd protocol.Command) (protocol.Payload, error)
}

// Config wires a console. Stdin and Out default to the process streams and
// exist for tests.
type Config struct {
	Submitter Submitter
	Stdin     io.ReadCloser
	Out       io.Writer
	Log       *slog.Logger
}

type Prompt struct {
	submitter Submitter
	stdin     io.ReadCloser
	out       io.Writer
	log       *slog.Logger
}

func New(cfg Config) *Prompt {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	if cfg.Log == nil {
		cfg.Log = slog.Default()
	}
	return &Prompt{
		submitter: cfg.Submitter,
		stdin:     cfg.Stdin,
		out:       cfg.Out,
		log:       cfg.Log,
	}
}

// Run reads command lines until the daemon stops or the console is closed.
// Closing the console (EOF or a bare interrupt) asks the daemon to quit;
// the console and the daemon share their lifetime.
func (p *Prompt) Run(ctx context.Context) error {
	rlCfg := &readline.Config{
		Prompt:          color.CyanString(":> "),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	}
	if p.stdin != nil {
		rlCfg.Stdin = p.stdin
	}
	if p.out != os.Stdout {
		rlCfg.Stdout = writerOnly{p.out}
	}

	rl, err := readline.NewEx(rlCfg)
	if err != nil {
		return fmt.Errorf("init console: %w", err)
	}
	defer rl.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			rl.Close()
		case <-done:
		}
	}()

	p.log.Info("interactive console started")
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			if len(line) > 0 {
				continue
			}
			return p.quit(ctx)
		}
		if err != nil {
			// EOF or closed console.
			return p.quit(ctx)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		cmd, perr := protocol.Parse(line)
		if perr != nil {
			cmd = protocol.NewBare(protocol.CmdHelp)
		}

		payload, err := p.submitter.Submit(ctx, cmd)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(p.out, color.RedString("error: %v", err))
			return nil
		}

		p.print(payload)
		if payload.Type == protocol.PayloadStop {
			return nil
		}
	}
}

// quit asks the daemon to shut down on behalf of a closed console.
func (p *Prompt) quit(ctx context.Context) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if _, err := p.submitter.Submit(ctx, protocol.NewBare(protocol.CmdQuit)); err != nil {
		return nil
	}
	fmt.Fprintln(p.out, color.YellowString("stopping"))
	return nil
}

func (p *Prompt) print(payload protocol.Payload) {
	switch payload.Type {
	case protocol.PayloadOk:
		fmt.Fprintln(p.out, color.GreenString("ok"))
	case protocol.PayloadStop:
		fmt.Fprintln(p.out, color.YellowString("stopping"))
	default:
		fmt.Fprintln(p.out, protocol.Render(payload))
	}
}

// writerOnly hides any Close method on the underlying writer from readline.
type writerOnly struct {
	io.Writer
}
