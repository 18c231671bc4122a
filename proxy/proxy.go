// Package proxy runs an ACP agent as a child process and relays its
// stdio streams byte-for-byte while feeding a copy of every line to the
// span correlator. The relay path never waits on telemetry: a full tap
// queue drops the copy, not the traffic.
package proxy

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/bazelment/yoloswe/acp-trace/acp"
	"github.com/bazelment/yoloswe/acp-trace/internal/procattr"
	"github.com/bazelment/yoloswe/acp-trace/spans"
)

const (
	// defaultTapBuffer bounds the tap queue between the forwarders and
	// the correlator goroutine.
	defaultTapBuffer = 1024
	// killGraceDelay is how long the agent gets after SIGTERM before
	// its process group is killed.
	killGraceDelay = 500 * time.Millisecond
	// flushTimeout bounds the final telemetry flush on shutdown.
	flushTimeout = 5 * time.Second
)

// Flusher pushes buffered telemetry to its exporters. Satisfied by
// telemetry.Provider.
type Flusher interface {
	ForceFlush(ctx context.Context) error
}

// tapEvent is one relayed line queued for the correlator.
type tapEvent struct {
	direction acp.Direction
	line      []byte
}

// Proxy relays editor stdio to an agent subprocess and back.
type Proxy struct {
	manager   *spans.Manager
	flusher   Flusher
	agentPath string
	agentArgs []string
	in        io.Reader
	out       io.Writer
	tapBuffer int
}

// Option configures a Proxy.
type Option func(*Proxy)

// WithStdio overrides the editor-side streams, which default to
// os.Stdin and os.Stdout.
func WithStdio(in io.Reader, out io.Writer) Option {
	return func(p *Proxy) {
		p.in = in
		p.out = out
	}
}

// WithFlusher sets the telemetry flusher invoked after the agent exits.
func WithFlusher(f Flusher) Option {
	return func(p *Proxy) { p.flusher = f }
}

// WithTapBuffer sets the tap queue capacity.
func WithTapBuffer(n int) Option {
	return func(p *Proxy) {
		if n > 0 {
			p.tapBuffer = n
		}
	}
}

// New builds a Proxy that will spawn agentPath with agentArgs and feed
// every relayed line to manager.
func New(manager *spans.Manager, agentPath string, agentArgs []string, opts ...Option) *Proxy {
	p := &Proxy{
		manager:   manager,
		agentPath: agentPath,
		agentArgs: agentArgs,
		in:        os.Stdin,
		out:       os.Stdout,
		tapBuffer: defaultTapBuffer,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run spawns the agent and relays until it exits, then drains the tap
// queue, closes all open spans, and flushes telemetry. The returned int
// is the agent's exit code; it is valid whenever err is nil.
func (p *Proxy) Run(ctx context.Context) (int, error) {
	cmd := exec.Command(p.agentPath, p.agentArgs...)
	procattr.Set(cmd)
	cmd.Stderr = os.Stderr

	agentStdin, err := cmd.StdinPipe()
	if err != nil {
		return 1, fmt.Errorf("open agent stdin: %w", err)
	}
	agentStdout, err := cmd.StdoutPipe()
	if err != nil {
		return 1, fmt.Errorf("open agent stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return 1, fmt.Errorf("start agent %q: %w", p.agentPath, err)
	}
	slog.Debug("agent started", "path", p.agentPath, "pid", cmd.Process.Pid)

	tap := make(chan tapEvent, p.tapBuffer)
	stop := make(chan struct{})
	drained := make(chan struct{})
	go p.consume(tap, stop, drained)

	// Editor to agent. When the editor hangs up, the agent is brought
	// down with it, SIGTERM first. This goroutine can stay blocked on
	// a read of p.in past the agent's death; the process is about to
	// exit anyway.
	go func() {
		if err := p.relay(agentStdin, p.in, acp.DirectionEditorToAgent, tap); err != nil {
			slog.Debug("editor stream closed", "error", err)
		}
		agentStdin.Close()
		_ = procattr.SignalGroup(cmd.Process, syscall.SIGTERM)
		time.AfterFunc(killGraceDelay, func() {
			_ = procattr.KillGroup(cmd.Process)
		})
	}()

	// Agent to editor, on this goroutine. Ends when the agent closes
	// its stdout, which is how the agent's exit is observed.
	if err := p.relay(p.out, agentStdout, acp.DirectionAgentToEditor, tap); err != nil {
		slog.Debug("agent stream closed", "error", err)
	}

	waitErr := cmd.Wait()

	// Everything tapped before the agent died still gets correlated.
	close(stop)
	<-drained

	if p.flusher != nil {
		flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
		defer cancel()
		if err := p.flusher.ForceFlush(flushCtx); err != nil {
			slog.Warn("flush telemetry", "error", err)
		}
	}

	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			if code := exitErr.ExitCode(); code >= 0 {
				return code, nil
			}
			// Killed by signal, typically ours after the editor hung up.
			return 0, nil
		}
		return 1, fmt.Errorf("wait for agent: %w", waitErr)
	}
	return 0, nil
}

// relay copies src to dst line by line, forwarding each line before
// tapping it. The final line is forwarded even without a trailing
// newline. Telemetry never blocks the copy: a full tap queue drops the
// event.
func (p *Proxy) relay(dst io.Writer, src io.Reader, direction acp.Direction, tap chan<- tapEvent) error {
	reader := bufio.NewReader(src)
	for {
		line, err := reader.ReadBytes('\n')
		if len(line) > 0 {
			if _, werr := dst.Write(line); werr != nil {
				return fmt.Errorf("forward %s: %w", direction, werr)
			}
			event := tapEvent{direction: direction, line: append([]byte(nil), line...)}
			select {
			case tap <- event:
			default:
				slog.Debug("tap queue full, dropping line", "direction", direction)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read %s: %w", direction, err)
		}
	}
}

// consume owns the Manager: every Process call and the final Shutdown
// happen on this goroutine. The tap channel is never closed, because
// a relay goroutine may outlive the drain; the stop channel ends the
// loop instead, after which the queue is drained once.
func (p *Proxy) consume(tap <-chan tapEvent, stop <-chan struct{}, drained chan<- struct{}) {
	defer close(drained)
	for {
		select {
		case event := <-tap:
			p.manager.Process(event.direction, event.line)
		case <-stop:
			for {
				select {
				case event := <-tap:
					p.manager.Process(event.direction, event.line)
				default:
					p.manager.Shutdown()
					return
				}
			}
		}
	}
}
