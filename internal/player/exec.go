// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package player

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Mokrovi/backServ/internal/log"
	"github.com/Mokrovi/backServ/internal/metrics"
	"github.com/Mokrovi/backServ/internal/procgroup"
)

const (
	defaultReadyAfter = 2 * time.Second
	defaultStopGrace  = 2 * time.Second
	eventBuffer       = 32
	ipcDialTimeout    = 500 * time.Millisecond
	ipcRetryInterval  = 100 * time.Millisecond
)

// Options configures an ExecPlayer.
type Options struct {
	Role    Role
	Command string
	Args    []string

	// Loop plays the source repeatedly by appending LoopArgs.
	Loop     bool
	LoopArgs []string

	// VolumeArg is a format string taking the volume in percent.
	VolumeArg string
	Volume    float64

	// IPCArg is a format string taking a unix socket path. Empty disables
	// runtime volume changes.
	IPCArg string

	Debug     bool
	DebugArgs []string

	// ReadyAfter is how long playback must last, counted from the player's
	// playback-restart IPC event, before EventReady is emitted. Without IPC
	// the player never reports ready.
	ReadyAfter time.Duration
	StopGrace  time.Duration
	Logger     *zerolog.Logger
}

// DefaultOptions returns mpv settings for role.
func DefaultOptions(role Role) Options {
	return Options{
		Role:      role,
		Command:   "mpv",
		Args:      []string{"--fs", "--no-terminal"},
		LoopArgs:  []string{"--loop-file=inf"},
		VolumeArg: "--volume=%d",
		IPCArg:    "--input-ipc-server=%s",
		Volume:    1.0,
	}
}

type process struct {
	cmd    *exec.Cmd
	url    string
	gen    uint64
	socket string
	stop   chan struct{}
}

// ExecPlayer runs one player process at a time.
type ExecPlayer struct {
	opts   Options
	logger zerolog.Logger

	mu     sync.Mutex
	cur    *process
	gen    uint64
	volume float64
	closed bool
	events chan Event
	wg     sync.WaitGroup
}

// NewExecPlayer creates a player. No process runs until Play.
func NewExecPlayer(opts Options) *ExecPlayer {
	if opts.ReadyAfter <= 0 {
		opts.ReadyAfter = defaultReadyAfter
	}
	if opts.StopGrace <= 0 {
		opts.StopGrace = defaultStopGrace
	}
	logger := log.WithComponent("player")
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	logger = logger.With().Str("role", string(opts.Role)).Logger()

	return &ExecPlayer{
		opts:   opts,
		logger: logger,
		volume: clamp(opts.Volume),
		events: make(chan Event, eventBuffer),
	}
}

// Events returns the event channel. It is closed by Close.
func (p *ExecPlayer) Events() <-chan Event { return p.events }

// Play stops the current process and starts a new one for url.
func (p *ExecPlayer) Play(url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrClosed
	}
	p.stopLocked()

	proc := &process{url: url, stop: make(chan struct{})}
	if p.opts.IPCArg != "" {
		proc.socket = filepath.Join(os.TempDir(), "backserv-"+uuid.NewString()+".sock")
	}

	args := p.argsLocked(url, proc.socket)
	// #nosec G204 -- command and arguments come from operator configuration
	cmd := exec.Command(p.opts.Command, args...)
	procgroup.Set(cmd)
	if p.opts.Debug {
		cmd.Stderr = p.logger.With().Str("stream", "stderr").Logger()
	}
	if err := cmd.Start(); err != nil {
		metrics.RecordPlayerEvent(string(p.opts.Role), "start_failed")
		return fmt.Errorf("start %s: %w", p.opts.Command, err)
	}

	p.gen++
	proc.cmd = cmd
	proc.gen = p.gen
	p.cur = proc

	p.logger.Info().
		Str(log.FieldEvent, "player.start").
		Str(log.FieldSourceURL, url).
		Int("pid", cmd.Process.Pid).
		Msg("player started")
	p.emitLocked(Event{Kind: EventBuffering, URL: url, Gen: proc.gen})

	waitCh := make(chan error, 1)
	go func() { waitCh <- cmd.Wait() }()

	p.wg.Add(1)
	go p.monitor(proc, waitCh)
	return nil
}

func (p *ExecPlayer) argsLocked(url, socket string) []string {
	args := append([]string(nil), p.opts.Args...)
	if p.opts.Loop {
		args = append(args, p.opts.LoopArgs...)
	}
	if p.opts.VolumeArg != "" {
		args = append(args, fmt.Sprintf(p.opts.VolumeArg, percent(p.volume)))
	}
	if socket != "" && p.opts.IPCArg != "" {
		args = append(args, fmt.Sprintf(p.opts.IPCArg, socket))
	}
	if p.opts.Debug {
		args = append(args, p.opts.DebugArgs...)
	}
	return append(args, url)
}

func (p *ExecPlayer) monitor(proc *process, waitCh chan error) {
	defer p.wg.Done()
	defer func() {
		if proc.socket != "" {
			_ = os.Remove(proc.socket)
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	started := make(chan struct{}, 1)
	if proc.socket != "" {
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			watchPlayback(ctx, proc.socket, started)
		}()
	}

	var ready <-chan time.Time
	for {
		select {
		case <-started:
			ready = time.After(p.opts.ReadyAfter)

		case <-ready:
			ready = nil
			p.mu.Lock()
			if p.cur == proc {
				p.emitLocked(Event{Kind: EventReady, URL: proc.url, Gen: proc.gen})
			}
			p.mu.Unlock()

		case err := <-waitCh:
			p.mu.Lock()
			if p.cur == proc {
				p.cur = nil
				ev := Event{Kind: EventEnded, URL: proc.url, Gen: proc.gen}
				if err != nil {
					ev.Kind = EventError
					ev.Err = err
				}
				p.logger.Info().
					Err(err).
					Str(log.FieldEvent, "player.exit").
					Str(log.FieldSourceURL, proc.url).
					Msg("player exited")
				p.emitLocked(ev)
			}
			p.mu.Unlock()
			return

		case <-proc.stop:
			if err := procgroup.Terminate(proc.cmd, waitCh, p.opts.StopGrace); err != nil {
				p.logger.Debug().Err(err).Msg("player terminated")
			}
			return
		}
	}
}

// watchPlayback follows the player's IPC event stream and signals started on
// the first playback-restart, which mpv sends once frames are actually being
// played. It returns when ctx ends or the socket closes.
func watchPlayback(ctx context.Context, socket string, started chan<- struct{}) {
	var conn net.Conn
	for {
		c, err := net.DialTimeout("unix", socket, ipcDialTimeout)
		if err == nil {
			conn = c
			break
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(ipcRetryInterval):
		}
	}
	defer func() { _ = conn.Close() }()
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()

	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		var msg struct {
			Event string `json:"event"`
		}
		if json.Unmarshal(sc.Bytes(), &msg) != nil {
			continue
		}
		if msg.Event == "playback-restart" {
			select {
			case started <- struct{}{}:
			default:
			}
			return
		}
	}
}

// emitLocked delivers ev without blocking. Callers hold p.mu, so a stopped
// process can never deliver after Stop returns.
func (p *ExecPlayer) emitLocked(ev Event) {
	if p.closed {
		return
	}
	metrics.RecordPlayerEvent(string(p.opts.Role), string(ev.Kind))
	if p.opts.Debug {
		p.logger.Info().Str("player_event", string(ev.Kind)).Uint64("gen", ev.Gen).Msg("player event")
	}
	select {
	case p.events <- ev:
	default:
		p.logger.Warn().Str("player_event", string(ev.Kind)).Msg("player event dropped, consumer too slow")
	}
}

// SetVolume changes the volume for the running process (when IPC is
// configured) and for every later Play.
func (p *ExecPlayer) SetVolume(level float64) {
	p.mu.Lock()
	p.volume = clamp(level)
	vol := p.volume
	socket := ""
	if p.cur != nil {
		socket = p.cur.socket
	}
	p.mu.Unlock()

	if socket == "" {
		return
	}
	if err := sendIPC(socket, []any{"set_property", "volume", percent(vol)}); err != nil {
		p.logger.Warn().Err(err).Float64(log.FieldVolume, vol).Msg("failed to apply volume to running player")
	}
}

// Stop terminates the current process. It does not wait for the exit.
func (p *ExecPlayer) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stopLocked()
}

func (p *ExecPlayer) stopLocked() {
	if p.cur == nil {
		return
	}
	p.logger.Debug().
		Str(log.FieldEvent, "player.stop").
		Str(log.FieldSourceURL, p.cur.url).
		Msg("stopping player")
	close(p.cur.stop)
	p.cur = nil
}

// Close stops playback, waits for every process to exit and closes Events.
func (p *ExecPlayer) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.stopLocked()
	p.closed = true
	p.mu.Unlock()

	p.wg.Wait()
	close(p.events)
}

func sendIPC(socket string, command []any) error {
	conn, err := net.DialTimeout("unix", socket, ipcDialTimeout)
	if err != nil {
		return fmt.Errorf("dial player ipc: %w", err)
	}
	defer func() { _ = conn.Close() }()
	_ = conn.SetWriteDeadline(time.Now().Add(ipcDialTimeout))

	payload, err := json.Marshal(map[string]any{"command": command})
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(payload, '\n')); err != nil {
		return fmt.Errorf("write player ipc: %w", err)
	}
	return nil
}

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 1.0
	}
	return math.Max(0, math.Min(1, v))
}

func percent(v float64) int {
	return int(math.Round(v * 100))
}
