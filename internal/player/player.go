// Package player drives a headless mpv process over its JSON IPC socket.
package player

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"
)

var errNotConnected = errors.New("mpv not connected")

// observed lists the mpv properties reported as events. The index plus one
// is the observer id.
var observed = []string{"time-pos", "duration", "pause", "volume", "mute"}

// Event describes playback state updates emitted by mpv.
type Event struct {
	TimePos   *float64
	Duration  *float64
	Paused    *bool
	Volume    *float64
	Muted     *bool
	Ended     bool   // the stream played to its end
	EndReason string // eof, stop, quit, error, redirect
	Err       error
}

type Options struct {
	MPVPath string
	// IPCPath is the unix socket mpv listens on. Empty means a per-process
	// socket in the temp dir.
	IPCPath        string
	Logger         *slog.Logger
	DisableProcess bool
	Dial           func(ctx context.Context, network, addr string) (net.Conn, error)
	ExtraArgs      []string
}

// Controller owns the mpv process and its IPC connection. mpv runs idle, so
// a stream that plays to its end is unloaded; the controller remembers the
// last url so Restart can load it again.
type Controller struct {
	opts   Options
	proc   *exec.Cmd
	events chan Event

	mu   sync.Mutex // guards conn writes
	conn net.Conn

	trackMu sync.Mutex
	url     string
	idle    bool
}

func New(opts Options) *Controller {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.IPCPath == "" {
		opts.IPCPath = filepath.Join(os.TempDir(), fmt.Sprintf("spofree-mpv-%d.sock", os.Getpid()))
	}
	return &Controller{opts: opts, events: make(chan Event, 32)}
}

// Start launches mpv (unless disabled), connects to its socket and subscribes
// to the observed properties.
func (c *Controller) Start(ctx context.Context) error {
	if !c.opts.DisableProcess {
		if err := c.spawn(ctx); err != nil {
			return err
		}
	}
	conn, err := c.dial(ctx)
	if err != nil {
		return fmt.Errorf("connect mpv ipc: %w", err)
	}
	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	for i, name := range observed {
		if err := c.command("observe_property", i+1, name); err != nil {
			return fmt.Errorf("observe %s: %w", name, err)
		}
	}
	go c.readLoop(conn)
	c.opts.Logger.Debug("player ready", slog.String("ipc_path", c.opts.IPCPath))
	return nil
}

func (c *Controller) spawn(ctx context.Context) error {
	args := append([]string{
		"--idle=yes",
		"--force-window=no",
		"--no-terminal",
		"--no-video",
		"--input-ipc-server=" + c.opts.IPCPath,
	}, c.opts.ExtraArgs...)
	c.proc = exec.CommandContext(ctx, c.opts.MPVPath, args...)
	if err := c.proc.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}
	c.opts.Logger.Debug("mpv started", slog.Int("pid", c.proc.Process.Pid), slog.Any("args", args))
	return nil
}

// dial waits for mpv to create its socket, backing off between attempts.
func (c *Controller) dial(ctx context.Context) (net.Conn, error) {
	dial := c.opts.Dial
	if dial == nil {
		dial = (&net.Dialer{Timeout: 5 * time.Second}).DialContext
	}
	const attempts = 10
	delay := 50 * time.Millisecond
	var err error
	for i := 0; i < attempts; i++ {
		var conn net.Conn
		if conn, err = dial(ctx, "unix", c.opts.IPCPath); err == nil {
			return conn, nil
		}
		c.opts.Logger.Debug("mpv socket not ready", slog.Int("attempt", i+1), slog.Any("err", err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay = min(delay*2, 500*time.Millisecond)
	}
	return nil, err
}

// Events returns the event channel. It is closed when the connection drops.
func (c *Controller) Events() <-chan Event { return c.events }

func (c *Controller) command(args ...any) error {
	b, err := json.Marshal(map[string]any{"command": args})
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return errNotConnected
	}
	_, err = c.conn.Write(append(b, '\n'))
	return err
}

func (c *Controller) setProperty(name string, value any) error {
	if err := c.command("set_property", name, value); err != nil {
		c.opts.Logger.Warn("set mpv property", slog.String("name", name), slog.Any("err", err))
		return err
	}
	return nil
}

// Load replaces whatever is playing with url and unpauses.
func (c *Controller) Load(url string) error {
	if err := c.command("loadfile", url, "replace"); err != nil {
		c.opts.Logger.Error("load stream", slog.String("url", url), slog.Any("err", err))
		return err
	}
	c.trackMu.Lock()
	c.url, c.idle = url, false
	c.trackMu.Unlock()
	return c.SetPaused(false)
}

// Restart plays the current stream from the start. A stream that already
// ended is loaded again, since mpv has dropped it.
func (c *Controller) Restart() error {
	c.trackMu.Lock()
	url, idle := c.url, c.idle
	c.trackMu.Unlock()
	if idle && url != "" {
		return c.Load(url)
	}
	if err := c.command("seek", 0, "absolute"); err != nil {
		c.opts.Logger.Warn("restart track", slog.Any("err", err))
		return err
	}
	return c.SetPaused(false)
}

func (c *Controller) SetPaused(paused bool) error {
	return c.setProperty("pause", paused)
}

// Seek moves the playhead by deltaSeconds.
func (c *Controller) Seek(deltaSeconds float64) error {
	return c.command("seek", deltaSeconds, "relative")
}

// SetVolume sets the volume, clamped to 0-100.
func (c *Controller) SetVolume(vol float64) error {
	return c.setProperty("volume", max(0, min(vol, 100)))
}

func (c *Controller) SetMute(mute bool) error {
	return c.setProperty("mute", mute)
}

// Stop asks mpv to quit, closes the connection and reaps the process.
func (c *Controller) Stop() error {
	_ = c.command("quit")
	c.mu.Lock()
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.mu.Unlock()
	if c.proc != nil && c.proc.Process != nil {
		_ = c.proc.Process.Kill()
		_ = c.proc.Wait()
		c.proc = nil
	}
	return nil
}

type ipcMessage struct {
	Event  string `json:"event"`
	Name   string `json:"name"`
	Data   any    `json:"data"`
	Reason string `json:"reason"`
}

func (c *Controller) readLoop(conn net.Conn) {
	defer close(c.events)
	sc := bufio.NewScanner(conn)
	for sc.Scan() {
		var msg ipcMessage
		if err := json.Unmarshal(sc.Bytes(), &msg); err != nil {
			c.events <- Event{Err: fmt.Errorf("decode: %w", err)}
			continue
		}
		switch msg.Event {
		case "property-change":
			if evt, ok := propertyEvent(msg.Name, msg.Data); ok {
				c.events <- evt
			}
		case "end-file":
			// "stop" is the old file being replaced by loadfile.
			ended := msg.Reason == "eof"
			if ended {
				c.trackMu.Lock()
				c.idle = true
				c.trackMu.Unlock()
			}
			c.events <- Event{Ended: ended, EndReason: msg.Reason}
		}
	}
	if err := sc.Err(); err != nil {
		c.events <- Event{Err: err}
	}
}

func propertyEvent(name string, data any) (Event, bool) {
	switch name {
	case "pause", "mute":
		b, ok := data.(bool)
		if !ok {
			return Event{}, false
		}
		if name == "pause" {
			return Event{Paused: &b}, true
		}
		return Event{Muted: &b}, true
	case "time-pos", "duration", "volume":
		v, ok := data.(float64)
		if !ok {
			return Event{}, false
		}
		switch name {
		case "time-pos":
			return Event{TimePos: &v}, true
		case "duration":
			return Event{Duration: &v}, true
		}
		return Event{Volume: &v}, true
	}
	return Event{}, false
}
