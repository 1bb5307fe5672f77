package decoder

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/zjarhdgkrwk-lang/stack/src/features/playback"
)

// startupTimeout bounds how long we wait for a fresh mpv process to open its
// IPC socket.
const startupTimeout = 5 * time.Second

// MpvDecoder drives one mpv process over its JSON IPC socket. The engine runs
// two of these, so each instance owns a dedicated process and socket.
type MpvDecoder struct {
	cmd    *exec.Cmd
	conn   net.Conn
	socket string

	mu      sync.Mutex
	pending map[int64]chan mpvResponse
	nextID  int64

	events chan playback.Event
	done   chan struct{}
	once   sync.Once
}

type mpvResponse struct {
	RequestID int64           `json:"request_id"`
	Error     string          `json:"error"`
	Data      json.RawMessage `json:"data"`
}

type mpvEvent struct {
	Event     string `json:"event"`
	Reason    string `json:"reason"`
	FileError string `json:"file_error"`
}

// NewMpvDecoder spawns an idle mpv process and connects to its IPC socket.
func NewMpvDecoder(binaryPath, socketPath string) (*MpvDecoder, error) {
	if binaryPath == "" {
		binaryPath = "mpv"
	}
	os.Remove(socketPath)

	cmd := exec.Command(binaryPath,
		"--idle=yes",
		"--no-video",
		"--no-terminal",
		"--pause=yes",
		"--input-ipc-server="+socketPath,
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start mpv: %w", err)
	}

	conn, err := waitForSocket(socketPath)
	if err != nil {
		cmd.Process.Kill()
		return nil, err
	}

	d := &MpvDecoder{
		cmd:     cmd,
		conn:    conn,
		socket:  socketPath,
		pending: make(map[int64]chan mpvResponse),
		events:  make(chan playback.Event, 16),
		done:    make(chan struct{}),
	}
	go d.readLoop()

	slog.Info("mpv decoder ready", "socket", socketPath, "pid", cmd.Process.Pid)
	return d, nil
}

func waitForSocket(path string) (net.Conn, error) {
	deadline := time.Now().Add(startupTimeout)
	for time.Now().Before(deadline) {
		conn, err := net.Dial("unix", path)
		if err == nil {
			return conn, nil
		}
		time.Sleep(50 * time.Millisecond)
	}
	return nil, fmt.Errorf("mpv socket %s did not appear within %s", path, startupTimeout)
}

// readLoop demultiplexes the socket into command replies and decoder events.
func (d *MpvDecoder) readLoop() {
	scanner := bufio.NewScanner(d.conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Bytes()

		var resp mpvResponse
		if err := json.Unmarshal(line, &resp); err == nil && resp.RequestID != 0 {
			d.mu.Lock()
			ch, ok := d.pending[resp.RequestID]
			delete(d.pending, resp.RequestID)
			d.mu.Unlock()
			if ok {
				ch <- resp
			}
			continue
		}

		var ev mpvEvent
		if err := json.Unmarshal(line, &ev); err != nil || ev.Event == "" {
			continue
		}
		d.handleEvent(ev)
	}

	select {
	case <-d.done:
	default:
		slog.Warn("mpv connection closed unexpectedly", "socket", d.socket)
		d.emit(playback.Event{Kind: playback.EventFault, Err: &playback.PlayerError{
			Category: playback.ErrorDecoder,
			Message:  "decoder process connection lost",
		}})
	}
}

func (d *MpvDecoder) handleEvent(ev mpvEvent) {
	switch ev.Event {
	case "file-loaded":
		d.emit(playback.Event{Kind: playback.EventPrepared})
	case "end-file":
		switch ev.Reason {
		case "eof":
			d.emit(playback.Event{Kind: playback.EventEnded})
		case "error":
			d.emit(playback.Event{Kind: playback.EventFault, Err: categorizeMpvError(ev.FileError)})
		}
		// "stop" and "quit" are our own doing, not events.
	}
}

func categorizeMpvError(fileError string) *playback.PlayerError {
	msg := fileError
	if msg == "" {
		msg = "decoder reported an unspecified failure"
	}
	category := playback.ErrorDecoder
	lower := strings.ToLower(fileError)
	switch {
	case strings.Contains(lower, "file not found"), strings.Contains(lower, "no such file"):
		category = playback.ErrorSource
	case strings.Contains(lower, "network"), strings.Contains(lower, "connection"), strings.Contains(lower, "timed out"):
		category = playback.ErrorNetwork
	}
	return &playback.PlayerError{Category: category, Message: msg}
}

func (d *MpvDecoder) emit(ev playback.Event) {
	select {
	case d.events <- ev:
	default:
		slog.Warn("Dropping decoder event, channel full", "kind", ev.Kind)
	}
}

// command sends one IPC command and waits for its reply.
func (d *MpvDecoder) command(ctx context.Context, args ...any) (json.RawMessage, error) {
	d.mu.Lock()
	d.nextID++
	id := d.nextID
	ch := make(chan mpvResponse, 1)
	d.pending[id] = ch

	payload, err := json.Marshal(map[string]any{"command": args, "request_id": id})
	if err == nil {
		_, err = d.conn.Write(append(payload, '\n'))
	}
	if err != nil {
		delete(d.pending, id)
		d.mu.Unlock()
		return nil, err
	}
	d.mu.Unlock()

	select {
	case resp := <-ch:
		if resp.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", resp.Error)
		}
		return resp.Data, nil
	case <-ctx.Done():
		d.mu.Lock()
		delete(d.pending, id)
		d.mu.Unlock()
		return nil, ctx.Err()
	case <-d.done:
		return nil, fmt.Errorf("decoder released")
	}
}

func (d *MpvDecoder) setProperty(ctx context.Context, name string, value any) error {
	_, err := d.command(ctx, "set_property", name, value)
	return err
}

func (d *MpvDecoder) getFloat(ctx context.Context, name string) (float64, error) {
	data, err := d.command(ctx, "get_property", name)
	if err != nil {
		// Nothing loaded yet.
		if strings.Contains(err.Error(), "property unavailable") {
			return 0, nil
		}
		return 0, err
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return 0, err
	}
	return v, nil
}

// Load replaces the decoder's source. mpv stays paused until Play.
func (d *MpvDecoder) Load(ctx context.Context, uri string) error {
	if err := d.setProperty(ctx, "pause", true); err != nil {
		return err
	}
	_, err := d.command(ctx, "loadfile", uri, "replace")
	return err
}

func (d *MpvDecoder) Play(ctx context.Context) error {
	return d.setProperty(ctx, "pause", false)
}

func (d *MpvDecoder) Pause(ctx context.Context) error {
	return d.setProperty(ctx, "pause", true)
}

func (d *MpvDecoder) Seek(ctx context.Context, positionMs int64) error {
	_, err := d.command(ctx, "seek", float64(positionMs)/1000.0, "absolute")
	return err
}

func (d *MpvDecoder) Position(ctx context.Context) (int64, error) {
	secs, err := d.getFloat(ctx, "time-pos")
	if err != nil {
		return 0, err
	}
	return int64(secs * 1000), nil
}

func (d *MpvDecoder) Duration(ctx context.Context) (int64, error) {
	secs, err := d.getFloat(ctx, "duration")
	if err != nil {
		return 0, err
	}
	return int64(secs * 1000), nil
}

func (d *MpvDecoder) SetVolume(ctx context.Context, volume float64) error {
	return d.setProperty(ctx, "volume", volume*100)
}

func (d *MpvDecoder) Stop(ctx context.Context) error {
	_, err := d.command(ctx, "stop")
	return err
}

// Release quits the mpv process and closes the socket.
func (d *MpvDecoder) Release() error {
	var err error
	d.once.Do(func() {
		payload, _ := json.Marshal(map[string]any{"command": []any{"quit"}})
		d.conn.Write(append(payload, '\n'))
		close(d.done)
		d.conn.Close()
		err = d.cmd.Wait()
		os.Remove(d.socket)
	})
	return err
}

func (d *MpvDecoder) Events() <-chan playback.Event {
	return d.events
}
