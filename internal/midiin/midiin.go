// Package midiin connects hardware MIDI inputs to a note handler. A Watcher
// rescans the available ports periodically, opening matching ones as they
// appear and dropping those that vanish.
package midiin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
)

// ErrNoDriver is returned when the binary was built without a MIDI driver.
var ErrNoDriver = errors.New("midiin: no MIDI driver available")

// Handler receives raw three-byte channel messages.
type Handler func(status, data1, data2 byte)

// Source enumerates input ports and listens on them by name.
type Source interface {
	Ports() ([]string, error)
	Listen(name string, recv func(msg []byte), onErr func(error)) (stop func(), err error)
}

// DriverSource is a Source backed by a gomidi driver.
type DriverSource struct {
	drv drivers.Driver
}

// Ports lists the names of the driver's input ports.
func (s *DriverSource) Ports() ([]string, error) {
	ins, err := s.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("midiin: list inputs: %w", err)
	}
	names := make([]string, 0, len(ins))
	for _, in := range ins {
		names = append(names, in.String())
	}
	return names, nil
}

// Listen opens the named port and delivers raw messages to recv until the
// returned stop function is called.
func (s *DriverSource) Listen(name string, recv func(msg []byte), onErr func(error)) (func(), error) {
	ins, err := s.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("midiin: list inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return nil, fmt.Errorf("midiin: input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return nil, fmt.Errorf("midiin: open %q: %w", name, err)
	}
	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		recv(msg)
	}, midi.HandleError(onErr))
	if err != nil {
		_ = found.Close()
		return nil, fmt.Errorf("midiin: listen %q: %w", name, err)
	}
	return func() {
		stop()
		_ = found.Close()
	}, nil
}

// Close releases the driver.
func (s *DriverSource) Close() error {
	return s.drv.Close()
}

// Watcher keeps every input whose name starts with prefix connected.
type Watcher struct {
	src    Source
	prefix string
	handle Handler
	logger *slog.Logger

	mu   sync.Mutex
	open map[string]func()
}

// NewWatcher returns a Watcher; an empty prefix matches every port.
func NewWatcher(src Source, prefix string, h Handler, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{
		src:    src,
		prefix: prefix,
		handle: h,
		logger: logger,
		open:   make(map[string]func()),
	}
}

// Scan opens new matching ports and closes those no longer listed. Every
// change is logged with the port name and its new state.
func (w *Watcher) Scan() error {
	names, err := w.src.Ports()
	if err != nil {
		return err
	}
	present := make(map[string]bool, len(names))
	for _, n := range names {
		if strings.HasPrefix(n, w.prefix) {
			present[n] = true
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	for name, stop := range w.open {
		if present[name] {
			continue
		}
		stop()
		delete(w.open, name)
		w.logger.Warn("MIDI input state changed", "device", name, "state", "disconnected")
	}

	var errs []error
	for _, name := range names {
		if !present[name] {
			continue
		}
		if _, ok := w.open[name]; ok {
			continue
		}
		stop, err := w.src.Listen(name, w.receive, func(err error) { w.listenerFailed(name, err) })
		if err != nil {
			w.logger.Error("MIDI input open failed", "device", name, "err", err)
			errs = append(errs, err)
			continue
		}
		w.open[name] = stop
		w.logger.Info("MIDI input state changed", "device", name, "state", "connected")
	}
	return errors.Join(errs...)
}

func (w *Watcher) receive(msg []byte) {
	if len(msg) < 3 {
		w.logger.Debug("MIDI message ignored", "msg", midi.Message(msg).String())
		return
	}
	w.handle(msg[0], msg[1], msg[2])
}

// listenerFailed runs on the listener goroutine, so the port is dropped
// from a new goroutine. The next Scan reopens it if it is still listed.
func (w *Watcher) listenerFailed(name string, err error) {
	w.logger.Warn("MIDI listener error", "device", name, "err", err)
	go func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		if stop, ok := w.open[name]; ok {
			stop()
			delete(w.open, name)
			w.logger.Warn("MIDI input state changed", "device", name, "state", "disconnected")
		}
	}()
}

// Connected lists the open ports in sorted order.
func (w *Watcher) Connected() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.open))
	for n := range w.open {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Run scans immediately and then every interval until ctx is done, and
// closes every port before returning.
func (w *Watcher) Run(ctx context.Context, interval time.Duration) {
	defer w.Close()
	if err := w.Scan(); err != nil {
		w.logger.Debug("MIDI scan", "err", err)
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := w.Scan(); err != nil {
				w.logger.Debug("MIDI scan", "err", err)
			}
		}
	}
}

// Close stops every listener.
func (w *Watcher) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for name, stop := range w.open {
		stop()
		delete(w.open, name)
	}
}
