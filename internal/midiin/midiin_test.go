package midiin

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeSource struct {
	mu      sync.Mutex
	ports   []string
	recv    map[string]func([]byte)
	stopped []string
	failOn  string
}

func (f *fakeSource) Ports() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ports...), nil
}

func (f *fakeSource) Listen(name string, recv func([]byte), _ func(error)) (func(), error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if name == f.failOn {
		return nil, errors.New("device busy")
	}
	if f.recv == nil {
		f.recv = make(map[string]func([]byte))
	}
	f.recv[name] = recv
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.stopped = append(f.stopped, name)
		delete(f.recv, name)
	}, nil
}

func (f *fakeSource) send(name string, msg ...byte) {
	f.mu.Lock()
	recv := f.recv[name]
	f.mu.Unlock()
	if recv != nil {
		recv(msg)
	}
}

type triple struct{ s, d1, d2 byte }

func TestScanConnectsMatchingPorts(t *testing.T) {
	src := &fakeSource{ports: []string{"Keystation 49", "Midi Through", "Keystation Mini"}}
	var got []triple
	var buf bytes.Buffer
	w := NewWatcher(src, "Keystation", func(s, d1, d2 byte) {
		got = append(got, triple{s, d1, d2})
	}, slog.New(slog.NewTextHandler(&buf, nil)))

	if err := w.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if c := w.Connected(); !reflect.DeepEqual(c, []string{"Keystation 49", "Keystation Mini"}) {
		t.Fatalf("connected = %v", c)
	}
	if !strings.Contains(buf.String(), "state=connected") {
		t.Fatalf("connection not logged: %s", buf.String())
	}

	src.send("Keystation 49", 0x90, 60, 100)
	src.send("Keystation 49", 0xF8)
	src.send("Midi Through", 0x90, 61, 100)
	if want := []triple{{0x90, 60, 100}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("handled = %v", got)
	}
}

func TestScanDropsVanishedPorts(t *testing.T) {
	src := &fakeSource{ports: []string{"A", "B"}}
	var buf bytes.Buffer
	w := NewWatcher(src, "", func(byte, byte, byte) {}, slog.New(slog.NewTextHandler(&buf, nil)))
	_ = w.Scan()

	src.ports = []string{"B"}
	if err := w.Scan(); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if c := w.Connected(); !reflect.DeepEqual(c, []string{"B"}) {
		t.Fatalf("connected = %v", c)
	}
	if !reflect.DeepEqual(src.stopped, []string{"A"}) {
		t.Fatalf("stopped = %v", src.stopped)
	}
	if !strings.Contains(buf.String(), "state=disconnected") {
		t.Fatalf("disconnect not logged: %s", buf.String())
	}
}

func TestScanReportsOpenFailure(t *testing.T) {
	src := &fakeSource{ports: []string{"A", "B"}, failOn: "A"}
	w := NewWatcher(src, "", func(byte, byte, byte) {}, slog.New(slog.DiscardHandler))
	if err := w.Scan(); err == nil {
		t.Fatalf("expected open error")
	}
	if c := w.Connected(); !reflect.DeepEqual(c, []string{"B"}) {
		t.Fatalf("connected = %v", c)
	}
}

func TestRunClosesOnCancel(t *testing.T) {
	src := &fakeSource{ports: []string{"A"}}
	w := NewWatcher(src, "", func(byte, byte, byte) {}, slog.New(slog.DiscardHandler))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(time.Second)
	for len(w.Connected()) == 0 {
		select {
		case <-deadline:
			t.Fatalf("port never connected")
		default:
			time.Sleep(time.Millisecond)
		}
	}
	cancel()
	<-done
	if len(w.Connected()) != 0 {
		t.Fatalf("ports left open")
	}
}
