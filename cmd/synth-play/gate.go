package main

import "time"

type keyTarget interface {
	KeyDown(key rune) bool
	KeyUp(key rune) bool
}

// keyGate turns the press-only events of a terminal into note gates. A
// press starts a note and arms a release timer; auto-repeat presses of the
// same key only re-arm it.
type keyGate struct {
	hold    time.Duration
	target  keyTarget
	gates   map[rune]*gate
	expired chan expiry
}

type gate struct {
	timer *time.Timer
}

type expiry struct {
	key  rune
	gate *gate
}

func newKeyGate(target keyTarget, hold time.Duration) *keyGate {
	return &keyGate{
		hold:    hold,
		target:  target,
		gates:   make(map[rune]*gate),
		expired: make(chan expiry, 64),
	}
}

// press reports whether key started a new note.
func (g *keyGate) press(key rune) bool {
	if gt, ok := g.gates[key]; ok {
		gt.timer.Reset(g.hold)
		return false
	}
	if !g.target.KeyDown(key) {
		return false
	}
	gt := &gate{}
	g.gates[key] = gt
	gt.timer = time.AfterFunc(g.hold, func() { g.expired <- expiry{key: key, gate: gt} })
	return true
}

// expire releases the key of e only while e's gate is still current; a
// timer that fired before an explicit release must not end a later press.
func (g *keyGate) expire(e expiry) {
	if g.gates[e.key] == e.gate {
		g.release(e.key)
	}
}

// release ends the note of key if it is still gated.
func (g *keyGate) release(key rune) {
	gt, ok := g.gates[key]
	if !ok {
		return
	}
	gt.timer.Stop()
	delete(g.gates, key)
	g.target.KeyUp(key)
}

func (g *keyGate) releaseAll() {
	for key := range g.gates {
		g.release(key)
	}
}
