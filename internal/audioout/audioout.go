// Package audioout plays an interleaved stereo float32 stream on the
// default output device.
package audioout

import (
	"fmt"
	"io"
	"time"

	"github.com/ebitengine/oto/v3"
)

const channels = 2

// Player pulls audio from a reader until closed. Only one Player may exist
// per process.
type Player struct {
	player *oto.Player
}

// Open starts playback of src, which must deliver stereo float32
// little-endian frames at sampleRate. bufferFrames sets the device latency;
// zero leaves the driver default.
func Open(src io.Reader, sampleRate, bufferFrames int) (*Player, error) {
	op := &oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: channels,
		Format:       oto.FormatFloat32LE,
	}
	if bufferFrames > 0 {
		op.BufferSize = time.Duration(bufferFrames) * time.Second / time.Duration(sampleRate)
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audioout: cannot create oto context: %w", err)
	}
	<-ready

	p := ctx.NewPlayer(src)
	p.Play()
	return &Player{player: p}, nil
}

// Err reports a playback failure, if any.
func (p *Player) Err() error { return p.player.Err() }

// Close stops playback. The oto context stays alive for the process.
func (p *Player) Close() error {
	if err := p.player.Close(); err != nil {
		return fmt.Errorf("audioout: cannot close oto player: %w", err)
	}
	return nil
}
