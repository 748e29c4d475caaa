package instrument

import (
	"encoding/binary"
	"math"
)

const (
	streamChannels       = 2
	streamBytesPerSample = 4
	streamFrameBytes     = streamChannels * streamBytesPerSample
)

// Stream adapts an Instrument to an io.Reader of interleaved stereo
// float32 little-endian samples, the format audio players pull.
type Stream struct {
	inst     *Instrument
	maxBlock int
	block    []float64
}

// NewStream renders at most maxBlock frames per pull; values below 1
// default to 512.
func NewStream(inst *Instrument, maxBlock int) *Stream {
	if maxBlock < 1 {
		maxBlock = 512
	}
	return &Stream{inst: inst, maxBlock: maxBlock, block: make([]float64, maxBlock)}
}

// Read fills p with whole frames. It never returns an error; a closed
// instrument streams silence.
func (s *Stream) Read(p []byte) (int, error) {
	frames := len(p) / streamFrameBytes
	n := 0
	for frames > 0 {
		chunk := min(frames, s.maxBlock)
		block := s.block[:chunk]
		s.inst.Render(block)
		for _, v := range block {
			bits := math.Float32bits(float32(v))
			binary.LittleEndian.PutUint32(p[n:], bits)
			binary.LittleEndian.PutUint32(p[n+streamBytesPerSample:], bits)
			n += streamFrameBytes
		}
		frames -= chunk
	}
	return n, nil
}
