package audio

import (
	"time"

	"github.com/terramodulus/ferricia/errors"
)

// Source is decoded, interleaved 16-bit PCM. Codec internals live
// behind Decoder; by the time audio data reaches a voice it is always
// this shape.
type Source struct {
	Samples    []int16
	Channels   int
	SampleRate int
}

// Frames returns the number of sample frames in the source.
func (s Source) Frames() int {
	if s.Channels == 0 {
		return 0
	}
	return len(s.Samples) / s.Channels
}

// Decoder turns encoded audio bytes into a Source. Implementations
// wrap the codec collaborators (Opus, FLAC); RawPCM is the built-in
// passthrough for already-decoded data.
type Decoder interface {
	Decode(data []byte) (Source, error)
}

// RawPCM decodes nothing: it reinterprets little-endian 16-bit PCM
// bytes at a declared layout.
type RawPCM struct {
	Channels   int
	SampleRate int
}

// Decode implements Decoder.
func (r RawPCM) Decode(data []byte) (Source, error) {
	if r.Channels <= 0 || r.SampleRate <= 0 {
		return Source{}, errors.InvalidArgument(0, "raw pcm needs positive channels and sample rate")
	}
	if len(data)%2 != 0 {
		return Source{}, errors.InvalidArgument(0, "raw pcm data length %d is not sample-aligned", len(data))
	}
	samples := make([]int16, len(data)/2)
	for i := range samples {
		samples[i] = int16(uint16(data[2*i]) | uint16(data[2*i+1])<<8)
	}
	return Source{Samples: samples, Channels: r.Channels, SampleRate: r.SampleRate}, nil
}

// VoiceParams is the OpCreate payload for a voice.
type VoiceParams struct {
	Source  Source
	Gain    float64
	Pan     float64
	Looping bool
	Paused  bool
}

// Prop selects a voice property for OpSetProp.
type Prop uint8

const (
	PropGain Prop = iota + 1
	PropPan
	PropPaused
)

// SetProp is the OpSetProp payload.
type SetProp struct {
	Scalar float64
	Flag   bool
	Prop   Prop
}

// Seek is an OpInvoke payload repositioning playback.
type Seek struct {
	Position time.Duration
}

// Stop is an OpInvoke payload ending playback without destroying the
// voice.
type Stop struct{}

type voice struct {
	source  Source
	cursor  int // frame position
	gain    float64
	pan     float64
	playing bool
	looping bool
}

func newVoice(p VoiceParams) *voice {
	v := &voice{
		source:  p.Source,
		gain:    p.Gain,
		pan:     p.Pan,
		playing: !p.Paused,
		looping: p.Looping,
	}
	if v.gain == 0 {
		v.gain = 1
	}
	return v
}

func (v *voice) position() time.Duration {
	if v.source.SampleRate == 0 {
		return 0
	}
	return time.Duration(v.cursor) * time.Second / time.Duration(v.source.SampleRate)
}

func (v *voice) seek(pos time.Duration) {
	frame := int(pos * time.Duration(v.source.SampleRate) / time.Second)
	total := v.source.Frames()
	if frame < 0 {
		frame = 0
	}
	if frame > total {
		frame = total
	}
	v.cursor = frame
}
