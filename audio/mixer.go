package audio

import (
	"time"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/errors"
	"github.com/terramodulus/ferricia/registry"
	"github.com/terramodulus/ferricia/snapshot"
)

// Sink receives mixed, interleaved stereo int16 frames each tick. It
// is the boundary to the audio device collaborator; NullSink is the
// headless default.
type Sink interface {
	Push(frames []int16) error
}

// NullSink discards frames, counting them for diagnostics.
type NullSink struct {
	Frames uint64
}

// Push implements Sink.
func (n *NullSink) Push(frames []int16) error {
	n.Frames += uint64(len(frames) / 2)
	return nil
}

// Config tunes the mixer.
type Config struct {
	Sink Sink

	// SampleRate of the output stream. Default 48000.
	SampleRate int
}

// Mixer is the audio subsystem adapter: it owns every voice and mixes
// them into the sink once per engine tick. Sources are assumed to be
// at the mixer rate; rate conversion belongs to the decoder
// collaborators.
type Mixer struct {
	table *registry.Table
	sink  Sink
	rate  int

	mixBuf []int16
	carry  time.Duration
}

// NewMixer creates the audio adapter over its resource table.
func NewMixer(table *registry.Table, cfg Config) *Mixer {
	m := &Mixer{table: table, sink: cfg.Sink, rate: cfg.SampleRate}
	if m.sink == nil {
		m.sink = &NullSink{}
	}
	if m.rate <= 0 {
		m.rate = 48000
	}
	return m
}

func (m *Mixer) Subsystem() ferricia.Subsystem { return ferricia.SubsystemAudio }

// Apply executes one audio command.
func (m *Mixer) Apply(cmd command.Command) command.Result {
	switch cmd.Op {
	case command.OpCreate:
		params, ok := cmd.Payload.(VoiceParams)
		if !ok {
			return fail(errors.InvalidArgument(ferricia.SubsystemAudio, "create payload must be VoiceParams, got %T", cmd.Payload))
		}
		if params.Source.Channels <= 0 || params.Source.SampleRate <= 0 {
			return fail(errors.InvalidArgument(ferricia.SubsystemAudio, "voice source missing channel layout"))
		}
		h, err := m.table.Allocate(newVoice(params))
		if err != nil {
			return fail(err)
		}
		return command.Result{Handle: h}

	case command.OpDestroy:
		if err := m.table.Free(cmd.Handle); err != nil {
			return fail(err)
		}
		return command.Result{Handle: cmd.Handle}

	case command.OpSetProp:
		v, ok := m.resolve(cmd.Handle)
		if !ok {
			return fail(errors.InvalidHandle(ferricia.SubsystemAudio, uint64(cmd.Handle)))
		}
		set, ok := cmd.Payload.(SetProp)
		if !ok {
			return fail(errors.InvalidArgument(ferricia.SubsystemAudio, "set payload must be SetProp, got %T", cmd.Payload))
		}
		switch set.Prop {
		case PropGain:
			v.gain = set.Scalar
		case PropPan:
			v.pan = clamp(set.Scalar, -1, 1)
		case PropPaused:
			v.playing = !set.Flag
		default:
			return fail(errors.InvalidArgument(ferricia.SubsystemAudio, "unknown voice property %d", set.Prop))
		}
		return command.Result{}

	case command.OpInvoke:
		v, ok := m.resolve(cmd.Handle)
		if !ok {
			return fail(errors.InvalidHandle(ferricia.SubsystemAudio, uint64(cmd.Handle)))
		}
		switch action := cmd.Payload.(type) {
		case Seek:
			v.seek(action.Position)
			return command.Result{}
		case Stop:
			v.playing = false
			v.cursor = 0
			return command.Result{}
		default:
			return fail(errors.InvalidArgument(ferricia.SubsystemAudio, "unknown voice action %T", action))
		}
	}
	return fail(errors.InvalidArgument(ferricia.SubsystemAudio, "unknown op %v", cmd.Op))
}

// Tick mixes dt worth of audio into the sink. Fractional frames carry
// over so long-run output stays sample-accurate.
func (m *Mixer) Tick(dt time.Duration) error {
	m.carry += dt
	frames := int(m.carry * time.Duration(m.rate) / time.Second)
	if frames <= 0 {
		return nil
	}
	m.carry -= time.Duration(frames) * time.Second / time.Duration(m.rate)

	need := frames * 2
	if cap(m.mixBuf) < need {
		m.mixBuf = make([]int16, need)
	}
	buf := m.mixBuf[:need]
	clear(buf)

	m.table.Each(func(_ registry.Handle, val any) bool {
		m.mixVoice(val.(*voice), buf, frames)
		return true
	})

	if err := m.sink.Push(buf); err != nil {
		return errors.External(ferricia.SubsystemAudio, -1, err)
	}
	return nil
}

// mixVoice accumulates one voice into the stereo buffer with linear
// gain/pan and int16 saturation.
func (m *Mixer) mixVoice(v *voice, buf []int16, frames int) {
	if !v.playing || v.source.Frames() == 0 {
		return
	}

	lGain := v.gain * clamp(1-v.pan, 0, 1)
	rGain := v.gain * clamp(1+v.pan, 0, 1)
	total := v.source.Frames()

	for f := 0; f < frames; f++ {
		if v.cursor >= total {
			if !v.looping {
				v.playing = false
				return
			}
			v.cursor = 0
		}

		var left, right float64
		if v.source.Channels == 1 {
			s := float64(v.source.Samples[v.cursor])
			left, right = s, s
		} else {
			base := v.cursor * v.source.Channels
			left = float64(v.source.Samples[base])
			right = float64(v.source.Samples[base+1])
		}
		v.cursor++

		buf[2*f] = saturate(float64(buf[2*f]) + left*lGain)
		buf[2*f+1] = saturate(float64(buf[2*f+1]) + right*rGain)
	}
}

// Collect writes every voice's state into the snapshot.
func (m *Mixer) Collect(s *snapshot.Snapshot) {
	m.table.Each(func(h registry.Handle, val any) bool {
		v := val.(*voice)
		s.Voices[h] = snapshot.VoiceState{
			Handle:   h,
			Position: v.position(),
			Gain:     v.gain,
			Pan:      v.pan,
			Playing:  v.playing,
			Looping:  v.looping,
		}
		return true
	})
}

// Shutdown releases the sink's device context when it owns one.
func (m *Mixer) Shutdown() {}

func (m *Mixer) resolve(h registry.Handle) (*voice, bool) {
	v, ok := m.table.Resolve(h)
	if !ok {
		return nil, false
	}
	return v.(*voice), true
}

func saturate(s float64) int16 {
	if s > 32767 {
		return 32767
	}
	if s < -32768 {
		return -32768
	}
	return int16(s)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func fail(err error) command.Result {
	return command.Result{Err: err}
}
