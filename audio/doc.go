// Package audio is the voice/mixer subsystem adapter.
//
// Voices play decoded PCM sources with per-voice gain, pan, looping
// and seeking. Each engine tick the mixer accumulates every playing
// voice into an interleaved stereo int16 buffer and pushes it to the
// Sink, which fronts the audio device collaborator. Fractional frames
// carry across ticks, so output length tracks wall time exactly.
//
// Codec internals (Opus, FLAC) stay outside this package behind the
// Decoder interface; RawPCM covers already-decoded data and tests.
package audio
