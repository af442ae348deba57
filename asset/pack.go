package asset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/coreos/go-semver/semver"
	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
	"go.uber.org/zap"

	"github.com/terramodulus/ferricia"
)

// ManifestName is the manifest file every pack must carry at its root.
const ManifestName = "pack.json"

// Entry kinds the engine knows how to turn into resources.
const (
	KindAudioPCM = "audio-pcm"
	KindKernel   = "kernel"
	KindBlob     = "blob"
)

// Entry describes one payload in a pack.
type Entry struct {
	// Name is the host-visible asset name.
	Name string `json:"name"`

	// Path is the archive member holding the payload. A ".zst" suffix
	// marks zstd compression inside the zip container.
	Path string `json:"path"`

	// Kind selects how the engine materializes the payload.
	Kind string `json:"kind"`

	// Channels and SampleRate describe audio-pcm payload layout.
	Channels   int `json:"channels,omitempty"`
	SampleRate int `json:"sample_rate,omitempty"`

	// KernelEntry is the exported entry function for kernel payloads.
	KernelEntry string `json:"kernel_entry,omitempty"`
}

// Manifest is the pack.json schema.
type Manifest struct {
	Name string `json:"name"`

	// Version is the pack's own version.
	Version string `json:"version"`

	// EngineMin is the lowest engine version the pack's content needs.
	EngineMin string `json:"engine_min"`

	Entries []Entry `json:"entries"`
}

// Pack is an opened asset archive: a zip container with a validated
// manifest and optionally zstd-compressed members. Payloads stream out
// as plain bytes; codec and archive internals never leak past here.
type Pack struct {
	Manifest Manifest

	reader *zip.Reader
}

// Open reads and validates a pack from an in-memory or mapped archive.
func Open(data []byte) (*Pack, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pack container: %w", err)
	}

	mf, err := zr.Open(ManifestName)
	if err != nil {
		return nil, fmt.Errorf("pack has no %s: %w", ManifestName, err)
	}
	defer mf.Close()

	var manifest Manifest
	if err := json.NewDecoder(mf).Decode(&manifest); err != nil {
		return nil, fmt.Errorf("parse %s: %w", ManifestName, err)
	}

	if err := checkEngineVersion(manifest.EngineMin); err != nil {
		return nil, err
	}

	Logger().Info("asset pack opened",
		zap.String("pack", manifest.Name),
		zap.String("version", manifest.Version),
		zap.Int("entries", len(manifest.Entries)))

	return &Pack{Manifest: manifest, reader: zr}, nil
}

// checkEngineVersion gates the pack on the running engine version.
func checkEngineVersion(engineMin string) error {
	if engineMin == "" {
		return nil
	}
	minVer, err := semver.NewVersion(engineMin)
	if err != nil {
		return fmt.Errorf("pack engine_min %q is not a semver: %w", engineMin, err)
	}
	cur := semver.New(ferricia.Version)
	if cur.LessThan(*minVer) {
		return fmt.Errorf("pack needs engine >= %s, running %s", engineMin, ferricia.Version)
	}
	return nil
}

// Entry finds a manifest entry by name.
func (p *Pack) Entry(name string) (Entry, bool) {
	for _, e := range p.Manifest.Entries {
		if e.Name == name {
			return e, true
		}
	}
	return Entry{}, false
}

// Open streams one entry's payload, transparently decompressing zstd
// members.
func (p *Pack) Open(e Entry) (io.ReadCloser, error) {
	f, err := p.reader.Open(e.Path)
	if err != nil {
		return nil, fmt.Errorf("open pack member %q: %w", e.Path, err)
	}
	if !strings.HasSuffix(e.Path, ".zst") {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open zstd member %q: %w", e.Path, err)
	}
	return &zstdReadCloser{Decoder: dec, under: f}, nil
}

// Bytes reads one entry's payload whole.
func (p *Pack) Bytes(e Entry) ([]byte, error) {
	rc, err := p.Open(e)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

type zstdReadCloser struct {
	*zstd.Decoder
	under io.Closer
}

func (z *zstdReadCloser) Close() error {
	z.Decoder.Close()
	return z.under.Close()
}
