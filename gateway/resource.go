package gateway

import (
	"context"

	"go.uber.org/zap"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/asset"
	"github.com/terramodulus/ferricia/audio"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/compute"
	"github.com/terramodulus/ferricia/errors"
	"github.com/terramodulus/ferricia/fetch"
	"github.com/terramodulus/ferricia/registry"
	"github.com/terramodulus/ferricia/snapshot"
)

// CreateResource submits an OpCreate for sub with its package's
// params payload. The handle arrives in the result.
func (g *Gateway) CreateResource(sub ferricia.Subsystem, params any) (command.Ticket, error) {
	return g.Submit(command.Command{Subsystem: sub, Op: command.OpCreate, Payload: params})
}

// DestroyResource submits an OpDestroy for h. The subsystem comes from
// the handle's kind tag.
func (g *Gateway) DestroyResource(h registry.Handle) (command.Ticket, error) {
	if !h.Valid() {
		return 0, errors.InvalidHandle(0, uint64(h))
	}
	return g.Submit(command.Command{Subsystem: h.Kind(), Op: command.OpDestroy, Handle: h})
}

// SetProperty submits an OpSetProp for h with its subsystem's SetProp
// payload.
func (g *Gateway) SetProperty(h registry.Handle, payload any) (command.Ticket, error) {
	if !h.Valid() {
		return 0, errors.InvalidHandle(0, uint64(h))
	}
	return g.Submit(command.Command{Subsystem: h.Kind(), Op: command.OpSetProp, Handle: h, Payload: payload})
}

// InvokeAction submits an OpInvoke for h (impulse, seek, dispatch).
func (g *Gateway) InvokeAction(h registry.Handle, payload any) (command.Ticket, error) {
	if !h.Valid() {
		return 0, errors.InvalidHandle(0, uint64(h))
	}
	return g.Submit(command.Command{Subsystem: h.Kind(), Op: command.OpInvoke, Handle: h, Payload: payload})
}

// QueryBody reads one body's state from the latest snapshot.
func (g *Gateway) QueryBody(h registry.Handle) (snapshot.BodyState, bool) {
	b, ok := g.Snapshot().Bodies[h]
	return b, ok
}

// QueryVoice reads one voice's state from the latest snapshot.
func (g *Gateway) QueryVoice(h registry.Handle) (snapshot.VoiceState, bool) {
	v, ok := g.Snapshot().Voices[h]
	return v, ok
}

// QueryComputeResult reads one kernel's last dispatch output from the
// latest snapshot.
func (g *Gateway) QueryComputeResult(h registry.Handle) ([]float32, bool) {
	k, ok := g.Snapshot().Kernels[h]
	if !ok {
		return nil, false
	}
	return k.LastOutput, true
}

// QueryFrameStats reads the latest presented frame's stats.
func (g *Gateway) QueryFrameStats() snapshot.FrameStats {
	return g.Snapshot().Frame
}

// LoadAssetPack opens a pack archive and submits a CreateResource per
// materializable entry: audio-pcm entries become voices (created
// paused), kernel entries become compute kernels, blobs are skipped.
// It returns one ticket per submitted entry; the first submission
// failure aborts the remainder.
func (g *Gateway) LoadAssetPack(data []byte) ([]command.Ticket, error) {
	pack, err := asset.Open(data)
	if err != nil {
		return nil, err
	}

	var tickets []command.Ticket
	for _, e := range pack.Manifest.Entries {
		var (
			t   command.Ticket
			err error
		)
		switch e.Kind {
		case asset.KindAudioPCM:
			payload, berr := pack.Bytes(e)
			if berr != nil {
				return tickets, berr
			}
			src, derr := audio.RawPCM{Channels: e.Channels, SampleRate: e.SampleRate}.Decode(payload)
			if derr != nil {
				return tickets, derr
			}
			t, err = g.CreateResource(ferricia.SubsystemAudio, audio.VoiceParams{
				Source: src,
				Gain:   1,
				Paused: true,
			})

		case asset.KindKernel:
			payload, berr := pack.Bytes(e)
			if berr != nil {
				return tickets, berr
			}
			t, err = g.CreateResource(ferricia.SubsystemCompute, compute.KernelParams{
				Module: payload,
				Entry:  e.KernelEntry,
			})

		case asset.KindBlob:
			continue

		default:
			Logger().Warn("skipping pack entry of unknown kind",
				zap.String("entry", e.Name), zap.String("kind", e.Kind))
			continue
		}
		if err != nil {
			return tickets, err
		}
		tickets = append(tickets, t)
	}

	Logger().Info("asset pack submitted",
		zap.String("pack", pack.Manifest.Name),
		zap.Int("resources", len(tickets)))
	return tickets, nil
}

// Fetcher creates a downloader that submits fetched content through
// this gateway.
func (g *Gateway) Fetcher(ctx context.Context, cfg fetch.Config) *fetch.Fetcher {
	return fetch.New(ctx, g, cfg)
}

// FetchRemote downloads one payload and submits the command build
// produces from it. It blocks until the download and submission
// finish; batch traffic should use Fetcher directly.
func (g *Gateway) FetchRemote(ctx context.Context, url string, build func([]byte) (command.Command, error)) (command.Ticket, error) {
	f := fetch.New(ctx, g, fetch.Config{Concurrency: 1})
	notify := make(chan fetch.Outcome, 1)
	f.Go(fetch.Request{URL: url, Build: build, Notify: notify})
	if err := f.Wait(); err != nil {
		return 0, err
	}
	o := <-notify
	return o.Ticket, o.Err
}
