package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/asset"
	"github.com/terramodulus/ferricia/audio"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/config"
	"github.com/terramodulus/ferricia/engine"
	"github.com/terramodulus/ferricia/fetch"
	"github.com/terramodulus/ferricia/gateway"
	"github.com/terramodulus/ferricia/physics"
	"github.com/terramodulus/ferricia/registry"
	"github.com/terramodulus/ferricia/snapshot"
)

func main() {
	var (
		packFile    = flag.String("pack", "", "Asset pack to load at startup")
		fetchURL    = flag.String("fetch", "", "URL of raw PCM (mono, 48kHz) to download as a voice")
		headless    = flag.Bool("headless", false, "Server profile: physics and compute only")
		bodies      = flag.Int("bodies", 8, "Bodies to spawn in the scripted demo")
		duration    = flag.Duration("duration", 5*time.Second, "How long the scripted demo runs")
		interactive = flag.Bool("i", false, "Interactive mode with TUI")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *headless {
		cfg.Profile = "server"
	}

	if *interactive {
		if err := runInteractive(cfg, *packFile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	if err := run(cfg, *packFile, *fetchURL, *bodies, *duration); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, packFile, fetchURL string, bodies int, duration time.Duration) error {
	log, err := cfg.NewLogger()
	if err != nil {
		return err
	}
	defer log.Sync()
	engine.SetLogger(log.Named("engine"))
	gateway.SetLogger(log.Named("gateway"))
	asset.SetLogger(log.Named("asset"))
	fetch.SetLogger(log.Named("fetch"))

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g := newGateway(ctx, cfg)
	if err := g.Start(ctx); err != nil {
		return err
	}
	defer g.Stop()

	if packFile != "" {
		data, err := os.ReadFile(packFile)
		if err != nil {
			return fmt.Errorf("read pack: %w", err)
		}
		if err := loadPack(g, data); err != nil {
			return err
		}
	}

	if fetchURL != "" {
		f := g.Fetcher(ctx, cfg.Fetch())
		f.Go(fetch.Request{URL: fetchURL, Build: buildVoice})
		if err := f.Wait(); err != nil {
			return fmt.Errorf("fetch voice: %w", err)
		}
	}

	// Scripted demo: drop a stack of bodies over a floor plane and
	// report the simulation once per second.
	fmt.Printf("Engine %s (%s profile), %d bodies for %s\n",
		ferricia.Version, cfg.Profile, bodies, duration)

	for i := 0; i < bodies; i++ {
		res, err := g.SubmitWait(createBody(i))
		if err != nil {
			return fmt.Errorf("spawn body %d: %w", i, err)
		}
		if res.Err != nil {
			return fmt.Errorf("spawn body %d: %w", i, res.Err)
		}
	}

	report := time.NewTicker(time.Second)
	defer report.Stop()
	deadline := time.After(duration)

	for {
		select {
		case <-ctx.Done():
			fmt.Println("\ninterrupted")
			return nil
		case <-deadline:
			s := g.Snapshot()
			fmt.Printf("done: tick %d, %d live resources\n", s.Tick, s.Loop.Live)
			return nil
		case <-report.C:
			s := g.Snapshot()
			fmt.Printf("tick %-8d bodies %-4d sleeping %-4d steps/tick %d\n",
				s.Tick, len(s.Bodies), sleeping(s.Bodies), s.Loop.PhysicsSteps)
		}
	}
}

func newGateway(ctx context.Context, cfg config.Config) *gateway.Gateway {
	profile := gateway.ProfileClient
	if cfg.Server() {
		profile = gateway.ProfileServer
	}
	return gateway.New(ctx, gateway.Options{
		Profile:       profile,
		Engine:        cfg.Engine(),
		Physics:       physics.Config{Floor: true},
		Caps:          cfg.Caps(),
		QueueCapacity: cfg.QueueCapacity,
		WaitTimeout:   cfg.WaitTimeout,
	})
}

func createBody(i int) command.Command {
	return command.Command{
		Subsystem: ferricia.SubsystemPhysics,
		Op:        command.OpCreate,
		Payload: physics.BodyParams{
			Position: ferricia.Vec3{
				X: float64(i%4) * 1.1,
				Y: 5 + float64(i/4)*1.1,
			},
			Mass:   1,
			Radius: 0.5,
		},
	}
}

// buildVoice turns downloaded raw PCM into a paused voice.
func buildVoice(data []byte) (command.Command, error) {
	src, err := audio.RawPCM{Channels: 1, SampleRate: 48000}.Decode(data)
	if err != nil {
		return command.Command{}, err
	}
	return command.Command{
		Subsystem: ferricia.SubsystemAudio,
		Op:        command.OpCreate,
		Payload:   audio.VoiceParams{Source: src, Gain: 1, Paused: true},
	}, nil
}

func loadPack(g *gateway.Gateway, data []byte) error {
	tickets, err := g.LoadAssetPack(data)
	if err != nil {
		return fmt.Errorf("load pack: %w", err)
	}
	for _, t := range tickets {
		res, err := g.Wait(t, 5*time.Second)
		if err != nil {
			return fmt.Errorf("pack resource: %w", err)
		}
		fmt.Printf("loaded %v resource %#x\n", res.Handle.Kind(), uint64(res.Handle))
	}
	return nil
}

func sleeping(bodies map[registry.Handle]snapshot.BodyState) int {
	n := 0
	for _, b := range bodies {
		if b.Sleeping {
			n++
		}
	}
	return n
}
