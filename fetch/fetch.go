package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/errors"
)

// Defaults for an unconfigured fetcher.
const (
	DefaultConcurrency = 4
	DefaultRatePerSec  = 8
	DefaultTimeout     = 30 * time.Second
)

// Submitter accepts a command for the engine. The gateway implements
// this; tests substitute their own.
type Submitter interface {
	Submit(cmd command.Command) (command.Ticket, error)
}

// Outcome reports one request's fate on its Notify channel.
type Outcome struct {
	URL    string
	Ticket command.Ticket
	Err    error
}

// Request names a payload to download and how to turn it into a
// command once the bytes arrive.
type Request struct {
	URL string

	// Build converts the downloaded payload into the command to
	// submit. It runs on a fetcher worker goroutine.
	Build func(data []byte) (command.Command, error)

	// Notify, when non-nil, receives exactly one Outcome. The send is
	// non-blocking; an unready channel loses the notification.
	Notify chan<- Outcome
}

// Config tunes a fetcher.
type Config struct {
	// Concurrency caps in-flight downloads.
	Concurrency int

	// RatePerSec limits request starts per second across all workers.
	// Burst defaults to Concurrency when zero.
	RatePerSec float64
	Burst      int

	// Timeout bounds each individual request.
	Timeout time.Duration
}

// Fetcher downloads payloads and feeds them to the engine.
type Fetcher struct {
	client  *http.Client
	limiter *rate.Limiter
	sub     Submitter
	group   *errgroup.Group
	ctx     context.Context
	timeout time.Duration
}

// New creates a fetcher submitting into sub. The context cancels all
// outstanding downloads.
func New(ctx context.Context, sub Submitter, cfg Config) *Fetcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = DefaultConcurrency
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = DefaultRatePerSec
	}
	if cfg.Burst <= 0 {
		cfg.Burst = cfg.Concurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	group, gctx := errgroup.WithContext(ctx)
	group.SetLimit(cfg.Concurrency)

	return &Fetcher{
		client:  &http.Client{},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		sub:     sub,
		group:   group,
		ctx:     gctx,
		timeout: cfg.Timeout,
	}
}

// Go schedules one download. It blocks only when all workers are busy.
func (f *Fetcher) Go(req Request) {
	f.group.Go(func() error {
		err := f.run(req)
		if err != nil {
			Logger().Warn("fetch failed",
				zap.String("url", req.URL),
				zap.Error(err))
		}
		return err
	})
}

// Wait blocks until every scheduled download has finished and returns
// the first failure, if any.
func (f *Fetcher) Wait() error {
	return f.group.Wait()
}

func (f *Fetcher) run(req Request) error {
	if req.Build == nil {
		err := errors.InvalidArgument(0, "fetch request for %s has no Build", req.URL)
		notify(req, Outcome{URL: req.URL, Err: err})
		return err
	}

	if err := f.limiter.Wait(f.ctx); err != nil {
		notify(req, Outcome{URL: req.URL, Err: err})
		return err
	}

	data, err := f.download(req.URL)
	if err != nil {
		notify(req, Outcome{URL: req.URL, Err: err})
		return err
	}

	cmd, err := req.Build(data)
	if err != nil {
		notify(req, Outcome{URL: req.URL, Err: err})
		return err
	}

	t, err := f.sub.Submit(cmd)
	if err != nil {
		notify(req, Outcome{URL: req.URL, Err: err})
		return err
	}

	Logger().Debug("fetched and submitted",
		zap.String("url", req.URL),
		zap.Int("bytes", len(data)),
		zap.Uint64("ticket", uint64(t)))
	notify(req, Outcome{URL: req.URL, Ticket: t})
	return nil
}

func (f *Fetcher) download(url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(f.ctx, f.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request for %s: %w", url, err)
	}
	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, errors.External(0, -1, fmt.Errorf("fetch %s: %w", url, err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.External(0, int32(resp.StatusCode), fmt.Errorf("fetch %s: status %s", url, resp.Status))
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.External(0, -1, fmt.Errorf("read %s: %w", url, err))
	}
	return data, nil
}

func notify(req Request, o Outcome) {
	if req.Notify == nil {
		return
	}
	select {
	case req.Notify <- o:
	default:
	}
}
