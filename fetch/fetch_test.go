package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/terramodulus/ferricia"
	"github.com/terramodulus/ferricia/command"
	"github.com/terramodulus/ferricia/errors"
)

type fakeSubmitter struct {
	mu   sync.Mutex
	cmds []command.Command
	next command.Ticket
	err  error
}

func (s *fakeSubmitter) Submit(cmd command.Command) (command.Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	s.next++
	s.cmds = append(s.cmds, cmd)
	return s.next, nil
}

func buildCreate(data []byte) (command.Command, error) {
	return command.Command{
		Subsystem: ferricia.SubsystemAudio,
		Op:        command.OpCreate,
		Payload:   data,
	}, nil
}

func TestFetcher_DownloadsAndSubmits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("payload"))
	}))
	defer srv.Close()

	sub := &fakeSubmitter{}
	f := New(context.Background(), sub, Config{})

	notify := make(chan Outcome, 1)
	f.Go(Request{URL: srv.URL, Build: buildCreate, Notify: notify})
	if err := f.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}

	if len(sub.cmds) != 1 {
		t.Fatalf("expected 1 submitted command, got %d", len(sub.cmds))
	}
	if string(sub.cmds[0].Payload.([]byte)) != "payload" {
		t.Fatalf("wrong payload: %v", sub.cmds[0].Payload)
	}

	o := <-notify
	if o.Err != nil || o.Ticket == 0 {
		t.Fatalf("bad outcome: %+v", o)
	}
}

func TestFetcher_HTTPErrorSurfacesExternalCode(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	sub := &fakeSubmitter{}
	f := New(context.Background(), sub, Config{})

	notify := make(chan Outcome, 1)
	f.Go(Request{URL: srv.URL, Build: buildCreate, Notify: notify})
	if err := f.Wait(); err == nil {
		t.Fatal("expected Wait to report the failure")
	}

	o := <-notify
	if errors.CodeOf(o.Err) != errors.CodeExternalFailure {
		t.Fatalf("expected external failure, got %v", o.Err)
	}
	if e, ok := o.Err.(*errors.Error); !ok || e.ExternalCode != http.StatusNotFound {
		t.Fatalf("expected status code preserved, got %v", o.Err)
	}
	if len(sub.cmds) != 0 {
		t.Fatal("failed fetch must not submit")
	}
}

func TestFetcher_BuildFailureSkipsSubmit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	sub := &fakeSubmitter{}
	f := New(context.Background(), sub, Config{})

	notify := make(chan Outcome, 1)
	f.Go(Request{
		URL: srv.URL,
		Build: func([]byte) (command.Command, error) {
			return command.Command{}, errors.InvalidArgument(0, "unusable payload")
		},
		Notify: notify,
	})
	f.Wait()

	if len(sub.cmds) != 0 {
		t.Fatal("build failure must not submit")
	}
	o := <-notify
	if errors.CodeOf(o.Err) != errors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument, got %v", o.Err)
	}
}

func TestFetcher_SubmitRejectionReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	sub := &fakeSubmitter{err: errors.QueueFull(8)}
	f := New(context.Background(), sub, Config{})

	notify := make(chan Outcome, 1)
	f.Go(Request{URL: srv.URL, Build: buildCreate, Notify: notify})
	f.Wait()

	o := <-notify
	if errors.CodeOf(o.Err) != errors.CodeQueueFull {
		t.Fatalf("expected queue full, got %v", o.Err)
	}
}

func TestFetcher_ManyRequestsAllLand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	sub := &fakeSubmitter{}
	f := New(context.Background(), sub, Config{Concurrency: 3, RatePerSec: 1000})

	const n = 20
	for i := 0; i < n; i++ {
		f.Go(Request{URL: srv.URL, Build: buildCreate})
	}
	if err := f.Wait(); err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if len(sub.cmds) != n {
		t.Fatalf("expected %d submissions, got %d", n, len(sub.cmds))
	}
}

func TestFetcher_MissingBuildRejected(t *testing.T) {
	sub := &fakeSubmitter{}
	f := New(context.Background(), sub, Config{})

	notify := make(chan Outcome, 1)
	f.Go(Request{URL: "http://unused.invalid", Notify: notify})
	f.Wait()

	o := <-notify
	if errors.CodeOf(o.Err) != errors.CodeInvalidArgument {
		t.Fatalf("expected invalid argument for nil Build, got %v", o.Err)
	}
}
