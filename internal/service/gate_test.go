package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"audio-stream-proxy/internal/client"
	"audio-stream-proxy/internal/metrics"
	"audio-stream-proxy/internal/model"
)

type fakeExtractor struct {
	delay    time.Duration
	url      string
	err      error
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
	lastURL  atomic.Value
}

func (f *fakeExtractor) ExtractPlayableURL(ctx context.Context, watchURL string) (model.StreamCandidate, error) {
	f.calls.Add(1)
	f.lastURL.Store(watchURL)
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	select {
	case <-time.After(f.delay):
	case <-ctx.Done():
		return model.StreamCandidate{}, ctx.Err()
	}
	if f.err != nil {
		return model.StreamCandidate{}, f.err
	}
	return model.StreamCandidate{SourceURL: f.url, MimeHint: "audio/webm"}, nil
}

func TestExtractorGate_Success(t *testing.T) {
	ex := &fakeExtractor{url: "https://media.example/a"}
	g := NewExtractorGate(ex, testConfig(), discardLogger(), metrics.New())

	c, err := g.ResolveDirect(context.Background(), "dQw4w9WgXcQ")
	if err != nil {
		t.Fatalf("ResolveDirect() error = %v", err)
	}
	if c.SourceURL != "https://media.example/a" {
		t.Errorf("SourceURL = %q", c.SourceURL)
	}
	if c.Origin != model.OriginDirect {
		t.Errorf("Origin = %v, want direct", c.Origin)
	}
	if got := ex.lastURL.Load(); got != "https://www.youtube.com/watch?v=dQw4w9WgXcQ" {
		t.Errorf("watch URL = %v", got)
	}
}

func TestExtractorGate_SerializesCalls(t *testing.T) {
	ex := &fakeExtractor{url: "https://media.example/a", delay: 20 * time.Millisecond}
	g := NewExtractorGate(ex, testConfig(), discardLogger(), nil)

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := g.ResolveDirect(context.Background(), "abc123"); err != nil {
				t.Errorf("ResolveDirect() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got := ex.maxSeen.Load(); got != 1 {
		t.Errorf("max concurrent extractions = %d, want 1", got)
	}
	if got := ex.calls.Load(); got != 8 {
		t.Errorf("calls = %d, want 8", got)
	}
}

func TestExtractorGate_ReleasedOnFailure(t *testing.T) {
	ex := &fakeExtractor{err: errors.New("video unavailable")}
	g := NewExtractorGate(ex, testConfig(), discardLogger(), nil)

	for range 3 {
		_, err := g.ResolveDirect(context.Background(), "abc123")
		if !errors.Is(err, ErrExtractionFailed) {
			t.Fatalf("err = %v, want ErrExtractionFailed", err)
		}
	}
	if got := ex.calls.Load(); got != 3 {
		t.Errorf("calls = %d, want 3", got)
	}
}

func TestExtractorGate_EmptyURL(t *testing.T) {
	g := NewExtractorGate(&fakeExtractor{}, testConfig(), discardLogger(), nil)

	_, err := g.ResolveDirect(context.Background(), "abc123")
	if !errors.Is(err, ErrExtractionFailed) || !errors.Is(err, client.ErrNoPlayableURL) {
		t.Errorf("err = %v, want ErrExtractionFailed wrapping ErrNoPlayableURL", err)
	}
}

func TestExtractorGate_InvalidID(t *testing.T) {
	ex := &fakeExtractor{url: "https://media.example/a"}
	g := NewExtractorGate(ex, testConfig(), discardLogger(), nil)

	for _, id := range []string{"", "a b", "../etc", "x?list=1"} {
		if _, err := g.ResolveDirect(context.Background(), id); !errors.Is(err, ErrMalformedRequest) {
			t.Errorf("id %q: err = %v, want ErrMalformedRequest", id, err)
		}
	}
	if ex.calls.Load() != 0 {
		t.Error("extractor should not be called for invalid ids")
	}
}

func TestExtractorGate_Timeout(t *testing.T) {
	cfg := testConfig()
	cfg.Extractor.TimeoutSeconds = 1
	ex := &fakeExtractor{url: "https://media.example/a", delay: 5 * time.Second}
	g := NewExtractorGate(ex, cfg, discardLogger(), nil)

	start := time.Now()
	_, err := g.ResolveDirect(context.Background(), "abc123")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded", err)
	}
	if time.Since(start) > 3*time.Second {
		t.Error("extraction was not bounded by the timeout")
	}
}

func TestExtractorGate_CanceledWhileWaiting(t *testing.T) {
	ex := &fakeExtractor{url: "https://media.example/a", delay: 200 * time.Millisecond}
	g := NewExtractorGate(ex, testConfig(), discardLogger(), nil)

	held := make(chan struct{})
	go func() {
		close(held)
		_, _ = g.ResolveDirect(context.Background(), "first")
	}()
	<-held
	time.Sleep(20 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := g.ResolveDirect(ctx, "second")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("err = %v, want DeadlineExceeded while waiting", err)
	}
	if ex.calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", ex.calls.Load())
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"dQw4w9WgXcQ", true},
		{"a-b_c", true},
		{"", false},
		{"has space", false},
		{"https://youtube.com/watch?v=x", false},
		{strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		if got := ValidID(tt.id); got != tt.want {
			t.Errorf("ValidID(%q) = %v, want %v", tt.id, got, tt.want)
		}
	}
}
