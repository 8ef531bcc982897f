package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"audio-stream-proxy/internal/model"
)

func TestMirrorClient_FetchStreams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/streams/abc123" {
			t.Errorf("path = %q, want %q", r.URL.Path, "/streams/abc123")
		}
		if ua := r.Header.Get("User-Agent"); ua != "test-agent" {
			t.Errorf("User-Agent = %q, want %q", ua, "test-agent")
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"title": "ignored",
			"audioStreams": [
				{"url": "https://cdn.example/a", "mimeType": "audio/webm", "bitrate": 160000},
				{"url": "", "mimeType": "audio/mp4"},
				{"url": "https://cdn.example/b", "mimeType": "audio/mp4", "bitrate": 128000}
			]
		}`))
	}))
	defer srv.Close()

	c := NewMirrorClient(testConfig(), discardLogger())
	got, err := c.FetchStreams(context.Background(), model.MirrorEndpoint{BaseURL: srv.URL}, "abc123")
	if err != nil {
		t.Fatalf("FetchStreams() error = %v", err)
	}

	want := []model.StreamCandidate{
		{SourceURL: "https://cdn.example/a", MimeHint: "audio/webm", Origin: model.OriginMirror},
		{SourceURL: "https://cdn.example/b", MimeHint: "audio/mp4", Origin: model.OriginMirror},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d (%+v)", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("candidate[%d] = %+v, want %+v", i, got[i], want[i])
		}
	}
}

func TestMirrorClient_FetchStreams_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewMirrorClient(testConfig(), discardLogger())
	_, err := c.FetchStreams(context.Background(), model.MirrorEndpoint{BaseURL: srv.URL}, "abc123")
	if !errors.Is(err, ErrMirrorStatus) {
		t.Fatalf("FetchStreams() error = %v, want ErrMirrorStatus", err)
	}
}

func TestMirrorClient_FetchStreams_BadJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>not json</html>`))
	}))
	defer srv.Close()

	c := NewMirrorClient(testConfig(), discardLogger())
	if _, err := c.FetchStreams(context.Background(), model.MirrorEndpoint{BaseURL: srv.URL}, "abc123"); err == nil {
		t.Fatal("FetchStreams() expected decode error, got nil")
	}
}

func TestMirrorClient_FetchStreams_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	c := NewMirrorClient(testConfig(), discardLogger())
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	if _, err := c.FetchStreams(ctx, model.MirrorEndpoint{BaseURL: srv.URL}, "abc123"); err == nil {
		t.Fatal("FetchStreams() expected timeout error, got nil")
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("FetchStreams() took %v, want it bounded by the context", elapsed)
	}
}
