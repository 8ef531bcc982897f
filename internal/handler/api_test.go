package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"audio-stream-proxy/internal/config"
	"audio-stream-proxy/internal/model"
	"audio-stream-proxy/internal/service"
)

type stubCatalog struct {
	songs []model.TrackSummary
	err   error
	calls int
}

func (s *stubCatalog) SearchSongs(context.Context, string, int) ([]model.TrackSummary, error) {
	s.calls++
	return s.songs, s.err
}

func apiConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	return &config.Config{
		Catalog: config.CatalogConfig{SearchLimit: 15, MaxResults: 10, CacheTTLSeconds: 60},
		Library: config.LibraryConfig{
			DataDir:       dir,
			PlaylistsFile: filepath.Join(dir, "playlists.json"),
		},
	}
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestSearchHandler(t *testing.T) {
	cat := &stubCatalog{songs: []model.TrackSummary{{VideoID: "v1", Title: "Song", Artist: "Band"}}}
	svc := service.NewSearchService(cat, apiConfig(t), discardLogger(), nil)
	e := echo.New()
	e.GET("/api/search", NewSearchHandler(svc).Search)

	rec := doJSON(t, e, http.MethodGet, "/api/search?q=song", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Results []model.TrackSummary `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(body.Results) != 1 || body.Results[0].VideoID != "v1" {
		t.Errorf("results = %+v", body.Results)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/search", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"results":[]`) {
		t.Errorf("blank query: status = %d body = %s", rec.Code, rec.Body.String())
	}
	if cat.calls != 1 {
		t.Errorf("catalog calls = %d, want 1", cat.calls)
	}
}

func TestSearchHandler_CatalogError(t *testing.T) {
	svc := service.NewSearchService(&stubCatalog{err: errors.New("catalog down")}, apiConfig(t), discardLogger(), nil)
	e := echo.New()
	e.GET("/api/search", NewSearchHandler(svc).Search)

	rec := doJSON(t, e, http.MethodGet, "/api/search?q=x", "")
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	var body struct {
		Results []model.TrackSummary `json:"results"`
		Error   string               `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.Results == nil || len(body.Results) != 0 || body.Error == "" {
		t.Errorf("body = %s", rec.Body.String())
	}
}

func newPlaylistEcho(t *testing.T) *echo.Echo {
	t.Helper()
	h := NewPlaylistHandler(service.NewPlaylistStore(apiConfig(t), discardLogger()), discardLogger())
	e := echo.New()
	e.GET("/api/playlists", h.List)
	e.POST("/api/playlists", h.Create)
	e.POST("/api/playlists/:id/add", h.AddSong)
	e.PUT("/api/playlists/:id", h.Rename)
	e.DELETE("/api/playlists/:id", h.Delete)
	return e
}

func TestPlaylistHandler_CRUD(t *testing.T) {
	e := newPlaylistEcho(t)

	rec := doJSON(t, e, http.MethodPost, "/api/playlists", `{"name":"Morning"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("create status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var p model.Playlist
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.ID == "" || p.Name != "Morning" {
		t.Errorf("created = %+v", p)
	}

	rec = doJSON(t, e, http.MethodPost, "/api/playlists/"+p.ID+"/add", `{"songId":"s1"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"songIds":["s1"]`) {
		t.Errorf("add: status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodPut, "/api/playlists/"+p.ID, `{"name":"Evening"}`)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"name":"Evening"`) {
		t.Errorf("rename: status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/api/playlists", "")
	var list []model.Playlist
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(list) != 1 || list[0].Name != "Evening" {
		t.Errorf("list = %+v", list)
	}

	rec = doJSON(t, e, http.MethodDelete, "/api/playlists/"+p.ID, "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"success":true`) {
		t.Errorf("delete: status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/api/playlists", "")
	if strings.TrimSpace(rec.Body.String()) != "[]" {
		t.Errorf("list after delete = %s", rec.Body.String())
	}
}

func TestPlaylistHandler_Errors(t *testing.T) {
	e := newPlaylistEcho(t)

	tests := []struct {
		name       string
		method     string
		path       string
		body       string
		wantStatus int
		wantError  string
	}{
		{"create without name", http.MethodPost, "/api/playlists", `{}`, http.StatusBadRequest, "Name required"},
		{"create bad json", http.MethodPost, "/api/playlists", `{`, http.StatusBadRequest, "invalid JSON body"},
		{"add to unknown", http.MethodPost, "/api/playlists/nope/add", `{"songId":"s"}`, http.StatusNotFound, "Playlist not found"},
		{"add without song", http.MethodPost, "/api/playlists/nope/add", `{}`, http.StatusBadRequest, "songId required"},
		{"rename unknown", http.MethodPut, "/api/playlists/nope", `{"name":"x"}`, http.StatusNotFound, "Playlist not found"},
		{"rename without name", http.MethodPut, "/api/playlists/nope", `{"name":""}`, http.StatusBadRequest, "Name required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, e, tt.method, tt.path, tt.body)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var body map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if body["error"] != tt.wantError {
				t.Errorf("error = %q, want %q", body["error"], tt.wantError)
			}
		})
	}
}

func TestLibraryHandler(t *testing.T) {
	cfg := apiConfig(t)
	songs := `[{"videoId":"a","genre":"Pop"},{"videoId":"b","genre":"Jazz"}]`
	if err := os.WriteFile(filepath.Join(cfg.Library.DataDir, "top_songs.json"), []byte(songs), 0o600); err != nil {
		t.Fatal(err)
	}

	h := NewLibraryHandler(service.NewLibrary(cfg, discardLogger()))
	e := echo.New()
	e.GET("/api/genres", h.Genres)
	e.GET("/api/library/artists", h.Artists)
	e.GET("/api/library/songs", h.Songs)

	rec := doJSON(t, e, http.MethodGet, "/api/library/songs", "")
	if rec.Code != http.StatusOK || rec.Body.String() != songs {
		t.Errorf("songs: status = %d body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get(echo.HeaderContentType); !strings.HasPrefix(ct, echo.MIMEApplicationJSON) {
		t.Errorf("Content-Type = %q", ct)
	}

	rec = doJSON(t, e, http.MethodGet, "/api/library/artists", "")
	if rec.Body.String() != "[]" {
		t.Errorf("artists = %s, want []", rec.Body.String())
	}

	rec = doJSON(t, e, http.MethodGet, "/api/genres", "")
	if rec.Body.String() != `[{"id":"Jazz","name":"Jazz"},{"id":"Pop","name":"Pop"}]` {
		t.Errorf("genres = %s", rec.Body.String())
	}
}
