package service

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"audio-stream-proxy/internal/config"
	"audio-stream-proxy/internal/model"
)

// PlaylistStore persists playlists as a single JSON document. Every mutation
// is a whole-file read-modify-write under the store mutex.
type PlaylistStore struct {
	mu     sync.Mutex
	path   string
	logger *slog.Logger
}

// NewPlaylistStore creates a PlaylistStore backed by library.playlists_file.
func NewPlaylistStore(cfg *config.Config, logger *slog.Logger) *PlaylistStore {
	return &PlaylistStore{
		path:   cfg.Library.PlaylistsFile,
		logger: logger.With("component", "playlist_store"),
	}
}

// List returns all playlists. A missing or unreadable document reads as empty.
func (s *PlaylistStore) List() []model.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// Create appends a new playlist named name.
func (s *PlaylistStore) Create(name string) (model.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Playlist{}, fmt.Errorf("%w: name required", ErrMalformedRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	p := model.Playlist{ID: uuid.NewString(), Name: name, SongIDs: []string{}}
	playlists := append(s.load(), p)
	if err := s.save(playlists); err != nil {
		return model.Playlist{}, err
	}
	return p, nil
}

// AddSong appends songID to playlist id unless it is already present.
func (s *PlaylistStore) AddSong(id, songID string) (model.Playlist, error) {
	if strings.TrimSpace(songID) == "" {
		return model.Playlist{}, fmt.Errorf("%w: songId required", ErrMalformedRequest)
	}
	return s.update(id, func(p *model.Playlist) {
		if !slices.Contains(p.SongIDs, songID) {
			p.SongIDs = append(p.SongIDs, songID)
		}
	})
}

// Rename sets the name of playlist id.
func (s *PlaylistStore) Rename(id, name string) (model.Playlist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Playlist{}, fmt.Errorf("%w: name required", ErrMalformedRequest)
	}
	return s.update(id, func(p *model.Playlist) { p.Name = name })
}

// Delete removes playlist id. Deleting an unknown id is not an error.
func (s *PlaylistStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlists := slices.DeleteFunc(s.load(), func(p model.Playlist) bool { return p.ID == id })
	return s.save(playlists)
}

func (s *PlaylistStore) update(id string, fn func(*model.Playlist)) (model.Playlist, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	playlists := s.load()
	i := slices.IndexFunc(playlists, func(p model.Playlist) bool { return p.ID == id })
	if i < 0 {
		return model.Playlist{}, fmt.Errorf("playlist %q: %w", id, ErrNotFound)
	}
	fn(&playlists[i])
	if err := s.save(playlists); err != nil {
		return model.Playlist{}, err
	}
	return playlists[i], nil
}

func (s *PlaylistStore) load() []model.Playlist {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("read playlists", "path", s.path, "err", err)
		}
		return []model.Playlist{}
	}

	var playlists []model.Playlist
	if err := json.Unmarshal(data, &playlists); err != nil {
		s.logger.Warn("parse playlists", "path", s.path, "err", err)
		return []model.Playlist{}
	}
	for i := range playlists {
		if playlists[i].SongIDs == nil {
			playlists[i].SongIDs = []string{}
		}
	}
	return playlists
}

// save writes the document to a temp file in the same directory and renames it into place.
func (s *PlaylistStore) save(playlists []model.Playlist) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create playlists dir: %w", err)
	}

	data, err := json.MarshalIndent(playlists, "", "  ")
	if err != nil {
		return fmt.Errorf("encode playlists: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".playlists-*.json")
	if err != nil {
		return fmt.Errorf("create temp playlists file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write playlists: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close playlists: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("replace playlists: %w", err)
	}
	return nil
}
