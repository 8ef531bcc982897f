package service

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"audio-stream-proxy/internal/config"
)

const (
	genresFile     = "genres.json"
	topSongsFile   = "top_songs.json"
	topArtistsFile = "top_artists.json"
)

// emptyList is served whenever a listing file is absent or unreadable.
var emptyList = json.RawMessage("[]")

// Genre is one entry of the genre listing.
type Genre struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Library serves the static catalog listings stored under library.data_dir.
type Library struct {
	dir    string
	logger *slog.Logger
}

// NewLibrary creates a Library rooted at library.data_dir.
func NewLibrary(cfg *config.Config, logger *slog.Logger) *Library {
	return &Library{
		dir:    cfg.Library.DataDir,
		logger: logger.With("component", "library"),
	}
}

// Songs returns the top songs document.
func (l *Library) Songs() json.RawMessage { return l.read(topSongsFile) }

// Artists returns the top artists document.
func (l *Library) Artists() json.RawMessage { return l.read(topArtistsFile) }

// Genres returns genres.json when present, otherwise the sorted distinct
// genre values found in the top songs document.
func (l *Library) Genres() json.RawMessage {
	if _, err := os.Stat(filepath.Join(l.dir, genresFile)); err == nil {
		return l.read(genresFile)
	}

	var songs []struct {
		Genre string `json:"genre"`
	}
	if err := json.Unmarshal(l.read(topSongsFile), &songs); err != nil {
		return emptyList
	}

	var names []string
	for _, s := range songs {
		if s.Genre != "" {
			names = append(names, s.Genre)
		}
	}
	slices.Sort(names)
	names = slices.Compact(names)

	genres := make([]Genre, 0, len(names))
	for _, n := range names {
		genres = append(genres, Genre{ID: n, Name: n})
	}
	out, err := json.Marshal(genres)
	if err != nil {
		return emptyList
	}
	return out
}

func (l *Library) read(name string) json.RawMessage {
	path := filepath.Join(l.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			l.logger.Warn("read library file", "path", path, "err", err)
		}
		return emptyList
	}
	if !json.Valid(data) {
		l.logger.Warn("library file is not valid JSON", "path", path)
		return emptyList
	}
	return data
}
