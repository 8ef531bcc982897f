package model

// TrackSummary is a catalog search hit as returned to the web player.
type TrackSummary struct {
	VideoID            string `json:"videoId"`
	Title              string `json:"title"`
	Artist             string `json:"artist"`
	Duration           int    `json:"duration"`
	ThumbnailURL       string `json:"thumbnailUrl"`
	ThumbnailURLBackup string `json:"thumbnailUrlBackup"`
}

// Playlist is a user playlist persisted in the playlists document.
type Playlist struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	SongIDs []string `json:"songIds"`
}
