package model

import "strings"

// Origin identifies which source type produced a candidate.
type Origin int

const (
	OriginDirect Origin = iota
	OriginMirror
)

func (o Origin) String() string {
	switch o {
	case OriginDirect:
		return "direct"
	case OriginMirror:
		return "mirror"
	default:
		return "unknown"
	}
}

// StreamCandidate is one playable audio URL offered by a source.
type StreamCandidate struct {
	SourceURL string
	MimeHint  string
	Origin    Origin
}

// PrefersMP4 reports whether the candidate declares an mp4 container.
func (c StreamCandidate) PrefersMP4() bool {
	return strings.Contains(c.MimeHint, "mp4")
}

// MirrorEndpoint is one configured mirror API base URL.
type MirrorEndpoint struct {
	BaseURL string
}
