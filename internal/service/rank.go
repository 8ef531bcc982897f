package service

import (
	"slices"

	"audio-stream-proxy/internal/model"
)

// Rank orders candidates so that mp4-hinted ones come first. The sort is
// stable and works on a copy; the input slice is left untouched.
func Rank(candidates []model.StreamCandidate) []model.StreamCandidate {
	ranked := slices.Clone(candidates)
	slices.SortStableFunc(ranked, func(a, b model.StreamCandidate) int {
		return rankKey(a) - rankKey(b)
	})
	return ranked
}

func rankKey(c model.StreamCandidate) int {
	if c.PrefersMP4() {
		return 0
	}
	return 1
}
