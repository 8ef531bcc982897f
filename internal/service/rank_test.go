package service

import (
	"testing"

	"audio-stream-proxy/internal/model"
)

func TestRank(t *testing.T) {
	tests := []struct {
		name string
		in   []model.StreamCandidate
		want []string
	}{
		{
			name: "mp4 first, stable otherwise",
			in: []model.StreamCandidate{
				{SourceURL: "A", MimeHint: "audio/webm"},
				{SourceURL: "B", MimeHint: "audio/mp4"},
				{SourceURL: "C", MimeHint: "audio/webm"},
			},
			want: []string{"B", "A", "C"},
		},
		{
			name: "multiple mp4 keep relative order",
			in: []model.StreamCandidate{
				{SourceURL: "A", MimeHint: "audio/webm"},
				{SourceURL: "B", MimeHint: "audio/mp4"},
				{SourceURL: "C", MimeHint: "video/mp4"},
				{SourceURL: "D", MimeHint: ""},
			},
			want: []string{"B", "C", "A", "D"},
		},
		{
			name: "empty",
			in:   nil,
			want: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Rank(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.want))
			}
			for i := range got {
				if got[i].SourceURL != tt.want[i] {
					t.Errorf("[%d] = %s, want %s", i, got[i].SourceURL, tt.want[i])
				}
			}
		})
	}
}

func TestRank_DoesNotMutateInput(t *testing.T) {
	in := []model.StreamCandidate{
		{SourceURL: "A", MimeHint: "audio/webm"},
		{SourceURL: "B", MimeHint: "audio/mp4"},
	}
	_ = Rank(in)
	if in[0].SourceURL != "A" {
		t.Error("Rank reordered its input")
	}
}
