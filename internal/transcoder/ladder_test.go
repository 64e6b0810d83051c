package transcoder

import (
	"reflect"
	"testing"

	"github.com/vodworks/encode-worker/pkg/models"
)

func TestSelectLadder(t *testing.T) {
	tests := []struct {
		name   string
		height int
		want   []models.Rendition
	}{
		{
			name:   "4k source",
			height: 2160,
			want: []models.Rendition{
				{Label: "high", Width: 3840, Height: 2160},
				{Label: "mid", Width: 1920, Height: 1080},
				{Label: "low", Width: 1280, Height: 720},
			},
		},
		{
			name:   "above 4k",
			height: 4320,
			want: []models.Rendition{
				{Label: "high", Width: 3840, Height: 2160},
				{Label: "mid", Width: 1920, Height: 1080},
				{Label: "low", Width: 1280, Height: 720},
			},
		},
		{
			name:   "1080p source",
			height: 1080,
			want: []models.Rendition{
				{Label: "high", Width: 1920, Height: 1080},
				{Label: "mid", Width: 1280, Height: 720},
				{Label: "low", Width: 854, Height: 480},
			},
		},
		{
			name:   "1440p source",
			height: 1440,
			want: []models.Rendition{
				{Label: "high", Width: 1920, Height: 1080},
				{Label: "mid", Width: 1280, Height: 720},
				{Label: "low", Width: 854, Height: 480},
			},
		},
		{
			name:   "720p source",
			height: 720,
			want: []models.Rendition{
				{Label: "mid", Width: 1280, Height: 720},
				{Label: "low", Width: 854, Height: 480},
			},
		},
		{
			name:   "1000p source",
			height: 1000,
			want: []models.Rendition{
				{Label: "mid", Width: 1280, Height: 720},
				{Label: "low", Width: 854, Height: 480},
			},
		},
		{
			name:   "sd source",
			height: 480,
			want: []models.Rendition{
				{Label: "low", Width: 854, Height: 480},
			},
		},
		{
			name:   "tiny source",
			height: 144,
			want: []models.Rendition{
				{Label: "low", Width: 854, Height: 480},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SelectLadder(tt.height)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("SelectLadder(%d) = %v, want %v", tt.height, got, tt.want)
			}
		})
	}
}

func TestSelectLadder_Deterministic(t *testing.T) {
	for _, h := range []int{480, 720, 1080, 2160} {
		a := SelectLadder(h)
		b := SelectLadder(h)
		if !reflect.DeepEqual(a, b) {
			t.Errorf("SelectLadder(%d) not deterministic: %v != %v", h, a, b)
		}
	}
}

func TestLabels(t *testing.T) {
	ladder := SelectLadder(1080)
	got := Labels(ladder)
	want := []string{"high", "mid", "low"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Labels() = %v, want %v", got, want)
	}
}
