package transcoder

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vodworks/encode-worker/pkg/models"
)

func TestBuildArgs(t *testing.T) {
	r := models.Rendition{Label: "mid", Width: 1280, Height: 720}
	args := BuildArgs("/tmp/ws/input.mp4", "/tmp/ws/mid", r)

	joined := strings.Join(args, " ")

	required := []string{
		"-i /tmp/ws/input.mp4",
		"-vf scale=1280:720",
		"-c:v libx264",
		"-profile:v main",
		"-crf 20",
		"-g 48",
		"-keyint_min 48",
		"-sc_threshold 0",
		"-c:a aac",
		"-ar 48000",
		"-hls_time 4",
		"-hls_playlist_type vod",
		"-hls_flags independent_segments",
		"-start_number 0",
	}
	for _, want := range required {
		if !strings.Contains(joined, want) {
			t.Errorf("BuildArgs() missing %q in %q", want, joined)
		}
	}

	if args[len(args)-1] != filepath.Join("/tmp/ws/mid", PlaylistName) {
		t.Errorf("BuildArgs() last arg = %q, want playlist path", args[len(args)-1])
	}
}

func TestParseProbeOutput(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    Dimensions
		wantErr bool
	}{
		{
			name: "valid stream",
			data: `{"streams":[{"width":1920,"height":1080}]}`,
			want: Dimensions{Width: 1920, Height: 1080},
		},
		{
			name: "extra streams ignored",
			data: `{"streams":[{"width":1280,"height":720},{"width":640,"height":360}]}`,
			want: Dimensions{Width: 1280, Height: 720},
		},
		{
			name:    "no streams",
			data:    `{"streams":[]}`,
			wantErr: true,
		},
		{
			name:    "missing dimensions",
			data:    `{"streams":[{"width":0,"height":0}]}`,
			wantErr: true,
		},
		{
			name:    "invalid json",
			data:    `not-json`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseProbeOutput([]byte(tt.data))
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseProbeOutput() expected error, got %v", got)
				}
				if !errors.Is(err, models.ErrProbeFailed) {
					t.Errorf("parseProbeOutput() error = %v, want ErrProbeFailed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseProbeOutput() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("parseProbeOutput() = %v, want %v", got, tt.want)
			}
		})
	}
}
