package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func buildWorkspace(t *testing.T, labels []string, files map[string][]string) *Workspace {
	t.Helper()
	ws := &Workspace{Root: t.TempDir()}

	// The input file lives at the workspace root and must never be uploaded.
	if err := os.WriteFile(ws.InputPath("raw.mp4"), []byte("source"), 0644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	for _, label := range labels {
		if err := os.MkdirAll(ws.RenditionDir(label), 0755); err != nil {
			t.Fatalf("mkdir %s: %v", label, err)
		}
		for _, name := range files[label] {
			if err := os.WriteFile(filepath.Join(ws.RenditionDir(label), name), []byte("data"), 0644); err != nil {
				t.Fatalf("write %s/%s: %v", label, name, err)
			}
		}
	}
	return ws
}

func TestUploader_Completeness(t *testing.T) {
	labels := []string{"mid", "low"}
	ws := buildWorkspace(t, labels, map[string][]string{
		"mid": {"index.m3u8", "index0.ts", "index1.ts"},
		"low": {"index.m3u8", "index0.ts"},
	})

	fake := &fakeS3{}
	u := NewUploader(fake, 4, newTestLogger())

	if err := u.Upload(context.Background(), "vid-9", ws, labels, "vod-artifacts"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	want := []string{
		"vid-9/low/index.m3u8",
		"vid-9/low/index0.ts",
		"vid-9/mid/index.m3u8",
		"vid-9/mid/index0.ts",
		"vid-9/mid/index1.ts",
	}
	got := append([]string(nil), fake.putKeys...)
	sort.Strings(got)

	if len(got) != len(want) {
		t.Fatalf("uploaded keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("key[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestUploader_ContentTypes(t *testing.T) {
	labels := []string{"low"}
	ws := buildWorkspace(t, labels, map[string][]string{
		"low": {"index.m3u8", "index0.ts"},
	})

	fake := &fakeS3{}
	u := NewUploader(fake, 2, newTestLogger())

	if err := u.Upload(context.Background(), "vid-10", ws, labels, "vod-artifacts"); err != nil {
		t.Fatalf("Upload() error = %v", err)
	}

	if ct := fake.putTypes["vid-10/low/index.m3u8"]; ct != "application/vnd.apple.mpegurl" {
		t.Errorf("playlist content type = %q", ct)
	}
	if ct := fake.putTypes["vid-10/low/index0.ts"]; ct != "video/MP2T" {
		t.Errorf("segment content type = %q", ct)
	}
}

func TestUploader_PutFailureAborts(t *testing.T) {
	labels := []string{"low"}
	ws := buildWorkspace(t, labels, map[string][]string{
		"low": {"index.m3u8", "index0.ts"},
	})

	fake := &fakeS3{putErr: errors.New("access denied")}
	u := NewUploader(fake, 2, newTestLogger())

	if err := u.Upload(context.Background(), "vid-11", ws, labels, "vod-artifacts"); err == nil {
		t.Error("Upload() expected error when PutObject fails")
	}
}
