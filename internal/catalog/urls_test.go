package catalog

import (
	"reflect"
	"testing"
)

func TestBuildRenditionURLs_FullLadder(t *testing.T) {
	urls := BuildRenditionURLs("cdn.test", "vid-1", []string{"high", "mid", "low"})

	want := map[string]string{
		"high": "https://cdn.test/vid-1/high/index.m3u8",
		"mid":  "https://cdn.test/vid-1/mid/index.m3u8",
		"low":  "https://cdn.test/vid-1/low/index.m3u8",
	}
	if !reflect.DeepEqual(urls, want) {
		t.Errorf("BuildRenditionURLs() = %v, want %v", urls, want)
	}
}

func TestBuildRenditionURLs_CollapseHigh(t *testing.T) {
	urls := BuildRenditionURLs("cdn.test", "vid-2", []string{"mid", "low"})

	if urls["high"] != urls["mid"] {
		t.Errorf("high = %q, want alias of mid %q", urls["high"], urls["mid"])
	}
	if urls["mid"] == urls["low"] {
		t.Errorf("mid and low should differ, both %q", urls["mid"])
	}
	if urls["mid"] != "https://cdn.test/vid-2/mid/index.m3u8" {
		t.Errorf("mid = %q, want produced mid URL", urls["mid"])
	}
}

func TestBuildRenditionURLs_CollapseAll(t *testing.T) {
	urls := BuildRenditionURLs("cdn.test", "vid-3", []string{"low"})

	low := "https://cdn.test/vid-3/low/index.m3u8"
	if urls["low"] != low {
		t.Errorf("low = %q, want %q", urls["low"], low)
	}
	if urls["mid"] != low || urls["high"] != low {
		t.Errorf("mid/high = %q/%q, want both aliased to %q", urls["mid"], urls["high"], low)
	}
	if len(urls) != 3 {
		t.Errorf("len(urls) = %d, want 3", len(urls))
	}
}

func TestBuildRenditionURLs_Idempotent(t *testing.T) {
	a := BuildRenditionURLs("cdn.test", "vid-4", []string{"mid", "low"})
	b := BuildRenditionURLs("cdn.test", "vid-4", []string{"mid", "low"})

	if !reflect.DeepEqual(a, b) {
		t.Errorf("BuildRenditionURLs() not idempotent: %v != %v", a, b)
	}
}
