package models

import "fmt"

// EncodeJob is the queue message payload asking the worker to encode one video.
// The payload is immutable once published; the queue may deliver it more than once.
type EncodeJob struct {
	VideoID string `json:"videoId"`
	RawKey  string `json:"rawKey"`
	Demo    bool   `json:"demo"`
}

// Validate checks that the job carries all required fields.
func (j *EncodeJob) Validate() error {
	if j.VideoID == "" {
		return ErrMissingVideoID
	}
	if j.RawKey == "" {
		return ErrMissingRawKey
	}
	return nil
}

// Rendition labels, ordered best to worst.
const (
	LabelHigh = "high"
	LabelMid  = "mid"
	LabelLow  = "low"
)

// Rendition is one resolution variant of the source video.
type Rendition struct {
	Label  string
	Width  int
	Height int
}

// Resolution returns the rendition's WxH string.
func (r Rendition) Resolution() string {
	return fmt.Sprintf("%dx%d", r.Width, r.Height)
}
