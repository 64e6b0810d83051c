package catalog

import (
	"fmt"

	"github.com/vodworks/encode-worker/internal/transcoder"
	"github.com/vodworks/encode-worker/pkg/models"
)

// BuildRenditionURLs builds the playback URL map for the produced labels and
// applies ladder-collapse aliasing so downstream consumers always see the
// fixed high/mid/low schema: a short ladder maps the missing higher labels to
// the best available lower rendition.
func BuildRenditionURLs(cdnDomain, videoID string, labels []string) map[string]string {
	urls := make(map[string]string, 3)
	for _, label := range labels {
		urls[label] = fmt.Sprintf("https://%s/%s/%s/%s", cdnDomain, videoID, label, transcoder.PlaylistName)
	}

	if _, ok := urls[models.LabelMid]; !ok {
		urls[models.LabelMid] = urls[models.LabelLow]
	}
	if _, ok := urls[models.LabelHigh]; !ok {
		urls[models.LabelHigh] = urls[models.LabelMid]
	}

	return urls
}
