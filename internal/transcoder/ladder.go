package transcoder

import "github.com/vodworks/encode-worker/pkg/models"

// SelectLadder derives the ordered rendition ladder from the source height.
// The ladder never upscales past source resolution and always contains at
// least a "low" rendition. Pure function of the height.
func SelectLadder(height int) []models.Rendition {
	switch {
	case height >= 2160:
		return []models.Rendition{
			{Label: models.LabelHigh, Width: 3840, Height: 2160},
			{Label: models.LabelMid, Width: 1920, Height: 1080},
			{Label: models.LabelLow, Width: 1280, Height: 720},
		}
	case height >= 1080:
		return []models.Rendition{
			{Label: models.LabelHigh, Width: 1920, Height: 1080},
			{Label: models.LabelMid, Width: 1280, Height: 720},
			{Label: models.LabelLow, Width: 854, Height: 480},
		}
	case height >= 720:
		return []models.Rendition{
			{Label: models.LabelMid, Width: 1280, Height: 720},
			{Label: models.LabelLow, Width: 854, Height: 480},
		}
	default:
		return []models.Rendition{
			{Label: models.LabelLow, Width: 854, Height: 480},
		}
	}
}

// Labels returns the label set of a ladder in order.
func Labels(ladder []models.Rendition) []string {
	labels := make([]string, len(ladder))
	for i, r := range ladder {
		labels[i] = r.Label
	}
	return labels
}
