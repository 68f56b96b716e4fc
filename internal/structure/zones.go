package structure

import (
	"github.com/rigadev/pavadoc/internal/utils"
)

// Banded zone model: fixed horizontal bands with fixed layout confidences.
// The bands overlap on purpose: the body runs down to the footer top, and
// the summary band overlaps the footer; totals frequently sit directly
// above the footer boilerplate.
const (
	headerRatio  = 0.25
	footerRatio  = 0.15
	summaryRatio = 0.20

	headerConfidence  = 0.85
	bodyConfidence    = 0.90
	footerConfidence  = 0.75
	summaryConfidence = 0.70
)

// BandedZones segments a page of the given dimensions into the four
// standard invoice bands.
func BandedZones(width, height int) []Zone {
	headerEnd := int(float64(height) * headerRatio)
	footerStart := int(float64(height) * (1 - footerRatio))
	summaryStart := int(float64(height) * (1 - summaryRatio))

	return []Zone{
		{
			Type:       ZoneHeader,
			Bounds:     utils.Rect{X0: 0, Y0: 0, X1: width, Y1: headerEnd},
			Confidence: headerConfidence,
		},
		{
			Type:       ZoneBody,
			Bounds:     utils.Rect{X0: 0, Y0: headerEnd, X1: width, Y1: footerStart},
			Confidence: bodyConfidence,
		},
		{
			Type:       ZoneSummary,
			Bounds:     utils.Rect{X0: 0, Y0: summaryStart, X1: width, Y1: height},
			Confidence: summaryConfidence,
		},
		{
			Type:       ZoneFooter,
			Bounds:     utils.Rect{X0: 0, Y0: footerStart, X1: width, Y1: height},
			Confidence: footerConfidence,
		},
	}
}
