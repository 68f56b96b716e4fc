package structure

import (
	"github.com/rigadev/pavadoc/internal/preprocess"
	"github.com/rigadev/pavadoc/internal/utils"
)

// detectTablesContour finds tables as large, well-filled closed boundaries.
// It catches borderless or partially ruled tables that the line-based
// detectors miss.
func detectTablesContour(gray *utils.GrayMap) []TableRegion {
	w, h := gray.Width, gray.Height
	if w == 0 || h == 0 {
		return nil
	}

	bin := preprocess.AdaptiveBinarize(gray, 11, 2)
	bin = preprocess.Close(bin, 2, 2)

	minArea := 0.002 * float64(w) * float64(h)

	var regions []TableRegion
	for _, contour := range TraceContours(bin) {
		area := contour.Area()
		if area < minArea {
			continue
		}
		bounds := contour.BoundingRect()
		if bounds.Area() == 0 {
			continue
		}
		fill := area / float64(bounds.Area())
		if fill < 0.5 {
			continue
		}
		aspect := bounds.AspectRatio()
		if aspect < 0.2 || aspect > 15 {
			continue
		}

		conf := 0.8*fill + 0.3
		if conf > 0.8 {
			conf = 0.8
		}
		regions = append(regions, TableRegion{
			Bounds:     bounds,
			Confidence: conf,
			Method:     MethodContour,
		})
	}
	return regions
}
