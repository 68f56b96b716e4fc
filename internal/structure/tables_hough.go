package structure

import (
	"github.com/rigadev/pavadoc/internal/preprocess"
	"github.com/rigadev/pavadoc/internal/utils"
)

const (
	houghTableConfidence = 0.75
	houghMinRegionArea   = 5000
)

// detectTablesHough finds tables from straight edge segments. Merged
// near-horizontal and near-vertical lines pair up into candidate rectangles;
// every successive horizontal pair crossed with every successive vertical
// pair yields one candidate.
func detectTablesHough(gray *utils.GrayMap) []TableRegion {
	w, h := gray.Width, gray.Height
	if w == 0 || h == 0 {
		return nil
	}

	blurred := preprocess.GaussianBlur(gray, blurKernelForHeight(h))
	edges := preprocess.CannyEdges(blurred, 0, 0)

	votes := w / 15
	if votes < 50 {
		votes = 50
	}
	horiz, vert := preprocess.HoughSegments(edges, preprocess.HoughSegmentsParams{
		VotesThreshold: votes,
		MinLength:      float64(w) / 10,
		MaxGap:         w / 25,
		AngleTolerance: 10,
	})

	horiz = preprocess.MergeNearbySegments(horiz, true, 15)
	vert = preprocess.MergeNearbySegments(vert, false, 15)
	if len(horiz) < 2 || len(vert) < 2 {
		return nil
	}

	var regions []TableRegion
	for i := 0; i < len(horiz)-1; i++ {
		for j := 0; j < len(vert)-1; j++ {
			bounds := utils.NewRect(
				minSeg(vert[j].X0, vert[j].X1),
				minSeg(horiz[i].Y0, horiz[i].Y1),
				maxSeg(vert[j+1].X0, vert[j+1].X1),
				maxSeg(horiz[i+1].Y0, horiz[i+1].Y1),
			)
			if bounds.Empty() || bounds.Area() <= houghMinRegionArea {
				continue
			}
			regions = append(regions, TableRegion{
				Bounds:     bounds,
				Confidence: houghTableConfidence,
				Method:     MethodHoughLines,
				Rows:       1,
				Cols:       1,
				CellCount:  1,
			})
		}
	}
	return regions
}

// blurKernelForHeight picks a smoothing kernel between 3 and 7.
func blurKernelForHeight(h int) int {
	k := h / 200
	if k < 3 {
		k = 3
	}
	if k > 7 {
		k = 7
	}
	if k%2 == 0 {
		k++
	}
	return k
}

func minSeg(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxSeg(a, b int) int {
	if a > b {
		return a
	}
	return b
}
