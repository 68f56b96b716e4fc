package structure

import (
	"sort"

	"github.com/rigadev/pavadoc/internal/utils"
)

const (
	mergeIoUThreshold = 0.3
	mergeConfCap      = 0.95
	mergeConfBoost    = 1.1
)

// MergeTableRegions collapses overlapping detections from different
// detectors. Regions with IoU at or above the threshold join into one region
// whose bounds are the union and whose confidence is the boosted mean of the
// merged members; agreement between detectors is evidence.
func MergeTableRegions(regions []TableRegion) []TableRegion {
	if len(regions) <= 1 {
		return regions
	}
	sorted := make([]TableRegion, len(regions))
	copy(sorted, regions)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Confidence > sorted[j].Confidence })

	used := make([]bool, len(sorted))
	var out []TableRegion
	for i := range sorted {
		if used[i] {
			continue
		}
		used[i] = true
		group := []TableRegion{sorted[i]}
		bounds := sorted[i].Bounds
		for j := i + 1; j < len(sorted); j++ {
			if used[j] {
				continue
			}
			if bounds.IoU(sorted[j].Bounds) >= mergeIoUThreshold {
				used[j] = true
				group = append(group, sorted[j])
				bounds = bounds.Union(sorted[j].Bounds)
			}
		}
		out = append(out, mergeGroup(group, bounds))
	}
	return out
}

func mergeGroup(group []TableRegion, bounds utils.Rect) TableRegion {
	if len(group) == 1 {
		return group[0]
	}
	var sum float64
	best := group[0]
	for _, r := range group {
		sum += r.Confidence
		// Keep the richest cell grid among the members.
		if r.CellCount > best.CellCount {
			best = r
		}
	}
	conf := mergeConfBoost * sum / float64(len(group))
	if conf > mergeConfCap {
		conf = mergeConfCap
	}
	return TableRegion{
		Bounds:     bounds,
		Confidence: conf,
		Method:     MethodMerged,
		Rows:       best.Rows,
		Cols:       best.Cols,
		Cells:      best.Cells,
		CellCount:  best.CellCount,
	}
}

// FilterTableRegions drops geometrically implausible or weak detections:
// area outside 0.2%-80% of the page, aspect outside 0.1-20, or confidence
// below 0.3.
func FilterTableRegions(regions []TableRegion, pageWidth, pageHeight int) []TableRegion {
	pageArea := float64(pageWidth) * float64(pageHeight)
	if pageArea == 0 {
		return nil
	}
	var out []TableRegion
	for _, r := range regions {
		ratio := float64(r.Bounds.Area()) / pageArea
		if ratio < 0.002 || ratio > 0.8 {
			continue
		}
		aspect := r.Bounds.AspectRatio()
		if aspect < 0.1 || aspect > 20 {
			continue
		}
		if r.Confidence < 0.3 {
			continue
		}
		out = append(out, r)
	}
	return out
}
