package structure

import (
	"sort"

	"github.com/rigadev/pavadoc/internal/preprocess"
	"github.com/rigadev/pavadoc/internal/utils"
)

const minCellSide = 10

// AnalyzeCells estimates the cell grid of a table region directly from its
// pixels. Used for regions whose detector did not already derive a grid
// from ruling lines. Components at least 10x10 px and above a relative area
// floor count as cell candidates; row and column indices come from
// clustering their centers.
func AnalyzeCells(gray *utils.GrayMap, region utils.Rect) []TableCell {
	region = region.Clamp(gray.Width, gray.Height)
	if region.Empty() {
		return nil
	}
	sub := gray.SubMap(region)
	bin := preprocess.AdaptiveBinarize(sub, 11, 2)

	minArea := sub.Width * sub.Height / 1000
	if minArea < 100 {
		minArea = 100
	}

	var boxes []utils.Rect
	for _, comp := range ConnectedComponents(bin) {
		if comp.Bounds.Area() < minArea {
			continue
		}
		if comp.Bounds.Width() < minCellSide || comp.Bounds.Height() < minCellSide {
			continue
		}
		boxes = append(boxes, comp.Bounds)
	}
	if len(boxes) == 0 {
		return nil
	}

	rowIdx := clusterAxis(boxes, false)
	colIdx := clusterAxis(boxes, true)

	cells := make([]TableCell, 0, len(boxes))
	for i, box := range boxes {
		cells = append(cells, TableCell{
			Row: rowIdx[i],
			Col: colIdx[i],
			Bounds: utils.Rect{
				X0: region.X0 + box.X0,
				Y0: region.Y0 + box.Y0,
				X1: region.X0 + box.X1,
				Y1: region.Y0 + box.Y1,
			},
		})
	}
	sort.Slice(cells, func(i, j int) bool {
		if cells[i].Row != cells[j].Row {
			return cells[i].Row < cells[j].Row
		}
		return cells[i].Col < cells[j].Col
	})
	return cells
}

// clusterAxis assigns dense indices along one axis: box centers within half
// a median box extent of each other share an index.
func clusterAxis(boxes []utils.Rect, horizontal bool) []int {
	type entry struct {
		center float64
		extent int
		orig   int
	}
	entries := make([]entry, len(boxes))
	for i, b := range boxes {
		cx, cy := b.Center()
		if horizontal {
			entries[i] = entry{center: cx, extent: b.Width(), orig: i}
		} else {
			entries[i] = entry{center: cy, extent: b.Height(), orig: i}
		}
	}
	sorted := make([]entry, len(entries))
	copy(sorted, entries)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].center < sorted[j].center })

	extents := make([]int, len(sorted))
	for i, e := range sorted {
		extents[i] = e.extent
	}
	sort.Ints(extents)
	tolerance := float64(extents[len(extents)/2]) / 2
	if tolerance < float64(minCellSide) {
		tolerance = minCellSide
	}

	idx := make([]int, len(boxes))
	current := 0
	prev := sorted[0].center
	idx[sorted[0].orig] = 0
	for _, e := range sorted[1:] {
		if e.center-prev > tolerance {
			current++
		}
		idx[e.orig] = current
		prev = e.center
	}
	return idx
}
