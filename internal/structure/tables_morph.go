package structure

import (
	"sort"

	"github.com/rigadev/pavadoc/internal/preprocess"
	"github.com/rigadev/pavadoc/internal/utils"
)

// detectTablesMorphological finds tables by isolating ruling lines with
// directional morphology. Horizontal and vertical openings leave only long
// strokes; their union clusters into table frames.
func detectTablesMorphological(gray *utils.GrayMap) []TableRegion {
	w, h := gray.Width, gray.Height
	if w == 0 || h == 0 {
		return nil
	}

	bin := preprocess.InvertedAdaptiveBinarize(gray, 15, 10)

	hLen := w / 30
	if hLen < 30 {
		hLen = 30
	}
	vLen := h / 50
	if vLen < 15 {
		vLen = 15
	}
	hLines := preprocess.Open(bin, hLen, 1)
	vLines := preprocess.Open(bin, 1, vLen)

	combined := preprocess.NewBinaryMap(w, h)
	for i := range combined.Bits {
		combined.Bits[i] = hLines.Bits[i] || vLines.Bits[i]
	}
	// Bridge joints between rulings so frames form one component.
	combined = preprocess.Dilate(combined, 3, 3)

	minArea := int(0.005 * float64(w) * float64(h))
	if minArea < 5000 {
		minArea = 5000
	}

	var regions []TableRegion
	for _, comp := range ConnectedComponents(combined) {
		if comp.Bounds.Area() < minArea {
			continue
		}
		aspect := comp.Bounds.AspectRatio()
		if aspect < 0.3 || aspect > 10 {
			continue
		}

		rows, cols := countGridLines(comp.Bounds, hLines, vLines)
		cellCount := 0
		if rows > 1 && cols > 1 {
			cellCount = (rows - 1) * (cols - 1)
		}

		regions = append(regions, TableRegion{
			Bounds:     comp.Bounds,
			Confidence: morphConfidence(comp.Bounds, cellCount),
			Method:     MethodMorphological,
			Rows:       maxIntS(rows-1, 0),
			Cols:       maxIntS(cols-1, 0),
			CellCount:  cellCount,
			Cells:      gridCells(comp.Bounds, hLines, vLines),
		})
	}
	return regions
}

// morphConfidence scores a candidate: structure evidence (cell count) plus
// plausible geometry.
func morphConfidence(bounds utils.Rect, cellCount int) float64 {
	conf := 0.5
	if cellCount >= 4 {
		conf += 0.2
	}
	if cellCount >= 9 {
		conf += 0.1
	}
	area := float64(bounds.Area())
	if area >= 1e4 && area <= 1e5 {
		conf += 0.1
	}
	aspect := bounds.AspectRatio()
	if aspect >= 1.5 && aspect <= 8 {
		conf += 0.1
	}
	if conf > 0.95 {
		conf = 0.95
	}
	return conf
}

// countGridLines counts distinct ruling-line positions crossing the region.
func countGridLines(bounds utils.Rect, hLines, vLines *preprocess.BinaryMap) (rows, cols int) {
	rowPos := linePositions(bounds, hLines, true)
	colPos := linePositions(bounds, vLines, false)
	return len(rowPos), len(colPos)
}

// linePositions returns the cluster centers of ruling lines inside bounds
// along one axis. A scanline belongs to a line when at least half of the
// span is foreground; adjacent scanlines collapse into one position.
func linePositions(bounds utils.Rect, lines *preprocess.BinaryMap, horizontal bool) []int {
	var positions []int
	span := bounds.Width()
	length := bounds.Height()
	if !horizontal {
		span = bounds.Height()
		length = bounds.Width()
	}
	if span == 0 || length == 0 {
		return nil
	}

	prevHit := false
	runStart := 0
	for i := 0; i < length; i++ {
		count := 0
		for j := 0; j < span; j++ {
			var on bool
			if horizontal {
				on = lines.At(bounds.X0+j, bounds.Y0+i)
			} else {
				on = lines.At(bounds.X0+i, bounds.Y0+j)
			}
			if on {
				count++
			}
		}
		hit := count*2 >= span
		switch {
		case hit && !prevHit:
			runStart = i
		case !hit && prevHit:
			positions = append(positions, bounds.Y0+(runStart+i-1)/2)
			if !horizontal {
				positions[len(positions)-1] = bounds.X0 + (runStart+i-1)/2
			}
		}
		prevHit = hit
	}
	if prevHit {
		p := bounds.Y0 + (runStart+length-1)/2
		if !horizontal {
			p = bounds.X0 + (runStart+length-1)/2
		}
		positions = append(positions, p)
	}
	sort.Ints(positions)
	return positions
}

// gridCells builds the cell rectangles between detected ruling lines.
func gridCells(bounds utils.Rect, hLines, vLines *preprocess.BinaryMap) []TableCell {
	rowPos := linePositions(bounds, hLines, true)
	colPos := linePositions(bounds, vLines, false)
	if len(rowPos) < 2 || len(colPos) < 2 {
		return nil
	}
	var cells []TableCell
	for r := 0; r < len(rowPos)-1; r++ {
		for c := 0; c < len(colPos)-1; c++ {
			cells = append(cells, TableCell{
				Row:    r,
				Col:    c,
				Bounds: utils.Rect{X0: colPos[c], Y0: rowPos[r], X1: colPos[c+1], Y1: rowPos[r+1]},
			})
		}
	}
	return cells
}

func maxIntS(a, b int) int {
	if a > b {
		return a
	}
	return b
}
