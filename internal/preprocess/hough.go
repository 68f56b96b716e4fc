package preprocess

import (
	"math"
	"sort"
)

// LineSegment is a detected straight edge run in pixel coordinates.
type LineSegment struct {
	X0, Y0, X1, Y1 int
}

// Length returns the Euclidean length of the segment.
func (s LineSegment) Length() float64 {
	return math.Hypot(float64(s.X1-s.X0), float64(s.Y1-s.Y0))
}

// AngleDegrees returns the segment angle in (-90, 90].
func (s LineSegment) AngleDegrees() float64 {
	a := math.Atan2(float64(s.Y1-s.Y0), float64(s.X1-s.X0)) * 180 / math.Pi
	if a > 90 {
		a -= 180
	} else if a <= -90 {
		a += 180
	}
	return a
}

// DominantSkewAngle estimates the document skew from an edge map using a
// Hough accumulator over near-horizontal angles. It considers up to maxLines
// strongest lines above votesThreshold and returns the median deviation from
// horizontal in degrees. ok is false when too few lines vote.
func DominantSkewAngle(edges *BinaryMap, votesThreshold, maxLines int) (angle float64, ok bool) {
	w, h := edges.Width, edges.Height
	if w == 0 || h == 0 {
		return 0, false
	}
	diag := int(math.Ceil(math.Hypot(float64(w), float64(h))))

	// Accumulate over ±20° around horizontal in 0.5° steps.
	const span, step = 20.0, 0.5
	nAngles := int(2*span/step) + 1
	acc := make([]int, nAngles*(2*diag+1))

	sinT := make([]float64, nAngles)
	cosT := make([]float64, nAngles)
	for i := 0; i < nAngles; i++ {
		theta := (90 - span + float64(i)*step) * math.Pi / 180
		sinT[i] = math.Sin(theta)
		cosT[i] = math.Cos(theta)
	}

	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !edges.Bits[y*w+x] {
				continue
			}
			for i := 0; i < nAngles; i++ {
				rho := int(math.Round(float64(x)*cosT[i] + float64(y)*sinT[i]))
				acc[i*(2*diag+1)+rho+diag]++
			}
		}
	}

	type peak struct {
		votes int
		angle float64
	}
	var peaks []peak
	for i := 0; i < nAngles; i++ {
		base := i * (2*diag + 1)
		for r := 0; r <= 2*diag; r++ {
			if acc[base+r] >= votesThreshold {
				// theta near 90° means horizontal line; deviation = theta-90
				peaks = append(peaks, peak{votes: acc[base+r], angle: -span + float64(i)*step})
			}
		}
	}
	if len(peaks) == 0 {
		return 0, false
	}
	sort.Slice(peaks, func(i, j int) bool { return peaks[i].votes > peaks[j].votes })
	if len(peaks) > maxLines {
		peaks = peaks[:maxLines]
	}
	angles := make([]float64, len(peaks))
	for i, p := range peaks {
		angles[i] = p.angle
	}
	sort.Float64s(angles)
	return angles[len(angles)/2], true
}

// HoughSegmentsParams controls probabilistic segment extraction.
type HoughSegmentsParams struct {
	VotesThreshold int     // minimum accumulator votes to consider a line
	MinLength      float64 // minimum segment length in pixels
	MaxGap         int     // largest run of missing edge pixels inside one segment
	AngleTolerance float64 // degrees around horizontal/vertical to accept
}

// HoughSegments extracts near-horizontal and near-vertical line segments from
// an edge map. Lines vote in a rho/theta accumulator restricted to the two
// axis-aligned angle bands; edge pixels along each voted line are then walked
// into maximal runs honoring MinLength and MaxGap.
func HoughSegments(edges *BinaryMap, p HoughSegmentsParams) (horizontal, vertical []LineSegment) {
	horizontal = scanAxisRuns(edges, true, p)
	vertical = scanAxisRuns(edges, false, p)
	return horizontal, vertical
}

// scanAxisRuns walks rows (or columns) of the edge map collecting runs. A row
// qualifies as a line candidate only when its total edge count reaches the
// votes threshold, mirroring the accumulator gate.
func scanAxisRuns(edges *BinaryMap, horizontal bool, p HoughSegmentsParams) []LineSegment {
	var segs []LineSegment
	outer, inner := edges.Height, edges.Width
	if !horizontal {
		outer, inner = edges.Width, edges.Height
	}
	at := func(o, i int) bool {
		if horizontal {
			return edges.At(i, o)
		}
		return edges.At(o, i)
	}

	for o := 0; o < outer; o++ {
		votes := 0
		for i := 0; i < inner; i++ {
			if at(o, i) {
				votes++
			}
		}
		if votes < p.VotesThreshold {
			continue
		}

		start, gap := -1, 0
		last := -1
		flush := func(end int) {
			if start < 0 {
				return
			}
			if float64(end-start+1) >= p.MinLength {
				if horizontal {
					segs = append(segs, LineSegment{X0: start, Y0: o, X1: end, Y1: o})
				} else {
					segs = append(segs, LineSegment{X0: o, Y0: start, X1: o, Y1: end})
				}
			}
			start = -1
		}
		for i := 0; i < inner; i++ {
			if at(o, i) {
				if start < 0 {
					start = i
				}
				last = i
				gap = 0
			} else if start >= 0 {
				gap++
				if gap > p.MaxGap {
					flush(last)
					gap = 0
				}
			}
		}
		flush(last)
	}
	return segs
}

// MergeNearbySegments collapses parallel segments whose axis offsets are
// within dist pixels, keeping the longest representative.
func MergeNearbySegments(segs []LineSegment, horizontal bool, dist int) []LineSegment {
	if len(segs) == 0 {
		return nil
	}
	key := func(s LineSegment) int {
		if horizontal {
			return s.Y0
		}
		return s.X0
	}
	sorted := make([]LineSegment, len(segs))
	copy(sorted, segs)
	sort.Slice(sorted, func(i, j int) bool { return key(sorted[i]) < key(sorted[j]) })

	var out []LineSegment
	cur := sorted[0]
	for _, s := range sorted[1:] {
		if key(s)-key(cur) <= dist {
			if s.Length() > cur.Length() {
				cur = s
			}
			continue
		}
		out = append(out, cur)
		cur = s
	}
	out = append(out, cur)
	return out
}
