package structure

import (
	"context"
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rigadev/pavadoc/internal/preprocess"
	"github.com/rigadev/pavadoc/internal/utils"
)

var grayBlack = color.Gray{Y: 0}

func newRect(x0, y0, x1, y1 int) utils.Rect {
	return utils.NewRect(x0, y0, x1, y1)
}

func TestBandedZones(t *testing.T) {
	zones := BandedZones(1000, 2000)
	require.Len(t, zones, 4)

	byType := map[ZoneType]Zone{}
	for _, z := range zones {
		byType[z.Type] = z
	}

	header := byType[ZoneHeader]
	assert.Equal(t, 0, header.Bounds.Y0)
	assert.Equal(t, 500, header.Bounds.Y1) // top 25%
	assert.InDelta(t, 0.85, header.Confidence, 1e-9)

	footer := byType[ZoneFooter]
	assert.Equal(t, 1700, footer.Bounds.Y0) // bottom 15%
	assert.InDelta(t, 0.75, footer.Confidence, 1e-9)

	summary := byType[ZoneSummary]
	assert.Equal(t, 1600, summary.Bounds.Y0) // bottom 20%
	assert.InDelta(t, 0.70, summary.Confidence, 1e-9)

	body := byType[ZoneBody]
	assert.Equal(t, 500, body.Bounds.Y0)
	assert.Equal(t, 1700, body.Bounds.Y1) // runs down to the footer top
	assert.InDelta(t, 0.90, body.Confidence, 1e-9)
}

func TestConnectedComponents(t *testing.T) {
	b := preprocess.NewBinaryMap(20, 20)
	for y := 2; y < 6; y++ {
		for x := 2; x < 8; x++ {
			b.Set(x, y, true)
		}
	}
	for y := 10; y < 12; y++ {
		for x := 10; x < 15; x++ {
			b.Set(x, y, true)
		}
	}
	comps := ConnectedComponents(b)
	require.Len(t, comps, 2)
	assert.Equal(t, 24, comps[0].Area)
	assert.Equal(t, 6, comps[0].Bounds.Width())
	assert.InDelta(t, 1.0, comps[0].FillRatio(), 1e-9)
}

func TestTraceContoursFilledSquare(t *testing.T) {
	b := preprocess.NewBinaryMap(30, 30)
	for y := 5; y < 25; y++ {
		for x := 5; x < 25; x++ {
			b.Set(x, y, true)
		}
	}
	contours := TraceContours(b)
	require.Len(t, contours, 1)
	r := contours[0].BoundingRect()
	assert.Equal(t, 5, r.X0)
	assert.Equal(t, 5, r.Y0)
	// Shoelace over the boundary of a 20x20 square yields (19)^2.
	assert.InDelta(t, 361, contours[0].Area(), 5)
}

func TestMergeTableRegionsCombinesOverlaps(t *testing.T) {
	regions := []TableRegion{
		{Bounds: newRect(0, 0, 100, 100), Confidence: 0.7, Method: MethodMorphological, CellCount: 6},
		{Bounds: newRect(10, 10, 110, 110), Confidence: 0.75, Method: MethodHoughLines, CellCount: 4},
		{Bounds: newRect(300, 300, 400, 400), Confidence: 0.8, Method: MethodContour},
	}
	merged := MergeTableRegions(regions)
	require.Len(t, merged, 2)

	var combined *TableRegion
	for i := range merged {
		if merged[i].Method == MethodMerged {
			combined = &merged[i]
		}
	}
	require.NotNil(t, combined)
	assert.Equal(t, 0, combined.Bounds.X0)
	assert.Equal(t, 110, combined.Bounds.X1)
	assert.InDelta(t, 1.1*(0.7+0.75)/2, combined.Confidence, 1e-9)
	assert.Equal(t, 6, combined.CellCount) // richest grid wins
}

func TestMergeConfidenceCapped(t *testing.T) {
	regions := []TableRegion{
		{Bounds: newRect(0, 0, 100, 100), Confidence: 0.9},
		{Bounds: newRect(0, 0, 100, 100), Confidence: 0.95},
	}
	merged := MergeTableRegions(regions)
	require.Len(t, merged, 1)
	assert.InDelta(t, 0.95, merged[0].Confidence, 1e-9)
}

func TestFilterTableRegions(t *testing.T) {
	page := 1000
	regions := []TableRegion{
		{Bounds: newRect(0, 0, 10, 10), Confidence: 0.9},     // too small
		{Bounds: newRect(0, 0, 950, 950), Confidence: 0.9},   // too large
		{Bounds: newRect(0, 0, 400, 10), Confidence: 0.9},    // aspect 40, rejected
		{Bounds: newRect(0, 0, 400, 200), Confidence: 0.2},   // weak
		{Bounds: newRect(50, 50, 450, 250), Confidence: 0.8}, // keeper
	}
	out := FilterTableRegions(regions, page, page)
	require.Len(t, out, 1)
	assert.Equal(t, 50, out[0].Bounds.X0)
}

func TestAnalyzeRuledTable(t *testing.T) {
	// White page with a ruled 3x3 grid in the body band.
	img := image.NewGray(image.Rect(0, 0, 800, 1000))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	drawHLine := func(y int) {
		for x := 100; x <= 700; x++ {
			img.SetGray(x, y, grayBlack)
		}
	}
	drawVLine := func(x int) {
		for y := 300; y <= 600; y++ {
			img.SetGray(x, y, grayBlack)
		}
	}
	for _, y := range []int{300, 400, 500, 600} {
		drawHLine(y)
	}
	for _, x := range []int{100, 300, 500, 700} {
		drawVLine(x)
	}

	a := NewAnalyzer(DefaultConfig(), nil)
	doc, err := a.Analyze(context.Background(), img)
	require.NoError(t, err)
	assert.Len(t, doc.Zones, 4)
	require.NotEmpty(t, doc.Tables)
	tb := doc.Tables[0]
	assert.GreaterOrEqual(t, tb.Confidence, 0.3)
	assert.Greater(t, doc.Confidence, 0.5)
}

func TestAnalyzeNilImage(t *testing.T) {
	a := NewAnalyzer(DefaultConfig(), nil)
	_, err := a.Analyze(context.Background(), nil)
	assert.Error(t, err)
}

func TestOverallConfidenceWeights(t *testing.T) {
	zones := []Zone{{Confidence: 0.8}, {Confidence: 0.9}}
	tables := []TableRegion{{Confidence: 0.6}}
	assert.InDelta(t, 0.7*0.85+0.3*0.6, overallConfidence(zones, tables), 1e-9)
	assert.InDelta(t, 0.8*0.85, overallConfidence(zones, nil), 1e-9)
	assert.InDelta(t, 0.6*0.6, overallConfidence(nil, tables), 1e-9)
	assert.Zero(t, overallConfidence(nil, nil))
}
