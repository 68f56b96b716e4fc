// Package structure performs geometric layout analysis of invoice scans:
// banded zone segmentation, ruling-line and contour based table detection,
// table cell estimation and text block discovery. No trained models are
// involved; everything is derived from the binarized raster.
package structure

import (
	"time"

	"github.com/rigadev/pavadoc/internal/utils"
)

// ZoneType identifies a horizontal band of the document.
type ZoneType string

const (
	ZoneHeader         ZoneType = "HEADER"
	ZoneBody           ZoneType = "BODY"
	ZoneFooter         ZoneType = "FOOTER"
	ZoneSummary        ZoneType = "SUMMARY"
	ZoneSupplierInfo   ZoneType = "SUPPLIER_INFO"
	ZoneRecipientInfo  ZoneType = "RECIPIENT_INFO"
	ZoneInvoiceDetails ZoneType = "INVOICE_DETAILS"
	ZoneAmounts        ZoneType = "AMOUNTS"
	ZoneTable          ZoneType = "TABLE"
)

// Zone is a typed document region with a layout confidence.
type Zone struct {
	Type       ZoneType    `json:"type"`
	Bounds     utils.Rect  `json:"bounds"`
	Confidence float64     `json:"confidence"`
	TextBlocks []TextBlock `json:"text_blocks,omitempty"`
}

// DetectionMethod names the table detector that produced a region.
type DetectionMethod string

const (
	MethodMorphological DetectionMethod = "morphological"
	MethodHoughLines    DetectionMethod = "hough_lines"
	MethodContour       DetectionMethod = "contour"
	MethodMerged        DetectionMethod = "merged"
)

// TableCell is a grid cell inside a detected table.
type TableCell struct {
	Row    int        `json:"row"`
	Col    int        `json:"col"`
	Bounds utils.Rect `json:"bounds"`
}

// TableRegion is a detected table with its estimated cell grid.
type TableRegion struct {
	Bounds     utils.Rect      `json:"bounds"`
	Confidence float64         `json:"confidence"`
	Method     DetectionMethod `json:"method"`
	Rows       int             `json:"rows"`
	Cols       int             `json:"cols"`
	Cells      []TableCell     `json:"cells,omitempty"`
	CellCount  int             `json:"cell_count"`
}

// TextBlock is a connected cluster of ink outside any table region.
type TextBlock struct {
	Bounds utils.Rect `json:"bounds"`
	Area   int        `json:"area"`
}

// DocumentStructure is the complete layout analysis result.
type DocumentStructure struct {
	Width            int           `json:"width"`
	Height           int           `json:"height"`
	Zones            []Zone        `json:"zones"`
	Tables           []TableRegion `json:"tables"`
	TextBlocks       []TextBlock   `json:"text_blocks"`
	Confidence       float64       `json:"confidence"`
	ProcessingTimeMS int64         `json:"processing_time_ms"`
	DetectedAt       time.Time     `json:"detected_at"`
}

// ZonesByType returns all zones of the given type.
func (d *DocumentStructure) ZonesByType(t ZoneType) []Zone {
	var out []Zone
	for _, z := range d.Zones {
		if z.Type == t {
			out = append(out, z)
		}
	}
	return out
}
