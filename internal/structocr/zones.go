package structocr

import (
	"image"

	"github.com/rigadev/pavadoc/internal/ocr"
	"github.com/rigadev/pavadoc/internal/preprocess"
	"github.com/rigadev/pavadoc/internal/structure"
	"github.com/rigadev/pavadoc/internal/textclean"
	"github.com/rigadev/pavadoc/internal/utils"
)

const (
	// Latvian alphabet plus digits and invoice punctuation for the zones
	// where stray symbols hurt more than a restricted alphabet.
	whitelistAlnum = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz" +
		"ĀČĒĢĪĶĻŅŠŪŽāčēģīķļņšūž0123456789 .,:;/()\"-%€"
	// The summary band is totals; almost everything else is noise there.
	whitelistNumeric = "0123456789.,€$+-= "
)

// zoneConfig fixes how one zone kind is recognized.
type zoneConfig struct {
	PSM           int
	Whitelist     string
	Steps         []string
	MinConfidence float64
	CleanLevel    textclean.Level
}

var zoneConfigs = map[structure.ZoneType]zoneConfig{
	structure.ZoneHeader: {
		PSM: 6, Whitelist: whitelistAlnum,
		Steps:         []string{"deskew", "denoise", "contrast"},
		MinConfidence: 0.70, CleanLevel: textclean.LevelMedium,
	},
	structure.ZoneBody: {
		PSM:           6,
		Steps:         []string{"deskew", "denoise"},
		MinConfidence: 0.60, CleanLevel: textclean.LevelMedium,
	},
	structure.ZoneFooter: {
		PSM: 6, Whitelist: whitelistAlnum,
		Steps:         []string{"denoise", "contrast"},
		MinConfidence: 0.50, CleanLevel: textclean.LevelLight,
	},
	structure.ZoneSummary: {
		PSM: 6, Whitelist: whitelistNumeric,
		Steps:         []string{"deskew", "denoise", "contrast"},
		MinConfidence: 0.80, CleanLevel: textclean.LevelAggressive,
	},
	structure.ZoneTable: {
		PSM:           6,
		Steps:         []string{"deskew", "denoise", "contrast", "morphology"},
		MinConfidence: 0.75, CleanLevel: textclean.LevelMedium,
	},
}

// zoneOrder is the section order of the enhanced text.
var zoneOrder = []structure.ZoneType{
	structure.ZoneHeader,
	structure.ZoneBody,
	structure.ZoneSummary,
	structure.ZoneFooter,
}

// zoneFusionWeights scale each zone's confidence in the fused overall
// score. Tables carry the most signal on invoices.
var zoneFusionWeights = map[structure.ZoneType]float64{
	structure.ZoneHeader:  1.2,
	structure.ZoneBody:    1.0,
	structure.ZoneFooter:  0.9,
	structure.ZoneSummary: 1.1,
}

const tableFusionWeight = 1.3

// ocrConfigFor maps a zone config onto the engine's per-call parameters.
func ocrConfigFor(base ocr.Config, zc zoneConfig) ocr.Config {
	cfg := base
	cfg.PSM = zc.PSM
	cfg.Whitelist = zc.Whitelist
	return cfg
}

// applyZoneSteps runs the ordered per-zone raster operations on a crop.
// Deskew is inherited from the page-level pass and is a no-op here.
func applyZoneSteps(crop image.Image, steps []string) image.Image {
	gray := utils.GrayMapFromImage(crop)
	for _, step := range steps {
		switch step {
		case "denoise":
			gray = preprocess.SmoothDenoise(gray)
		case "contrast":
			gray = preprocess.CLAHE(gray, 3.0, 8)
			gray = preprocess.GammaCorrect(gray, 1.2)
		case "morphology":
			bin := preprocess.OtsuBinarize(gray)
			bin = preprocess.Open(bin, 2, 2)
			bin = preprocess.Close(bin, 1, 1)
			out := image.NewGray(image.Rect(0, 0, bin.Width, bin.Height))
			for i, v := range bin.Bits {
				if v {
					out.Pix[i] = 0
				} else {
					out.Pix[i] = 255
				}
			}
			return out
		}
	}
	return gray.ToImage()
}
