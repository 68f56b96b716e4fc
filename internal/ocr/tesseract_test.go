package ocr

import (
	"context"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records the invocation and replies with canned TSV.
type fakeRunner struct {
	name   string
	args   []string
	stdout string
	err    error
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, []byte, error) {
	f.name = name
	f.args = args
	return []byte(f.stdout), nil, f.err
}

const sampleTSV = "level\tpage_num\tblock_num\tpar_num\tline_num\tword_num\tleft\ttop\twidth\theight\tconf\ttext\n" +
	"1\t1\t0\t0\t0\t0\t0\t0\t800\t600\t-1\t\n" +
	"5\t1\t1\t1\t1\t1\t10\t10\t80\t20\t91.5\tSIA\n" +
	"5\t1\t1\t1\t1\t2\t100\t10\t120\t20\t88.5\tLindstrōm\n" +
	"5\t1\t1\t1\t2\t1\t10\t40\t90\t20\t75.0\tRēķins\n"

func testImage() image.Image {
	return image.NewGray(image.Rect(0, 0, 10, 10))
}

func TestRecognizeParsesTSV(t *testing.T) {
	runner := &fakeRunner{stdout: sampleTSV}
	e := NewEngine(DefaultConfig(), runner, nil)

	res, err := e.Recognize(context.Background(), testImage())
	require.NoError(t, err)
	require.Len(t, res.Words, 3)

	assert.Equal(t, "SIA", res.Words[0].Text)
	assert.InDelta(t, 0.915, res.Words[0].Confidence, 1e-9)
	assert.Equal(t, 10, res.Words[0].Bounds.X0)
	assert.Equal(t, 90, res.Words[0].Bounds.X1)

	// Words on the same TSV line join with spaces, new lines break.
	assert.Equal(t, "SIA Lindstrōm\nRēķins", res.Text)
	assert.InDelta(t, (0.915+0.885+0.75)/3, res.Confidence, 1e-9)
}

func TestRecognizeBuildsArgs(t *testing.T) {
	runner := &fakeRunner{stdout: sampleTSV}
	cfg := DefaultConfig()
	cfg.Whitelist = "0123456789.,"
	e := NewEngine(cfg, runner, nil)

	_, err := e.Recognize(context.Background(), testImage())
	require.NoError(t, err)

	joined := strings.Join(runner.args, " ")
	assert.Equal(t, "tesseract", runner.name)
	assert.Contains(t, joined, "-l lav+eng+deu")
	assert.Contains(t, joined, "--psm 6")
	assert.Contains(t, joined, "tessedit_char_whitelist=0123456789.,")
	assert.Equal(t, "tsv", runner.args[len(runner.args)-1])
}

func TestRecognizeWithOverridesPSM(t *testing.T) {
	runner := &fakeRunner{stdout: sampleTSV}
	e := NewEngine(DefaultConfig(), runner, nil)

	override := DefaultConfig()
	override.PSM = 7
	_, err := e.RecognizeWith(context.Background(), testImage(), override)
	require.NoError(t, err)
	assert.Contains(t, strings.Join(runner.args, " "), "--psm 7")
}

func TestRecognizeNilImage(t *testing.T) {
	e := NewEngine(DefaultConfig(), &fakeRunner{}, nil)
	_, err := e.Recognize(context.Background(), nil)
	assert.Error(t, err)
}

func TestParseTSVEmptyOutput(t *testing.T) {
	res := parseTSV("")
	assert.Empty(t, res.Words)
	assert.Zero(t, res.Confidence)
	assert.Empty(t, res.Text)
}

func TestParseTSVSkipsNegativeConfidence(t *testing.T) {
	tsv := "header\n" +
		"1\t1\t1\t1\t1\t1\t0\t0\t10\t10\t-1\tghost\n"
	res := parseTSV(tsv)
	assert.Empty(t, res.Words)
}
