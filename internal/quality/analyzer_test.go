package quality_test

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"santamoment/internal/config"
	"santamoment/internal/quality"
)

func testConfig() config.QualityConfig {
	return config.QualityConfig{
		BrightnessMin:  50,
		BrightnessMax:  210,
		SharpnessMin:   12,
		MinWidth:       400,
		MinHeight:      400,
		WorkingMaxSide: 200,
	}
}

// makeChecker builds a checkerboard of block×block squares alternating
// between two gray values. The block edges give the Laplacian something to
// respond to, and the mean brightness is the average of the two values.
func makeChecker(w, h, block int, a, b uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := a
			if ((x/block)+(y/block))%2 == 1 {
				v = b
			}
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func makeUniform(w, h int, v uint8) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: v, G: v, B: v, A: 255})
		}
	}
	return img
}

func TestAnalyze_GoodPhotoPasses(t *testing.T) {
	analyzer := quality.NewAnalyzer(testConfig())

	// sharp, well-lit 800x600: mean brightness 130, strong block edges
	result := analyzer.AnalyzeImage(makeChecker(800, 600, 8, 120, 140))

	assert.True(t, result.Pass)
	assert.Equal(t, 100, result.Score)
	assert.True(t, result.Brightness.Pass)
	assert.True(t, result.Sharpness.Pass)
	assert.True(t, result.Resolution.Pass)
	assert.Empty(t, result.Message)
	assert.Equal(t, 800, result.Width)
	assert.Equal(t, 600, result.Height)
}

func TestAnalyze_DarkPhotoFailsBrightness(t *testing.T) {
	analyzer := quality.NewAnalyzer(testConfig())

	// mean brightness 20, well below the minimum of 50; edges still sharp
	result := analyzer.AnalyzeImage(makeChecker(800, 600, 8, 10, 30))

	assert.False(t, result.Pass)
	assert.Equal(t, 80, result.Score)
	assert.False(t, result.Brightness.Pass)
	assert.True(t, result.Sharpness.Pass)
	assert.True(t, result.Resolution.Pass)
	assert.Equal(t, "The photo is too dark or too bright", result.Message)
}

func TestAnalyze_OverexposedPhotoFailsBrightness(t *testing.T) {
	analyzer := quality.NewAnalyzer(testConfig())

	// mean brightness 230, above the maximum of 210
	result := analyzer.AnalyzeImage(makeChecker(800, 600, 8, 220, 240))

	assert.False(t, result.Pass)
	assert.False(t, result.Brightness.Pass)
	assert.Equal(t, "The photo is too dark or too bright", result.Message)
}

func TestAnalyze_BlurryPhotoFailsSharpness(t *testing.T) {
	analyzer := quality.NewAnalyzer(testConfig())

	// uniform gray has zero edge response
	result := analyzer.AnalyzeImage(makeUniform(800, 600, 130))

	assert.False(t, result.Pass)
	assert.Equal(t, 80, result.Score)
	assert.True(t, result.Brightness.Pass)
	assert.False(t, result.Sharpness.Pass)
	assert.Equal(t, "The photo is blurry, please retake it", result.Message)
}

func TestAnalyze_LowResolutionFails(t *testing.T) {
	analyzer := quality.NewAnalyzer(testConfig())

	// sharp and well-lit but only 150x150
	result := analyzer.AnalyzeImage(makeChecker(150, 150, 2, 120, 140))

	assert.False(t, result.Pass)
	assert.Equal(t, 90, result.Score)
	assert.True(t, result.Brightness.Pass)
	assert.True(t, result.Sharpness.Pass)
	assert.False(t, result.Resolution.Pass)
	assert.Equal(t, "The photo resolution is too low", result.Message)
}

func TestAnalyze_BrightnessMessageWinsWhenEverythingFails(t *testing.T) {
	analyzer := quality.NewAnalyzer(testConfig())

	// dark, uniform and tiny: brightness owns the message
	result := analyzer.AnalyzeImage(makeUniform(100, 100, 10))

	assert.False(t, result.Pass)
	assert.Equal(t, 50, result.Score)
	assert.Equal(t, "The photo is too dark or too bright", result.Message)
}

func TestAnalyze_Deterministic(t *testing.T) {
	analyzer := quality.NewAnalyzer(testConfig())
	img := makeChecker(800, 600, 8, 120, 140)

	first := analyzer.AnalyzeImage(img)
	second := analyzer.AnalyzeImage(img)

	assert.Equal(t, first, second)
}

func TestAnalyze_DecodesEncodedBytes(t *testing.T) {
	analyzer := quality.NewAnalyzer(testConfig())

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, makeChecker(800, 600, 8, 120, 140)))

	result, err := analyzer.Analyze(&buf)
	require.NoError(t, err)
	assert.True(t, result.Pass)
}

func TestAnalyze_UndecodableBytes(t *testing.T) {
	analyzer := quality.NewAnalyzer(testConfig())

	_, err := analyzer.Analyze(bytes.NewReader([]byte("definitely not an image")))
	require.Error(t, err)
	assert.ErrorIs(t, err, quality.ErrUndecodable)
}
