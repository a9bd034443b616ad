// Package quality implements the photo quality gate that runs before an
// upload is accepted: a cheap brightness / sharpness / resolution heuristic
// over a downscaled working copy of the image.
package quality

import (
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"math"

	xdraw "golang.org/x/image/draw"

	"santamoment/internal/config"
)

// ErrUndecodable marks an analyzer-unavailable condition: the bytes could not
// be decoded as an image at all. Callers treat this as distinct from a
// quality failure.
var ErrUndecodable = errors.New("image could not be decoded")

type CheckResult struct {
	Pass  bool    `json:"pass"`
	Value float64 `json:"value"`
}

// Result is the verdict of the quality gate for one photo.
type Result struct {
	Pass       bool        `json:"pass"`
	Score      int         `json:"score"`
	Brightness CheckResult `json:"brightness"`
	Sharpness  CheckResult `json:"sharpness"`
	Resolution CheckResult `json:"resolution"`
	Width      int         `json:"width"`
	Height     int         `json:"height"`
	Message    string      `json:"message,omitempty"`
}

type Analyzer struct {
	cfg config.QualityConfig
}

func NewAnalyzer(cfg config.QualityConfig) *Analyzer {
	return &Analyzer{cfg: cfg}
}

// Analyze decodes the photo and runs the three checks. It is a pure function
// of the image bytes and the configured thresholds: same input, same verdict.
func (a *Analyzer) Analyze(r io.Reader) (*Result, error) {
	img, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUndecodable, err)
	}
	return a.AnalyzeImage(img), nil
}

// AnalyzeImage runs the checks on an already decoded image.
func (a *Analyzer) AnalyzeImage(img image.Image) *Result {
	bounds := img.Bounds()
	origW, origH := bounds.Dx(), bounds.Dy()

	work := a.workingCopy(img)

	brightness := avgBrightness(work)
	brightnessOk := brightness > a.cfg.BrightnessMin && brightness < a.cfg.BrightnessMax

	sharpness := avgEdgeResponse(work)
	sharpnessOk := sharpness > a.cfg.SharpnessMin

	resolutionOk := origW >= a.cfg.MinWidth && origH >= a.cfg.MinHeight

	score := 50
	if brightnessOk {
		score += 20
	}
	if sharpnessOk {
		score += 20
	}
	if resolutionOk {
		score += 10
	}

	// The first failing check, in this fixed order, owns the user message.
	var message string
	switch {
	case !brightnessOk:
		message = "The photo is too dark or too bright"
	case !sharpnessOk:
		message = "The photo is blurry, please retake it"
	case !resolutionOk:
		message = "The photo resolution is too low"
	}

	return &Result{
		Pass:       brightnessOk && sharpnessOk && resolutionOk,
		Score:      score,
		Brightness: CheckResult{Pass: brightnessOk, Value: round2(brightness)},
		Sharpness:  CheckResult{Pass: sharpnessOk, Value: round2(sharpness)},
		Resolution: CheckResult{Pass: resolutionOk, Value: float64(origW * origH)},
		Width:      origW,
		Height:     origH,
		Message:    message,
	}
}

// workingCopy bounds compute cost: the checks run on a copy whose longest
// side is at most WorkingMaxSide pixels. Nearest-neighbor keeps the sampling
// deterministic.
func (a *Analyzer) workingCopy(img image.Image) *image.RGBA {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()

	maxSide := a.cfg.WorkingMaxSide
	if maxSide <= 0 {
		maxSide = 200
	}

	if w > maxSide || h > maxSide {
		scale := math.Min(float64(maxSide)/float64(w), float64(maxSide)/float64(h))
		w = int(float64(w) * scale)
		h = int(float64(h) * scale)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
	}

	work := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(work, work.Bounds(), img, bounds, xdraw.Src, nil)
	return work
}

// avgBrightness is the mean over all pixels of the per-pixel mean of the
// three color channels, on the 0-255 scale.
func avgBrightness(img *image.RGBA) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return 0
	}

	var total float64
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			r := float64(row[x*4])
			g := float64(row[x*4+1])
			b := float64(row[x*4+2])
			total += (r + g + b) / 3
		}
	}
	return total / float64(w*h)
}

// avgEdgeResponse approximates a Laplacian at each interior pixel
// (4*center minus the four axis neighbors, on luma) and averages the
// absolute response over the whole image. Low values mean blur.
func avgEdgeResponse(img *image.RGBA) float64 {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w < 3 || h < 3 {
		return 0
	}

	luma := make([]float64, w*h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for x := 0; x < w; x++ {
			r := float64(row[x*4])
			g := float64(row[x*4+1])
			b := float64(row[x*4+2])
			luma[y*w+x] = 0.299*r + 0.587*g + 0.114*b
		}
	}

	var total float64
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			center := luma[y*w+x]
			lap := 4*center - luma[(y-1)*w+x] - luma[(y+1)*w+x] - luma[y*w+x-1] - luma[y*w+x+1]
			total += math.Abs(lap)
		}
	}
	return total / float64(w*h)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
