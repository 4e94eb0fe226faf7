package frames

import "image"

// Quality blends three signals: focus, pixel count, and how workable the
// exposure and content are for OCR.
const (
	sharpnessWeight  = 0.40
	resolutionWeight = 0.30
	usabilityWeight  = 0.30

	// referencePixels is the area at which resolution stops helping; a
	// 720p frame already reads fine.
	referencePixels = 1280.0 * 720.0

	// sharpnessScale maps gradient variance into [0,1]. Chosen so a crisp
	// frame with text saturates while motion blur lands well below 0.5.
	sharpnessScale = 1500.0

	// edgeThreshold is the gradient magnitude above which a pixel counts
	// as an edge for the usability estimate.
	edgeThreshold = 24.0
)

type frameMetrics struct {
	sharpness   float64
	brightness  float64
	edgeDensity float64
}

// quality combines the measured signals with the frame dimensions into the
// final [0,1] score used for filtering and ranking.
func (m frameMetrics) quality(width, height int) float64 {
	resolution := float64(width*height) / referencePixels
	if resolution > 1 {
		resolution = 1
	}
	// Midrange exposure scores highest; crushed blacks and blown
	// highlights both fall toward zero.
	exposure := 1 - 2*abs(m.brightness-0.5)
	if exposure < 0 {
		exposure = 0
	}
	usability := 0.5*exposure + 0.5*m.edgeDensity

	score := sharpnessWeight*m.sharpness + resolutionWeight*resolution + usabilityWeight*usability
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// measure computes sharpness, mean brightness, and edge density from the
// luminance channel in one pass over the pixels.
func measure(img image.Image) frameMetrics {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width < 3 || height < 3 {
		return frameMetrics{}
	}

	gray := make([]float64, width*height)
	var brightnessSum float64
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			gray[y*width+x] = lum
			brightnessSum += lum
		}
	}

	var gradSum, gradSqSum float64
	var edges, samples int
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			gx := gray[y*width+x+1] - gray[y*width+x-1]
			gy := gray[(y+1)*width+x] - gray[(y-1)*width+x]
			magnitude := abs(gx) + abs(gy)
			gradSum += magnitude
			gradSqSum += magnitude * magnitude
			if magnitude > edgeThreshold {
				edges++
			}
			samples++
		}
	}

	mean := gradSum / float64(samples)
	variance := gradSqSum/float64(samples) - mean*mean
	sharpness := variance / sharpnessScale
	if sharpness > 1 {
		sharpness = 1
	}
	return frameMetrics{
		sharpness:   sharpness,
		brightness:  brightnessSum / float64(width*height) / 255.0,
		edgeDensity: float64(edges) / float64(samples),
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
