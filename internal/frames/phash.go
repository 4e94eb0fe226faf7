package frames

import (
	"image"
	"math/bits"
)

const hashGrid = 8

// averageHash reduces the frame to an 8x8 luminance grid and sets a bit for
// each cell brighter than the grid mean. Near-identical frames hash within
// a few bits of each other regardless of resolution.
func averageHash(img image.Image) uint64 {
	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if width == 0 || height == 0 {
		return 0
	}

	var cells [hashGrid * hashGrid]float64
	var counts [hashGrid * hashGrid]int
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			r, g, b, _ := img.At(bounds.Min.X+x, bounds.Min.Y+y).RGBA()
			lum := 0.299*float64(r>>8) + 0.587*float64(g>>8) + 0.114*float64(b>>8)
			cell := (y*hashGrid/height)*hashGrid + x*hashGrid/width
			cells[cell] += lum
			counts[cell]++
		}
	}

	var mean float64
	for i := range cells {
		if counts[i] > 0 {
			cells[i] /= float64(counts[i])
		}
		mean += cells[i]
	}
	mean /= float64(len(cells))

	var hash uint64
	for i, cell := range cells {
		if cell > mean {
			hash |= 1 << uint(i)
		}
	}
	return hash
}

// hammingDistance counts differing bits between two hashes.
func hammingDistance(a, b uint64) int {
	return bits.OnesCount64(a ^ b)
}
