package hash

import (
	"fmt"
	"image"
	"math/bits"
	"sort"

	"github.com/disintegration/imaging"
)

// waveletLevels is how many Haar decomposition levels sit between the
// sampled image and the retained approximation band.
const waveletLevels = 2

// waveletHash computes a Haar-wavelet fingerprint: the image is downscaled,
// decomposed, and the approximation band is thresholded at its median.
// Compared to phash it reacts more strongly to local structure changes.
func waveletHash(img image.Image, hashSize int) (*Fingerprint, error) {
	if bits.OnesCount(uint(hashSize)) != 1 {
		return nil, fmt.Errorf("%w: whash needs a power-of-two hash size, got %d",
			ErrUnsupportedAlgorithm, hashSize)
	}

	scale := hashSize << waveletLevels
	gray := imaging.Grayscale(imaging.Resize(img, scale, scale, imaging.Lanczos))

	coeffs := make([][]float64, scale)
	for y := range coeffs {
		coeffs[y] = make([]float64, scale)
		for x := range coeffs[y] {
			// Grayscale pixels carry the luma in every channel.
			coeffs[y][x] = float64(gray.NRGBAAt(x, y).R)
		}
	}

	for size := scale; size > hashSize; size /= 2 {
		haarStep(coeffs, size)
	}

	flat := make([]float64, 0, hashSize*hashSize)
	for y := 0; y < hashSize; y++ {
		flat = append(flat, coeffs[y][:hashSize]...)
	}
	return thresholdBits(WHash, flat, median(flat))
}

// haarStep folds one Haar level: the size×size region collapses into its
// size/2×size/2 approximation band in the top-left corner.
func haarStep(coeffs [][]float64, size int) {
	half := size / 2
	for y := 0; y < half; y++ {
		for x := 0; x < half; x++ {
			coeffs[y][x] = (coeffs[2*y][2*x] + coeffs[2*y][2*x+1] +
				coeffs[2*y+1][2*x] + coeffs[2*y+1][2*x+1]) / 4
		}
	}
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// thresholdBits packs one bit per value: set when the value exceeds the
// threshold. Bits fill words most significant first, row-major.
func thresholdBits(algorithm Algorithm, values []float64, threshold float64) (*Fingerprint, error) {
	words := make([]uint64, (len(values)+63)/64)
	for i, v := range values {
		if v > threshold {
			words[i/64] |= 1 << (63 - uint(i%64))
		}
	}
	return NewFingerprint(algorithm, words, len(values))
}
