package hash

import (
	"image"

	"github.com/disintegration/imaging"
)

// colorSampleSize is the edge length images are downscaled to before their
// color distribution is measured. Hue statistics stabilize well below this
// resolution, so a fixed sample keeps the cost independent of input size.
const colorSampleSize = 64

// colorHash fingerprints the color distribution of an image: a saturation-
// weighted hue histogram thresholded at its median. It is an orthogonal
// signal to the structural hashes and catches near-duplicates that share a
// palette but differ in layout.
func colorHash(img image.Image, hashSize int) (*Fingerprint, error) {
	small := imaging.Resize(img, colorSampleSize, colorSampleSize, imaging.Lanczos)

	nbins := hashSize * hashSize
	hist := make([]float64, nbins)
	for y := 0; y < colorSampleSize; y++ {
		for x := 0; x < colorSampleSize; x++ {
			px := small.NRGBAAt(x, y)
			h, s, v := rgbToHSV(px.R, px.G, px.B)
			bin := int(h / 360 * float64(nbins))
			if bin >= nbins {
				bin = nbins - 1
			}
			// Weigh by saturation and value so gray and near-black
			// pixels do not dominate the hue statistics.
			hist[bin] += s * v
		}
	}

	return thresholdBits(ColorHash, hist, median(hist))
}

// rgbToHSV converts 8-bit RGB to hue in degrees [0,360) and saturation and
// value in [0,1].
func rgbToHSV(r, g, b uint8) (h, s, v float64) {
	rf, gf, bf := float64(r)/255, float64(g)/255, float64(b)/255

	max := rf
	if gf > max {
		max = gf
	}
	if bf > max {
		max = bf
	}
	min := rf
	if gf < min {
		min = gf
	}
	if bf < min {
		min = bf
	}

	v = max
	delta := max - min
	if max > 0 {
		s = delta / max
	}
	if delta == 0 {
		return 0, s, v
	}

	switch max {
	case rf:
		h = 60 * ((gf - bf) / delta)
	case gf:
		h = 60 * ((bf-rf)/delta + 2)
	default:
		h = 60 * ((rf-gf)/delta + 4)
	}
	if h < 0 {
		h += 360
	}
	return h, s, v
}
