// Package hash computes fixed-length perceptual fingerprints for decoded
// images and measures their Hamming distance.
package hash

import (
	"errors"
	"fmt"
	"image"
	"math/bits"
	"strings"

	"github.com/corona10/goimagehash"
)

// Algorithm identifies a perceptual hash family.
type Algorithm string

const (
	PHash     Algorithm = "phash"     // DCT of a downscaled grayscale image (default)
	DHash     Algorithm = "dhash"     // horizontal gradient hash
	AHash     Algorithm = "ahash"     // average luminance hash
	WHash     Algorithm = "whash"     // Haar wavelet hash
	ColorHash Algorithm = "colorhash" // hue distribution hash
)

// Algorithms lists the supported hash families in the order they should be
// presented to a user.
var Algorithms = []Algorithm{PHash, DHash, AHash, WHash, ColorHash}

var (
	// ErrUnsupportedAlgorithm is returned for a hash family this package
	// does not implement, or a hash size the family cannot use.
	ErrUnsupportedAlgorithm = errors.New("unsupported hash algorithm")

	// ErrIncompatibleFingerprints is returned when two fingerprints of
	// different algorithms or bit lengths are compared.
	ErrIncompatibleFingerprints = errors.New("incompatible fingerprints")
)

// ParseAlgorithm validates a user-supplied algorithm name.
func ParseAlgorithm(s string) (Algorithm, error) {
	a := Algorithm(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Algorithms {
		if a == known {
			return a, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, s)
}

// DefaultHashSize is the fingerprint resolution used when none is configured.
// A hash size of n produces n*n bits.
const DefaultHashSize = 16

// ValidateConfig checks an algorithm and hash size pairing without hashing
// anything, so configuration problems surface before a scan dispatches.
func ValidateConfig(algorithm Algorithm, hashSize int) error {
	if _, err := ParseAlgorithm(string(algorithm)); err != nil {
		return err
	}
	if hashSize < 2 {
		return fmt.Errorf("%w: hash size %d", ErrUnsupportedAlgorithm, hashSize)
	}
	if algorithm == WHash && bits.OnesCount(uint(hashSize)) != 1 {
		return fmt.Errorf("%w: whash needs a power-of-two hash size, got %d",
			ErrUnsupportedAlgorithm, hashSize)
	}
	return nil
}

// Fingerprint is a fixed-length bit vector summarizing an image's visual
// content. Two fingerprints are only comparable when they were produced by
// the same algorithm with the same hash size.
type Fingerprint struct {
	algorithm Algorithm
	words     []uint64
	bits      int
}

// NewFingerprint builds a fingerprint from raw words. The last word may be
// partially used when bits is not a multiple of 64.
func NewFingerprint(algorithm Algorithm, words []uint64, bitLen int) (*Fingerprint, error) {
	if bitLen <= 0 || len(words) != (bitLen+63)/64 {
		return nil, fmt.Errorf("fingerprint of %d bits needs %d words, got %d",
			bitLen, (bitLen+63)/64, len(words))
	}
	w := make([]uint64, len(words))
	copy(w, words)
	return &Fingerprint{algorithm: algorithm, words: w, bits: bitLen}, nil
}

// Algorithm returns the hash family that produced the fingerprint.
func (f *Fingerprint) Algorithm() Algorithm { return f.algorithm }

// Bits returns the fingerprint length in bits.
func (f *Fingerprint) Bits() int { return f.bits }

// Words returns a copy of the underlying bit vector.
func (f *Fingerprint) Words() []uint64 {
	w := make([]uint64, len(f.words))
	copy(w, f.words)
	return w
}

// Hex encodes the bit vector as a hex string, most significant word first.
func (f *Fingerprint) Hex() string {
	var b strings.Builder
	for _, w := range f.words {
		fmt.Fprintf(&b, "%016x", w)
	}
	return b.String()
}

// FromHex decodes a fingerprint previously encoded with Hex.
func FromHex(algorithm Algorithm, s string, bitLen int) (*Fingerprint, error) {
	if len(s) != ((bitLen+63)/64)*16 {
		return nil, fmt.Errorf("hex fingerprint of %d bits must be %d chars, got %d",
			bitLen, ((bitLen+63)/64)*16, len(s))
	}
	words := make([]uint64, len(s)/16)
	for i := range words {
		if _, err := fmt.Sscanf(s[i*16:(i+1)*16], "%016x", &words[i]); err != nil {
			return nil, fmt.Errorf("bad hex fingerprint %q: %w", s, err)
		}
	}
	return NewFingerprint(algorithm, words, bitLen)
}

func (f *Fingerprint) String() string {
	return fmt.Sprintf("%s:%s", f.algorithm, f.Hex())
}

// Distance returns the Hamming distance between two fingerprints. It never
// coerces: comparing fingerprints of different algorithms or bit lengths
// fails with ErrIncompatibleFingerprints.
func (f *Fingerprint) Distance(other *Fingerprint) (int, error) {
	if f.algorithm != other.algorithm {
		return 0, fmt.Errorf("%w: %s vs %s", ErrIncompatibleFingerprints, f.algorithm, other.algorithm)
	}
	if f.bits != other.bits {
		return 0, fmt.Errorf("%w: %d bits vs %d bits", ErrIncompatibleFingerprints, f.bits, other.bits)
	}
	dist := 0
	for i := range f.words {
		dist += bits.OnesCount64(f.words[i] ^ other.words[i])
	}
	return dist, nil
}

// Compute maps a decoded image to a fingerprint of hashSize*hashSize bits.
// It is pure: identical pixels always yield identical fingerprints.
func Compute(img image.Image, algorithm Algorithm, hashSize int) (*Fingerprint, error) {
	if hashSize < 2 {
		return nil, fmt.Errorf("%w: hash size %d", ErrUnsupportedAlgorithm, hashSize)
	}
	switch algorithm {
	case PHash:
		h, err := goimagehash.ExtPerceptionHash(img, hashSize, hashSize)
		if err != nil {
			return nil, fmt.Errorf("phash: %w", err)
		}
		return NewFingerprint(algorithm, h.GetHash(), h.Bits())
	case DHash:
		h, err := goimagehash.ExtDifferenceHash(img, hashSize, hashSize)
		if err != nil {
			return nil, fmt.Errorf("dhash: %w", err)
		}
		return NewFingerprint(algorithm, h.GetHash(), h.Bits())
	case AHash:
		h, err := goimagehash.ExtAverageHash(img, hashSize, hashSize)
		if err != nil {
			return nil, fmt.Errorf("ahash: %w", err)
		}
		return NewFingerprint(algorithm, h.GetHash(), h.Bits())
	case WHash:
		return waveletHash(img, hashSize)
	case ColorHash:
		return colorHash(img, hashSize)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, algorithm)
	}
}
