package ocr

import (
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// BlurSigma approximates a 5x5 Gaussian kernel with automatic sigma.
const BlurSigma = 1.1

// Preprocess prepares a scan for OCR: single-channel intensity, Gaussian smoothing, then a
// global Otsu binarization. The result only contains 0 and 255.
func Preprocess(img image.Image) *image.Gray {
	gray := imaging.Grayscale(img)
	blurred := imaging.Blur(gray, BlurSigma)

	b := blurred.Bounds()
	lum := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	var hist [256]int
	for y := 0; y < b.Dy(); y++ {
		for x := 0; x < b.Dx(); x++ {
			// grayscale NRGBA: R == G == B
			v := blurred.Pix[blurred.PixOffset(b.Min.X+x, b.Min.Y+y)]
			lum.Pix[lum.PixOffset(x, y)] = v
			hist[v]++
		}
	}

	return Binarize(lum, OtsuThreshold(hist, b.Dx()*b.Dy()))
}

// OtsuThreshold picks the level that maximizes between-class variance, which is the same
// level that minimizes the weighted intra-class variance of the two classes.
func OtsuThreshold(hist [256]int, total int) uint8 {
	if total <= 0 {
		return 0
	}
	var sum float64
	for i, n := range hist {
		sum += float64(i * n)
	}

	var sumB float64
	var wB int
	var thresh uint8
	best := -1.0
	for i := 0; i < 256; i++ {
		wB += hist[i]
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(i * hist[i])
		mB := sumB / float64(wB)
		mF := (sum - sumB) / float64(wF)
		between := float64(wB) * float64(wF) * (mB - mF) * (mB - mF)
		if between > best {
			best = between
			thresh = uint8(i)
		}
	}
	return thresh
}

// Binarize maps pixels above t to white and the rest to black.
func Binarize(src *image.Gray, t uint8) *image.Gray {
	b := src.Bounds()
	dst := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if src.GrayAt(x, y).Y > t {
				dst.SetGray(x, y, color.Gray{Y: 255})
			} else {
				dst.SetGray(x, y, color.Gray{Y: 0})
			}
		}
	}
	return dst
}
