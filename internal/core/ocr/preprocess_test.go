package ocr

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOtsuThresholdSeparatesBimodalHistogram(t *testing.T) {
	var hist [256]int
	hist[40] = 500
	hist[200] = 500

	th := OtsuThreshold(hist, 1000)
	assert.GreaterOrEqual(t, th, uint8(40))
	assert.Less(t, th, uint8(200))
}

func TestOtsuThresholdUnevenClasses(t *testing.T) {
	var hist [256]int
	for i := 10; i < 30; i++ {
		hist[i] = 10 // dark ink, small class
	}
	for i := 180; i < 240; i++ {
		hist[i] = 100 // bright paper
	}
	th := OtsuThreshold(hist, 20*10+60*100)
	assert.GreaterOrEqual(t, th, uint8(29))
	assert.Less(t, th, uint8(180))
}

func TestOtsuThresholdDegenerate(t *testing.T) {
	var hist [256]int
	assert.Equal(t, uint8(0), OtsuThreshold(hist, 0))

	hist[128] = 64
	assert.Equal(t, uint8(0), OtsuThreshold(hist, 64))
}

func TestBinarize(t *testing.T) {
	src := image.NewGray(image.Rect(0, 0, 3, 1))
	src.SetGray(0, 0, color.Gray{Y: 10})
	src.SetGray(1, 0, color.Gray{Y: 100})
	src.SetGray(2, 0, color.Gray{Y: 101})

	dst := Binarize(src, 100)
	assert.Equal(t, uint8(0), dst.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), dst.GrayAt(1, 0).Y)
	assert.Equal(t, uint8(255), dst.GrayAt(2, 0).Y)
}

func TestPreprocessProducesBinaryImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 40; x++ {
			c := color.RGBA{R: 230, G: 220, B: 210, A: 255}
			if x < 20 {
				c = color.RGBA{R: 30, G: 40, B: 50, A: 255}
			}
			img.Set(x, y, c)
		}
	}

	out := Preprocess(img)
	require.Equal(t, img.Bounds().Dx(), out.Bounds().Dx())
	require.Equal(t, img.Bounds().Dy(), out.Bounds().Dy())
	for _, v := range out.Pix {
		assert.True(t, v == 0 || v == 255, "non-binary pixel %d", v)
	}
	assert.Equal(t, uint8(0), out.GrayAt(5, 10).Y)
	assert.Equal(t, uint8(255), out.GrayAt(35, 10).Y)
}
