package imagekit

import (
	"image"
	"image/color"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: uint8((x + y) % 256), A: 255})
		}
	}
	return img
}

func solid(w, h int, c color.Color) *image.NRGBA {
	return imaging.New(w, h, c)
}

func TestObscureKeepsSizeAndIsDeterministic(t *testing.T) {
	src := gradient(120, 80)

	first, err := Obscure(src)
	require.NoError(t, err)
	second, err := Obscure(src)
	require.NoError(t, err)

	assert.Equal(t, src.Bounds(), first.Bounds())
	assert.Equal(t, first.Pix, second.Pix)
	assert.NotEqual(t, src.Pix, first.Pix)

	a, err := Encode(first, "teaser.png")
	require.NoError(t, err)
	b, err := Encode(second, "teaser.png")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestObscureIsBlocky(t *testing.T) {
	out, err := Obscure(gradient(300, 300))
	require.NoError(t, err)

	// 300/30 = 10 pixels per block: every block is a single colour.
	for by := 0; by < PixelGrid; by++ {
		for bx := 0; bx < PixelGrid; bx++ {
			want := out.NRGBAAt(bx*10, by*10)
			for dy := 0; dy < 10; dy++ {
				for dx := 0; dx < 10; dx++ {
					require.Equal(t, want, out.NRGBAAt(bx*10+dx, by*10+dy))
				}
			}
		}
	}
}

func TestObscureRejectsEmptyImage(t *testing.T) {
	_, err := Obscure(image.NewNRGBA(image.Rect(0, 0, 0, 0)))
	assert.ErrorIs(t, err, ErrInvalidImage)
}

func TestGridSize(t *testing.T) {
	for _, tc := range []struct{ n, cols, rows int }{
		{1, 1, 1},
		{2, 1, 2},
		{4, 2, 2},
		{5, 2, 3},
		{9, 3, 3},
		{10, 3, 4},
	} {
		cols, rows := GridSize(tc.n)
		assert.Equal(t, tc.cols, cols, "cols for %d", tc.n)
		assert.Equal(t, tc.rows, rows, "rows for %d", tc.n)
	}
}

func TestCompose(t *testing.T) {
	colors := []color.NRGBA{
		{255, 0, 0, 255},
		{0, 255, 0, 255},
		{0, 0, 255, 255},
		{255, 255, 0, 255},
		{0, 255, 255, 255},
	}
	images := make([]image.Image, 0, len(colors))
	for _, c := range colors {
		images = append(images, solid(100, 100, c))
	}

	canvas, err := Compose(images)
	require.NoError(t, err)
	assert.Equal(t, 200, canvas.Bounds().Dx())
	assert.Equal(t, 300, canvas.Bounds().Dy())

	// row-major: (col, row) of image i is (i%2, i/2)
	for i, c := range colors {
		x, y := (i%2)*100+50, (i/2)*100+50
		assert.Equal(t, c, canvas.NRGBAAt(x, y), "image %d", i)
	}
	// the unused sixth cell stays black
	assert.Equal(t, color.NRGBA{0, 0, 0, 255}, canvas.NRGBAAt(150, 250))
}

func TestComposeManyTilesWithOffsetBounds(t *testing.T) {
	const n = 64
	images := make([]image.Image, 0, n)
	for i := 0; i < n; i++ {
		c := color.NRGBA{R: uint8(i * 4), G: uint8(255 - i*4), B: 7, A: 255}
		// tiles cut out of a larger frame keep a non-zero origin
		frame := solid(30, 30, color.White)
		tile := imaging.Paste(frame, solid(10, 10, c), image.Pt(10, 10)).SubImage(image.Rect(10, 10, 20, 20))
		images = append(images, tile)
	}

	canvas, err := Compose(images)
	require.NoError(t, err)
	assert.Equal(t, 80, canvas.Bounds().Dx())
	assert.Equal(t, 80, canvas.Bounds().Dy())

	for i := 0; i < n; i++ {
		want := color.NRGBA{R: uint8(i * 4), G: uint8(255 - i*4), B: 7, A: 255}
		x, y := (i%8)*10, (i/8)*10
		assert.Equal(t, want, canvas.NRGBAAt(x, y), "tile %d top-left", i)
		assert.Equal(t, want, canvas.NRGBAAt(x+9, y+9), "tile %d bottom-right", i)
	}
}

func TestComposeErrors(t *testing.T) {
	_, err := Compose(nil)
	assert.ErrorIs(t, err, ErrEmptyImageSet)

	_, err = Compose([]image.Image{solid(100, 100, color.White), solid(100, 90, color.White)})
	assert.ErrorIs(t, err, ErrNonUniformDimensions)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	data, err := Encode(gradient(40, 20), "x.png")
	require.NoError(t, err)

	img, err := Decode(data)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 40, 20), img.Bounds())

	_, err = Decode([]byte("not an image"))
	assert.ErrorIs(t, err, ErrInvalidImage)

	_, err = Encode(gradient(4, 4), "x.unknown")
	assert.Error(t, err)
}
