// Package imagekit holds the deterministic image transforms of the prize
// pipeline: the pixelated teaser and the collage grid.
package imagekit

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"

	"github.com/disintegration/imaging"
)

const (
	// BlurSigma matches a 15x15 Gaussian kernel with automatic sigma.
	BlurSigma = 2.6
	// PixelGrid is the resolution the teaser is squeezed through.
	PixelGrid = 30
)

var (
	ErrEmptyImageSet        = errors.New("empty image set")
	ErrNonUniformDimensions = errors.New("images have different dimensions")
	ErrInvalidImage         = errors.New("invalid image")
)

// Obscure blurs img, shrinks it to a PixelGrid x PixelGrid square and scales
// it back to the original size with nearest-neighbour sampling.
func Obscure(img image.Image) (*image.NRGBA, error) {
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return nil, ErrInvalidImage
	}

	blurred := imaging.Blur(img, BlurSigma)
	small := imaging.Resize(blurred, PixelGrid, PixelGrid, imaging.NearestNeighbor)
	return imaging.Resize(small, b.Dx(), b.Dy(), imaging.NearestNeighbor), nil
}

// GridSize returns the near-square layout used for n images.
func GridSize(n int) (cols int, rows int) {
	if n <= 0 {
		return 0, 0
	}
	cols = int(math.Floor(math.Sqrt(float64(n))))
	rows = (n + cols - 1) / cols
	return cols, rows
}

// Compose tiles images row-major into a single canvas. Every image must have
// the size of the first one.
func Compose(images []image.Image) (*image.NRGBA, error) {
	if len(images) == 0 {
		return nil, ErrEmptyImageSet
	}

	cell := images[0].Bounds().Size()
	for i, img := range images {
		if size := img.Bounds().Size(); size != cell {
			return nil, fmt.Errorf("%w: image %d is %dx%d, want %dx%d", ErrNonUniformDimensions, i, size.X, size.Y, cell.X, cell.Y)
		}
	}

	cols, rows := GridSize(len(images))
	canvas := imaging.New(cols*cell.X, rows*cell.Y, color.Black)
	for i, img := range images {
		pos := image.Pt((i%cols)*cell.X, (i/cols)*cell.Y)
		bounds := img.Bounds()
		draw.Draw(canvas, image.Rectangle{Min: pos, Max: pos.Add(bounds.Size())}, img, bounds.Min, draw.Src)
	}

	return canvas, nil
}

func Decode(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	return img, nil
}

// Encode writes img in the format implied by the file name's extension.
func Encode(img image.Image, filename string) ([]byte, error) {
	format, err := imaging.FormatFromFilename(filename)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, format); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
