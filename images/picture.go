package images

import (
	"fmt"
	"image"
	_ "image/jpeg" // decoders for LoadPicture
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// toNRGBA converts any image to straight-alpha 8-bit RGBA with its
// origin at (0, 0).
func toNRGBA(src image.Image) *image.NRGBA {
	if n, ok := src.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) && n.Stride == 4*n.Rect.Dx() {
		return n
	}
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), src, b.Min, draw.Src)
	return dst
}

// CreateImageFromPicture uploads a decoded picture as an RGBA8 2D image.
// Row 0 of the image is the top row of the picture.
func (m *Manager) CreateImageFromPicture(pic image.Image, levels uint32, genMipmaps bool) (ImageID, error) {
	b := pic.Bounds()
	if b.Empty() {
		return ImageID{}, fmt.Errorf("%w: empty picture", ErrBadDataLayout)
	}
	n := toNRGBA(pic)
	return CreateImageFromData(m, NewArray(n.Pix, 4, b.Dy(), b.Dx()), levels, genMipmaps)
}

// LoadPicture decodes a PNG, JPEG, BMP, TIFF or WebP file.
func LoadPicture(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("images: %w", err)
	}
	defer f.Close()

	pic, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("images: decode %s: %w", path, err)
	}
	return pic, nil
}

// LoadImageFile decodes a picture file and uploads it like
// CreateImageFromPicture.
func (m *Manager) LoadImageFile(path string, levels uint32, genMipmaps bool) (ImageID, error) {
	pic, err := LoadPicture(path)
	if err != nil {
		return ImageID{}, err
	}
	return m.CreateImageFromPicture(pic, levels, genMipmaps)
}
