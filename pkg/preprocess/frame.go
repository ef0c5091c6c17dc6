package preprocess

import "image"

// ImageFrame adapts an already-decoded image to Frame.
type ImageFrame struct {
	Img image.Image
}

// NewImageFrame wraps img. A nil image reports zero size.
func NewImageFrame(img image.Image) ImageFrame {
	return ImageFrame{Img: img}
}

// Size returns the image dimensions.
func (f ImageFrame) Size() (int, int) {
	if f.Img == nil {
		return 0, 0
	}
	b := f.Img.Bounds()
	return b.Dx(), b.Dy()
}

// Image returns the wrapped image.
func (f ImageFrame) Image() (image.Image, error) {
	if f.Img == nil {
		return nil, ErrNotReady
	}
	return f.Img, nil
}
