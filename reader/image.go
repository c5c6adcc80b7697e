package reader

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/pkg/errors"

	"github.com/tsawler/pdfcore/contentstream"
	"github.com/tsawler/pdfcore/model"
)

// DecodeImage converts an Image element to pixels. Unfiltered images in
// gray, RGB and CMYK spaces with 1, 2, 4, 8 or 16 bits per component are
// supported, as are JPEG images. Spaces known only by name (ICCBased,
// for one) get their component count from the data size.
func DecodeImage(img *contentstream.Image) (image.Image, error) {
	if img.Data == nil {
		return nil, errors.Errorf("image %s has no data", img.Name)
	}
	switch img.Format {
	case model.ImageFormatJPEG:
		out, err := jpeg.Decode(bytes.NewReader(img.Data))
		if err != nil {
			return nil, errors.Wrap(err, "decode JPEG")
		}
		return out, nil
	case model.ImageFormatRaw:
	default:
		return nil, errors.Errorf("image format %s is not supported", img.Format)
	}
	if img.Width <= 0 || img.Height <= 0 {
		return nil, errors.Errorf("invalid image size %dx%d", img.Width, img.Height)
	}

	r := sampleReader{img: img, comps: components(img)}
	if err := r.check(); err != nil {
		return nil, err
	}
	switch r.comps {
	case 1:
		return r.toGray(), nil
	case 3:
		return r.toRGB(), nil
	case 4:
		return r.toCMYK(), nil
	}
	return nil, errors.Errorf("color space %q with %d components is not supported", img.ColorSpace, r.comps)
}

// ToPNG converts an Image element to PNG.
func ToPNG(img *contentstream.Image) ([]byte, error) {
	pix, err := DecodeImage(img)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, pix); err != nil {
		return nil, errors.Wrap(err, "encode PNG")
	}
	return buf.Bytes(), nil
}

// components returns the samples per pixel of an unfiltered image.
func components(img *contentstream.Image) int {
	if img.ImageMask {
		return 1
	}
	switch img.ColorSpace {
	case "DeviceGray", "CalGray", "Separation", "":
		return 1
	case "DeviceRGB", "CalRGB", "Lab":
		return 3
	case "DeviceCMYK":
		return 4
	case "Indexed", "Pattern":
		return 0
	}
	// guess from the size of the data
	bpc := max(img.BitsPerComponent, 1)
	for _, n := range []int{1, 3, 4} {
		if len(img.Data) == (img.Width*n*bpc+7)/8*img.Height {
			return n
		}
	}
	return 0
}

// sampleReader reads the packed samples of an image. Rows start on byte
// boundaries.
type sampleReader struct {
	img   *contentstream.Image
	comps int
}

func (r sampleReader) bpc() int {
	if r.img.ImageMask {
		return 1
	}
	return r.img.BitsPerComponent
}

func (r sampleReader) stride() int {
	return (r.img.Width*r.comps*r.bpc() + 7) / 8
}

func (r sampleReader) check() error {
	if r.comps == 0 {
		return errors.Errorf("color space %q is not supported", r.img.ColorSpace)
	}
	switch r.bpc() {
	case 1, 2, 4, 8, 16:
	default:
		return errors.Errorf("unsupported bits per component: %d", r.bpc())
	}
	if need := r.stride() * r.img.Height; len(r.img.Data) < need {
		return errors.Errorf("insufficient data: got %d, expected %d", len(r.img.Data), need)
	}
	return nil
}

// sample returns component c of pixel (x, y) scaled to 0-255.
func (r sampleReader) sample(x, y, c int) uint8 {
	bpc := r.bpc()
	row := r.img.Data[y*r.stride():]
	i := (x*r.comps + c) * bpc
	switch bpc {
	case 8:
		return row[i/8]
	case 16:
		return row[i/8] // high byte
	}
	v := (row[i/8] >> (8 - bpc - i%8)) & (1<<bpc - 1)
	return uint8(int(v) * 255 / (1<<bpc - 1))
}

func (r sampleReader) toGray() *image.Gray {
	w, h := r.img.Width, r.img.Height
	out := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			// mask samples of 0 are painted, in black by default
			out.Pix[y*out.Stride+x] = r.sample(x, y, 0)
		}
	}
	return out
}

func (r sampleReader) toRGB() *image.RGBA {
	w, h := r.img.Width, r.img.Height
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*out.Stride + x*4
			out.Pix[i+0] = r.sample(x, y, 0)
			out.Pix[i+1] = r.sample(x, y, 1)
			out.Pix[i+2] = r.sample(x, y, 2)
			out.Pix[i+3] = 255
		}
	}
	return out
}

func (r sampleReader) toCMYK() *image.RGBA {
	w, h := r.img.Width, r.img.Height
	out := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			cr, cg, cb := color.CMYKToRGB(r.sample(x, y, 0), r.sample(x, y, 1), r.sample(x, y, 2), r.sample(x, y, 3))
			i := y*out.Stride + x*4
			out.Pix[i+0] = cr
			out.Pix[i+1] = cg
			out.Pix[i+2] = cb
			out.Pix[i+3] = 255
		}
	}
	return out
}
