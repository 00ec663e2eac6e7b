// Package imageio loads photos and camera frames into 8-bit RGB buffers.
package imageio

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// ErrUnusable marks an image that could not be turned into an RGB buffer.
var ErrUnusable = errors.New("image not usable")

// UnusableError records why both decode paths failed for one file.
type UnusableError struct {
	Path      string
	Primary   error
	Secondary error
}

func (e *UnusableError) Error() string {
	switch {
	case e.Primary != nil && e.Secondary != nil:
		return fmt.Sprintf("%s: %v (fallback: %v)", e.Path, e.Primary, e.Secondary)
	case e.Primary != nil:
		return fmt.Sprintf("%s: %v", e.Path, e.Primary)
	default:
		return fmt.Sprintf("%s: %v", e.Path, e.Secondary)
	}
}

func (e *UnusableError) Is(target error) bool {
	return target == ErrUnusable
}

// MaxPixels caps width*height of any image accepted for decoding. The
// header is checked first so oversized images are never allocated.
var MaxPixels = 40_000_000

var errTooLarge = errors.New("image too large")

// checkSize rejects images whose header declares more than MaxPixels.
// A header that cannot be read is left to the decoder to report.
func checkSize(cfg image.Config, err error) error {
	if err != nil {
		return nil
	}
	if MaxPixels > 0 && int64(cfg.Width)*int64(cfg.Height) > int64(MaxPixels) {
		return fmt.Errorf("%w: %dx%d exceeds %d pixels", errTooLarge, cfg.Width, cfg.Height, MaxPixels)
	}
	return nil
}

// Extensions accepted as reference photos.
var photoExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
}

// IsPhoto reports whether name has a reference photo extension (case-insensitive).
func IsPhoto(name string) bool {
	return photoExtensions[strings.ToLower(filepath.Ext(name))]
}

// Load reads path into an RGB buffer. It never panics; every failure is
// returned as an *UnusableError.
func Load(path string) (*image.RGBA, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, &UnusableError{Path: path, Primary: fmt.Errorf("file not found: %w", err)}
	}
	if !info.Mode().IsRegular() {
		return nil, &UnusableError{Path: path, Primary: errors.New("not a regular file")}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &UnusableError{Path: path, Primary: fmt.Errorf("reading file: %w", err)}
	}
	return LoadBytes(data, path)
}

// LoadBytes decodes in-memory image data. name is used for diagnostics and to
// pick the fallback decoder by extension.
func LoadBytes(data []byte, name string) (*image.RGBA, error) {
	img, primaryErr := decodeSniffed(data)
	if primaryErr == nil {
		return ToRGB(img), nil
	}
	slog.Debug("primary decode failed", "path", name, "error", primaryErr)

	img, secondaryErr := decodeByExtension(data, name)
	if secondaryErr == nil {
		return ToRGB(img), nil
	}
	slog.Debug("fallback decode failed", "path", name, "error", secondaryErr)

	return nil, &UnusableError{Path: name, Primary: primaryErr, Secondary: secondaryErr}
}

// safeDecode runs fn and turns a decoder panic into an error.
func safeDecode(fn func() (image.Image, error)) (img image.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	img, err = fn()
	if err == nil && img == nil {
		err = errors.New("decoder returned no image")
	}
	return img, err
}

func decodeSniffed(data []byte) (image.Image, error) {
	return safeDecode(func() (image.Image, error) {
		cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
		if err := checkSize(cfg, err); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		img, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		return img, nil
	})
}

var (
	jpegSOI  = []byte{0xFF, 0xD8, 0xFF}
	pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1A, '\n'}
)

// decodeByExtension bypasses format sniffing: the decoder is chosen from the
// file name and for JPEG/PNG any bytes before the format signature are skipped.
func decodeByExtension(data []byte, name string) (image.Image, error) {
	ext := strings.ToLower(filepath.Ext(name))

	var (
		decode       func(io.Reader) (image.Image, error)
		decodeConfig func(io.Reader) (image.Config, error)
	)
	payload := data
	switch ext {
	case ".jpg", ".jpeg":
		decode, decodeConfig = jpeg.Decode, jpeg.DecodeConfig
		payload = fromSignature(data, jpegSOI)
	case ".png":
		decode, decodeConfig = png.Decode, png.DecodeConfig
		payload = fromSignature(data, pngMagic)
	case ".gif":
		decode, decodeConfig = gif.Decode, gif.DecodeConfig
	case ".bmp":
		decode, decodeConfig = bmp.Decode, bmp.DecodeConfig
	case ".tif", ".tiff":
		decode, decodeConfig = tiff.Decode, tiff.DecodeConfig
	case ".webp":
		decode, decodeConfig = webp.Decode, webp.DecodeConfig
	default:
		return nil, fmt.Errorf("no decoder for extension %q", ext)
	}

	return safeDecode(func() (image.Image, error) {
		if err := checkSize(decodeConfig(bytes.NewReader(payload))); err != nil {
			return nil, fmt.Errorf("%s decode: %w", strings.TrimPrefix(ext, "."), err)
		}
		img, err := decode(bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("%s decode: %w", strings.TrimPrefix(ext, "."), err)
		}
		return img, nil
	})
}

func fromSignature(data, sig []byte) []byte {
	if i := bytes.Index(data, sig); i > 0 {
		return data[i:]
	}
	return data
}

// ToRGB converts any image to an opaque 8-bit RGBA buffer anchored at (0,0).
// Alpha is dropped, not composited, so translucent pixels keep their colour.
func ToRGB(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))

	if o, ok := img.(interface{ Opaque() bool }); ok && o.Opaque() {
		draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
		return dst
	}

	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			dst.SetRGBA(x-b.Min.X, y-b.Min.Y, color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF})
		}
	}
	return dst
}

// EncodeJPEG encodes img at the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		return nil, fmt.Errorf("encoding jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteJPEG writes img to path through a temporary file so readers never see
// a partial image.
func WriteJPEG(path string, img image.Image, quality int) error {
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming %s: %w", tmp, err)
	}
	return nil
}
