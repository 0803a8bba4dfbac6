package workbook

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"github.com/xuri/excelize/v2"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// DefaultWatermarkCell anchors the watermark when no cell is configured.
const DefaultWatermarkCell = "B2"

// ErrUnsupportedImage is returned for image data no registered decoder accepts.
var ErrUnsupportedImage = errors.New("unsupported watermark image")

// extensions maps image.DecodeConfig format names to picture extensions.
var extensions = map[string]string{
	"png":  ".png",
	"jpeg": ".jpg",
	"gif":  ".gif",
	"bmp":  ".bmp",
	"tiff": ".tif",
}

// Image is a decoded-header watermark ready to be placed on a sheet.
type Image struct {
	Data      []byte
	Format    string
	Extension string
	Width     int
	Height    int
}

// ParseImage checks that data is a supported raster image by decoding its
// header.
func ParseImage(data []byte) (*Image, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}
	ext, ok := extensions[format]
	if !ok {
		return nil, fmt.Errorf("%w: format %s", ErrUnsupportedImage, format)
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return nil, fmt.Errorf("%w: empty image", ErrUnsupportedImage)
	}
	return &Image{
		Data:      data,
		Format:    format,
		Extension: ext,
		Width:     cfg.Width,
		Height:    cfg.Height,
	}, nil
}

// LoadImage reads and validates a watermark image from disk.
func LoadImage(path string) (*Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read watermark: %w", err)
	}
	return ParseImage(data)
}

// Watermark anchors img at cell on sheet. Cell values are not touched.
func Watermark(f *excelize.File, sheet, cell string, img *Image) error {
	if img == nil {
		return nil
	}
	if cell == "" {
		cell = DefaultWatermarkCell
	}
	if sheet == "" {
		sheet = f.GetSheetName(0)
	}

	printable := true
	err := f.AddPictureFromBytes(sheet, cell, &excelize.Picture{
		Extension: img.Extension,
		File:      img.Data,
		Format: &excelize.GraphicOptions{
			AltText:         "watermark",
			PrintObject:     &printable,
			LockAspectRatio: true,
		},
	})
	if err != nil {
		return fmt.Errorf("add watermark at %s: %w", cell, err)
	}
	return nil
}
