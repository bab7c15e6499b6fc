package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	"image/png"
	"os"

	"github.com/nfnt/resize"
	_ "golang.org/x/image/webp"
)

// DefaultThumbnailBox is the bounding box, in pixels, thumbnails are fitted into.
const DefaultThumbnailBox = 80

// ThumbnailResult is a PNG thumbnail or the reason there is none.
type ThumbnailResult struct {
	State MetaState
	PNG   []byte
	Err   error
}

// Thumbnail implements MetadataProvider.
func (m *PhotoMetadata) Thumbnail(path string) ThumbnailResult {
	box := m.ThumbnailBox
	if box <= 0 {
		box = DefaultThumbnailBox
	}

	data, err := MakeThumbnail(path, uint(box))
	if err != nil {
		return ThumbnailResult{State: MetaUnreadable, Err: err}
	}
	return ThumbnailResult{State: MetaPresent, PNG: data}
}

// MakeThumbnail decodes the image at path and returns a PNG no larger than
// box×box, preserving aspect ratio.
func MakeThumbnail(path string, box uint) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	thumb := resize.Thumbnail(box, box, img, resize.Lanczos3)

	var buf bytes.Buffer
	if err := png.Encode(&buf, thumb); err != nil {
		return nil, fmt.Errorf("failed to encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
