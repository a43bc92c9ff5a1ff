package media

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"
)

// Reel frame geometry and encoding required by the video model.
const (
	FrameWidth   = 1280
	FrameHeight  = 720
	FrameQuality = 95
)

// PrepareReelFrame decodes an image, scales it to exactly 1280x720 and
// returns it as base64 JPEG.
func PrepareReelFrame(data []byte) (string, error) {
	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	dst := image.NewRGBA(image.Rect(0, 0, FrameWidth, FrameHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: FrameQuality}); err != nil {
		return "", fmt.Errorf("encode reel frame: %w", err)
	}

	log.Debug().
		Str("format", format).
		Int("srcWidth", src.Bounds().Dx()).
		Int("srcHeight", src.Bounds().Dy()).
		Int("jpegBytes", buf.Len()).
		Msg("Reel frame prepared")
	return base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
