// Package media stores user photos in S3 and prepares them for the
// generative media models.
package media

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"time"

	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/webp"

	"github.com/kirubel/essence-mirror/internal/s3util"
)

var (
	ErrInvalidImage       = errors.New("media: bytes are not a supported image")
	ErrStorageUnavailable = errors.New("media: object storage is not configured")
	ErrUploadFailed       = errors.New("media: upload failed")
)

// timestampLayout is used in keys and in the upload-timestamp metadata.
const timestampLayout = "20060102_150405"

// ObjectStore is the S3 surface the gateway needs.
type ObjectStore interface {
	s3util.Putter
	s3util.Getter
}

// Ref identifies a stored upload. It is the only handle other components
// use for the image.
type Ref struct {
	Bucket      string `json:"bucket"`
	Key         string `json:"key"`
	ContentType string `json:"contentType"`
}

func (r Ref) IsZero() bool { return r.Key == "" }

// Upload is one user-provided image.
type Upload struct {
	Data         []byte
	Filename     string
	DeclaredType string
	// Source tags the key, e.g. "web" or "cli".
	Source string
}

type Gateway struct {
	client ObjectStore
	bucket string
	region string
	now    func() time.Time
	random func([]byte) (int, error)
}

// NewGateway returns a gateway writing to bucket. client may be nil, in which
// case every upload fails with ErrStorageUnavailable.
func NewGateway(client ObjectStore, bucket, region string) *Gateway {
	return &Gateway{
		client: client,
		bucket: bucket,
		region: region,
		now:    time.Now,
		random: rand.Read,
	}
}

func (g *Gateway) Bucket() string { return g.bucket }

// Upload validates the image and stores it with a single PutObject.
func (g *Gateway) Upload(ctx context.Context, u Upload) (Ref, error) {
	if g.client == nil {
		return Ref{}, ErrStorageUnavailable
	}

	contentType := ResolveContentType(u.DeclaredType, u.Filename)
	format, err := Validate(u.Data)
	if err != nil {
		log.Warn().Str("filename", u.Filename).Int("bytes", len(u.Data)).Err(err).Msg("Rejected upload")
		return Ref{}, err
	}

	source := u.Source
	if source == "" {
		source = "web"
	}
	ts := g.now().UTC().Format(timestampLayout)
	suffix, err := g.randomHex(4)
	if err != nil {
		return Ref{}, fmt.Errorf("%w: key suffix: %v", ErrUploadFailed, err)
	}
	key := fmt.Sprintf("uploads/%s_%s_%s.%s", source, ts, suffix, ExtensionFor(contentType))

	metadata := map[string]string{
		"original-filename": u.Filename,
		"upload-timestamp":  ts,
	}
	if err := s3util.PutBytes(ctx, g.client, g.bucket, key, contentType, u.Data, metadata); err != nil {
		log.Error().Err(err).Str("key", key).Msg("Upload failed")
		return Ref{}, fmt.Errorf("%w: %w", ErrUploadFailed, err)
	}

	log.Info().
		Str("key", key).
		Str("contentType", contentType).
		Str("decodedFormat", format).
		Int("bytes", len(u.Data)).
		Msg("Image uploaded")
	return Ref{Bucket: g.bucket, Key: key, ContentType: contentType}, nil
}

// Fetch reads a stored upload back into memory.
func (g *Gateway) Fetch(ctx context.Context, ref Ref) ([]byte, error) {
	if g.client == nil {
		return nil, ErrStorageUnavailable
	}
	bucket := ref.Bucket
	if bucket == "" {
		bucket = g.bucket
	}
	data, err := s3util.ReadObject(ctx, g.client, bucket, ref.Key, MaxImageBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", ref.Key, err)
	}
	return data, nil
}

// ObjectURL is the public https URL the agent is given for analysis.
func (g *Gateway) ObjectURL(ref Ref) string {
	bucket := ref.Bucket
	if bucket == "" {
		bucket = g.bucket
	}
	return s3util.HTTPSURL(bucket, g.region, ref.Key)
}

func (g *Gateway) randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := g.random(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// MaxImageBytes bounds images read back from storage.
const MaxImageBytes = 20 << 20

// Validate checks that data decodes as JPEG, PNG, GIF or WebP and returns
// the detected format name.
func Validate(data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty", ErrInvalidImage)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return "", fmt.Errorf("%w: zero dimensions", ErrInvalidImage)
	}
	return format, nil
}
