package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// MaxAssetSize es el tamaño maximo de una imagen ya decodificada.
const MaxAssetSize = 4 * 1024 * 1024

var (
	ErrInvalidAsset = errors.New("invalid asset")
	ErrAssetTooBig  = fmt.Errorf("%w: exceeds 4MB", ErrInvalidAsset)
	ErrDisabled     = errors.New("asset storage not configured")

	allowedContentTypes = map[string]string{
		"image/jpeg": ".jpg",
		"image/png":  ".png",
		"image/gif":  ".gif",
		"image/webp": ".webp",
	}
)

// AssetUploader sube imagenes (data URI) y devuelve su URL publica.
type AssetUploader interface {
	Upload(ctx context.Context, folder string, dataURI string) (string, error)
}

// Asset es el contenido decodificado de un data URI.
type Asset struct {
	ContentType string
	Data        []byte
}

// ParseDataURI decodifica "data:<mime>;base64,<payload>".
func ParseDataURI(dataURI string) (Asset, error) {
	raw := strings.TrimSpace(dataURI)
	if !strings.HasPrefix(raw, "data:") {
		return Asset{}, fmt.Errorf("%w: not a data uri", ErrInvalidAsset)
	}
	header, payload, ok := strings.Cut(raw[len("data:"):], ",")
	if !ok {
		return Asset{}, fmt.Errorf("%w: missing payload", ErrInvalidAsset)
	}
	mediaType, encoding, _ := strings.Cut(header, ";")
	if encoding != "base64" {
		return Asset{}, fmt.Errorf("%w: expected base64 encoding", ErrInvalidAsset)
	}
	contentType := strings.ToLower(strings.TrimSpace(mediaType))
	if _, ok := allowedContentTypes[contentType]; !ok {
		return Asset{}, fmt.Errorf("%w: unsupported content type %q", ErrInvalidAsset, contentType)
	}
	if base64.StdEncoding.DecodedLen(len(payload)) > MaxAssetSize+3 {
		return Asset{}, ErrAssetTooBig
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Asset{}, fmt.Errorf("%w: %v", ErrInvalidAsset, err)
	}
	if len(data) == 0 {
		return Asset{}, fmt.Errorf("%w: empty payload", ErrInvalidAsset)
	}
	if len(data) > MaxAssetSize {
		return Asset{}, ErrAssetTooBig
	}
	return Asset{ContentType: contentType, Data: data}, nil
}

func objectKey(folder, contentType string) string {
	folder = strings.Trim(strings.TrimSpace(folder), "/")
	if folder == "" {
		folder = "uploads"
	}
	return fmt.Sprintf("%s/%s%s", folder, uuid.NewString(), allowedContentTypes[contentType])
}

func (a Asset) reader() *bytes.Reader {
	return bytes.NewReader(a.Data)
}

type disabledUploader struct{}

// NewDisabledUploader devuelve un uploader que rechaza toda subida.
func NewDisabledUploader() AssetUploader {
	return disabledUploader{}
}

func (disabledUploader) Upload(context.Context, string, string) (string, error) {
	return "", ErrDisabled
}
