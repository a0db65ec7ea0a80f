package client

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
)

// ImageDataURI lee una imagen local y la codifica como data URI.
func ImageDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	contentType := http.DetectContentType(data)
	switch contentType {
	case "image/jpeg", "image/png", "image/gif", "image/webp":
	default:
		return "", &APIError{Message: fmt.Sprintf("unsupported image type %s", contentType)}
	}
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
