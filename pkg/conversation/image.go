package conversation

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-go-golems/parley/pkg/security"
	"github.com/pkg/errors"
)

const MaxImageSize = 20 * 1024 * 1024

type ImageDetail string

const (
	ImageDetailLow  ImageDetail = "low"
	ImageDetailHigh ImageDetail = "high"
	ImageDetailAuto ImageDetail = "auto"
)

// ImageContent is an image attached to a user turn, either as a remote URL or as raw
// bytes with a declared media type.
type ImageContent struct {
	ImageURL     string      `json:"imageURL"`
	ImageContent []byte      `json:"imageContent"`
	ImageName    string      `json:"imageName"`
	MediaType    string      `json:"mediaType"`
	Detail       ImageDetail `json:"detail"`
}

func NewImageContentFromFile(path string) (*ImageContent, error) {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return newImageContentFromURL(path)
	}
	return newImageContentFromLocalFile(path)
}

func newImageContentFromURL(url string) (*ImageContent, error) {
	if err := security.ValidateURL(url, security.ImageURLOptions); err != nil {
		return nil, err
	}
	return &ImageContent{
		ImageURL:  url,
		ImageName: filepath.Base(url),
		Detail:    ImageDetailAuto,
	}, nil
}

func newImageContentFromLocalFile(path string) (*ImageContent, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open image")
	}
	defer func(file *os.File) {
		_ = file.Close()
	}(file)

	fileInfo, err := file.Stat()
	if err != nil {
		return nil, errors.Wrap(err, "failed to get file info")
	}
	if fileInfo.Size() > MaxImageSize {
		return nil, errors.Errorf("image size exceeds %dMB limit", MaxImageSize/1024/1024)
	}

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read image")
	}

	mediaType := getMediaTypeFromExtension(filepath.Ext(path))
	if mediaType == "" {
		return nil, errors.Errorf("unsupported image format: %s", filepath.Ext(path))
	}

	return &ImageContent{
		ImageContent: content,
		ImageName:    fileInfo.Name(),
		MediaType:    mediaType,
		Detail:       ImageDetailAuto,
	}, nil
}

// NewImageContentFromBytes sniffs the media type of data. Only image types are accepted.
func NewImageContentFromBytes(name string, data []byte) (*ImageContent, error) {
	if len(data) == 0 {
		return nil, errors.New("empty image")
	}
	if len(data) > MaxImageSize {
		return nil, errors.Errorf("image size exceeds %dMB limit", MaxImageSize/1024/1024)
	}
	mediaType := getMediaTypeFromExtension(filepath.Ext(name))
	if mediaType == "" {
		mediaType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mediaType, "image/") {
		return nil, errors.Errorf("unsupported image media type: %s", mediaType)
	}
	return &ImageContent{
		ImageContent: data,
		ImageName:    name,
		MediaType:    mediaType,
		Detail:       ImageDetailAuto,
	}, nil
}

func getMediaTypeFromExtension(ext string) string {
	switch strings.ToLower(ext) {
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return ""
	}
}

// URL returns the remote URL if set, otherwise a base64 data URI of the image bytes.
func (i *ImageContent) URL() string {
	if i.ImageURL != "" {
		return i.ImageURL
	}
	return fmt.Sprintf("data:%s;base64,%s", i.MediaType, base64.StdEncoding.EncodeToString(i.ImageContent))
}

func (i *ImageContent) String() string {
	return fmt.Sprintf("ImageContent{ImageURL: %s, ImageName: %s, Detail: %s}", i.ImageURL, i.ImageName, i.Detail)
}
