package domain

import (
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// ResourceType enumerates the asset categories understood by the media host.
type ResourceType string

const (
	ResourceTypeImage ResourceType = "image"
	ResourceTypeVideo ResourceType = "video"
	ResourceTypeRaw   ResourceType = "raw"
)

// Valid reports whether t is one of the known resource types.
func (t ResourceType) Valid() bool {
	switch t {
	case ResourceTypeImage, ResourceTypeVideo, ResourceTypeRaw:
		return true
	default:
		return false
	}
}

// MediaAsset is the remote identity of one uploaded file. It is created from a
// successful upload response and never mutated afterwards.
type MediaAsset struct {
	PublicID     string       `json:"public_id"`
	SecureURL    string       `json:"secure_url"`
	ResourceType ResourceType `json:"resource_type"`
	SizeBytes    int64        `json:"bytes"`
	Format       string       `json:"format,omitempty"`
	Width        int          `json:"width,omitempty"`
	Height       int          `json:"height,omitempty"`
	Version      int64        `json:"version,omitempty"`
}

// UploadFile is one input blob handed to the upload client.
type UploadFile struct {
	Name        string
	ContentType string
	Data        []byte
}

// MIME returns the declared content type, sniffing the payload when the
// declaration is missing or generic.
func (f UploadFile) MIME() string {
	ct := strings.TrimSpace(f.ContentType)
	if ct != "" && ct != "application/octet-stream" {
		return ct
	}
	return mimetype.Detect(f.Data).String()
}

// ResourceType classifies the file the way the media host buckets uploads.
// Audio is stored as video by the host.
func (f UploadFile) ResourceType() ResourceType {
	return ResourceTypeForMIME(f.MIME())
}

// ResourceTypeForMIME maps a MIME type onto a host resource type.
func ResourceTypeForMIME(mime string) ResourceType {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/"):
		return ResourceTypeImage
	case strings.HasPrefix(mime, "video/"), strings.HasPrefix(mime, "audio/"):
		return ResourceTypeVideo
	default:
		return ResourceTypeRaw
	}
}

// Result holds the output of a completed run: a primary URL and, for tools
// producing several outputs, the URLs keyed by variant.
type Result struct {
	URL      string            `json:"url"`
	Variants map[string]string `json:"variants,omitempty"`
}

// Empty reports whether the result carries no usable URL.
func (r Result) Empty() bool {
	if strings.TrimSpace(r.URL) != "" {
		return false
	}
	for _, v := range r.Variants {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
