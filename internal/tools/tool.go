// Package tools defines the catalog of media tools. Every tool owns a closed
// settings type that validates its own field domains and composes the
// transformation URL(s) from the uploaded assets.
package tools

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/transform"
)

// Settings is the TransformSpec of one tool.
type Settings interface {
	// Validate returns every field outside its documented domain.
	Validate() domain.ValidationErrors
	// Compose builds the result URL(s) from the uploaded assets, in upload order.
	Compose(assets []domain.MediaAsset) (domain.Result, error)
}

// Chainer is implemented by single-asset settings whose transformation does
// not depend on other assets.
type Chainer interface {
	Chain() transform.Chain
}

// UploadParamer is implemented by settings that need extra upload parameters,
// e.g. to trigger a host-side add-on during ingestion.
type UploadParamer interface {
	UploadParams() map[string]string
}

// BuildTransformURL renders the settings' chain onto baseURL.
func BuildTransformURL(baseURL string, s Chainer) string {
	return transform.Build(baseURL, s.Chain())
}

// Input describes one file slot of a tool.
type Input struct {
	Label        string              `json:"label"`
	ResourceType domain.ResourceType `json:"resource_type"`
}

// Descriptor is the public description of a tool.
type Descriptor struct {
	Name        string              `json:"name"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Category    domain.ResourceType `json:"category"`
	// Inputs lists the required slots in upload order.
	Inputs []Input `json:"inputs"`
	// MaxInputs allows repeating the last slot, e.g. for layers.
	MaxInputs int `json:"max_inputs"`
}

// Tool pairs a descriptor with its settings constructor.
type Tool struct {
	Descriptor
	newSettings func() Settings
}

// NewSettings returns the tool's default settings.
func (t Tool) NewSettings() Settings {
	return t.newSettings()
}

// Decode applies raw JSON on top of s. Unknown fields are rejected.
func Decode(s Settings, raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(s); err != nil {
		return domain.ValidationErrors{{Field: "settings", Message: fmt.Sprintf("malformed settings: %v", err)}}
	}
	return nil
}

// CheckInputs validates the number and kind of input files.
func (t Tool) CheckInputs(files []domain.UploadFile) domain.ValidationErrors {
	var errs domain.ValidationErrors
	min := len(t.Inputs)
	max := t.MaxInputs
	if max < min {
		max = min
	}
	switch {
	case len(files) < min:
		errs.Add("files", "requires at least %d file(s), got %d", min, len(files))
	case len(files) > max:
		errs.Add("files", "accepts at most %d file(s), got %d", max, len(files))
	}
	for i, f := range files {
		field := fmt.Sprintf("files[%d]", i)
		if len(f.Data) == 0 {
			errs.Add(field, "is empty")
			continue
		}
		if i >= max || min == 0 {
			continue
		}
		slot := t.Inputs[min-1]
		if i < min {
			slot = t.Inputs[i]
		}
		if got := f.ResourceType(); got != slot.ResourceType {
			errs.Add(field, "%s must be %s, got %s", slot.Label, slot.ResourceType, got)
		}
	}
	return errs
}

func requireAssets(tool string, assets []domain.MediaAsset, n int) error {
	if len(assets) < n {
		return &domain.CompositionError{Tool: tool, Reason: fmt.Sprintf("needs %d uploaded asset(s), got %d", n, len(assets))}
	}
	for i := 0; i < n; i++ {
		if assets[i].SecureURL == "" || assets[i].PublicID == "" {
			return &domain.CompositionError{Tool: tool, Reason: fmt.Sprintf("asset %d has no delivery url", i)}
		}
	}
	return nil
}

func single(tool string, assets []domain.MediaAsset, s Chainer) (domain.Result, error) {
	if err := requireAssets(tool, assets, 1); err != nil {
		return domain.Result{}, err
	}
	return domain.Result{URL: BuildTransformURL(assets[0].SecureURL, s)}, nil
}
