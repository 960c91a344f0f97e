package tools

import (
	"fmt"
	"strconv"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/transform"
)

// ImageOverlay places a second image (logo, watermark) on top of the base.
// Opacity 0 means unset and renders the overlay fully opaque.
type ImageOverlay struct {
	Position     string `json:"position" yaml:"position"`
	Opacity      int    `json:"opacity" yaml:"opacity"`
	ScalePercent int    `json:"scale_percent" yaml:"scale_percent"`
	OffsetX      int    `json:"offset_x" yaml:"offset_x"`
	OffsetY      int    `json:"offset_y" yaml:"offset_y"`
}

func (s *ImageOverlay) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkEnum(&errs, "position", s.Position, gravities...)
	checkRange(&errs, "opacity", s.Opacity, 0, 100)
	checkRange(&errs, "scale_percent", s.ScalePercent, 1, 100)
	checkRange(&errs, "offset_x", s.OffsetX, -2000, 2000)
	checkRange(&errs, "offset_y", s.OffsetY, -2000, 2000)
	return errs
}

func (s *ImageOverlay) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	if err := requireAssets(NameImageOverlay, assets, 2); err != nil {
		return domain.Result{}, err
	}
	b := transform.NewBuilder().
		Add("l", transform.LayerID(assets[1].PublicID)).
		Add("c", "scale").Flag("relative").
		Float("w", float64(s.ScalePercent)/100)
	if s.Opacity > 0 && s.Opacity < 100 {
		b.Add("o", strconv.Itoa(s.Opacity))
	}
	b.Next().
		Keyword("fl_layer_apply").
		Add("g", s.Position).
		Int("x", s.OffsetX).
		Int("y", s.OffsetY)
	return domain.Result{URL: transform.Build(assets[0].SecureURL, b.Chain())}, nil
}

var blendModes = []string{"normal", "multiply", "screen", "overlay", "darken", "lighten", "difference"}

// Layer configures one layer of a composition. Opacity 0 means unset; hide a
// layer by disabling it.
type Layer struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Blend   string `json:"blend" yaml:"blend"`
	Opacity int    `json:"opacity" yaml:"opacity"`
}

// DefaultLayer is applied to uploaded layers without explicit settings.
func DefaultLayer() Layer {
	return Layer{Enabled: true, Blend: "normal", Opacity: 100}
}

// LayerComposition stacks up to MaxLayers images on a base image. The first
// uploaded file is the base; the following ones are the layers in order.
type LayerComposition struct {
	Layers []Layer `json:"layers" yaml:"layers"`
}

func (s *LayerComposition) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	if len(s.Layers) > MaxLayers {
		errs.Add("layers", "accepts at most %d layers, got %d", MaxLayers, len(s.Layers))
	}
	for i, l := range s.Layers {
		if !l.Enabled {
			continue
		}
		var layerErrs domain.ValidationErrors
		checkEnum(&layerErrs, "blend", l.Blend, blendModes...)
		checkRange(&layerErrs, "opacity", l.Opacity, 0, 100)
		errs.Merge(fmt.Sprintf("layers[%d]", i), layerErrs)
	}
	return errs
}

func (s *LayerComposition) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	if err := requireAssets(NameLayerComposition, assets, 2); err != nil {
		return domain.Result{}, err
	}
	uploaded := assets[1:]
	for i := len(uploaded); i < len(s.Layers); i++ {
		if s.Layers[i].Enabled {
			return domain.Result{}, &domain.CompositionError{
				Tool:   NameLayerComposition,
				Reason: fmt.Sprintf("layer %d is enabled but only %d layer(s) were uploaded", i+1, len(uploaded)),
			}
		}
	}
	b := transform.NewBuilder()
	for i, asset := range uploaded {
		layer := DefaultLayer()
		if i < len(s.Layers) {
			layer = s.Layers[i]
		}
		if !layer.Enabled {
			continue
		}
		b.Add("l", transform.LayerID(asset.PublicID))
		if layer.Opacity > 0 && layer.Opacity < 100 {
			b.Add("o", strconv.Itoa(layer.Opacity))
		}
		b.Next().Keyword("fl_layer_apply")
		if layer.Blend != "normal" {
			b.Effect(layer.Blend)
		}
		b.Next()
	}
	return domain.Result{URL: transform.Build(assets[0].SecureURL, b.Chain())}, nil
}

// StyleTransfer repaints the content image in the style of a second image.
type StyleTransfer struct {
	Strength      int  `json:"strength" yaml:"strength"`
	PreserveColor bool `json:"preserve_color" yaml:"preserve_color"`
}

func (s *StyleTransfer) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkRange(&errs, "strength", s.Strength, 0, 100)
	return errs
}

func (s *StyleTransfer) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	if err := requireAssets(NameStyleTransfer, assets, 2); err != nil {
		return domain.Result{}, err
	}
	preserve, strength := "", ""
	if s.PreserveColor {
		preserve = "preserve_color"
	}
	if s.Strength > 0 {
		strength = strconv.Itoa(s.Strength)
	}
	chain := transform.NewBuilder().
		Add("l", transform.LayerID(assets[1].PublicID)).Next().
		Effect("style_transfer", preserve, strength).Keyword("fl_layer_apply").
		Chain()
	return domain.Result{URL: transform.Build(assets[0].SecureURL, chain)}, nil
}
