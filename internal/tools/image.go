package tools

import (
	"strconv"
	"strings"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/transform"
)

// BackgroundRemoval cuts the subject out of a photo.
type BackgroundRemoval struct {
	FineEdges bool `json:"fine_edges" yaml:"fine_edges"`
}

func (s *BackgroundRemoval) Validate() domain.ValidationErrors { return nil }

func (s *BackgroundRemoval) Chain() transform.Chain {
	arg := ""
	if s.FineEdges {
		arg = "fineedges_y"
	}
	return transform.NewBuilder().Effect("background_removal", arg).Chain()
}

func (s *BackgroundRemoval) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	if err := requireAssets(NameBackgroundRemoval, assets, 1); err != nil {
		return domain.Result{}, err
	}
	// Transparency needs an alpha capable container.
	return domain.Result{URL: transform.BuildAs(assets[0].SecureURL, s.Chain(), "png")}, nil
}

// Upscale enlarges an image with the host's super-resolution model.
type Upscale struct {
	Enhance bool `json:"enhance" yaml:"enhance"`
	Sharpen int  `json:"sharpen" yaml:"sharpen"`
}

func (s *Upscale) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkRange(&errs, "sharpen", s.Sharpen, 0, 2000)
	return errs
}

func (s *Upscale) Chain() transform.Chain {
	return transform.NewBuilder().
		Effect("upscale").Next().
		If(s.Enhance, func(b *transform.Builder) { b.Effect("enhance") }).Next().
		If(s.Sharpen > 0, func(b *transform.Builder) { b.Effect("sharpen", strconv.Itoa(s.Sharpen)) }).
		Chain()
}

func (s *Upscale) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	return single(NameUpscale, assets, s)
}

var (
	aspectRatios = []string{"", "1:1", "4:3", "3:4", "3:2", "2:3", "16:9", "9:16"}
	cropModes    = []string{"fill", "fit", "crop", "scale", "thumb", "pad"}
)

// ResizeCrop resizes and crops to explicit dimensions or an aspect ratio.
type ResizeCrop struct {
	Width       int    `json:"width" yaml:"width"`
	Height      int    `json:"height" yaml:"height"`
	AspectRatio string `json:"aspect_ratio" yaml:"aspect_ratio"`
	Crop        string `json:"crop" yaml:"crop"`
	Gravity     string `json:"gravity" yaml:"gravity"`
}

func (s *ResizeCrop) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkDimensions(&errs, s.Width, s.Height)
	checkEnum(&errs, "aspect_ratio", s.AspectRatio, aspectRatios...)
	checkEnum(&errs, "crop", s.Crop, cropModes...)
	checkEnum(&errs, "gravity", s.Gravity, gravities...)
	return errs
}

func (s *ResizeCrop) Chain() transform.Chain {
	b := transform.NewBuilder()
	if s.Width == 0 && s.Height == 0 && s.AspectRatio == "" {
		return b.Chain()
	}
	b.Add("c", s.Crop).Int("w", s.Width).Int("h", s.Height).Add("ar", s.AspectRatio)
	switch s.Crop {
	case "fill", "crop", "thumb", "pad":
		b.Add("g", s.Gravity)
	}
	return b.Chain()
}

func (s *ResizeCrop) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	return single(NameResizeCrop, assets, s)
}

// Blur blurs or pixelates the whole image or only detected faces.
type Blur struct {
	Mode      string `json:"mode" yaml:"mode"`
	Region    string `json:"region" yaml:"region"`
	Intensity int    `json:"intensity" yaml:"intensity"`
}

func (s *Blur) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkEnum(&errs, "mode", s.Mode, "blur", "pixelate")
	checkEnum(&errs, "region", s.Region, "all", "faces")
	checkRange(&errs, "intensity", s.Intensity, 1, 2000)
	return errs
}

func (s *Blur) Chain() transform.Chain {
	effect := s.Mode
	if s.Region == "faces" {
		effect += "_faces"
	}
	return transform.NewBuilder().Effect(effect, strconv.Itoa(s.Intensity)).Chain()
}

func (s *Blur) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	return single(NameBlur, assets, s)
}

var imageFormats = []string{"auto", "jpg", "png", "webp", "avif", "gif"}

// Optimization groups the palette reduction controls. When Enabled is false
// none of its fields reach the URL.
type Optimization struct {
	Enabled        bool `json:"enabled" yaml:"enabled"`
	ColorReduction int  `json:"color_reduction" yaml:"color_reduction"`
	Dithering      int  `json:"dithering" yaml:"dithering"`
	Lossy          bool `json:"lossy" yaml:"lossy"`
}

// Optimize converts formats and compresses.
type Optimize struct {
	Format       string       `json:"format" yaml:"format"`
	Quality      int          `json:"quality" yaml:"quality"`
	Optimization Optimization `json:"optimization" yaml:"optimization"`
}

func (s *Optimize) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkEnum(&errs, "format", s.Format, imageFormats...)
	checkRange(&errs, "quality", s.Quality, 0, 100)
	if s.Optimization.Enabled {
		if s.Optimization.ColorReduction != 0 {
			checkRange(&errs, "optimization.color_reduction", s.Optimization.ColorReduction, 2, 256)
		}
		checkRange(&errs, "optimization.dithering", s.Optimization.Dithering, 0, 18)
	}
	return errs
}

func (s *Optimize) Chain() transform.Chain {
	quality := "auto"
	if s.Quality > 0 {
		quality = strconv.Itoa(s.Quality)
	}
	b := transform.NewBuilder().Add("f", s.Format).Add("q", quality)
	if opt := s.Optimization; opt.Enabled {
		b.Next().
			If(opt.ColorReduction > 0, func(b *transform.Builder) { b.Effect("colors", strconv.Itoa(opt.ColorReduction)) }).
			If(opt.Dithering > 0, func(b *transform.Builder) { b.Effect("ordered_dither", strconv.Itoa(opt.Dithering)) }).
			If(opt.Lossy, func(b *transform.Builder) { b.Flag("lossy") })
	}
	return b.Chain()
}

func (s *Optimize) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	return single(NameOptimize, assets, s)
}

// Colorize tints an image towards a colour.
type Colorize struct {
	Intensity int    `json:"intensity" yaml:"intensity"`
	Color     string `json:"color" yaml:"color"`
}

func (s *Colorize) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkRange(&errs, "intensity", s.Intensity, 0, 100)
	if c := strings.TrimPrefix(s.Color, "#"); c != "" && !hexColor.MatchString(c) {
		errs.Add("color", "must be a 6 digit hex colour, got %q", s.Color)
	}
	return errs
}

func (s *Colorize) Chain() transform.Chain {
	b := transform.NewBuilder()
	if s.Intensity == 0 {
		return b.Chain()
	}
	b.Effect("colorize", strconv.Itoa(s.Intensity))
	if c := strings.TrimPrefix(s.Color, "#"); c != "" {
		b.Add("co", "rgb:"+strings.ToLower(c))
	}
	return b.Chain()
}

func (s *Colorize) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	return single(NameColorize, assets, s)
}

// ObjectRemoval erases objects matching a text prompt.
type ObjectRemoval struct {
	Prompt       string `json:"prompt" yaml:"prompt"`
	Multiple     bool   `json:"multiple" yaml:"multiple"`
	RemoveShadow bool   `json:"remove_shadow" yaml:"remove_shadow"`
}

func (s *ObjectRemoval) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkText(&errs, "prompt", s.Prompt)
	return errs
}

func (s *ObjectRemoval) Chain() transform.Chain {
	return transform.NewBuilder().Add("e", genEffect("gen_remove",
		"prompt_"+transform.Text(s.Prompt),
		flagArg("multiple", s.Multiple),
		flagArg("remove-shadow", s.RemoveShadow),
	)).Chain()
}

func (s *ObjectRemoval) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	return single(NameObjectRemoval, assets, s)
}

// GenerativeReplace swaps one object for another described in text.
type GenerativeReplace struct {
	From             string `json:"from" yaml:"from"`
	To               string `json:"to" yaml:"to"`
	PreserveGeometry bool   `json:"preserve_geometry" yaml:"preserve_geometry"`
}

func (s *GenerativeReplace) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkText(&errs, "from", s.From)
	checkText(&errs, "to", s.To)
	return errs
}

func (s *GenerativeReplace) Chain() transform.Chain {
	return transform.NewBuilder().Add("e", genEffect("gen_replace",
		"from_"+transform.Text(s.From),
		"to_"+transform.Text(s.To),
		flagArg("preserve-geometry", s.PreserveGeometry),
	)).Chain()
}

func (s *GenerativeReplace) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	return single(NameGenerativeReplace, assets, s)
}

// genEffect renders name:arg;arg for the generative AI effects.
func genEffect(name string, args ...string) string {
	kept := args[:0:0]
	for _, a := range args {
		if a != "" {
			kept = append(kept, a)
		}
	}
	if len(kept) == 0 {
		return name
	}
	return name + ":" + strings.Join(kept, ";")
}

func flagArg(name string, on bool) string {
	if !on {
		return ""
	}
	return name + "_true"
}
