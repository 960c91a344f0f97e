package tools

import (
	"fmt"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
)

const (
	NameBackgroundRemoval = "background-removal"
	NameUpscale           = "upscale"
	NameResizeCrop        = "resize-crop"
	NameBlur              = "blur"
	NameOptimize          = "optimize"
	NameColorize          = "colorize"
	NameObjectRemoval     = "object-removal"
	NameGenerativeReplace = "generative-replace"
	NameImageOverlay      = "image-overlay"
	NameLayerComposition  = "layer-composition"
	NameStyleTransfer     = "style-transfer"
	NameVideoTrim         = "video-trim"
	NameVideoMerge        = "video-merge"
	NameVideoToGIF        = "video-to-gif"
	NameTranscription     = "transcription"
	NameAdaptiveStreaming = "adaptive-streaming"
)

var (
	imageInput = Input{Label: "image", ResourceType: domain.ResourceTypeImage}
	videoInput = Input{Label: "video", ResourceType: domain.ResourceTypeVideo}
)

func imageTool(name, title, description string, newSettings func() Settings) Tool {
	return Tool{
		Descriptor: Descriptor{
			Name: name, Title: title, Description: description,
			Category: domain.ResourceTypeImage, Inputs: []Input{imageInput}, MaxInputs: 1,
		},
		newSettings: newSettings,
	}
}

func videoTool(name, title, description string, newSettings func() Settings) Tool {
	return Tool{
		Descriptor: Descriptor{
			Name: name, Title: title, Description: description,
			Category: domain.ResourceTypeVideo, Inputs: []Input{videoInput}, MaxInputs: 1,
		},
		newSettings: newSettings,
	}
}

// Catalog returns every tool with its default settings constructor, in the
// order they are listed to clients.
func Catalog() []Tool {
	return []Tool{
		imageTool(NameBackgroundRemoval, "Background removal", "Cut the subject out of a photo.",
			func() Settings { return &BackgroundRemoval{} }),
		imageTool(NameUpscale, "AI upscale", "Enlarge an image with super-resolution.",
			func() Settings { return &Upscale{} }),
		imageTool(NameResizeCrop, "Resize & crop", "Resize to exact dimensions or an aspect ratio.",
			func() Settings { return &ResizeCrop{Crop: "fill", Gravity: "auto"} }),
		imageTool(NameBlur, "Blur & pixelate", "Blur the whole image or hide faces.",
			func() Settings { return &Blur{Mode: "blur", Region: "all", Intensity: 300} }),
		imageTool(NameOptimize, "Convert & optimize", "Change format and compress.",
			func() Settings { return &Optimize{Format: "auto"} }),
		imageTool(NameColorize, "Colorize", "Tint an image towards a colour.",
			func() Settings { return &Colorize{Intensity: 60} }),
		imageTool(NameObjectRemoval, "Object removal", "Erase objects described in text.",
			func() Settings { return &ObjectRemoval{} }),
		imageTool(NameGenerativeReplace, "Generative replace", "Swap one object for another.",
			func() Settings { return &GenerativeReplace{} }),
		{
			Descriptor: Descriptor{
				Name: NameImageOverlay, Title: "Watermark & overlay", Description: "Place a logo or watermark on an image.",
				Category: domain.ResourceTypeImage,
				Inputs: []Input{
					{Label: "base image", ResourceType: domain.ResourceTypeImage},
					{Label: "overlay image", ResourceType: domain.ResourceTypeImage},
				},
				MaxInputs: 2,
			},
			newSettings: func() Settings {
				return &ImageOverlay{Position: "south_east", Opacity: 100, ScalePercent: 25}
			},
		},
		{
			Descriptor: Descriptor{
				Name: NameLayerComposition, Title: "Layer composition", Description: "Stack up to five layers on a base image.",
				Category: domain.ResourceTypeImage,
				Inputs: []Input{
					{Label: "base image", ResourceType: domain.ResourceTypeImage},
					{Label: "layer", ResourceType: domain.ResourceTypeImage},
				},
				MaxInputs: 1 + MaxLayers,
			},
			newSettings: func() Settings { return &LayerComposition{} },
		},
		{
			Descriptor: Descriptor{
				Name: NameStyleTransfer, Title: "Style transfer", Description: "Repaint a photo in the style of another image.",
				Category: domain.ResourceTypeImage,
				Inputs: []Input{
					{Label: "content image", ResourceType: domain.ResourceTypeImage},
					{Label: "style image", ResourceType: domain.ResourceTypeImage},
				},
				MaxInputs: 2,
			},
			newSettings: func() Settings { return &StyleTransfer{Strength: 60} },
		},
		videoTool(NameVideoTrim, "Trim video", "Cut a clip to a time range.",
			func() Settings { return &VideoTrim{} }),
		{
			Descriptor: Descriptor{
				Name: NameVideoMerge, Title: "Merge videos", Description: "Join two clips back to back.",
				Category: domain.ResourceTypeVideo,
				Inputs: []Input{
					{Label: "first video", ResourceType: domain.ResourceTypeVideo},
					{Label: "second video", ResourceType: domain.ResourceTypeVideo},
				},
				MaxInputs: 2,
			},
			newSettings: func() Settings {
				return &VideoMerge{Width: 1280, Height: 720, Transition: "none"}
			},
		},
		videoTool(NameVideoToGIF, "Video to GIF", "Turn a section of a clip into an animated GIF.",
			func() Settings {
				return &VideoToGIF{DurationSeconds: 5, FPS: 10, Width: 480, Loop: true}
			}),
		videoTool(NameTranscription, "Transcribe & caption", "Generate captions and optionally burn them in.",
			func() Settings { return &Transcription{Language: "en-US", Format: "vtt"} }),
		videoTool(NameAdaptiveStreaming, "Adaptive streaming", "Produce HLS/DASH outputs in several resolutions.",
			func() Settings {
				return &AdaptiveStreaming{Profile: "auto", Format: "hls", Renditions: []string{"1080p", "720p", "480p"}}
			}),
	}
}

// Registry indexes tools by name and carries their presets.
type Registry struct {
	tools   []Tool
	byName  map[string]Tool
	presets Presets
}

// NewRegistry builds a registry over tools.
func NewRegistry(tools []Tool, presets Presets) *Registry {
	r := &Registry{byName: make(map[string]Tool, len(tools)), presets: presets}
	for _, t := range tools {
		if _, dup := r.byName[t.Name]; dup {
			continue
		}
		r.tools = append(r.tools, t)
		r.byName[t.Name] = t
	}
	return r
}

// DefaultRegistry returns the full catalog with the embedded presets.
func DefaultRegistry() *Registry {
	return NewRegistry(Catalog(), DefaultPresets())
}

// List returns the tools in catalog order.
func (r *Registry) List() []Tool {
	out := make([]Tool, len(r.tools))
	copy(out, r.tools)
	return out
}

// Lookup finds a tool by name.
func (r *Registry) Lookup(name string) (Tool, error) {
	t, ok := r.byName[name]
	if !ok {
		return Tool{}, fmt.Errorf("%w: %q", domain.ErrUnknownTool, name)
	}
	return t, nil
}

// Presets returns the preset names available for tool.
func (r *Registry) Presets(tool string) []string {
	return r.presets.Names(tool)
}

// Resolve builds the settings for one run: defaults, then the named preset,
// then the raw JSON overrides.
func (r *Registry) Resolve(tool Tool, preset string, raw []byte) (Settings, error) {
	s := tool.NewSettings()
	if preset != "" {
		if err := r.presets.Apply(tool.Name, preset, s); err != nil {
			return nil, err
		}
	}
	if err := Decode(s, raw); err != nil {
		return nil, err
	}
	return s, nil
}
