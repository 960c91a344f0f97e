package tools

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/transform"
)

// VideoTrim cuts a clip to [start, end]. Zero leaves a bound untouched.
type VideoTrim struct {
	StartSeconds float64 `json:"start_seconds" yaml:"start_seconds"`
	EndSeconds   float64 `json:"end_seconds" yaml:"end_seconds"`
}

func (s *VideoTrim) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkSeconds(&errs, "start_seconds", s.StartSeconds)
	checkSeconds(&errs, "end_seconds", s.EndSeconds)
	return errs
}

func (s *VideoTrim) Chain() transform.Chain {
	return transform.NewBuilder().Float("so", s.StartSeconds).Float("eo", s.EndSeconds).Chain()
}

func (s *VideoTrim) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	return single(NameVideoTrim, assets, s)
}

// VideoMerge splices the second clip onto the end of the first.
type VideoMerge struct {
	Width        int    `json:"width" yaml:"width"`
	Height       int    `json:"height" yaml:"height"`
	Transition   string `json:"transition" yaml:"transition"`
	TransitionMs int    `json:"transition_ms" yaml:"transition_ms"`
}

func (s *VideoMerge) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkDimensions(&errs, s.Width, s.Height)
	checkEnum(&errs, "transition", s.Transition, "none", "fade")
	checkRange(&errs, "transition_ms", s.TransitionMs, 0, 5000)
	return errs
}

func (s *VideoMerge) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	if err := requireAssets(NameVideoMerge, assets, 2); err != nil {
		return domain.Result{}, err
	}
	sized := func(b *transform.Builder) {
		if s.Width > 0 || s.Height > 0 {
			b.Add("c", "fill").Int("w", s.Width).Int("h", s.Height)
		}
	}
	b := transform.NewBuilder()
	sized(b)
	b.Next().Flag("splice").Add("l", transform.VideoLayerID(assets[1].PublicID))
	sized(b)
	if s.Transition == "fade" && s.TransitionMs > 0 {
		b.Effect("fade", strconv.Itoa(s.TransitionMs))
	}
	b.Next().Keyword("fl_layer_apply")
	return domain.Result{URL: transform.Build(assets[0].SecureURL, b.Chain())}, nil
}

// VideoToGIF renders a section of a clip as an animated GIF.
type VideoToGIF struct {
	StartSeconds    float64 `json:"start_seconds" yaml:"start_seconds"`
	DurationSeconds float64 `json:"duration_seconds" yaml:"duration_seconds"`
	FPS             int     `json:"fps" yaml:"fps"`
	Width           int     `json:"width" yaml:"width"`
	Loop            bool    `json:"loop" yaml:"loop"`
}

func (s *VideoToGIF) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkSeconds(&errs, "start_seconds", s.StartSeconds)
	checkRangeFloat(&errs, "duration_seconds", s.DurationSeconds, 0, 60)
	checkRange(&errs, "fps", s.FPS, 0, 30)
	checkRange(&errs, "width", s.Width, 0, MaxDimension)
	return errs
}

func (s *VideoToGIF) Chain() transform.Chain {
	return transform.NewBuilder().
		Float("so", s.StartSeconds).Float("du", s.DurationSeconds).Next().
		Int("fps", s.FPS).Next().
		If(s.Width > 0, func(b *transform.Builder) { b.Add("c", "scale").Int("w", s.Width) }).Next().
		If(s.Loop, func(b *transform.Builder) { b.Effect("loop") }).
		Chain()
}

func (s *VideoToGIF) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	if err := requireAssets(NameVideoToGIF, assets, 1); err != nil {
		return domain.Result{}, err
	}
	return domain.Result{URL: transform.BuildAs(assets[0].SecureURL, s.Chain(), "gif")}, nil
}

var (
	transcriptLanguages = []string{"en-US", "en-GB", "es-ES", "fr-FR", "de-DE", "it-IT", "pt-BR", "ja-JP", "id-ID"}
	captionFormats      = []string{"vtt", "srt"}
)

// Transcription asks the host's speech add-on for captions during upload and
// optionally burns them into the video.
type Transcription struct {
	Language string `json:"language" yaml:"language"`
	Format   string `json:"format" yaml:"format"`
	BurnIn   bool   `json:"burn_in" yaml:"burn_in"`
}

func (s *Transcription) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkEnum(&errs, "language", s.Language, transcriptLanguages...)
	checkEnum(&errs, "format", s.Format, captionFormats...)
	return errs
}

func (s *Transcription) UploadParams() map[string]string {
	return map[string]string{"raw_convert": fmt.Sprintf("google_speech:%s:%s", s.Format, s.Language)}
}

func (s *Transcription) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	if err := requireAssets(NameTranscription, assets, 1); err != nil {
		return domain.Result{}, err
	}
	video := assets[0]
	captions := transform.WithFormat(strings.Replace(video.SecureURL, "/video/upload/", "/raw/upload/", 1), s.Format)
	playback := video.SecureURL
	if s.BurnIn {
		chain := transform.NewBuilder().
			Add("l", transform.SubtitlesLayerID(video.PublicID, s.Format)).Next().
			Keyword("fl_layer_apply").
			Chain()
		playback = transform.Build(video.SecureURL, chain)
	}
	return domain.Result{
		URL:      playback,
		Variants: map[string]string{"video": playback, "captions": captions},
	}, nil
}

type rendition struct {
	height  int
	bitrate string
}

var renditions = map[string]rendition{
	"1080p": {height: 1080, bitrate: "5m"},
	"720p":  {height: 720, bitrate: "2500k"},
	"480p":  {height: 480, bitrate: "1200k"},
	"360p":  {height: 360, bitrate: "800k"},
}

var (
	renditionNames    = []string{"1080p", "720p", "480p", "360p"}
	streamingProfiles = []string{"auto", "hd", "full_hd", "4k"}
)

// AdaptiveStreaming produces an HLS/DASH manifest plus one progressive file
// per requested rendition.
type AdaptiveStreaming struct {
	Profile    string   `json:"profile" yaml:"profile"`
	Format     string   `json:"format" yaml:"format"`
	Renditions []string `json:"renditions" yaml:"renditions"`
}

func (s *AdaptiveStreaming) Validate() domain.ValidationErrors {
	var errs domain.ValidationErrors
	checkEnum(&errs, "profile", s.Profile, streamingProfiles...)
	checkEnum(&errs, "format", s.Format, "hls", "dash")
	seen := make(map[string]bool, len(s.Renditions))
	for i, r := range s.Renditions {
		field := fmt.Sprintf("renditions[%d]", i)
		checkEnum(&errs, field, r, renditionNames...)
		if seen[r] {
			errs.Add(field, "duplicate rendition %q", r)
		}
		seen[r] = true
	}
	return errs
}

func (s *AdaptiveStreaming) manifestExt() string {
	if s.Format == "dash" {
		return "mpd"
	}
	return "m3u8"
}

func (s *AdaptiveStreaming) Compose(assets []domain.MediaAsset) (domain.Result, error) {
	if err := requireAssets(NameAdaptiveStreaming, assets, 1); err != nil {
		return domain.Result{}, err
	}
	base := assets[0].SecureURL
	master := transform.BuildAs(base, transform.NewBuilder().Add("sp", s.Profile).Chain(), s.manifestExt())
	variants := map[string]string{"master": master}
	for _, name := range s.Renditions {
		r, ok := renditions[name]
		if !ok {
			return domain.Result{}, &domain.CompositionError{Tool: NameAdaptiveStreaming, Reason: "unknown rendition " + name}
		}
		chain := transform.NewBuilder().
			Add("c", "scale").Int("h", r.height).Add("vc", "h264").Add("br", r.bitrate).
			Chain()
		variants[name] = transform.BuildAs(base, chain, "mp4")
	}
	return domain.Result{URL: master, Variants: variants}, nil
}
