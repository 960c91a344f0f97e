package workflow

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/domain"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/infra"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/providers/cloudinary"
	"github.com/deangilmoreremix/videotoolbundle-sub000/internal/tools"
)

// Progress milestones of a run.
const (
	ProgressValidated      = 10
	ProgressUploadsStarted = 20
	ProgressUploaded       = 60
	ProgressComposing      = 90
	ProgressDone           = 100
)

// Uploader sends one file to the media host.
type Uploader interface {
	Upload(ctx context.Context, file domain.UploadFile, opts cloudinary.UploadOptions) (domain.MediaAsset, error)
}

// ProgressFunc receives milestone percentages. It may be called from several
// goroutines.
type ProgressFunc func(progress int)

// RunnerOptions configures a Runner.
type RunnerOptions struct {
	Uploader Uploader
	Logger   *infra.Logger
	// MaxParallelUploads bounds concurrent uploads of one run. Zero means one
	// goroutine per input.
	MaxParallelUploads int
}

// Runner executes validated tool runs.
type Runner struct {
	uploader Uploader
	logger   *infra.Logger
	limit    int
}

// NewRunner constructs a runner.
func NewRunner(opts RunnerOptions) *Runner {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Runner{uploader: opts.Uploader, logger: logger, limit: opts.MaxParallelUploads}
}

// Validate collects every input and settings error of a run request.
func Validate(tool tools.Tool, settings tools.Settings, files []domain.UploadFile) domain.ValidationErrors {
	errs := tool.CheckInputs(files)
	errs.Merge("", settings.Validate())
	return errs
}

// Execute validates, uploads every file concurrently, waits for all uploads to
// settle and composes the result. Validation failures return before any
// upload; upload failures return the first error and no result.
func (r *Runner) Execute(ctx context.Context, tool tools.Tool, settings tools.Settings, files []domain.UploadFile, progress ProgressFunc) (domain.Result, error) {
	if progress == nil {
		progress = func(int) {}
	}
	if err := Validate(tool, settings, files).Err(); err != nil {
		return domain.Result{}, err
	}
	progress(ProgressValidated)

	assets, err := r.uploadAll(ctx, tool, settings, files, progress)
	if err != nil {
		return domain.Result{}, err
	}
	progress(ProgressUploaded)

	if err := ctx.Err(); err != nil {
		return domain.Result{}, err
	}
	progress(ProgressComposing)
	res, err := settings.Compose(assets)
	if err != nil {
		return domain.Result{}, err
	}
	if res.Empty() {
		return domain.Result{}, &domain.CompositionError{Tool: tool.Name, Reason: "no result url"}
	}
	return res, nil
}

func (r *Runner) uploadAll(ctx context.Context, tool tools.Tool, settings tools.Settings, files []domain.UploadFile, progress ProgressFunc) ([]domain.MediaAsset, error) {
	var params map[string]string
	if p, ok := settings.(tools.UploadParamer); ok {
		params = p.UploadParams()
	}

	assets := make([]domain.MediaAsset, len(files))
	g, gctx := errgroup.WithContext(ctx)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}

	var mu sync.Mutex
	settled := 0
	step := func() {
		mu.Lock()
		settled++
		p := ProgressUploadsStarted + (ProgressUploaded-ProgressUploadsStarted)*settled/len(files)
		mu.Unlock()
		progress(p)
	}

	progress(ProgressUploadsStarted)
	for i, file := range files {
		opts := cloudinary.UploadOptions{ResourceType: slotType(tool, i), Params: params}
		g.Go(func() error {
			defer step()
			started := time.Now()
			asset, err := r.uploader.Upload(gctx, file, opts)
			if err != nil {
				r.logger.Warn().Err(err).Str("tool", tool.Name).Str("file", file.Name).Msg("workflow: upload failed")
				return err
			}
			r.logger.Debug().
				Str("tool", tool.Name).
				Str("public_id", asset.PublicID).
				Dur("elapsed", time.Since(started)).
				Msg("workflow: upload settled")
			assets[i] = asset
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assets, nil
}

// slotType returns the resource type declared for input i; extra inputs reuse
// the last slot.
func slotType(tool tools.Tool, i int) domain.ResourceType {
	if len(tool.Inputs) == 0 {
		return ""
	}
	if i >= len(tool.Inputs) {
		i = len(tool.Inputs) - 1
	}
	return tool.Inputs[i].ResourceType
}
