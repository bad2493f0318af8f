package pipeline

import (
	"context"
	"image"
	"time"

	"github.com/google/uuid"
	"github.com/ironsheep/dentalscan/internal/detection"
	"github.com/ironsheep/dentalscan/internal/imaging"
	"github.com/ironsheep/dentalscan/internal/model"
	"github.com/ironsheep/dentalscan/internal/report"
	"github.com/ironsheep/dentalscan/internal/storage"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// CandidateSource produces ranked candidates with crops for a radiograph.
type CandidateSource interface {
	Candidates(ctx context.Context, img image.Image) ([]detection.Candidate, error)
}

// CandidateFilter drops candidates that are not teeth.
type CandidateFilter interface {
	Filter(ctx context.Context, candidates []detection.Candidate) ([]detection.Candidate, error)
}

// CropClassifier labels tooth crops.
type CropClassifier interface {
	Classify(ctx context.Context, crop image.Image) (model.Prediction, error)
	ClassifyAll(ctx context.Context, crops []image.Image) ([]model.Prediction, error)
}

// TextReader reads text burned into a radiograph.
type TextReader interface {
	ReadText(ctx context.Context, img image.Image) (string, error)
}

// CropSaver stores tooth crops next to a persisted upload.
type CropSaver interface {
	SaveCrops(persisted string, crops []image.Image) ([]string, error)
}

// Deps are the collaborators of a Pipeline. Candidates, Filter, Classifier
// and Storage are required.
type Deps struct {
	Candidates CandidateSource
	Filter     CandidateFilter
	Classifier CropClassifier
	Storage    storage.Storage

	// OCR is optional. When set, its text is attached to the report.
	OCR TextReader

	// Log defaults to the logrus standard logger.
	Log logrus.FieldLogger
}

// Options tune a Pipeline.
type Options struct {
	Dedup detection.Options

	// StageTimeout bounds every collaborator call. Zero disables the bound.
	StageTimeout time.Duration

	// SaveCrops stores the kept tooth crops next to the persisted upload when
	// Storage implements CropSaver.
	SaveCrops bool
}

// Upload is one radiograph submitted for analysis.
type Upload struct {
	Name string
	Data []byte
}

// Pipeline runs the detect, filter, deduplicate, classify and aggregate
// stages for one radiograph at a time. A Pipeline holds no per-request state
// and may be shared between goroutines as long as its collaborators can.
type Pipeline struct {
	deps Deps
	opts Options
}

// New creates a Pipeline.
func New(deps Deps, opts Options) (*Pipeline, error) {
	switch {
	case deps.Candidates == nil:
		return nil, errors.New("pipeline: candidate source is required")
	case deps.Filter == nil:
		return nil, errors.New("pipeline: tooth filter is required")
	case deps.Classifier == nil:
		return nil, errors.New("pipeline: classifier is required")
	case deps.Storage == nil:
		return nil, errors.New("pipeline: storage is required")
	}
	if deps.Log == nil {
		deps.Log = logrus.StandardLogger()
	}
	if _, err := detection.ParseMethod(string(opts.Dedup.Method)); err != nil {
		return nil, errors.Wrap(err, "pipeline")
	}
	return &Pipeline{deps: deps, opts: opts}, nil
}

// Render turns a finished report into a transport payload. It runs before
// the upload is persisted; an error aborts the run and discards the upload.
type Render func(rep *report.Report) error

// Run analyses one upload. It is RunRender without a render step.
func (p *Pipeline) Run(ctx context.Context, up Upload) (*report.Report, error) {
	return p.RunRender(ctx, up, nil)
}

// RunRender analyses one upload.
//
// The upload is decoded and written to transient storage before any stage
// runs. It is promoted to permanent storage only after every stage, and
// render when it is non-nil, has succeeded; on any failure it is removed.
// The report passed to render carries its RequestID but not yet its
// StoredPath.
//
// A detector failure or an empty detection is not an error: the report is
// built from zero teeth. Failures in later stages are returned as
// *StageError, and undecodable uploads as *InputError.
func (p *Pipeline) RunRender(ctx context.Context, up Upload, render Render) (*report.Report, error) {
	img, _, err := imaging.Decode(up.Data)
	if err != nil {
		return nil, &InputError{Err: err}
	}

	r := &run{
		p:     p,
		id:    uuid.NewString(),
		stage: Received,
	}
	r.log = p.deps.Log.WithField("request_id", r.id)

	tempPath, err := p.deps.Storage.SaveTransient(up.Name, up.Data)
	if err != nil {
		r.log.WithError(err).Error("failed to store upload")
		return nil, errors.Wrap(err, "store upload")
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		if err := p.deps.Storage.Discard(tempPath); err != nil {
			r.log.WithError(err).Warn("failed to discard upload")
		}
	}()

	rep, err := r.analyze(ctx, img)
	if err != nil {
		r.fail(err)
		return nil, err
	}
	rep.RequestID = r.id

	if render != nil {
		if err := render(rep); err != nil {
			err = &StageError{Stage: Aggregate, Err: errors.Wrap(err, "render report")}
			r.fail(err)
			return nil, err
		}
	}

	stored, err := p.deps.Storage.Persist(tempPath)
	if err != nil {
		err = &StageError{Stage: Aggregate, Err: errors.Wrap(err, "persist upload")}
		r.fail(err)
		return nil, err
	}
	committed = true

	rep.StoredPath = stored
	r.saveCrops(stored, rep.Teeth)

	r.advance(Done, len(rep.Teeth))
	return rep, nil
}

// ClassifyCrop labels a single, already cropped tooth image without running
// detection or deduplication.
func (p *Pipeline) ClassifyCrop(ctx context.Context, data []byte) (model.Prediction, error) {
	img, _, err := imaging.Decode(data)
	if err != nil {
		return model.Prediction{}, &InputError{Err: err}
	}

	sctx, cancel := p.stageContext(ctx)
	defer cancel()

	pred, err := p.deps.Classifier.Classify(sctx, img)
	if err != nil {
		p.deps.Log.WithError(err).Error("crop classification failed")
		return model.Prediction{}, &StageError{Stage: Classify, Err: err}
	}
	return pred, nil
}

func (p *Pipeline) stageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.opts.StageTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.opts.StageTimeout)
}
