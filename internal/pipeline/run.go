package pipeline

import (
	"context"
	"image"

	"github.com/ironsheep/dentalscan/internal/detection"
	"github.com/ironsheep/dentalscan/internal/report"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// run is the state of one Pipeline.Run call.
type run struct {
	p     *Pipeline
	id    string
	stage Stage
	log   logrus.FieldLogger
}

// advance moves the state machine forward and logs the transition.
func (r *run) advance(next Stage, count int) {
	if !r.stage.canAdvance(next) {
		panic("pipeline: illegal transition from " + r.stage.String() + " to " + next.String())
	}
	r.log.WithFields(logrus.Fields{
		"stage": next.String(),
		"from":  r.stage.String(),
		"count": count,
	}).Debug("stage transition")
	r.stage = next
}

func (r *run) fail(err error) {
	fields := logrus.Fields{"stage": r.stage.String()}
	var se *StageError
	if errors.As(err, &se) {
		fields["stage"] = se.Stage.String()
	}
	r.log.WithFields(fields).WithError(err).Error("analysis failed")
	r.stage = Failed
}

func (r *run) analyze(ctx context.Context, img image.Image) (*report.Report, error) {
	candidates := r.detect(ctx, img)

	r.advance(BinaryFilter, len(candidates))
	teeth, err := r.withTimeout(ctx, func(sctx context.Context) ([]detection.Candidate, error) {
		return r.p.deps.Filter.Filter(sctx, candidates)
	})
	if err != nil {
		return nil, &StageError{Stage: BinaryFilter, Err: err}
	}

	r.advance(Deduplicate, len(teeth))
	unique, err := detection.Deduplicate(teeth, r.p.opts.Dedup)
	if err != nil {
		return nil, &StageError{Stage: Deduplicate, Err: err}
	}

	r.advance(Classify, len(unique))
	classified, err := r.classify(ctx, unique)
	if err != nil {
		return nil, &StageError{Stage: Classify, Err: err}
	}

	r.advance(Aggregate, len(classified))
	rep := report.Build(img, classified)
	rep.ImageText = r.readText(ctx, img)
	return rep, nil
}

// detect never fails: detector errors are logged and yield no candidates.
func (r *run) detect(ctx context.Context, img image.Image) []detection.Candidate {
	r.advance(Detect, 0)
	candidates, err := r.withTimeout(ctx, func(sctx context.Context) ([]detection.Candidate, error) {
		return r.p.deps.Candidates.Candidates(sctx, img)
	})
	if err != nil {
		r.log.WithError(err).Warn("detection failed, continuing with no candidates")
		return nil
	}
	if len(candidates) == 0 {
		r.log.Info("no candidates detected")
	}
	return candidates
}

func (r *run) classify(ctx context.Context, candidates []detection.Candidate) ([]report.Tooth, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	crops := make([]image.Image, len(candidates))
	for i, c := range candidates {
		crops[i] = c.Crop
	}

	sctx, cancel := r.p.stageContext(ctx)
	defer cancel()
	preds, err := r.p.deps.Classifier.ClassifyAll(sctx, crops)
	if err != nil {
		return nil, err
	}
	if len(preds) != len(candidates) {
		return nil, errors.Wrapf(ErrShapeMismatch, "got %d predictions for %d crops", len(preds), len(candidates))
	}

	teeth := make([]report.Tooth, len(candidates))
	for i, c := range candidates {
		teeth[i] = report.NewTooth(c, preds[i])
	}
	return teeth, nil
}

// readText runs OCR if configured. OCR failures only lose the text.
func (r *run) readText(ctx context.Context, img image.Image) string {
	if r.p.deps.OCR == nil {
		return ""
	}
	sctx, cancel := r.p.stageContext(ctx)
	defer cancel()

	text, err := r.p.deps.OCR.ReadText(sctx, img)
	if err != nil {
		r.log.WithError(err).Warn("label OCR failed")
		return ""
	}
	return text
}

// saveCrops keeps the tooth crops next to the stored upload. Failures are
// logged only; the analysis has already been committed.
func (r *run) saveCrops(stored string, teeth []report.Tooth) {
	saver, ok := r.p.deps.Storage.(CropSaver)
	if !r.p.opts.SaveCrops || !ok || len(teeth) == 0 {
		return
	}
	crops := make([]image.Image, len(teeth))
	for i, t := range teeth {
		crops[i] = t.Crop
	}
	if _, err := saver.SaveCrops(stored, crops); err != nil {
		r.log.WithError(err).Warn("failed to save tooth crops")
	}
}

func (r *run) withTimeout(ctx context.Context, fn func(context.Context) ([]detection.Candidate, error)) ([]detection.Candidate, error) {
	sctx, cancel := r.p.stageContext(ctx)
	defer cancel()
	return fn(sctx)
}
