package intake

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/aktamov/davomat/core"
)

// ErrVerifyUnavailable means the video could not be fetched or classified at
// all; the submission must fall back to human review.
var ErrVerifyUnavailable = errors.New("automatic verification unavailable")

type (
	// Decision is the pipeline's verdict on one video.
	Decision struct {
		Approved   bool
		Confidence float64
		Reason     string
	}

	// Pipeline downloads a submitted video and runs it through the
	// classifier. It decides nothing about course state; callers act on the
	// Decision.
	Pipeline struct {
		fetch         core.MediaFetcher
		classify      core.VideoClassifier
		minConfidence float64
		logger        core.Logger
	}
)

func NewPipeline(fetch core.MediaFetcher, classify core.VideoClassifier, minConfidence float64, logger core.Logger) *Pipeline {
	return &Pipeline{fetch: fetch, classify: classify, minConfidence: minConfidence, logger: logger}
}

// Verify fetches the media and classifies it. An approval below the
// confidence floor is downgraded to not-approved so that borderline videos
// always reach a human. Infrastructure failures return ErrVerifyUnavailable.
func (p *Pipeline) Verify(mediaRef, contentType string) (Decision, error) {
	data, err := p.fetch.DownloadFile(mediaRef)
	if err != nil {
		p.logger.Warn(fmt.Sprintf("media download failed for %s", mediaRef), err)
		return Decision{}, errors.Wrap(ErrVerifyUnavailable, err.Error())
	}

	verdict, err := p.classify.Classify(data, contentType)
	if err != nil {
		p.logger.Warn(fmt.Sprintf("classification failed for %s", mediaRef), err)
		return Decision{}, errors.Wrap(ErrVerifyUnavailable, err.Error())
	}

	d := Decision{
		Approved:   verdict.Approved && verdict.Confidence >= p.minConfidence,
		Confidence: verdict.Confidence,
		Reason:     verdict.Reason,
	}
	if verdict.Approved && !d.Approved {
		d.Reason = fmt.Sprintf("confidence %.2f below threshold", verdict.Confidence)
	}
	return d, nil
}
