package detector

import (
	"context"
	"errors"
	"image"
	"sync"
	"time"

	"github.com/disintegration/imaging"

	"github.com/GauravRai2002/ARBadminton/internal/geom"
)

var (
	// ErrModelBusy is returned when a previous inference has not finished yet.
	// The frame is dropped rather than queued.
	ErrModelBusy = errors.New("model busy")
	// ErrInferenceTimeout is returned when inference exceeds the configured wait.
	ErrInferenceTimeout = errors.New("inference timed out")
)

// RawOutput is the undecoded model output: one entry per anchor.
type RawOutput struct {
	// Boxes holds (cx, cy, w, h) in model input pixels.
	Boxes [][4]float32
	// Scores holds the per-class score vector of each anchor.
	Scores [][]float32
}

// Model runs a fixed-size neural detector.
type Model interface {
	// InputSize returns the resolution images must be resized to.
	InputSize() (width, height int)
	// Infer runs the network on an image already resized to InputSize.
	Infer(ctx context.Context, img image.Image) (RawOutput, error)
	// Close releases the network.
	Close() error
}

// RegionConfig configures decoding and suppression of model proposals.
type RegionConfig struct {
	ScoreThreshold   float64
	IoUThreshold     float64
	ClassID          int // -1 accepts every class
	MaxDetections    int
	InferenceTimeout time.Duration
}

// DefaultRegionConfig returns defaults matching common YOLO exports.
func DefaultRegionConfig() RegionConfig {
	return RegionConfig{
		ScoreThreshold:   0.35,
		IoUThreshold:     0.45,
		ClassID:          -1,
		MaxDetections:    10,
		InferenceTimeout: 150 * time.Millisecond,
	}
}

// Proposal is a decoded candidate box in frame pixels.
type Proposal struct {
	Box     geom.BoundingBox
	Score   float64
	ClassID int
}

// RegionProposal runs a Model over each frame and reduces its proposals
// with non-maximum suppression.
type RegionProposal struct {
	config RegionConfig
	model  Model
	busy   sync.Mutex
}

// NewRegionProposal creates a RegionProposal detector that owns model.
func NewRegionProposal(config RegionConfig, model Model) *RegionProposal {
	return &RegionProposal{config: config, model: model}
}

// Method implements Detector.
func (d *RegionProposal) Method() Method { return MethodMLModel }

type inferenceResult struct {
	out RawOutput
	err error
}

// Detect resizes frame to the model input, runs inference with a bounded
// wait and returns one observation per surviving box.
func (d *RegionProposal) Detect(frame *image.NRGBA, timestamp float64) ([]Observation, error) {
	if frame == nil {
		return nil, nil
	}
	if !d.busy.TryLock() {
		return nil, ErrModelBusy
	}

	iw, ih := d.model.InputSize()
	fw, fh := frame.Bounds().Dx(), frame.Bounds().Dy()
	input := imaging.Resize(frame, iw, ih, imaging.Linear)

	ctx, cancel := context.WithTimeout(context.Background(), d.config.InferenceTimeout)
	defer cancel()

	// Buffered so a late result never blocks the inference goroutine.
	results := make(chan inferenceResult, 1)
	go func() {
		defer d.busy.Unlock()
		out, err := d.model.Infer(ctx, input)
		results <- inferenceResult{out: out, err: err}
	}()

	var res inferenceResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, ErrInferenceTimeout
	}
	if res.err != nil {
		return nil, res.err
	}

	sx := float64(fw) / float64(iw)
	sy := float64(fh) / float64(ih)
	kept := NonMaxSuppression(Decode(res.out, d.config, sx, sy), d.config.IoUThreshold)
	if d.config.MaxDetections > 0 && len(kept) > d.config.MaxDetections {
		kept = kept[:d.config.MaxDetections]
	}

	observations := make([]Observation, len(kept))
	for i, p := range kept {
		observations[i] = Observation{
			ScreenPoint: p.Box.Center(),
			Box:         p.Box,
			Confidence:  p.Score,
			Timestamp:   timestamp,
			Method:      MethodMLModel,
		}
	}
	return observations, nil
}

// Decode picks the best class of every anchor, drops anchors under the score
// threshold and maps boxes from model input space into frame space.
func Decode(out RawOutput, config RegionConfig, sx, sy float64) []Proposal {
	n := len(out.Boxes)
	if len(out.Scores) < n {
		n = len(out.Scores)
	}

	proposals := make([]Proposal, 0)
	for i := 0; i < n; i++ {
		best, score := -1, float32(0)
		for c, s := range out.Scores[i] {
			if best < 0 || s > score {
				best, score = c, s
			}
		}
		if best < 0 || float64(score) < config.ScoreThreshold {
			continue
		}
		if config.ClassID >= 0 && best != config.ClassID {
			continue
		}

		cx, cy, w, h := float64(out.Boxes[i][0]), float64(out.Boxes[i][1]), float64(out.Boxes[i][2]), float64(out.Boxes[i][3])
		box := geom.BoxAround(geom.Point2{X: cx, Y: cy}, w, h).Scale(sx, sy)
		proposals = append(proposals, Proposal{Box: box, Score: float64(score), ClassID: best})
	}
	return proposals
}

// Close releases the model.
func (d *RegionProposal) Close() error {
	return d.model.Close()
}
