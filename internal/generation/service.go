// Package generation orchestrates the try-on pipeline: stage both images,
// submit the job, poll it to a terminal state, and classify the outcome.
package generation

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/acharya-09/cameleon-tryon/internal/tryon"
	"github.com/acharya-09/cameleon-tryon/internal/upload"
)

// Uploader stages one image payload to a publicly fetchable URL.
type Uploader interface {
	Upload(ctx context.Context, data []byte, filename string) (upload.Asset, error)
}

// JobPoller drives a submitted job to a terminal outcome.
type JobPoller interface {
	Wait(ctx context.Context, jobID string) (tryon.Outcome, error)
}

// Compile-time checks that the production implementations satisfy the ports.
var (
	_ Uploader  = (*upload.Chain)(nil)
	_ JobPoller = (*tryon.Poller)(nil)
)

// Input contains one inbound generation request.
type Input struct {
	// RequestID is the correlation ID assigned to this request.
	RequestID string
	// Subject is the person photo payload.
	Subject []byte
	// SubjectName is the uploaded filename of the subject photo.
	SubjectName string
	// Garment is the clothing photo payload.
	Garment []byte
	// GarmentName is the uploaded filename of the garment photo.
	GarmentName string
	// SwapType selects which garment region to replace.
	SwapType string
}

// Result is the successful outcome of a generation request.
type Result struct {
	// ImageURL is the public URL of the generated composite image.
	ImageURL string
	// Elapsed is the total pipeline time.
	Elapsed time.Duration
}

// Service runs the generation pipeline. At most one backend job is active per
// inbound request; the two input uploads run concurrently with each other.
type Service struct {
	uploader Uploader
	client   tryon.Client
	poller   JobPoller
	records  *RecordStore
	logger   *slog.Logger
	premium  bool
}

// ServiceOption is a function that configures a Service.
type ServiceOption func(*Service)

// WithPremium sets the opaque premium passthrough flag on every submission.
func WithPremium(premium bool) ServiceOption {
	return func(s *Service) {
		s.premium = premium
	}
}

// NewService creates a generation Service.
func NewService(uploader Uploader, client tryon.Client, poller JobPoller, records *RecordStore, logger *slog.Logger, opts ...ServiceOption) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		uploader: uploader,
		client:   client,
		poller:   poller,
		records:  records,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Records exposes the record store for the lookup endpoint.
func (s *Service) Records() *RecordStore {
	return s.records
}

// stagedUpload is the fan-in result of one concurrent upload.
type stagedUpload struct {
	role  string
	asset upload.Asset
	err   error
}

// Generate runs the full pipeline for one request.
// The caller is expected to pass a context that survives client disconnects;
// Generate itself finishes the poll and records the result either way.
func (s *Service) Generate(ctx context.Context, in Input) (Result, error) {
	start := time.Now()

	s.records.Put(Record{
		ID:        in.RequestID,
		Status:    RecordRunning,
		SwapType:  in.SwapType,
		CreatedAt: start,
	})

	subject, garment, err := s.stageImages(ctx, in)
	if err != nil {
		return Result{}, s.fail(in, start, 0, err)
	}

	s.logger.Info("images staged",
		slog.String("request_id", in.RequestID),
		slog.String("subject_provider", subject.Provider),
		slog.String("garment_provider", garment.Provider),
	)

	outcome, err := s.client.Submit(ctx, tryon.SubmitInput{
		RequestID:     in.RequestID,
		ModelImageURL: subject.URL,
		ClothImageURL: garment.URL,
		SwapType:      in.SwapType,
		Premium:       s.premium,
	})
	if err != nil {
		return Result{}, s.fail(in, start, 0, fmt.Errorf("submit job: %w", err))
	}

	if outcome.Immediate() {
		s.logger.Info("job completed on submit, no polling needed",
			slog.String("request_id", in.RequestID),
		)
		return s.succeed(in, start, 0, outcome.ImageURL), nil
	}

	s.logger.Info("job started, polling",
		slog.String("request_id", in.RequestID),
		slog.String("job_id", outcome.JobID),
	)

	polled, err := s.poller.Wait(ctx, outcome.JobID)
	if err != nil {
		return Result{}, s.fail(in, start, 0, fmt.Errorf("poll job %s: %w", outcome.JobID, err))
	}

	switch polled.Status {
	case tryon.StatusCompleted:
		return s.succeed(in, start, polled.Attempts, polled.ImageURL), nil

	case tryon.StatusTimedOut:
		return Result{}, s.fail(in, start, polled.Attempts,
			fmt.Errorf("%w: job %s still pending after %s", ErrTimedOut, outcome.JobID, polled.Elapsed.Round(time.Second)))

	case tryon.StatusCancelled:
		return Result{}, s.fail(in, start, polled.Attempts,
			fmt.Errorf("job %s: %w", outcome.JobID, tryon.ErrJobCancelled))

	default:
		if polled.Reason != "" {
			return Result{}, s.fail(in, start, polled.Attempts,
				fmt.Errorf("job %s: %w: %s", outcome.JobID, tryon.ErrJobFailed, polled.Reason))
		}
		return Result{}, s.fail(in, start, polled.Attempts,
			fmt.Errorf("job %s: %w", outcome.JobID, tryon.ErrJobFailed))
	}
}

// stageImages uploads the subject and garment concurrently. Both must succeed.
func (s *Service) stageImages(ctx context.Context, in Input) (subject, garment upload.Asset, err error) {
	results := make(chan stagedUpload, 2)

	go func() {
		asset, uploadErr := s.uploader.Upload(ctx, in.Subject, in.SubjectName)
		results <- stagedUpload{role: "subject", asset: asset, err: uploadErr}
	}()
	go func() {
		asset, uploadErr := s.uploader.Upload(ctx, in.Garment, in.GarmentName)
		results <- stagedUpload{role: "garment", asset: asset, err: uploadErr}
	}()

	var firstErr error
	for i := 0; i < 2; i++ {
		r := <-results
		if r.err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("stage %s image: %w", r.role, r.err)
			}
			continue
		}
		if r.role == "subject" {
			subject = r.asset
		} else {
			garment = r.asset
		}
	}
	if firstErr != nil {
		return upload.Asset{}, upload.Asset{}, firstErr
	}
	return subject, garment, nil
}

// succeed finalizes the record and builds the result.
func (s *Service) succeed(in Input, start time.Time, attempts int, imageURL string) Result {
	elapsed := time.Since(start)
	s.records.Put(Record{
		ID:          in.RequestID,
		Status:      RecordSucceeded,
		ImageURL:    imageURL,
		SwapType:    in.SwapType,
		Attempts:    attempts,
		Elapsed:     elapsed,
		CreatedAt:   start,
		CompletedAt: time.Now(),
	})
	return Result{ImageURL: imageURL, Elapsed: elapsed}
}

// fail classifies the error, finalizes the record, and passes the error on.
func (s *Service) fail(in Input, start time.Time, attempts int, err error) error {
	kind := Classify(err)
	s.records.Put(Record{
		ID:          in.RequestID,
		Status:      RecordFailed,
		ErrorKind:   kind,
		Detail:      err.Error(),
		SwapType:    in.SwapType,
		Attempts:    attempts,
		Elapsed:     time.Since(start),
		CreatedAt:   start,
		CompletedAt: time.Now(),
	})
	s.logger.Error("generation failed",
		slog.String("request_id", in.RequestID),
		slog.String("kind", string(kind)),
		slog.String("error", err.Error()),
	)
	return err
}
