package ocr

import (
	"context"
	"fmt"
	"time"

	vision "cloud.google.com/go/vision/v2/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Veraticus/certcheck/internal/common"
)

// VisionEngine recognizes text with the Google Cloud Vision API.
type VisionEngine struct {
	client *vision.ImageAnnotatorClient
	retry  common.RetryPolicy
}

// NewVisionEngine creates a Vision client. With an empty credentialsFile the
// client uses Application Default Credentials.
func NewVisionEngine(ctx context.Context, credentialsFile string) (*VisionEngine, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: vision client: %v", common.ErrOCRUnavailable, err)
	}

	return &VisionEngine{
		client: client,
		retry: common.RetryPolicy{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
		},
	}, nil
}

// Name implements Engine.
func (e *VisionEngine) Name() string { return "vision" }

// Close releases the underlying connection.
func (e *VisionEngine) Close() error {
	return e.client.Close()
}

// Recognize implements Engine. Transient API failures are retried with backoff.
func (e *VisionEngine) Recognize(ctx context.Context, image []byte) (string, error) {
	img := &visionpb.Image{Content: image}

	var text string
	err := common.WithRetry(ctx, func() error {
		anns, err := e.client.DetectTexts(ctx, img, nil, 1)
		if err != nil {
			return classifyVisionError(err)
		}
		if len(anns) > 0 {
			text = anns[0].GetDescription()
		}
		return nil
	}, e.retry)
	if err != nil {
		return "", fmt.Errorf("detect text: %w", err)
	}
	return text, nil
}

func classifyVisionError(err error) error {
	switch status.Code(err) {
	case codes.ResourceExhausted:
		return fmt.Errorf("%w: %v", common.ErrRateLimit, err)
	case codes.Unavailable, codes.DeadlineExceeded, codes.Aborted:
		return &common.TransientError{Engine: "vision", Err: err}
	default:
		return err
	}
}
