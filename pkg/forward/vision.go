package forward

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tauraamui/dragondoorbell/pkg/camera"
	"github.com/tauraamui/dragondoorbell/pkg/display"
	"github.com/tauraamui/dragondoorbell/pkg/log"
	"github.com/tauraamui/dragondoorbell/pkg/video/videoframe"
	"github.com/tauraamui/xerror"
	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"
)

const maxLabels = 10

type Label struct {
	Description string
	Score       float64
}

func (l Label) String() string {
	return fmt.Sprintf("%s (%.2f)", l.Description, l.Score)
}

// Vision asks Cloud Vision what is at the door.
type Vision struct {
	service *vision.Service
}

func NewVision(ctx context.Context, apiKey string, opts ...option.ClientOption) (*Vision, error) {
	if len(apiKey) > 0 {
		opts = append([]option.ClientOption{option.WithAPIKey(apiKey)}, opts...)
	}
	svc, err := vision.NewService(ctx, opts...)
	if err != nil {
		return nil, xerror.Errorf("unable to create vision client: %w", err)
	}
	return &Vision{service: svc}, nil
}

func (f *Vision) Name() string { return "vision" }

func (f *Vision) Forward(ctx context.Context, still camera.Still) error {
	labels, err := f.Annotate(ctx, still)
	if err != nil {
		return err
	}
	if len(labels) == 0 {
		log.Info("Nothing recognised in capture [%s]", still.RequestID)
		return nil
	}
	descriptions := make([]string, 0, len(labels))
	for _, l := range labels {
		descriptions = append(descriptions, l.String())
	}
	log.Info("Capture [%s] shows: %s", still.RequestID, strings.Join(descriptions, ", "))
	return nil
}

// Annotate runs label detection over still, which is re-encoded as
// JPEG first when it holds raw pixels.
func (f *Vision) Annotate(ctx context.Context, still camera.Still) ([]Label, error) {
	content, err := jpegBytes(still)
	if err != nil {
		return nil, err
	}

	batch := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{{
			Image:    &vision.Image{Content: base64.StdEncoding.EncodeToString(content)},
			Features: []*vision.Feature{{Type: "LABEL_DETECTION", MaxResults: maxLabels}},
		}},
	}
	resp, err := f.service.Images.Annotate(batch).Context(ctx).Do()
	if err != nil {
		return nil, xerror.Errorf("vision annotate request failed: %w", err)
	}
	if len(resp.Responses) == 0 {
		return nil, nil
	}

	r := resp.Responses[0]
	if r.Error != nil {
		return nil, xerror.Errorf("vision annotate failed: %s", r.Error.Message)
	}
	labels := make([]Label, 0, len(r.LabelAnnotations))
	for _, a := range r.LabelAnnotations {
		labels = append(labels, Label{Description: a.Description, Score: a.Score})
	}
	return labels, nil
}

func (f *Vision) Close() error { return nil }

func jpegBytes(still camera.Still) ([]byte, error) {
	if still.Format == videoframe.JPEG {
		return still.Data, nil
	}
	img, err := display.Decode(still)
	if err != nil {
		return nil, err
	}
	return videoframe.Encode(img, videoframe.JPEG)
}
