package transcoder

import (
	"context"
	"errors"
	"fmt"
	"strings"

	transcoderapi "cloud.google.com/go/video/transcoder/apiv1"
	"cloud.google.com/go/video/transcoder/apiv1/transcoderpb"

	"foreverstream/internal/streamplan"
)

// GCPBackend submits jobs to the Cloud Transcoder API.
type GCPBackend struct {
	client *transcoderapi.Client
	parent string
}

// NewGCPBackend dials the Transcoder API. parent is the location resource,
// projects/<project>/locations/<region>.
func NewGCPBackend(ctx context.Context, parent string) (*GCPBackend, error) {
	if strings.TrimSpace(parent) == "" {
		return nil, errors.New("transcoder: location parent is required")
	}
	client, err := transcoderapi.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create transcoder client: %w", err)
	}
	return &GCPBackend{client: client, parent: parent}, nil
}

// Close releases the underlying gRPC connection.
func (b *GCPBackend) Close() error {
	if b == nil || b.client == nil {
		return nil
	}
	return b.client.Close()
}

// CreateJob submits the plan and returns the job resource name.
func (b *GCPBackend) CreateJob(ctx context.Context, req JobRequest) (string, error) {
	job, err := b.client.CreateJob(ctx, &transcoderpb.CreateJobRequest{
		Parent: b.parent,
		Job: &transcoderpb.Job{
			InputUri:  req.InputURI,
			OutputUri: req.OutputURI,
			JobConfig: &transcoderpb.Job_Config{Config: jobConfig(req.Plan)},
		},
	})
	if err != nil {
		return "", err
	}
	return job.GetName(), nil
}

// GetJob fetches the job state.
func (b *GCPBackend) GetJob(ctx context.Context, name string) (JobStatus, error) {
	job, err := b.client.GetJob(ctx, &transcoderpb.GetJobRequest{Name: name})
	if err != nil {
		return JobStatus{}, err
	}
	return JobStatus{
		Name:         job.GetName(),
		State:        jobState(job.GetState()),
		ErrorMessage: job.GetError().GetMessage(),
	}, nil
}

func jobState(state transcoderpb.Job_ProcessingState) JobState {
	switch state {
	case transcoderpb.Job_PENDING:
		return JobStatePending
	case transcoderpb.Job_RUNNING:
		return JobStateRunning
	case transcoderpb.Job_SUCCEEDED:
		return JobStateSucceeded
	case transcoderpb.Job_FAILED:
		return JobStateFailed
	default:
		return JobStateUnknown
	}
}

// jobConfig converts a validated plan into the API's typed job config.
func jobConfig(plan streamplan.Plan) *transcoderpb.JobConfig {
	cfg := &transcoderpb.JobConfig{
		ElementaryStreams: make([]*transcoderpb.ElementaryStream, 0, len(plan.ElementaryStreams)),
		MuxStreams:        make([]*transcoderpb.MuxStream, 0, len(plan.MuxStreams)),
		Manifests:         make([]*transcoderpb.Manifest, 0, len(plan.Manifests)),
	}
	for _, es := range plan.ElementaryStreams {
		switch {
		case es.Video != nil:
			v := es.Video
			cfg.ElementaryStreams = append(cfg.ElementaryStreams, &transcoderpb.ElementaryStream{
				Key: es.Key,
				ElementaryStream: &transcoderpb.ElementaryStream_VideoStream{
					VideoStream: &transcoderpb.VideoStream{
						CodecSettings: &transcoderpb.VideoStream_H264{
							H264: &transcoderpb.VideoStream_H264CodecSettings{
								WidthPixels:     int32(v.Width),
								HeightPixels:    int32(v.Height),
								BitrateBps:      int32(v.Bitrate),
								FrameRate:       v.FrameRate,
								Profile:         v.Profile,
								Preset:          v.Preset,
								RateControlMode: v.RateControlMode,
								Tune:            v.Tune,
							},
						},
					},
				},
			})
		case es.Audio != nil:
			a := es.Audio
			cfg.ElementaryStreams = append(cfg.ElementaryStreams, &transcoderpb.ElementaryStream{
				Key: es.Key,
				ElementaryStream: &transcoderpb.ElementaryStream_AudioStream{
					AudioStream: &transcoderpb.AudioStream{
						Codec:           a.Codec,
						BitrateBps:      int32(a.Bitrate),
						SampleRateHertz: int32(a.SampleRate),
					},
				},
			})
		}
	}
	for _, ms := range plan.MuxStreams {
		cfg.MuxStreams = append(cfg.MuxStreams, &transcoderpb.MuxStream{
			Key:               ms.Key,
			Container:         ms.Container,
			ElementaryStreams: append([]string(nil), ms.ElementaryStreams...),
		})
	}
	for _, m := range plan.Manifests {
		cfg.Manifests = append(cfg.Manifests, &transcoderpb.Manifest{
			FileName:   m.FileName,
			Type:       manifestType(m.Type),
			MuxStreams: append([]string(nil), m.MuxStreams...),
		})
	}
	return cfg
}

func manifestType(value string) transcoderpb.Manifest_ManifestType {
	switch strings.ToUpper(value) {
	case streamplan.ManifestTypeDASH:
		return transcoderpb.Manifest_DASH
	case "HLS":
		return transcoderpb.Manifest_HLS
	default:
		return transcoderpb.Manifest_MANIFEST_TYPE_UNSPECIFIED
	}
}
