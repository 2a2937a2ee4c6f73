// Package streamplan turns a rendition ladder into the elementary stream, mux
// stream, and manifest description a transcoding backend consumes.
package streamplan

import (
	"errors"
	"fmt"

	"foreverstream/internal/ladder"
)

// ManifestFileName is the adaptive-streaming manifest every managed job writes.
// Completion handling keys off this exact name.
const ManifestFileName = "manifest.mpd"

// Video settings shared by every rendition's elementary stream.
const (
	// VideoCodecH264 selects the H.264 encoder.
	VideoCodecH264 = "h264"
	// VideoFrameRate is the output frame rate in frames per second.
	VideoFrameRate = 60.0
	// VideoProfile is the H.264 profile.
	VideoProfile = "high"
	// VideoPreset trades encode speed for compression.
	VideoPreset = "veryfast"
	// VideoRateControl is the rate control mode; bitrate comes from the rendition.
	VideoRateControl = "vbr"
	// VideoTune is the encoder tuning.
	VideoTune = "zerolatency"
)

// Audio settings for the single shared audio stream.
const (
	// AudioStreamKey names the audio elementary stream.
	AudioStreamKey = "audio-stream"
	// AudioMuxKey names the audio mux stream listed in the manifest.
	AudioMuxKey = "audio"
	// AudioCodecAAC selects the AAC encoder.
	AudioCodecAAC = "aac"
	// AudioBitrate is the audio bitrate in bits per second.
	AudioBitrate = 128_000
	// AudioSampleRate is the audio sample rate in hertz.
	AudioSampleRate = 48_000
)

// Container and manifest settings.
const (
	// ContainerFMP4 is the fragmented MP4 container used by every mux stream.
	ContainerFMP4 = "fmp4"
	// ManifestTypeDASH is the manifest format written as ManifestFileName.
	ManifestTypeDASH = "DASH"

	videoStreamKeyStart = "video-"
)

var (
	// ErrEmptyLadder is returned when Build receives no renditions.
	ErrEmptyLadder = errors.New("empty ladder")
	// ErrInvalidPlan marks plans that fail local validation.
	ErrInvalidPlan = errors.New("invalid stream plan")
)

// VideoStream carries the H.264 settings for one rendition.
type VideoStream struct {
	Codec           string  `json:"codec"`
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	Bitrate         int     `json:"bitrateBps"`
	FrameRate       float64 `json:"frameRate"`
	Profile         string  `json:"profile"`
	Preset          string  `json:"preset"`
	RateControlMode string  `json:"rateControlMode"`
	Tune            string  `json:"tune"`
}

// AudioStream carries the fixed audio encode settings.
type AudioStream struct {
	Codec      string `json:"codec"`
	Bitrate    int    `json:"bitrateBps"`
	SampleRate int    `json:"sampleRateHertz"`
}

// ElementaryStream is a single encoded track. Exactly one of Video or Audio is set.
type ElementaryStream struct {
	Key   string       `json:"key"`
	Video *VideoStream `json:"videoStream,omitempty"`
	Audio *AudioStream `json:"audioStream,omitempty"`
}

// MuxStream packages elementary streams into a container.
type MuxStream struct {
	Key               string   `json:"key"`
	Container         string   `json:"container"`
	ElementaryStreams []string `json:"elementaryStreams"`
}

// Manifest lists the mux streams a player may switch between.
type Manifest struct {
	FileName   string   `json:"fileName"`
	Type       string   `json:"type"`
	MuxStreams []string `json:"muxStreams"`
}

// Plan is the complete backend job description.
type Plan struct {
	ElementaryStreams []ElementaryStream `json:"elementaryStreams"`
	MuxStreams        []MuxStream        `json:"muxStreams"`
	Manifests         []Manifest         `json:"manifests"`
}

// VideoStreamKey returns the elementary stream key for a rendition.
func VideoStreamKey(r ladder.Rendition) string {
	return videoStreamKeyStart + r.Key()
}

// Build assembles and validates the plan for the given ladder.
func Build(renditions []ladder.Rendition) (Plan, error) {
	if len(renditions) == 0 {
		return Plan{}, ErrEmptyLadder
	}

	plan := Plan{
		ElementaryStreams: make([]ElementaryStream, 0, len(renditions)+1),
		MuxStreams:        make([]MuxStream, 0, len(renditions)+1),
	}
	manifest := Manifest{
		FileName:   ManifestFileName,
		Type:       ManifestTypeDASH,
		MuxStreams: make([]string, 0, len(renditions)+1),
	}

	for _, r := range renditions {
		key := VideoStreamKey(r)
		plan.ElementaryStreams = append(plan.ElementaryStreams, ElementaryStream{
			Key: key,
			Video: &VideoStream{
				Codec:           VideoCodecH264,
				Width:           r.Width,
				Height:          r.Height,
				Bitrate:         r.Bitrate,
				FrameRate:       VideoFrameRate,
				Profile:         VideoProfile,
				Preset:          VideoPreset,
				RateControlMode: VideoRateControl,
				Tune:            VideoTune,
			},
		})
		plan.MuxStreams = append(plan.MuxStreams, MuxStream{
			Key:               r.Key(),
			Container:         ContainerFMP4,
			ElementaryStreams: []string{key},
		})
		manifest.MuxStreams = append(manifest.MuxStreams, r.Key())
	}

	plan.ElementaryStreams = append(plan.ElementaryStreams, ElementaryStream{
		Key: AudioStreamKey,
		Audio: &AudioStream{
			Codec:      AudioCodecAAC,
			Bitrate:    AudioBitrate,
			SampleRate: AudioSampleRate,
		},
	})
	plan.MuxStreams = append(plan.MuxStreams, MuxStream{
		Key:               AudioMuxKey,
		Container:         ContainerFMP4,
		ElementaryStreams: []string{AudioStreamKey},
	})
	manifest.MuxStreams = append(manifest.MuxStreams, AudioMuxKey)
	plan.Manifests = []Manifest{manifest}

	if err := plan.Validate(); err != nil {
		return Plan{}, err
	}
	return plan, nil
}

// Validate checks the structural invariants a backend relies on.
func (p Plan) Validate() error {
	if len(p.ElementaryStreams) == 0 {
		return invalid("no elementary streams")
	}
	if len(p.MuxStreams) == 0 {
		return invalid("no mux streams")
	}
	if len(p.Manifests) != 1 {
		return invalid("expected exactly one manifest, got %d", len(p.Manifests))
	}

	elementary := make(map[string]int, len(p.ElementaryStreams))
	videoCount, audioCount := 0, 0
	for _, es := range p.ElementaryStreams {
		if es.Key == "" {
			return invalid("elementary stream with empty key")
		}
		if _, dup := elementary[es.Key]; dup {
			return invalid("duplicate elementary stream %q", es.Key)
		}
		elementary[es.Key] = 0
		switch {
		case es.Video != nil && es.Audio != nil:
			return invalid("elementary stream %q sets both video and audio", es.Key)
		case es.Video != nil:
			if err := es.Video.validate(es.Key); err != nil {
				return err
			}
			videoCount++
		case es.Audio != nil:
			if err := es.Audio.validate(es.Key); err != nil {
				return err
			}
			audioCount++
		default:
			return invalid("elementary stream %q has no settings", es.Key)
		}
	}
	if videoCount == 0 {
		return invalid("no video streams")
	}
	if audioCount != 1 {
		return invalid("expected exactly one audio stream, got %d", audioCount)
	}

	mux := make(map[string]int, len(p.MuxStreams))
	for _, ms := range p.MuxStreams {
		if ms.Key == "" {
			return invalid("mux stream with empty key")
		}
		if _, dup := mux[ms.Key]; dup {
			return invalid("duplicate mux stream %q", ms.Key)
		}
		mux[ms.Key] = 0
		if ms.Container != ContainerFMP4 {
			return invalid("mux stream %q uses unsupported container %q", ms.Key, ms.Container)
		}
		if len(ms.ElementaryStreams) == 0 {
			return invalid("mux stream %q references no elementary streams", ms.Key)
		}
		for _, ref := range ms.ElementaryStreams {
			count, ok := elementary[ref]
			if !ok {
				return invalid("mux stream %q references unknown elementary stream %q", ms.Key, ref)
			}
			elementary[ref] = count + 1
		}
	}
	for key, count := range elementary {
		if count != 1 {
			return invalid("elementary stream %q referenced by %d mux streams", key, count)
		}
	}

	manifest := p.Manifests[0]
	if manifest.FileName != ManifestFileName {
		return invalid("manifest file name %q, want %q", manifest.FileName, ManifestFileName)
	}
	if manifest.Type != ManifestTypeDASH {
		return invalid("unsupported manifest type %q", manifest.Type)
	}
	for _, ref := range manifest.MuxStreams {
		count, ok := mux[ref]
		if !ok {
			return invalid("manifest references unknown mux stream %q", ref)
		}
		mux[ref] = count + 1
	}
	for key, count := range mux {
		if count != 1 {
			return invalid("mux stream %q referenced by manifest %d times", key, count)
		}
	}
	return nil
}

// VideoStreams returns the video elementary streams in ladder order.
func (p Plan) VideoStreams() []ElementaryStream {
	out := make([]ElementaryStream, 0, len(p.ElementaryStreams))
	for _, es := range p.ElementaryStreams {
		if es.Video != nil {
			out = append(out, es)
		}
	}
	return out
}

func (v *VideoStream) validate(key string) error {
	if v.Codec != VideoCodecH264 {
		return invalid("video stream %q uses unsupported codec %q", key, v.Codec)
	}
	if v.Width <= 0 || v.Height <= 0 {
		return invalid("video stream %q has invalid size %dx%d", key, v.Width, v.Height)
	}
	if v.Bitrate <= 0 {
		return invalid("video stream %q has invalid bitrate %d", key, v.Bitrate)
	}
	if v.FrameRate <= 0 {
		return invalid("video stream %q has invalid frame rate %v", key, v.FrameRate)
	}
	return nil
}

func (a *AudioStream) validate(key string) error {
	if a.Codec != AudioCodecAAC {
		return invalid("audio stream %q uses unsupported codec %q", key, a.Codec)
	}
	if a.Bitrate <= 0 || a.SampleRate <= 0 {
		return invalid("audio stream %q has invalid bitrate or sample rate", key)
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPlan, fmt.Sprintf(format, args...))
}
