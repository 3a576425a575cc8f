package media

import "strings"

// StreamKind classifies a container stream.
type StreamKind string

const (
	StreamVideo    StreamKind = "video"
	StreamAudio    StreamKind = "audio"
	StreamSubtitle StreamKind = "subtitle"
	StreamOther    StreamKind = "other"
)

// KindFromCodecType maps an ffprobe codec_type value to a StreamKind.
func KindFromCodecType(codecType string) StreamKind {
	switch strings.ToLower(strings.TrimSpace(codecType)) {
	case "video":
		return StreamVideo
	case "audio":
		return StreamAudio
	case "subtitle":
		return StreamSubtitle
	default:
		return StreamOther
	}
}

// Stream describes a single stream in a media container.
type Stream struct {
	Index      int
	Kind       StreamKind
	Codec      string
	SampleRate int
	Channels   int
	Width      int
	Height     int
}

// Info captures the probed metadata of one media file. It is immutable once
// returned by a probe and owned by the call that requested it; nothing caches
// it across jobs.
type Info struct {
	Path            string
	ContainerFormat string
	DurationSeconds float64
	Streams         []Stream
}

// VideoStreamCount returns the number of video streams discovered.
func (i Info) VideoStreamCount() int {
	return i.countKind(StreamVideo)
}

// AudioStreamCount returns the number of audio streams discovered.
func (i Info) AudioStreamCount() int {
	return i.countKind(StreamAudio)
}

func (i Info) countKind(kind StreamKind) int {
	count := 0
	for _, stream := range i.Streams {
		if stream.Kind == kind {
			count++
		}
	}
	return count
}

// StreamSignature returns the ordered (kind, codec) pairs of the container.
// Two files with equal signatures can be concatenated with stream copy.
func (i Info) StreamSignature() []string {
	signature := make([]string, 0, len(i.Streams))
	for _, stream := range i.Streams {
		signature = append(signature, string(stream.Kind)+"/"+strings.ToLower(strings.TrimSpace(stream.Codec)))
	}
	return signature
}
