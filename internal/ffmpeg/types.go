package ffmpeg

import "time"

// MediaInfo contains metadata probed from a media file. Audio-only
// files leave the video fields zero and HasVideo false.
type MediaInfo struct {
	FilePath   string
	Duration   time.Duration
	Width      int
	Height     int
	FPS        float64
	Bitrate    int64
	VideoCodec string
	AudioCodec string
	HasVideo   bool
	HasAudio   bool
}

// Progress represents ffmpeg progress data
type Progress struct {
	Frame   int
	FPS     float64
	Bitrate string
	Time    string
	Speed   string
}

// RunOptions configures ffmpeg execution
type RunOptions struct {
	Args            []string
	ProgressHandler func(*Progress)
	LogHandler      func(line string)
}

// ProgressFunc is a callback for progress updates during ffmpeg operations.
type ProgressFunc func(*Progress)

// Default encoding settings
const (
	DefaultCRF        = 23
	DefaultPreset     = "medium"
	DefaultVideoCodec = "libx264"
	DefaultAudioCodec = "aac"
	DefaultFPS        = 25
)

// TimedImage is one still-image layer composited onto the video for the
// half-open window [Start, End).
type TimedImage struct {
	Path  string
	Start time.Duration
	End   time.Duration
}

// LoopOptions configures continuous single-clip looping. The source is
// repeated from its own start via -stream_loop, never by concatenating
// copies, so the extended stream has no internal join points.
type LoopOptions struct {
	Input        string
	Output       string
	Duration     time.Duration
	Width        int
	Height       int
	FPS          int
	CRF          int
	Preset       string
	ProgressFunc ProgressFunc
}

// OverlayChainOptions configures timed compositing of image layers.
type OverlayChainOptions struct {
	Input        string
	Output       string
	Layers       []TimedImage
	CRF          int
	Preset       string
	ProgressFunc ProgressFunc
}

// MixOptions configures looping/trimming a music track onto a video.
type MixOptions struct {
	VideoInput   string
	AudioInput   string
	Output       string
	Duration     time.Duration
	Volume       float64
	ProgressFunc ProgressFunc
}
