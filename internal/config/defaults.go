package config

// Default returns the baseline configuration applied before any file is
// decoded over it.
func Default() Config {
	return Config{
		Paths: Paths{
			WorkDir: "~/.cache/splice/work",
		},
		Toolchain: Toolchain{
			FFmpeg:              "ffmpeg",
			FFprobe:             "ffprobe",
			ProbeTimeoutSeconds: 10,
		},
		Split: Split{
			Codec:       "mp3",
			Quality:     "2",
			Extension:   "mp3",
			MaxParallel: 2,
		},
		Merge: Merge{
			Strategy:     "copy",
			CRF:          "20",
			Preset:       "veryfast",
			AudioBitrate: "192k",
		},
		Workspace: Workspace{
			StaleAfterMinutes: 120,
		},
		Logging: Logging{
			Format: "console",
			Level:  "info",
		},
	}
}
