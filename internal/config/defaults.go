package config

const (
	defaultOutputDir          = "~/transcodes"
	defaultTorrentDir         = "~/torrents"
	defaultLogDirName         = "logs"
	defaultLogFormat          = "console"
	defaultLogLevel           = "info"
	defaultLogRetentionDays   = 30
	defaultPoolTimeoutMinutes = 12 * 60
	defaultKillGraceSeconds   = 5
	defaultStderrLimitKiB     = 64
	defaultTrackerSource      = ""
	defaultNtfyTimeoutSeconds = 10
)

var defaultAuxiliaryExtensions = []string{
	".cue", ".gif", ".jpeg", ".jpg", ".log", ".md5", ".nfo", ".pdf", ".png", ".sfv", ".txt",
}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir:  defaultOutputDir,
			TorrentDir: defaultTorrentDir,
			StateDir:   defaultStateDir(),
		},
		Transcode: Transcode{
			PoolTimeoutMinutes:       defaultPoolTimeoutMinutes,
			KillGraceSeconds:         defaultKillGraceSeconds,
			CollapseLosslessResample: true,
			AuxiliaryExtensions:      append([]string(nil), defaultAuxiliaryExtensions...),
			StderrLimitKiB:           defaultStderrLimitKiB,
		},
		Binaries: Binaries{
			Flac:      "flac",
			Metaflac:  "metaflac",
			Sox:       "sox",
			Lame:      "lame",
			Oggenc:    "oggenc",
			FFmpeg:    "ffmpeg",
			FFprobe:   "ffprobe",
			Mktorrent: "mktorrent",
		},
		Tracker: Tracker{
			Source: defaultTrackerSource,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeoutSeconds,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
