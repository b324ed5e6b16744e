package config

const (
	defaultAnnotationsFile  = "annotations.csv"
	defaultDisplaySeconds   = 10.0
	defaultMaxPointsPerLead = 4000
	defaultWatchDebounceMS  = 500
	defaultLogLevel         = "info"
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			AnnotationsFile: defaultAnnotationsFile,
		},
		Display: Display{
			Seconds:          defaultDisplaySeconds,
			MaxPointsPerLead: defaultMaxPointsPerLead,
		},
		Watch: Watch{
			Enabled:    false,
			DebounceMS: defaultWatchDebounceMS,
		},
		Log: Log{
			Level: defaultLogLevel,
		},
	}
}
