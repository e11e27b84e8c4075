package config

const (
	defaultStartTimeoutSeconds = 10
	defaultPollIntervalMillis  = 50
	defaultLogLevel            = "info"
	defaultLogFormat           = "json"
	defaultLogFilePrefix       = "server.log"
	defaultLogMaxFiles         = 7
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Daemon: Daemon{
			StartTimeoutSeconds: defaultStartTimeoutSeconds,
			PollIntervalMillis:  defaultPollIntervalMillis,
		},
		Logging: Logging{
			Level:      defaultLogLevel,
			Format:     defaultLogFormat,
			FilePrefix: defaultLogFilePrefix,
			MaxFiles:   defaultLogMaxFiles,
		},
	}
}
