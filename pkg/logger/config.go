package logger

// Config holds the logger configuration.
type Config struct {
	// Level sets the minimum log level (debug, info, warn, error)
	Level string

	// Environment determines output format (development = console, production = JSON)
	Environment string

	// EnableConsole enables console output
	EnableConsole bool

	// EnableFile enables rotating file output
	EnableFile bool

	// FilePath is the path to the log file
	FilePath string

	// FileMaxSizeMB is the maximum size of a log file before rotation
	FileMaxSizeMB int

	// FileMaxBackups is the number of rotated files to keep
	FileMaxBackups int

	// FileMaxAgeDays is the number of days to keep rotated files
	FileMaxAgeDays int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:          "info",
		Environment:    "development",
		EnableConsole:  true,
		EnableFile:     false,
		FilePath:       "./data/oauth-core.log",
		FileMaxSizeMB:  100,
		FileMaxBackups: 5,
		FileMaxAgeDays: 14,
	}
}
