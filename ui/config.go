package ui

// Config contains TUI-specific configuration.
type Config struct {
	// Base URL of the voice backend, shown in the header.
	Server string

	// Directories watched for changes, shown in the header.
	Watching []string

	ShowPaths   bool `env:"VOICES_SHOW_PATHS"  envDefault:"true"`
	ShowHelp    bool `env:"VOICES_SHOW_HELP"   envDefault:"true"`
	EnableMouse bool `env:"VOICES_ENABLE_MOUSE"`

	// For debugging the UI
	AltScreen bool `env:"VOICES_ALT_SCREEN" envDefault:"true"`
}
