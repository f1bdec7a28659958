package ui

// Config carries the output-shaping flags shared by every command.
// Set once from the root command's persistent flags before any handler
// runs.
type Config struct {
	NoColor        bool
	NoEmoji        bool
	Yes            bool
	NonInteractive bool
	Verbose        bool
	Quiet          bool
}

var globalConfig Config

// InitGlobal stores the parsed flag values for the rest of the run.
func InitGlobal(cfg Config) {
	globalConfig = cfg
}

// GetGlobal returns the flag values stored by InitGlobal.
func GetGlobal() Config {
	return globalConfig
}

// NewColorConfigFromGlobal builds a ColorConfig honoring both the
// environment (NO_COLOR, TERM) and the --no-color/--no-emoji flags.
func NewColorConfigFromGlobal() *ColorConfig {
	cfg := GetGlobal()
	c := NewColorConfig()
	c.Enabled = c.Enabled && !cfg.NoColor
	c.EmojiEnabled = c.EmojiEnabled && !cfg.NoEmoji
	return c
}

// NewPrinterFromGlobal builds a Printer for the given output format
// with flag-aware colors.
func NewPrinterFromGlobal(format string) Printer {
	return Printer{format: format, Colors: NewColorConfigFromGlobal()}
}
