package module

import "hush/internal/platform/config"

// Options holds configuration settings for the board module
type Options struct {
	Words      []string
	GeoBaseURL string
	GeoEnabled bool
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	bf := cfg.Prefix("BOARD_")
	return Options{
		Words:      bf.MayCSV("BLOCKED_WORDS", nil),
		GeoBaseURL: bf.MayString("GEO_BASE_URL", ""),
		GeoEnabled: bf.MayBool("GEO_ENABLED", true),
	}
}
