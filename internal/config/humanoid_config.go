// File: internal/config/humanoid_config.go
// This file defines the HumanoidConfig struct, which contains the tunable
// parameters for the human-like input simulation used by the execution backend.
// These settings control pointer movement timing, click hold durations and
// typing cadence.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// HumanoidConfig tunes the pointer and keyboard model.
type HumanoidConfig struct {
	// Enabled switches between simulated trajectories and direct teleporting input.
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Fitts's law parameters (milliseconds): MT = a + b * log2(1 + D/W).
	FittsA float64 `mapstructure:"fitts_a" yaml:"fitts_a"`
	FittsB float64 `mapstructure:"fitts_b" yaml:"fitts_b"`

	// Jitter is the maximum perpendicular deviation of a path, as a fraction of its length.
	Jitter float64 `mapstructure:"jitter" yaml:"jitter"`

	ClickHoldMin time.Duration `mapstructure:"click_hold_min" yaml:"click_hold_min"`
	ClickHoldMax time.Duration `mapstructure:"click_hold_max" yaml:"click_hold_max"`

	// Delay between characters when an action does not specify an interval.
	KeyDelayMin time.Duration `mapstructure:"key_delay_min" yaml:"key_delay_min"`
	KeyDelayMax time.Duration `mapstructure:"key_delay_max" yaml:"key_delay_max"`

	// ScrollNotch is the wheel delta, in pixels, of one scroll unit.
	ScrollNotch float64 `mapstructure:"scroll_notch" yaml:"scroll_notch"`
}

// setHumanoidDefaults centralizes the humanoid default values.
func setHumanoidDefaults(v *viper.Viper) {
	v.SetDefault("browser.humanoid.enabled", true)
	v.SetDefault("browser.humanoid.fitts_a", 80.0)
	v.SetDefault("browser.humanoid.fitts_b", 120.0)
	v.SetDefault("browser.humanoid.jitter", 0.12)
	v.SetDefault("browser.humanoid.click_hold_min", "50ms")
	v.SetDefault("browser.humanoid.click_hold_max", "120ms")
	v.SetDefault("browser.humanoid.key_delay_min", "30ms")
	v.SetDefault("browser.humanoid.key_delay_max", "90ms")
	v.SetDefault("browser.humanoid.scroll_notch", 100.0)
}
