package config

import (
	"math"

	"github.com/spf13/pflag"

	"github.com/spacemeshos/unitstream/shared"
)

const (
	MinUnitWidth = 1
	MaxUnitWidth = 1 << 16

	MaxGap = math.MaxUint32
)

const (
	DefaultUnitWidth = 8
	DefaultEOFPolicy = EOFZeroPad
)

// EOFPolicy selects what a stream does with a unit that the input ends inside of.
type EOFPolicy string

const (
	// EOFError fails the stream with a *shared.PrematureEOFError.
	EOFError EOFPolicy = "error"
	// EOFZeroPad emits the unit with its missing bits set to zero.
	EOFZeroPad EOFPolicy = "pad"
	// EOFSentinel emits a nil value in place of the unit.
	EOFSentinel EOFPolicy = "sentinel"
)

var policies = []EOFPolicy{EOFError, EOFZeroPad, EOFSentinel}

// A compile time check to ensure that EOFPolicy can be used as a command line flag.
var _ pflag.Value = (*EOFPolicy)(nil)

func (p EOFPolicy) String() string {
	return string(p)
}

// Set implements pflag.Value.
func (p *EOFPolicy) Set(s string) error {
	for _, v := range policies {
		if string(v) == s {
			*p = v
			return nil
		}
	}
	return shared.InvalidParam("EOFPolicy", "one of error, pad, sentinel", s)
}

// Type implements pflag.Value.
func (p *EOFPolicy) Type() string {
	return "policy"
}

func (p EOFPolicy) Validate() error {
	var v EOFPolicy
	return v.Set(string(p))
}

type Config struct {
	UnitWidth uint `mapstructure:"unit-width"`

	// Selection.
	Skip  int64  `mapstructure:"skip"`
	Step  int64  `mapstructure:"step"`
	Limit *int64 `mapstructure:"count"`

	// Bit layout.
	SkipBits  int64 `mapstructure:"skip-bits"`
	SkipUnits int64 `mapstructure:"skip-units"`
	Gap       int64 `mapstructure:"gap"`
	Pregap    int64 `mapstructure:"pregap"`
	Postgap   int64 `mapstructure:"postgap"`

	AssertAligned bool      `mapstructure:"assert-aligned"`
	UseSeek       bool      `mapstructure:"seek"`
	ReverseBytes  bool      `mapstructure:"reverse-bytes"`
	ReverseUnit   bool      `mapstructure:"reverse-unit"`
	EOFPolicy     EOFPolicy `mapstructure:"eof"`
}

func DefaultConfig() Config {
	return Config{
		UnitWidth: DefaultUnitWidth,
		EOFPolicy: DefaultEOFPolicy,
	}
}

func (cfg *Config) Validate() error {
	if cfg.UnitWidth < MinUnitWidth {
		return shared.InvalidParam("UnitWidth", ">= 1", cfg.UnitWidth)
	}
	if cfg.UnitWidth > MaxUnitWidth {
		return shared.InvalidParam("UnitWidth", "<= 65536", cfg.UnitWidth)
	}

	if cfg.Skip < 0 {
		return shared.InvalidParam("Skip", ">= 0", cfg.Skip)
	}
	if cfg.Step < 0 {
		return shared.InvalidParam("Step", ">= 0", cfg.Step)
	}
	if cfg.Limit != nil && *cfg.Limit <= 0 {
		return shared.InvalidParam("Limit", "> 0 (or unset for unlimited)", *cfg.Limit)
	}

	if cfg.SkipBits < 0 {
		return shared.InvalidParam("SkipBits", ">= 0", cfg.SkipBits)
	}
	if cfg.SkipUnits < 0 {
		return shared.InvalidParam("SkipUnits", ">= 0", cfg.SkipUnits)
	}
	if cfg.Gap < 0 || cfg.Gap > MaxGap {
		return shared.InvalidParam("Gap", ">= 0 and <= 4294967295", cfg.Gap)
	}
	if cfg.Pregap < 0 || cfg.Pregap > MaxUnitWidth {
		return shared.InvalidParam("Pregap", ">= 0 and <= 65536", cfg.Pregap)
	}
	if cfg.Postgap < 0 || cfg.Postgap > MaxUnitWidth {
		return shared.InvalidParam("Postgap", ">= 0 and <= 65536", cfg.Postgap)
	}

	return cfg.EOFPolicy.Validate()
}
