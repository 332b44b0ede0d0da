package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/spacemeshos/unitstream/config"
)

type options struct {
	v   *viper.Viper
	cfg config.Config

	configFile  string
	logLevel    string
	printConfig bool
	source      string
	format      string
}

func newOptions() *options {
	return &options{
		v:   viper.New(),
		cfg: config.DefaultConfig(),
	}
}

func setFlags(cmd *cobra.Command, o *options) {
	flags := cmd.PersistentFlags()

	flags.StringVar(&o.configFile, "config", "", "Path to a configuration file (yaml, toml or json)")
	flags.StringVar(&o.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	flags.BoolVar(&o.printConfig, "print-config", false, "Print the effective configuration and exit")
	flags.StringVar(&o.source, "source", "file", "Unit source: zero, one, random, counter, integer or file")
	flags.StringVar(&o.format, "format", "dec", "Output format: dec, hex or bin (packed units)")

	// Unit config.
	flags.UintVarP(&o.cfg.UnitWidth, "unit-width", "w", o.cfg.UnitWidth, "Unit width in bits")
	flags.Int64Var(&o.cfg.Skip, "skip", o.cfg.Skip, "Number of units to skip before the first selected one")
	flags.Int64Var(&o.cfg.Step, "step", o.cfg.Step, "Number of units to step over between selected ones")
	flags.Int64P("count", "n", 0, "Number of units to select (0 means unlimited)")
	flags.Int64Var(&o.cfg.SkipBits, "skip-bits", o.cfg.SkipBits, "Number of input bits to skip")
	flags.Int64Var(&o.cfg.SkipUnits, "skip-units", o.cfg.SkipUnits, "Number of input units to skip, on top of --skip-bits")
	flags.Int64Var(&o.cfg.Gap, "gap", o.cfg.Gap, "Number of bits discarded after every unit")
	flags.Int64Var(&o.cfg.Pregap, "pregap", o.cfg.Pregap, "Number of bits dropped before every unit")
	flags.Int64Var(&o.cfg.Postgap, "postgap", o.cfg.Postgap, "Number of bits dropped after every unit, before the gap")
	flags.BoolVar(&o.cfg.AssertAligned, "assert-aligned", o.cfg.AssertAligned, "Fail unless the input ends on a unit boundary")
	flags.BoolVar(&o.cfg.UseSeek, "seek", o.cfg.UseSeek, "Seek over the skipped input instead of reading it")
	flags.BoolVar(&o.cfg.ReverseBytes, "reverse-bytes", o.cfg.ReverseBytes, "Reverse the bit order of every input byte")
	flags.BoolVar(&o.cfg.ReverseUnit, "reverse-unit", o.cfg.ReverseUnit, "Reverse the bit order of every unit")
	flags.Var(&o.cfg.EOFPolicy, "eof", "Handling of a unit cut by the end of input: error, pad or sentinel")

	if err := o.v.BindPFlags(flags); err != nil {
		panic(err)
	}
}

// loadConfig merges the configuration file, if any, with the flags.
// Flags set on the command line take precedence.
func (o *options) loadConfig() (config.Config, error) {
	if o.configFile != "" {
		o.v.SetConfigFile(o.configFile)
		if err := o.v.ReadInConfig(); err != nil {
			return config.Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := config.DefaultConfig()
	if err := o.v.Unmarshal(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Limit != nil && *cfg.Limit == 0 {
		cfg.Limit = nil
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}
