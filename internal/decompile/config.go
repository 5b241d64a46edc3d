package decompile

import (
	"os"
	"runtime"

	"github.com/nikandfor/errors"
	"gopkg.in/yaml.v3"

	"decaf/internal/diag"
	"decaf/internal/unit"
)

// Config is the decompiler configuration, usually read from a YAML file and
// overridden by command-line flags.
type Config struct {
	Mode      string `yaml:"mode"`       // strict or best-effort
	Workers   int    `yaml:"workers"`    // default: runtime.NumCPU()
	MaxPasses int    `yaml:"max_passes"` // dataflow cap, 0 derives it from the block count

	KeepSynthetic    bool `yaml:"keep_synthetic"`
	KeepDefaultCtors bool `yaml:"keep_default_ctors"`

	// FoldFor rewrites counting while loops as for loops. Nil means true.
	FoldFor *bool `yaml:"fold_for"`
}

// LoadConfig reads a YAML configuration file. Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	var c Config

	f, err := os.Open(path)
	if err != nil {
		return c, errors.Wrap(err, "open config")
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&c); err != nil {
		return c, errors.Wrap(err, "parse config %v", path)
	}
	if _, err := diag.ParseMode(c.Mode); err != nil {
		return c, errors.Wrap(err, "config %v", path)
	}
	return c, nil
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.FoldFor == nil {
		t := true
		c.FoldFor = &t
	}
}

// Options returns the pipeline options of c. An unknown mode falls back to
// best-effort; LoadConfig rejects it earlier.
func (c Config) Options() diag.Options {
	c.applyDefaults()
	mode, _ := diag.ParseMode(c.Mode)
	return diag.Options{Mode: mode, MaxPasses: c.MaxPasses, Workers: c.Workers}
}

func (c Config) unitOptions() unit.Options {
	return unit.Options{KeepSynthetic: c.KeepSynthetic, KeepDefaultCtors: c.KeepDefaultCtors}
}
