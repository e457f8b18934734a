package compiler

import (
	"os"

	"gopkg.in/yaml.v3"
)

// OptLevel mirrors the backend's optimization-level enum.
type OptLevel int

const (
	OptNone OptLevel = iota
	OptLess
	OptDefault
	OptAggressive
)

// Options configures a compilation run; yaml tags let a run be driven from
// a config file.
type Options struct {
	TargetTriple    string   `yaml:"targetTriple"`
	CPU             string   `yaml:"cpu"`
	Features        string   `yaml:"features"`
	OptLevel        OptLevel `yaml:"optLevel"`
	SpecID          uint8    `yaml:"specId"`
	NoGasMetering   bool     `yaml:"noGasMetering"`
	NoStackCheck    bool     `yaml:"noStackCheck"`
	FramePointer    bool     `yaml:"framePointer"`
	DebugAssertions bool     `yaml:"debugAssertions"`
	NoLink          bool     `yaml:"noLink"`
	OutDir          string   `yaml:"outDir"`
}

// Default returns the compiler's default options: native target, default
// optimization, Cancun spec ID (17, see SpecID), all risk-affecting flags
// off.
func Default() Options {
	return Options{
		TargetTriple: "native",
		OptLevel:     OptDefault,
		SpecID:       17,
		OutDir:       "./out",
	}
}

// LoadOptionsYAML loads Options from a yaml file, starting from Default()
// so unset fields keep their defaults.
func LoadOptionsYAML(path string) (Options, error) {
	opts := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return opts, err
	}
	if err := yaml.Unmarshal(data, &opts); err != nil {
		return opts, err
	}
	return opts, nil
}
