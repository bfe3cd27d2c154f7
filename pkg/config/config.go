// Package config holds target properties and the per-pass feature table.
package config

import (
	"os"
	"sort"

	"gopkg.in/yaml.v3"
	"tlog.app/go/errors"
)

type Feature int

const (
	FeatSimplify Feature = iota
	FeatFold
	FeatPropagate
	FeatDCE
	FeatCoalesce
	FeatTunnel
	FeatCleanupLabels
	FeatFallthrough
	FeatCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	FeatureMap map[string]Feature

	TargetArch      string
	WordSize        int
	StackAlignment  int
	ArgRegisters    []string
	ReturnRegister  string
	ScratchRegister string

	// MaxRounds bounds the optimizer fixpoint loop.
	MaxRounds int
}

// DefaultMaxRounds is the fixpoint bound when none is configured.
const DefaultMaxRounds = 64

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		FeatureMap: make(map[string]Feature),
		MaxRounds:  DefaultMaxRounds,
	}

	features := map[Feature]Info{
		FeatSimplify:      {"simplify", true, "Rewrite algebraic identities such as x+0 and x*1 into copies."},
		FeatFold:          {"fold", true, "Evaluate arithmetic on literal operands at compile time."},
		FeatPropagate:     {"propagate", true, "Substitute known constants and copies into later uses."},
		FeatDCE:           {"dce", true, "Remove instructions whose result is never read."},
		FeatCoalesce:      {"coalesce", true, "Fold a copy into the instruction that computed its source."},
		FeatTunnel:        {"tunnel", true, "Retarget jumps that land on another jump."},
		FeatCleanupLabels: {"cleanup-labels", true, "Drop synthesized labels that no branch refers to."},
		FeatFallthrough:   {"fallthrough", false, "Record fallthrough edges between adjacent basic blocks."},
	}

	cfg.Features = features
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}

	cfg.mustSetTarget("amd64")
	return cfg
}

// SetTarget configures the backend for an architecture. Only amd64 with the
// Windows x64 argument registers is supported.
func (c *Config) SetTarget(arch string) error {
	switch arch {
	case "amd64", "x86_64", "x86-64":
		c.TargetArch = "amd64"
		c.WordSize, c.StackAlignment = 8, 16
		c.ArgRegisters = []string{"rcx", "rdx", "r8", "r9"}
		c.ReturnRegister, c.ScratchRegister = "rax", "r11"
		return nil
	default:
		return errors.New("unsupported target %q", arch)
	}
}

func (c *Config) mustSetTarget(arch string) {
	if err := c.SetTarget(arch); err != nil {
		panic(err)
	}
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool { return c.Features[ft].Enabled }

// SetFeatureByName toggles a feature by its table name.
func (c *Config) SetFeatureByName(name string, enabled bool) error {
	ft, ok := c.FeatureMap[name]
	if !ok {
		return errors.New("unknown feature %q", name)
	}
	c.SetFeature(ft, enabled)
	return nil
}

// FeatureNames returns all feature names in table order.
func (c *Config) FeatureNames() []string {
	fts := make([]Feature, 0, len(c.Features))
	for ft := range c.Features {
		fts = append(fts, ft)
	}
	sort.Slice(fts, func(i, j int) bool { return fts[i] < fts[j] })

	names := make([]string, len(fts))
	for i, ft := range fts {
		names[i] = c.Features[ft].Name
	}
	return names
}

// File is the on-disk form of a configuration.
type File struct {
	Target    string          `yaml:"target"`
	MaxRounds int             `yaml:"max_rounds"`
	Features  map[string]bool `yaml:"features"`
}

// Apply merges a parsed file over the current configuration.
func (c *Config) Apply(f File) error {
	if f.Target != "" {
		if err := c.SetTarget(f.Target); err != nil {
			return err
		}
	}
	if f.MaxRounds < 0 {
		return errors.New("max_rounds must not be negative, got %d", f.MaxRounds)
	}
	if f.MaxRounds > 0 {
		c.MaxRounds = f.MaxRounds
	}

	names := make([]string, 0, len(f.Features))
	for name := range f.Features {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := c.SetFeatureByName(name, f.Features[name]); err != nil {
			return err
		}
	}
	return nil
}

// LoadFile reads a YAML configuration file and applies it.
func (c *Config) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrap(err, "read config")
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return errors.Wrap(err, "parse config %s", path)
	}
	if err := c.Apply(f); err != nil {
		return errors.Wrap(err, "config %s", path)
	}
	return nil
}
