// Package config loads the planner configuration document.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jinzhu/copier"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"

	"github.com/dd0wney/cluso-mvsplan/pkg/costmodel"
	"github.com/dd0wney/cluso-mvsplan/pkg/fleet"
	"github.com/dd0wney/cluso-mvsplan/pkg/metis"
	"github.com/dd0wney/cluso-mvsplan/pkg/tbs"
	"github.com/dd0wney/cluso-mvsplan/pkg/topology"
	"github.com/dd0wney/cluso-mvsplan/pkg/validation"
)

// ErrUnknownPlatform is returned for a machine naming an undefined platform.
var ErrUnknownPlatform = errors.New("unknown platform")

// Config is the whole planner configuration.
type Config struct {
	// Platforms adds to or replaces the builtin amd64 and arm64 tables.
	Platforms   map[string]costmodel.Params `json:"platforms,omitempty" yaml:"platforms,omitempty"`
	Machines    []Machine                   `json:"machines" yaml:"machines" validate:"required,min=1,dive"`
	Experiment  Experiment                  `json:"experiment" yaml:"experiment"`
	Partitioner Partitioner                 `json:"partitioner" yaml:"partitioner"`
	Fleet       Fleet                       `json:"fleet" yaml:"fleet"`
	Output      Output                      `json:"output" yaml:"output"`
	LogLevel    string                      `json:"log_level,omitempty" yaml:"log_level,omitempty" validate:"omitempty,oneof=debug info warn error"`
}

// Machine describes one physical machine.
type Machine struct {
	ID       int     `json:"id" yaml:"id" validate:"gte=0"`
	Platform string  `json:"platform" yaml:"platform" validate:"required"`
	Cores    int     `json:"cores" yaml:"cores" validate:"gt=0"`
	MemoryGB float64 `json:"memory_gb" yaml:"memory_gb" validate:"gt=0"`
	MaxVMs   int     `json:"max_vms" yaml:"max_vms" validate:"gt=0"`
	// Overrides replaces the non-zero platform values for this machine.
	Overrides *Overrides `json:"overrides,omitempty" yaml:"overrides,omitempty"`
}

// Overrides are per machine corrections of platform parameters.
type Overrides struct {
	X     float64         `json:"x,omitempty" yaml:"x,omitempty" validate:"gte=0"`
	Y     float64         `json:"y,omitempty" yaml:"y,omitempty" validate:"gte=0"`
	Z     float64         `json:"z,omitempty" yaml:"z,omitempty" validate:"gte=0"`
	Theta costmodel.Theta `json:"theta,omitempty" yaml:"theta,omitempty"`
}

// Experiment describes the emulation being planned.
type Experiment struct {
	MemReqGB         float64 `json:"mem_req_gb" yaml:"mem_req_gb" validate:"gt=0"`
	OverSubscription float64 `json:"over_subscription,omitempty" yaml:"over_subscription,omitempty"`
	Variant          string  `json:"variant,omitempty" yaml:"variant,omitempty" validate:"omitempty,oneof=sn mvs variant1 variant2"`
	FixedVMCount     int     `json:"fixed_vm_count,omitempty" yaml:"fixed_vm_count,omitempty" validate:"gte=0"`
	FixedMemConf     int     `json:"fixed_mem_conf,omitempty" yaml:"fixed_mem_conf,omitempty" validate:"gte=0"`
}

// Partitioner configures both external partitioners.
type Partitioner struct {
	Metis Metis `json:"metis" yaml:"metis"`
	TBS   TBS   `json:"tbs" yaml:"tbs"`
}

// Metis configures the VM level partitioner.
type Metis struct {
	Binary      string `json:"binary,omitempty" yaml:"binary,omitempty"`
	TempDir     string `json:"temp_dir,omitempty" yaml:"temp_dir,omitempty"`
	Iterations  int    `json:"iterations,omitempty" yaml:"iterations,omitempty" validate:"gte=0"`
	MaxAttempts int    `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" validate:"gte=0"`
}

// TBS configures the physical machine level partitioner.
type TBS struct {
	Binary           string `json:"binary" yaml:"binary"`
	WorkDir          string `json:"work_dir" yaml:"work_dir"`
	Preconfiguration string `json:"preconfiguration,omitempty" yaml:"preconfiguration,omitempty"`
	FatalSignature   string `json:"fatal_signature,omitempty" yaml:"fatal_signature,omitempty"`
	MaxAttempts      int    `json:"max_attempts,omitempty" yaml:"max_attempts,omitempty" validate:"gte=0"`
}

// Fleet configures the per machine fan-out.
type Fleet struct {
	Workers     int      `json:"workers,omitempty" yaml:"workers,omitempty" validate:"gte=0"`
	TaskTimeout Duration `json:"task_timeout,omitempty" yaml:"task_timeout,omitempty"`
}

// Output configures what a plan writes.
type Output struct {
	Dir           string `json:"dir,omitempty" yaml:"dir,omitempty"`
	LinkIDBase    int    `json:"link_id_base,omitempty" yaml:"link_id_base,omitempty" validate:"gte=0"`
	SkipSubgraphs bool   `json:"skip_subgraphs,omitempty" yaml:"skip_subgraphs,omitempty"`
	MetricsFile   string `json:"metrics_file,omitempty" yaml:"metrics_file,omitempty"`
}

// Load reads a YAML (.yaml, .yml) or JSON (.json) configuration file,
// fills defaults and validates it.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return Parse(data, true)
	case ".json":
		return Parse(data, false)
	}
	return nil, fmt.Errorf("config %s: unsupported extension, want .yaml, .yml or .json", path)
}

// Parse decodes a configuration document. Unknown keys are rejected.
func Parse(data []byte, useYAML bool) (*Config, error) {
	var c Config
	if useYAML {
		dec := yaml.NewDecoder(bytes.NewReader(data))
		dec.KnownFields(true)
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	} else {
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&c); err != nil {
			return nil, fmt.Errorf("decode config: %w", err)
		}
	}
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	c.Experiment.OverSubscription = validation.DefaultOr(c.Experiment.OverSubscription, 1)
	c.Partitioner.Metis.Binary = validation.DefaultOr(c.Partitioner.Metis.Binary, metis.DefaultGpmetisBinary)
	c.Partitioner.TBS.Preconfiguration = validation.DefaultOr(c.Partitioner.TBS.Preconfiguration, tbs.DefaultPreconfiguration)
	c.Partitioner.TBS.FatalSignature = validation.DefaultOr(c.Partitioner.TBS.FatalSignature, tbs.DefaultFatalSignature)
	c.Output.LinkIDBase = validation.DefaultOrInt(c.Output.LinkIDBase, topology.DefaultLinkIDBase)
	c.LogLevel = validation.DefaultOr(c.LogLevel, "info")
	for name, p := range c.Platforms {
		slices.SortFunc(p.Theta, func(a, b costmodel.ThetaEntry) int { return a.MemConfGB - b.MemConfGB })
		c.Platforms[name] = p
	}
	for i := range c.Machines {
		if o := c.Machines[i].Overrides; o != nil {
			slices.SortFunc(o.Theta, func(a, b costmodel.ThetaEntry) int { return a.MemConfGB - b.MemConfGB })
		}
	}
}

// Validate checks struct constraints and the cross references between
// sections.
func (c *Config) Validate() error {
	if err := validation.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	cv := validation.NewConfigValidator("config")
	ids := make([]int, len(c.Machines))
	for i, m := range c.Machines {
		ids[i] = m.ID
	}
	cv.UniqueInts("machines.id", ids)
	cv.MinFloat("experiment.over_subscription", c.Experiment.OverSubscription, 1)
	for name, p := range c.Platforms {
		cv.Custom("platforms."+name, p.Validate)
	}
	for i, m := range c.Machines {
		field := fmt.Sprintf("machines[%d]", i)
		cv.Custom(field, func() error {
			p, err := c.MachineParams(m)
			if err != nil {
				return err
			}
			if k := c.Experiment.FixedMemConf; k > 0 {
				if _, ok := p.Theta.Lookup(k); !ok {
					return fmt.Errorf("fixed_mem_conf %d GB not in theta table", k)
				}
			}
			return nil
		})
	}
	cv.When(len(c.Machines) > 1, func(v *validation.ConfigValidator) {
		v.Required("partitioner.tbs.binary", c.Partitioner.TBS.Binary)
		v.Required("partitioner.tbs.work_dir", c.Partitioner.TBS.WorkDir)
	})
	cv.NonNegativeDuration("fleet.task_timeout", c.Fleet.TaskTimeout.Duration)
	return cv.Validate()
}

// PlatformParams returns a private copy of the named platform table.
// Configured platforms shadow the builtin ones.
func (c *Config) PlatformParams(name string) (costmodel.Params, error) {
	if p, ok := c.Platforms[name]; ok {
		var out costmodel.Params
		if err := copier.CopyWithOption(&out, &p, copier.Option{DeepCopy: true}); err != nil {
			return costmodel.Params{}, err
		}
		return out, nil
	}
	if p, ok := costmodel.Builtin(name); ok {
		return p, nil
	}
	return costmodel.Params{}, fmt.Errorf("%w %q", ErrUnknownPlatform, name)
}

// MachineParams resolves the platform of m and applies its overrides on a
// deep copy, leaving the shared table untouched.
func (c *Config) MachineParams(m Machine) (costmodel.Params, error) {
	p, err := c.PlatformParams(m.Platform)
	if err != nil {
		return costmodel.Params{}, err
	}
	if o := m.Overrides; o != nil {
		p.X = validation.DefaultOr(o.X, p.X)
		p.Y = validation.DefaultOr(o.Y, p.Y)
		p.Z = validation.DefaultOr(o.Z, p.Z)
		if len(o.Theta) > 0 {
			p.Theta = slices.Clone(o.Theta)
		}
	}
	if err := p.Validate(); err != nil {
		return costmodel.Params{}, err
	}
	return p, nil
}

// FleetMachines converts the machine section.
func (c *Config) FleetMachines() ([]fleet.Machine, error) {
	out := make([]fleet.Machine, len(c.Machines))
	for i, m := range c.Machines {
		p, err := c.MachineParams(m)
		if err != nil {
			return nil, fmt.Errorf("machine %d: %w", m.ID, err)
		}
		out[i] = fleet.Machine{ID: m.ID, Cores: m.Cores, MemoryGB: m.MemoryGB, MaxVMs: m.MaxVMs, Params: p}
	}
	return out, nil
}

// Workload converts the experiment section.
func (c *Config) Workload() (fleet.Workload, error) {
	v, err := costmodel.ParseVariant(c.Experiment.Variant)
	if err != nil {
		return fleet.Workload{}, err
	}
	return fleet.Workload{
		MemReqGB:         c.Experiment.MemReqGB,
		OverSubscription: c.Experiment.OverSubscription,
		Variant:          v,
		FixedVMCount:     c.Experiment.FixedVMCount,
		FixedMemConf:     c.Experiment.FixedMemConf,
	}, nil
}

// MetisBackend returns the gpmetis backend settings.
func (c *Config) MetisBackend() *metis.Gpmetis {
	return &metis.Gpmetis{Binary: c.Partitioner.Metis.Binary, TempDir: c.Partitioner.Metis.TempDir}
}

// MetisConfig returns the splitter settings.
func (c *Config) MetisConfig() metis.Config {
	return metis.Config{Iterations: c.Partitioner.Metis.Iterations, MaxAttempts: c.Partitioner.Metis.MaxAttempts}
}

// TBSConfig returns the physical machine partitioner settings.
func (c *Config) TBSConfig() tbs.Config {
	t := c.Partitioner.TBS
	return tbs.Config{
		Binary:           t.Binary,
		WorkDir:          t.WorkDir,
		Preconfiguration: t.Preconfiguration,
		FatalSignature:   t.FatalSignature,
		MaxAttempts:      t.MaxAttempts,
	}
}

// FleetConfig returns the fan-out settings.
func (c *Config) FleetConfig() fleet.Config {
	return fleet.Config{Workers: c.Fleet.Workers, TaskTimeout: c.Fleet.TaskTimeout.Duration}
}

// PlanOptions returns the output settings.
func (c *Config) PlanOptions() fleet.PlanOptions {
	return fleet.PlanOptions{
		OutDir:        c.Output.Dir,
		LinkIDBase:    c.Output.LinkIDBase,
		SkipSubgraphs: c.Output.SkipSubgraphs,
	}
}
