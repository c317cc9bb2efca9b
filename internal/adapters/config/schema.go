package config

import "time"

// Siftfile represents the structure of the sift.yaml configuration file.
type Siftfile struct {
	Version     string               `yaml:"version" validate:"required,oneof=1"`
	Root        string               `yaml:"root"`
	Workers     int                  `yaml:"workers" validate:"gte=0,lte=256"`
	Strict      bool                 `yaml:"strict"`
	Exclude     []string             `yaml:"exclude" validate:"dive,required"`
	Scan        ScanDTO              `yaml:"scan"`
	Lock        LockDTO              `yaml:"lock"`
	Watch       WatchDTO             `yaml:"watch"`
	Domains     map[string]DomainDTO `yaml:"domains" validate:"dive"`
	CrossDomain map[string][]string  `yaml:"cross_domain"`
	Tools       map[string]ToolDTO   `yaml:"tools" validate:"dive"`
	Coverage    *CoverageDTO         `yaml:"coverage"`
}

// ScanDTO lists where unmapped sources are searched for.
type ScanDTO struct {
	Roots      []string `yaml:"roots" validate:"dive,required"`
	Extensions []string `yaml:"extensions" validate:"dive,startswith=."`
}

// LockDTO tunes the lock manager.
type LockDTO struct {
	StaleAfter time.Duration `yaml:"stale_after" validate:"gte=0"`
	Wait       time.Duration `yaml:"wait" validate:"gte=0"`
}

// WatchDTO tunes watch mode.
type WatchDTO struct {
	Debounce    time.Duration `yaml:"debounce" validate:"gte=0"`
	MinInterval time.Duration `yaml:"min_interval" validate:"gte=0"`
}

// DomainDTO represents a domain definition in the configuration.
type DomainDTO struct {
	Sources []string `yaml:"sources" validate:"required,min=1,dive,required"`
	Tests   []string `yaml:"tests" validate:"dive,required"`
	Markers []string `yaml:"markers" validate:"dive,required"`
	Serial  bool     `yaml:"serial"`
}

// ToolDTO represents a script tool definition in the configuration.
type ToolDTO struct {
	Tier      int            `yaml:"tier" validate:"required,min=1,max=3"`
	Cmd       []string       `yaml:"cmd" validate:"required,min=1,dive,required"`
	Scope     []string       `yaml:"scope" validate:"dive,required"`
	Cacheable bool           `yaml:"cacheable"`
	Sources   []string       `yaml:"sources" validate:"dive,required"`
	Timeout   time.Duration  `yaml:"timeout" validate:"gte=0"`
	Group     string         `yaml:"group"`
	DependsOn []string       `yaml:"depends_on" validate:"dive,required"`
	Config    map[string]any `yaml:"config"`
}

// CoverageDTO configures the coverage engine. An absent section disables it.
type CoverageDTO struct {
	Enabled *bool         `yaml:"enabled"`
	Tier    int           `yaml:"tier" validate:"omitempty,min=1,max=3"`
	Mode    string        `yaml:"mode" validate:"omitempty,oneof=parallel serial"`
	Workers int           `yaml:"workers" validate:"gte=0,lte=64"`
	Cmd     []string      `yaml:"cmd" validate:"dive,required"`
	Sources []string      `yaml:"sources" validate:"dive,required"`
	Timeout time.Duration `yaml:"timeout" validate:"gte=0"`
}
