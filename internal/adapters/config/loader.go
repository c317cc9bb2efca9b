// Package config provides the configuration loader for sift.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.trai.ch/sift/internal/core/domain"
	"go.trai.ch/sift/internal/core/ports"
	"go.trai.ch/zerr"
	"gopkg.in/yaml.v3"
)

const (
	defaultWorkers         = 4
	defaultStaleAfter      = 30 * time.Minute
	defaultLockWait        = 2 * time.Second
	defaultDebounce        = 500 * time.Millisecond
	defaultMinInterval     = 5 * time.Second
	defaultToolTimeout     = 5 * time.Minute
	defaultCoverageWorkers = 2
	defaultCoverageTimeout = 10 * time.Minute
)

var (
	defaultExclude        = []string{".git", domain.SiftDirName, "node_modules", "vendor"}
	defaultScanRoots      = []string{"."}
	defaultScanExtensions = []string{".go"}
	defaultCoverageCmd    = []string{"go", "test", "-coverprofile={profile}", "{tests}"}
)

var _ ports.ConfigLoader = (*Loader)(nil)

// Loader implements ports.ConfigLoader using a YAML file.
type Loader struct {
	Logger   ports.Logger
	validate *validator.Validate
}

// NewLoader creates a new Loader with the given logger.
func NewLoader(logger ports.Logger) *Loader {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("yaml"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Loader{Logger: logger, validate: v}
}

// Load reads sift.yaml found from cwd and returns the validated project.
func (l *Loader) Load(cwd string) (*domain.Project, error) {
	project, err := l.load(cwd)
	if err != nil {
		return nil, errors.Join(domain.ErrConfigInvalid, err)
	}
	return project, nil
}

// DiscoverRoot returns the project root without validating the configuration.
func (l *Loader) DiscoverRoot(cwd string) (string, error) {
	configPath, err := findConfiguration(cwd)
	if err != nil {
		return "", err
	}

	var head struct {
		Root string `yaml:"root"`
	}
	if err := readAndUnmarshalYAML(configPath, &head, false); err != nil {
		return "", err
	}
	return resolveRoot(configPath, head.Root), nil
}

func (l *Loader) load(cwd string) (*domain.Project, error) {
	configPath, err := findConfiguration(cwd)
	if err != nil {
		return nil, err
	}

	var file Siftfile
	if err := readAndUnmarshalYAML(configPath, &file, true); err != nil {
		return nil, zerr.With(err, "path", configPath)
	}

	if err := l.validate.Struct(&file); err != nil {
		return nil, zerr.With(validationError(err), "path", configPath)
	}

	applyDefaults(&file)
	root := resolveRoot(configPath, file.Root)

	domains := make(map[string]domain.DomainSpec, len(file.Domains))
	for name, dto := range file.Domains {
		if len(dto.Tests) == 0 {
			l.Logger.Warn(fmt.Sprintf("domain %s declares no tests, coverage will report it as empty", name))
		}
		domains[name] = domain.DomainSpec{
			Sources: dto.Sources,
			Tests:   dto.Tests,
			Markers: dto.Markers,
			Serial:  dto.Serial,
		}
	}
	dm, err := domain.NewDomainMap(domains, file.CrossDomain)
	if err != nil {
		return nil, err
	}

	project := &domain.Project{
		Root:    root,
		Workers: file.Workers,
		Strict:  file.Strict,
		Exclude: file.Exclude,
		Scan: domain.ScanConfig{
			Roots:      file.Scan.Roots,
			Extensions: file.Scan.Extensions,
		},
		Lock: domain.LockConfig{
			StaleAfter: file.Lock.StaleAfter,
			Wait:       file.Lock.Wait,
		},
		Watch: domain.WatchConfig{
			Debounce:    file.Watch.Debounce,
			MinInterval: file.Watch.MinInterval,
		},
		Domains:  dm,
		Coverage: buildCoverage(file.Coverage),
	}

	names := make([]string, 0, len(file.Tools))
	for name := range file.Tools {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		tool, err := buildTool(root, name, file.Tools[name], dm)
		if err != nil {
			return nil, err
		}
		project.Tools = append(project.Tools, tool)
	}

	// Registry construction rejects cycles, unknown dependencies and
	// dependencies on later tiers before any tier starts.
	if _, err := domain.NewRegistry(project.Descriptors()...); err != nil {
		return nil, err
	}

	return project, nil
}

func findConfiguration(cwd string) (string, error) {
	currentDir := cwd
	for {
		candidate := filepath.Join(currentDir, domain.ConfigFileName)
		if _, err := os.Stat(candidate); err == nil {
			return candidate, nil
		}

		parentDir := filepath.Dir(currentDir)
		if parentDir == currentDir {
			// Reached root
			break
		}
		currentDir = parentDir
	}

	return "", zerr.With(zerr.Wrap(domain.ErrConfigNotFound, "no config in any parent directory"), "cwd", cwd)
}

func applyDefaults(file *Siftfile) {
	if file.Workers == 0 {
		file.Workers = defaultWorkers
	}
	if file.Exclude == nil {
		file.Exclude = slices.Clone(defaultExclude)
	}
	if len(file.Scan.Roots) == 0 {
		file.Scan.Roots = slices.Clone(defaultScanRoots)
	}
	if len(file.Scan.Extensions) == 0 {
		file.Scan.Extensions = slices.Clone(defaultScanExtensions)
	}
	if file.Lock.StaleAfter == 0 {
		file.Lock.StaleAfter = defaultStaleAfter
	}
	if file.Lock.Wait == 0 {
		file.Lock.Wait = defaultLockWait
	}
	if file.Watch.Debounce == 0 {
		file.Watch.Debounce = defaultDebounce
	}
	if file.Watch.MinInterval == 0 {
		file.Watch.MinInterval = defaultMinInterval
	}
}

func buildCoverage(dto *CoverageDTO) domain.CoverageConfig {
	if dto == nil {
		return domain.CoverageConfig{}
	}

	cfg := domain.CoverageConfig{
		Enabled: dto.Enabled == nil || *dto.Enabled,
		Tier:    domain.Tier(dto.Tier),
		Mode:    domain.CoverageMode(dto.Mode),
		Workers: dto.Workers,
		Command: dto.Cmd,
		Sources: dto.Sources,
		Timeout: dto.Timeout,
	}
	if cfg.Tier == 0 {
		cfg.Tier = domain.TierFull
	}
	if cfg.Mode == "" {
		cfg.Mode = domain.CoverageParallel
	}
	if cfg.Workers == 0 {
		cfg.Workers = defaultCoverageWorkers
	}
	if len(cfg.Command) == 0 {
		cfg.Command = slices.Clone(defaultCoverageCmd)
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultCoverageTimeout
	}
	return cfg
}

func buildTool(root, name string, dto ToolDTO, dm *domain.DomainMap) (domain.ScriptTool, error) {
	scope := dto.Scope
	if len(scope) == 0 {
		scope = []string{domain.GlobalScope}
	}
	for _, s := range scope {
		if s == domain.GlobalScope {
			continue
		}
		if _, ok := dm.Spec(s); !ok {
			return domain.ScriptTool{}, zerr.With(zerr.With(zerr.Wrap(domain.ErrUnknownDomain, "tool scope names an undeclared domain"), "tool", name), "domain", s)
		}
	}
	if slices.Contains(scope, domain.GlobalScope) && len(scope) > 1 {
		return domain.ScriptTool{}, zerr.With(zerr.New("scope global cannot be combined with domains"), "tool", name)
	}

	timeout := dto.Timeout
	if timeout == 0 {
		timeout = defaultToolTimeout
	}

	return domain.ScriptTool{
		Descriptor: domain.ToolDescriptor{
			Name:      name,
			Tier:      domain.Tier(dto.Tier),
			DependsOn: dto.DependsOn,
			Cacheable: dto.Cacheable,
			Scope:     scope,
			Group:     dto.Group,
			Sources:   toolSources(root, dto),
			Timeout:   timeout,
			Config:    dto.Config,
		},
		Command: dto.Cmd,
	}, nil
}

// toolSources defaults to the command's executable when it is a project file.
func toolSources(root string, dto ToolDTO) []string {
	if len(dto.Sources) > 0 {
		return dto.Sources
	}
	exe := dto.Cmd[0]
	if filepath.IsAbs(exe) || !strings.ContainsRune(exe, '/') {
		return nil
	}
	if info, err := os.Stat(filepath.Join(root, exe)); err == nil && !info.IsDir() {
		return []string{filepath.ToSlash(filepath.Clean(exe))}
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return zerr.Wrap(err, "config validation failed")
	}

	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "Siftfile.")
	out := zerr.With(zerr.New("field failed validation"), "field", field)
	out = zerr.With(out, "rule", fe.Tag())
	if fe.Param() != "" {
		out = zerr.With(out, "param", fe.Param())
	}
	if len(verrs) > 1 {
		out = zerr.With(out, "more_errors", len(verrs)-1)
	}
	return out
}

func resolveRoot(configPath, configuredRoot string) string {
	configDir := filepath.Dir(configPath)
	if configuredRoot == "" {
		return filepath.Clean(configDir)
	}
	if filepath.IsAbs(configuredRoot) {
		return filepath.Clean(configuredRoot)
	}
	return filepath.Clean(filepath.Join(configDir, configuredRoot))
}

// readAndUnmarshalYAML reads a YAML file and unmarshals it into the target struct.
// With strict set, unknown keys are rejected.
func readAndUnmarshalYAML[T any](configPath string, target *T, strict bool) error {
	// #nosec G304 -- configPath is found by walking up from cwd
	configFile, err := os.ReadFile(configPath)
	if err != nil {
		return zerr.Wrap(err, domain.ErrConfigReadFailed.Error())
	}

	dec := yaml.NewDecoder(bytes.NewReader(configFile))
	dec.KnownFields(strict)
	if parseErr := dec.Decode(target); parseErr != nil {
		return zerr.Wrap(parseErr, domain.ErrConfigParseFailed.Error())
	}
	return nil
}
