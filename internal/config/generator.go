package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/randstring/randstring-go/internal/clipboard"
	"github.com/randstring/randstring-go/internal/crypto"
	"github.com/randstring/randstring-go/internal/service"
)

// GeneratorDefaults is the YAML file shape for per-session generator defaults.
// Every field is optional.
type GeneratorDefaults struct {
	Length           *int     `yaml:"length"`
	Classes          []string `yaml:"classes"`
	HistorySize      *int     `yaml:"history_size"`
	AutoPeriod       string   `yaml:"auto_period"`
	CopiedResetAfter string   `yaml:"copied_reset_after"`
	SecureRandom     *bool    `yaml:"secure_random"`
}

// LoadGeneratorDefaults reads and validates a defaults file.
func LoadGeneratorDefaults(path string) (GeneratorDefaults, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return GeneratorDefaults{}, errors.Wrap(err, "read config file")
	}
	return ParseGeneratorDefaults(data)
}

// ParseGeneratorDefaults decodes and validates YAML content.
func ParseGeneratorDefaults(data []byte) (GeneratorDefaults, error) {
	var d GeneratorDefaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return GeneratorDefaults{}, errors.Wrap(err, "parse yaml")
	}
	if err := d.Validate(); err != nil {
		return GeneratorDefaults{}, err
	}
	return d, nil
}

// Validate checks ranges, class names and durations.
func (d GeneratorDefaults) Validate() error {
	if d.Length != nil && (*d.Length < service.MinLength || *d.Length > service.MaxLength) {
		return errors.Wrapf(service.ErrLengthOutOfRange, "length %d", *d.Length)
	}
	if d.HistorySize != nil && *d.HistorySize <= 0 {
		return errors.Errorf("history_size must be positive, got %d", *d.HistorySize)
	}
	if _, err := d.ClassList(); err != nil {
		return err
	}
	if _, err := parseOptionalDuration(d.AutoPeriod); err != nil {
		return errors.Wrap(err, "auto_period")
	}
	if _, err := parseOptionalDuration(d.CopiedResetAfter); err != nil {
		return errors.Wrap(err, "copied_reset_after")
	}
	return nil
}

// ClassList returns the configured classes, or nil when the file leaves them unset.
func (d GeneratorDefaults) ClassList() ([]crypto.CharacterClass, error) {
	if d.Classes == nil {
		return nil, nil
	}
	classes := make([]crypto.CharacterClass, 0, len(d.Classes))
	for _, name := range d.Classes {
		c, err := crypto.ParseCharacterClass(name)
		if err != nil {
			return nil, err
		}
		classes = append(classes, c)
	}
	return classes, nil
}

// GetLength returns the default length (default: 12)
func (d GeneratorDefaults) GetLength() int {
	if d.Length == nil {
		return service.DefaultLength
	}
	return *d.Length
}

// GetHistorySize returns the history capacity (default: 5)
func (d GeneratorDefaults) GetHistorySize() int {
	if d.HistorySize == nil {
		return service.DefaultHistorySize
	}
	return *d.HistorySize
}

// GetAutoPeriod returns the auto-generate period (default: 2s)
func (d GeneratorDefaults) GetAutoPeriod() time.Duration {
	p, _ := parseOptionalDuration(d.AutoPeriod)
	if p == 0 {
		return service.DefaultAutoPeriod
	}
	return p
}

// GetCopiedResetAfter returns how long the copied flag stays raised (default: 2s)
func (d GeneratorDefaults) GetCopiedResetAfter() time.Duration {
	p, _ := parseOptionalDuration(d.CopiedResetAfter)
	if p == 0 {
		return clipboard.DefaultResetAfter
	}
	return p
}

// IsSecureRandom reports whether sessions draw from the ChaCha20 picker (default: false)
func (d GeneratorDefaults) IsSecureRandom() bool {
	return d.SecureRandom != nil && *d.SecureRandom
}

func parseOptionalDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	p, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if p <= 0 {
		return 0, errors.Errorf("must be positive, got %s", s)
	}
	return p, nil
}

// GeneratorOptions converts the defaults into options for a new generator.
// Picker, clipboard and logger are left for the caller.
func (d GeneratorDefaults) GeneratorOptions() (service.GeneratorOptions, error) {
	classes, err := d.ClassList()
	if err != nil {
		return service.GeneratorOptions{}, err
	}
	if classes == nil {
		classes = service.DefaultClasses()
	}

	return service.GeneratorOptions{
		Length:      d.GetLength(),
		Classes:     classes,
		HistorySize: d.GetHistorySize(),
		AutoPeriod:  d.GetAutoPeriod(),
	}, nil
}
