package smartcontrol

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"gopkg.in/yaml.v3"
)

// Mode selects the rule strategy. The two strategies are never mixed within
// one controller: ModeThreshold toggles zones on/off around their set-point,
// ModeDamper modulates each active zone's damper percentage instead.
type Mode int

const (
	ModeThreshold Mode = iota
	ModeDamper
)

func (m Mode) String() string {
	switch m {
	case ModeThreshold:
		return "threshold"
	case ModeDamper:
		return "damper"
	}
	return "unknown"
}

func (m *Mode) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "threshold":
		*m = ModeThreshold
	case "damper":
		*m = ModeDamper
	default:
		return fmt.Errorf("invalid mode: %s", node.Value)
	}
	return nil
}

func (m Mode) MarshalYAML() (interface{}, error) {
	v := m.String()
	if v == "unknown" {
		return "", fmt.Errorf("invalid mode: %d", m)
	}
	return v, nil
}

// Thresholds are the degree offsets from a zone's set-point that trigger
// actions: a zone is "at temperature" at set-point + High and "too cold" at
// set-point - Low.
type Thresholds struct {
	High int `yaml:"high"`
	Low  int `yaml:"low"`
}

// DamperSettings configure the damper strategy: the Low/High damper
// percentages, and the minimum combined damper opening (as a ratio of the
// active zones' maximum opening) below which the AC is switched off.
type DamperSettings struct {
	Low          int     `yaml:"low"`
	High         int     `yaml:"high"`
	MinOpenRatio float64 `yaml:"minOpenRatio"`
}

// Configuration holds the smart control settings. Zones is the explicit
// allow-list of controlled zones (threshold strategy only): every entry must
// match a zone name reported by the device: there is no fuzzy matching.
type Configuration struct {
	Enabled    bool           `yaml:"enabled"`
	Mode       Mode           `yaml:"mode"`
	Thresholds Thresholds     `yaml:"thresholds"`
	Damper     DamperSettings `yaml:"damper"`
	Zones      []string       `yaml:"zones"`
}

const (
	defaultHighThreshold = 1
	defaultLowThreshold  = 2
	defaultDamperLow     = 5
	defaultDamperHigh    = 100
	defaultMinOpenRatio  = 0.5
)

// DefaultConfiguration returns a Configuration with all defaults applied
func DefaultConfiguration() Configuration {
	return Configuration{
		Enabled:    true,
		Mode:       ModeThreshold,
		Thresholds: Thresholds{High: defaultHighThreshold, Low: defaultLowThreshold},
		Damper:     DamperSettings{Low: defaultDamperLow, High: defaultDamperHigh, MinOpenRatio: defaultMinOpenRatio},
	}
}

// Load reads a Configuration, applies defaults and validates it
func Load(in io.Reader, logger *slog.Logger) (Configuration, error) {
	var config struct {
		SmartControl Configuration `yaml:"smartControl"`
	}
	config.SmartControl = DefaultConfiguration()

	if err := yaml.NewDecoder(in).Decode(&config); err != nil {
		return Configuration{}, err
	}

	cfg := config.SmartControl
	if err := cfg.validate(); err != nil {
		return Configuration{}, err
	}

	logger.Info("smart control configuration loaded",
		slog.String("mode", cfg.Mode.String()),
		slog.String("zones", strings.Join(cfg.Zones, ",")),
	)
	return cfg, nil
}

func (c Configuration) validate() error {
	if c.Thresholds.High < 0 || c.Thresholds.Low < 0 {
		return errors.New("thresholds must not be negative")
	}
	if c.Damper.Low < 0 || c.Damper.Low > 100 || c.Damper.High < 0 || c.Damper.High > 100 {
		return errors.New("damper percentages must be between 0 and 100")
	}
	if c.Damper.MinOpenRatio <= 0 || c.Damper.MinOpenRatio > 1 {
		return errors.New("damper minOpenRatio must be between 0 and 1")
	}
	if c.Mode == ModeThreshold && len(c.Zones) == 0 {
		return errors.New("threshold mode requires at least one controlled zone")
	}
	return nil
}
