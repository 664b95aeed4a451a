package swarm

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/lao-tseu-is-alive/go-swarm-pursuit/pkg/geometry"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed config.schema.json
var configSchema string

const configSchemaURL = "config.schema.json"

// ErrInvalidConfig is wrapped by every Validate failure.
var ErrInvalidConfig = errors.New("invalid swarm config")

// Config holds the per-run, immutable parameters of the decision step.
type Config struct {
	// Zones (cohesion/repulsion)
	DRep float64 `json:"dRep" yaml:"dRep"` // repulsion radius
	DSen float64 `json:"dSen" yaml:"dSen"` // sensing radius, attraction ends here

	// Force weights
	WeightRep   float64 `json:"weightRep" yaml:"weightRep"`
	WeightAtt   float64 `json:"weightAtt" yaml:"weightAtt"`
	WeightAlign float64 `json:"weightAlign" yaml:"weightAlign"`
	WeightEsc   float64 `json:"weightEsc" yaml:"weightEsc"`

	// Activation cascade
	DeacThreshold float64 `json:"deacThreshold" yaml:"deacThreshold"`

	// Speeds
	V0     float64 `json:"v0" yaml:"v0"`
	V0Hawk float64 `json:"v0Hawk" yaml:"v0Hawk"`

	// Predator
	AttackStep      int               `json:"attackStep" yaml:"attackStep"`
	REscape         []float64         `json:"rEscape" yaml:"rEscape"` // indexed by id-1, a single value applies to everyone
	HawkID          int               `json:"hawkId" yaml:"hawkId"`
	HawkIdleHeading geometry.Vector2D `json:"hawkIdleHeading" yaml:"hawkIdleHeading"`

	// Perception defaults (used by internal/perception)
	TopologyK   int     `json:"topologyK" yaml:"topologyK"`
	SenseRadius float64 `json:"senseRadius" yaml:"senseRadius"` // 0 means unbounded
	EntropyBins int     `json:"entropyBins" yaml:"entropyBins"`

	// Seed for the degenerate escape direction
	Seed uint64 `json:"seed" yaml:"seed"`
}

func DefaultConfig() *Config {
	return &Config{
		DRep:            1.0,
		DSen:            5.0,
		WeightRep:       10.0,
		WeightAtt:       1.0,
		WeightAlign:     1.0,
		WeightEsc:       1.0,
		DeacThreshold:   0.1,
		V0:              1.0,
		V0Hawk:          2.0,
		AttackStep:      100,
		REscape:         []float64{5.0},
		HawkID:          1,
		HawkIdleHeading: geometry.Vector2D{X: -1, Y: 0},
		TopologyK:       7,
		SenseRadius:     0,
		EntropyBins:     12,
		Seed:            1,
	}
}

// Validate checks the invariants the step relies on.
func (c *Config) Validate() error {
	var problems []string
	if c.DRep <= 0 {
		problems = append(problems, fmt.Sprintf("dRep must be > 0, got %g", c.DRep))
	}
	if c.DRep >= c.DSen {
		problems = append(problems, fmt.Sprintf("dRep (%g) must be < dSen (%g)", c.DRep, c.DSen))
	}
	if c.V0 < 0 || c.V0Hawk < 0 {
		problems = append(problems, fmt.Sprintf("speeds must be >= 0, got v0=%g v0Hawk=%g", c.V0, c.V0Hawk))
	}
	if c.WeightEsc < 0 {
		problems = append(problems, fmt.Sprintf("weightEsc must be >= 0, got %g", c.WeightEsc))
	}
	if c.DeacThreshold < 0 {
		problems = append(problems, fmt.Sprintf("deacThreshold must be >= 0, got %g", c.DeacThreshold))
	}
	if len(c.REscape) == 0 {
		problems = append(problems, "rEscape must hold at least one radius")
	}
	for i, r := range c.REscape {
		if r < 0 {
			problems = append(problems, fmt.Sprintf("rEscape[%d] must be >= 0, got %g", i, r))
		}
	}
	if c.HawkID < 1 {
		problems = append(problems, fmt.Sprintf("hawkId must be >= 1, got %d", c.HawkID))
	}
	if c.TopologyK < 0 || c.SenseRadius < 0 || c.EntropyBins < 0 {
		problems = append(problems, "topologyK, senseRadius and entropyBins must be >= 0")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// EscapeRadius returns the configured escape radius for agent id.
// Ids outside the table get no escape zone.
func (c *Config) EscapeRadius(id int) float64 {
	if len(c.REscape) == 1 {
		return c.REscape[0]
	}
	if id < 1 || id > len(c.REscape) {
		return 0
	}
	return c.REscape[id-1]
}

// LoadConfig loads configuration from a JSON or YAML file, validates it against
// the embedded schema and then against Validate.
// Fields absent from the file keep their DefaultConfig value.
func LoadConfig(configFile string) (*Config, error) {
	sch, err := jsonschema.CompileString(configSchemaURL, configSchema)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}

	raw, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	b, err := toJSON(configFile, raw)
	if err != nil {
		return nil, err
	}

	var v interface{}
	if err := json.NewDecoder(bytes.NewReader(b)).Decode(&v); err != nil {
		return nil, fmt.Errorf("failed to decode config json: %w", err)
	}
	if err := sch.Validate(v); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// toJSON returns the JSON form of a config document, converting YAML by extension.
func toJSON(name string, raw []byte) ([]byte, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		var doc map[string]interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("failed to decode config yaml: %w", err)
		}
		b, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("failed to convert config yaml: %w", err)
		}
		return b, nil
	default:
		return raw, nil
	}
}
