package config

import (
	"fmt"
	"io/ioutil"

	"github.com/pkg/errors"
	schematypes "github.com/taskcluster/go-schematypes"
	yaml "gopkg.in/yaml.v2"
)

// Step is a single step of a simulation script.
type Step struct {
	Action string `json:"action"`
	Holder string `json:"holder"`
	Ticks  int    `json:"ticks"`
}

// Config is the validated configuration.
type Config struct {
	Lifetime        int         `json:"lifetime"`
	TickInterval    int         `json:"tickInterval"`
	Strict          bool        `json:"strict"`
	TemporaryFolder string      `json:"temporaryFolder"`
	Monitor         interface{} `json:"monitor"`
	Script          []Step      `json:"script"`
}

// Validate checks constraints across properties the schema can't express.
func (c *Config) Validate() error {
	for i, step := range c.Script {
		switch step.Action {
		case ActionAcquire, ActionRelease:
			if step.Holder == "" {
				return errors.Errorf("script[%d]: action '%s' requires 'holder'", i, step.Action)
			}
		case ActionWait:
			if step.Ticks == 0 {
				return errors.Errorf("script[%d]: action '%s' requires 'ticks'", i, step.Action)
			}
		}
	}
	return nil
}

// Load configuration from YAML config object.
func Load(data []byte) (*Config, error) {
	var config interface{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(err, "failed to parse YAML config")
	}
	// yaml.Unmarshal generates map[interface{}]interface{} instead of
	// map[string]interface{}
	config = convertSimpleJSONTypes(config)

	// Extract transforms and config
	c, ok := config.(map[string]interface{})
	if !ok {
		return nil, errors.New("expected top-level config value to be an object")
	}
	result, ok := c["config"].(map[string]interface{})
	if !ok {
		return nil, errors.New("expected 'config' property to be an object")
	}

	if ct, ok := c["transforms"]; ok {
		var transforms []string
		if err := schematypes.MustMap(Schema().Properties["transforms"], ct, &transforms); err != nil {
			return nil, errors.Wrap(err, "'transforms' schema violated")
		}
		if err := applyTransforms(transforms, result); err != nil {
			return nil, err
		}
	}

	// Extra keys may carry options for transformations, these are ignored
	result = configSchema.Filter(result)

	var cfg Config
	if err := schematypes.MustMap(configSchema, result, &cfg); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}
	return &cfg, nil
}

// LoadFromFile will load configuration options from a YAML file and validate
// against the config file schema, returning an error message explaining what
// went wrong if unsuccessful.
func LoadFromFile(filename string) (*Config, error) {
	data, err := ioutil.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read config file '%s'", filename)
	}
	return Load(data)
}

func convertSimpleJSONTypes(val interface{}) interface{} {
	switch val := val.(type) {
	case []interface{}:
		r := make([]interface{}, len(val))
		for i, v := range val {
			r[i] = convertSimpleJSONTypes(v)
		}
		return r
	case map[interface{}]interface{}:
		r := make(map[string]interface{})
		for k, v := range val {
			s, ok := k.(string)
			if !ok {
				s = fmt.Sprintf("%v", k)
			}
			r[s] = convertSimpleJSONTypes(v)
		}
		return r
	case int:
		return float64(val)
	default:
		return val
	}
}
