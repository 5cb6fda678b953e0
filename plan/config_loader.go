package plan

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the full service configuration file. It covers the
// HTTP server, the job queue worker, and the detection profile used by
// both.
type Config struct {
	Listen    string          `yaml:"listen" json:"listen"`
	Profile   string          `yaml:"profile,omitempty" json:"profile,omitempty"`
	Detection DetectionConfig `yaml:"detection,omitempty" json:"detection,omitempty"`
	Model     ModelConfig     `yaml:"model,omitempty" json:"model,omitempty"`
	MQTT      MQTTConfig      `yaml:"mqtt,omitempty" json:"mqtt,omitempty"`
	Storage   StorageConfig   `yaml:"storage,omitempty" json:"storage,omitempty"`
}

// ModelConfig configures the learned-model detector strategy.
// When Endpoint is empty the geometry strategy is used.
type ModelConfig struct {
	Endpoint      string  `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`
	MinConfidence float64 `yaml:"minConfidence,omitempty" json:"minConfidence,omitempty"`
}

// MQTTConfig holds MQTT connection settings for the job queue worker.
type MQTTConfig struct {
	Broker      string `yaml:"broker" json:"broker"`
	ClientID    string `yaml:"clientId" json:"clientId"`
	JobTopic    string `yaml:"jobTopic" json:"jobTopic"`
	ResultTopic string `yaml:"resultTopic" json:"resultTopic"`
	Username    string `yaml:"username,omitempty" json:"username,omitempty"`
	Password    string `yaml:"password,omitempty" json:"password,omitempty"`
}

// StorageConfig holds the object storage endpoint used to resolve
// bucket/key references in invocation requests and job payloads.
type StorageConfig struct {
	BaseURL string `yaml:"baseUrl" json:"baseUrl"`
}

// LoadConfig loads the service configuration from a YAML file.
// The detection profile named in Profile is resolved immediately;
// explicit detection fields override the profile's values only when
// the detection block is present.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", path)
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	if config.Listen == "" {
		config.Listen = ":8080"
	}

	// Resolve the named profile when no explicit detection block is set.
	if (config.Detection == DetectionConfig{}) {
		dc, err := DetectionProfile(config.Profile)
		if err != nil {
			return nil, err
		}
		config.Detection = dc
	}

	if err := config.Detection.Validate(); err != nil {
		return nil, fmt.Errorf("detection config: %w", err)
	}

	// Worker mode needs topics; validate only when a broker is set.
	if config.MQTT.Broker != "" {
		if config.MQTT.JobTopic == "" {
			return nil, fmt.Errorf("mqtt.jobTopic is required when mqtt.broker is set")
		}
		if config.MQTT.ResultTopic == "" {
			return nil, fmt.Errorf("mqtt.resultTopic is required when mqtt.broker is set")
		}
	}

	return &config, nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(path string, config *Config) error {
	data, err := yaml.Marshal(config)
	if err != nil {
		return fmt.Errorf("marshaling config YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}
