// Package config reads the service configuration file.
package config

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/pricepredict/pipeline"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
	"github.com/YuminosukeSato/pricepredict/training"
)

// Config is the whole configuration file.
//
// Example:
//
//	server:
//	  address: ":8080"
//	  log_level: info
//	storage:
//	  data_root: ./Data
//	  trained_root: ./TrainedData
//	training:
//	  algorithm: FastTree
//	  cv_algorithm: Sdca
//	  folds: 3
//	  seed: 0
//	  fold_chart: true
//	  options:
//	    FastTree:
//	      num_leaves: 31
//	    Sdca:
//	      l2: 0.001
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Training TrainingConfig `yaml:"training"`
}

type ServerConfig struct {
	Address  string `yaml:"address"`
	LogLevel string `yaml:"log_level"`
}

type StorageConfig struct {
	DataRoot    string `yaml:"data_root"`
	TrainedRoot string `yaml:"trained_root"`
}

type TrainingConfig struct {
	Algorithm   string `yaml:"algorithm"`
	CVAlgorithm string `yaml:"cv_algorithm"`
	Folds       int    `yaml:"folds"`
	Seed        int64  `yaml:"seed"`
	FoldChart   bool   `yaml:"fold_chart"`

	// Options holds trainer parameters per algorithm name.
	Options map[string]map[string]interface{} `yaml:"options"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	svc := training.DefaultServiceConfig()
	return &Config{
		Server: ServerConfig{Address: ":8080", LogLevel: "info"},
		Storage: StorageConfig{
			DataRoot:    svc.DataRoot,
			TrainedRoot: svc.TrainedRoot,
		},
		Training: TrainingConfig{
			Algorithm:   string(svc.Algorithm),
			CVAlgorithm: string(svc.CVAlgorithm),
			Folds:       svc.Folds,
		},
	}
}

// Load reads and validates the file at path. Keys missing from the file keep
// their Default values.
func Load(path string) (*Config, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.NewConfigurationError("config", fmt.Sprintf("cannot read %s: %v", path, err))
	}
	return Unmarshal(content)
}

// Unmarshal parses and validates a configuration document.
func Unmarshal(content []byte) (*Config, error) {
	out := Default()
	dec := yaml.NewDecoder(bytes.NewReader(content))
	dec.KnownFields(true)
	// an empty document is io.EOF and leaves the defaults
	if err := dec.Decode(out); err != nil && len(bytes.TrimSpace(content)) > 0 {
		return nil, errors.NewConfigurationError("config", err.Error())
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// Validate checks values that would otherwise fail at request time.
func (c *Config) Validate() error {
	if c.Storage.DataRoot == "" {
		return errors.NewConfigurationError("storage", "data_root is empty")
	}
	if c.Storage.TrainedRoot == "" {
		return errors.NewConfigurationError("storage", "trained_root is empty")
	}
	if _, err := log.ParseLevel(c.Server.LogLevel); err != nil {
		return errors.NewConfigurationError("server", err.Error())
	}
	if c.Training.Folds < 2 {
		return errors.NewConfigurationError("training", fmt.Sprintf("folds must be at least 2, got %d", c.Training.Folds))
	}
	for _, name := range []string{c.Training.Algorithm, c.Training.CVAlgorithm} {
		if _, err := pipeline.ParseAlgorithm(name); err != nil {
			return err
		}
	}
	for name, opts := range c.Training.Options {
		alg, err := pipeline.ParseAlgorithm(name)
		if err != nil {
			return err
		}
		cfg := pipeline.DefaultTrainerConfig(alg)
		cfg.Options = opts
		if _, err := pipeline.BuildTrainer(cfg); err != nil {
			return err
		}
	}
	return nil
}

// ServiceConfig converts the storage and training sections for training.NewService.
func (c *Config) ServiceConfig() training.ServiceConfig {
	alg, _ := pipeline.ParseAlgorithm(c.Training.Algorithm)
	cvAlg, _ := pipeline.ParseAlgorithm(c.Training.CVAlgorithm)
	var options map[pipeline.Algorithm]map[string]interface{}
	for name, opts := range c.Training.Options {
		a, err := pipeline.ParseAlgorithm(name)
		if err != nil {
			continue
		}
		if options == nil {
			options = make(map[pipeline.Algorithm]map[string]interface{})
		}
		options[a] = opts
	}
	return training.ServiceConfig{
		DataRoot:    c.Storage.DataRoot,
		TrainedRoot: c.Storage.TrainedRoot,
		Algorithm:   alg,
		CVAlgorithm: cvAlg,
		Folds:       c.Training.Folds,
		FoldChart:   c.Training.FoldChart,
		Options:     options,
	}
}
