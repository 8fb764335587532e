package cmd

import (
	"os"

	"github.com/creasty/defaults"
	"github.com/ethpandaops/fleetdw/pkg/engine"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func loadConfigFromFile(file string) (*engine.Config, error) {
	if file == "" {
		file = "config.yaml"
	}

	config := &engine.Config{}

	if err := defaults.Set(config); err != nil {
		return nil, err
	}

	yamlFile, err := os.ReadFile(file) //nolint:gosec // User-provided config file path
	if err != nil {
		return nil, err
	}

	if err := yaml.Unmarshal(yamlFile, config); err != nil {
		return nil, err
	}

	return config, nil
}

// setup loads the config file and applies the log level, with the
// --log-level flag taking precedence over the file.
func setup(cmd *cobra.Command) (*engine.Config, error) {
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true

	config, err := loadConfigFromFile(cfgFile)
	if err != nil {
		return nil, err
	}

	if override, _ := cmd.Flags().GetString("log-level"); override != "" {
		config.Logging = override
	}

	level, err := logrus.ParseLevel(config.Logging)
	if err != nil {
		return nil, err
	}

	logger.SetLevel(level)

	logger.WithField("file", cfgFile).Debug("Configuration loaded")

	return config, nil
}
