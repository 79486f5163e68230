package main

import (
	"github.com/spf13/cobra"

	"github.com/YuminosukeSato/pricepredict/config"
	"github.com/YuminosukeSato/pricepredict/pkg/errors"
	"github.com/YuminosukeSato/pricepredict/pkg/log"
	"github.com/YuminosukeSato/pricepredict/training"
)

type CLI struct {
	configPath string
	logLevel   string

	conf *config.Config
}

func newCLI() *CLI { return &CLI{} }

func (c *CLI) root() *cobra.Command {
	root := &cobra.Command{
		Use:           "pricepredict",
		Short:         "Train and serve house price regression models",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup()
		},
	}
	root.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "Path to the YAML configuration file")
	root.PersistentFlags().StringVar(&c.logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the configuration")

	root.AddCommand(
		c.newServeCommand(),
		c.newTrainCommand(),
		c.newCrossValidateCommand(),
		c.newPredictCommand(),
	)
	return root
}

// setup loads the configuration and configures the process logger.
func (c *CLI) setup() error {
	conf := config.Default()
	if c.configPath != "" {
		var err error
		if conf, err = config.Load(c.configPath); err != nil {
			return err
		}
	}
	if c.logLevel != "" {
		conf.Server.LogLevel = c.logLevel
	}
	level, err := log.ParseLevel(conf.Server.LogLevel)
	if err != nil {
		return errors.NewConfigurationError("log-level", err.Error())
	}
	log.SetLevel(level)
	if err := log.SetupLogger(conf.Server.LogLevel); err != nil {
		return err
	}
	c.conf = conf
	return nil
}

func (c *CLI) service() *training.Service {
	env := training.NewEnvironment(c.conf.Training.Seed, log.GetLoggerWithName("training"))
	return training.NewService(c.conf.ServiceConfig(), env)
}
