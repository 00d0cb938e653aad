package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.viam.com/rdk/logging"

	"armkin"
)

// app carries the state shared by every subcommand.
type app struct {
	cfgFile string
	debug   bool
	v       *viper.Viper
	logger  logging.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}
	cmd := &cobra.Command{
		Use:          "armkin",
		Short:        "armkin solves kinematics and plans motions for a 5-DOF desktop arm",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file path (json or yaml)")
	cmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().String("model", "", "kinematic model file; relative paths resolve against $ARMKIN_DATA")
	// the error is only non-nil for a nil flag
	_ = a.v.BindPFlag("model_file", cmd.PersistentFlags().Lookup("model"))

	cmd.AddCommand(fkCmd(a))
	cmd.AddCommand(diagCmd(a))
	cmd.AddCommand(ikCmd(a))
	cmd.AddCommand(planCmd(a))
	cmd.AddCommand(modelCmd(a))
	return cmd
}

func (a *app) log() logging.Logger {
	if a.logger == nil {
		if a.debug {
			a.logger = logging.NewDebugLogger("armkin")
		} else {
			a.logger = logging.NewLogger("armkin")
		}
	}
	return a.logger
}

// loadConfig layers the config file and bound flags over the defaults.
func (a *app) loadConfig() (armkin.Config, error) {
	cfg := armkin.DefaultConfig()
	if a.cfgFile != "" {
		a.v.SetConfigFile(a.cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
	}
	if err := a.v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	cfg.Logger = a.log()
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (a *app) engine() (*armkin.Engine, armkin.Config, error) {
	cfg, err := a.loadConfig()
	if err != nil {
		return nil, cfg, err
	}
	eng, err := armkin.NewEngineFromConfig(&cfg)
	if err != nil {
		return nil, cfg, err
	}
	return eng, cfg, nil
}
