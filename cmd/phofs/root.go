package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Capmega/phoundation-sub014/config"
	"github.com/Capmega/phoundation-sub014/fs/local"
	"github.com/Capmega/phoundation-sub014/log"
)

type app struct {
	v      *viper.Viper
	fs     *local.FS
	logger *log.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "phofs",
		Short:         "Restriction-checked filesystem queries",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.String("config", "", "YAML file with named restriction sets and mount points")
	flags.StringP("restrictions", "r", "", "Named restriction set to apply instead of the PHO_SYSTEM_* defaults")
	flags.String("log-level", "", "Override PHO_LOG_LEVEL")
	if err := a.v.BindPFlags(flags); err != nil {
		panic(fmt.Sprintf("error binding flags: %v", err))
	}
	a.v.SetEnvPrefix("PHOFS")
	a.v.AutomaticEnv()

	root.AddCommand(
		a.checkCommand(),
		a.sizeCommand(),
		a.countCommand(),
		a.treeCommand(),
		a.findCommand(),
		a.sha256Command(),
		a.mountedCommand(),
		a.linesCommand(),
	)
	return root
}

// setup loads the PHO_* configuration and the optional file, then builds
// the FS every subcommand uses. Relative arguments resolve against the
// working directory.
func (a *app) setup() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if level := a.v.GetString("log-level"); level != "" {
		cfg.Log.Level = level
	}
	logger, err := cfg.Logger()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.logger = logger

	fc, err := loadFileConfig(a.v.GetString("config"))
	if err != nil {
		return err
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("failed to get working directory: %w", err)
	}
	opts := []local.Option{
		local.WithConfig(cfg),
		local.WithLogger(logger),
		local.WithRoot(cwd),
		local.WithMountPoints(fc.mountPoints()...),
	}
	if name := a.v.GetString("restrictions"); name != "" {
		r, err := fc.restrictions(name)
		if err != nil {
			return err
		}
		opts = append(opts, local.WithSystemRestrictions(r))
	}

	a.fs = local.New(opts...)
	logger.Debug("phofs ready", log.Label(a.fs.System().Label()))
	return nil
}
