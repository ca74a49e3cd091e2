package main

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/born-ml/mdarray/internal/config"
	"github.com/born-ml/mdarray/internal/device"
	_ "github.com/born-ml/mdarray/internal/device/webgpu" // registers "webgpu" on Windows
	"github.com/born-ml/mdarray/internal/logging"
)

// app carries what the subcommands share once the root command has loaded it.
type app struct {
	v          *viper.Viper
	configPath string
	cfg        *config.Config
	backend    device.Backend
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:   "mdarray",
		Short: "Host/device N-dimensional array toolkit",
		Long: `mdarray exercises the array library: it runs the acceptance scenarios,
stress-tests allocation accounting under concurrent workers and prints the
effective configuration (defaults < YAML file < MDARRAY_* environment < flags).`,
		SilenceUsage:      true,
		PersistentPreRunE: a.load,
		PersistentPostRun: a.close,
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Configuration file path (YAML)")
	flags.String("log-level", "", "Log level: debug, info, warn, error")
	flags.String("log-format", "", "Log format: text or json")
	flags.String("device", "", "Device backend: emulated, none, webgpu")
	bind(a.v, root, "log.level", "log-level")
	bind(a.v, root, "log.format", "log-format")
	bind(a.v, root, "device.backend", "device")

	root.AddCommand(
		newVersionCmd(),
		newSelftestCmd(a),
		newStressCmd(a),
		newConfigCmd(a),
	)
	return root
}

func bind(v *viper.Viper, cmd *cobra.Command, key, flag string) {
	if err := v.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

// load reads the configuration, configures logging and opens the device backend.
func (a *app) load(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.v, a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	if err := logging.Configure(cfg.Log.Level, cfg.Log.Format); err != nil {
		return err
	}
	logging.SetOutput(cmd.ErrOrStderr())

	if cmd.Annotations["device"] != "true" {
		return nil
	}
	backend, err := device.Open(cfg.Device.Backend, cfg.Device.Capacity)
	if err != nil {
		return fmt.Errorf("open device %q: %w", cfg.Device.Backend, err)
	}
	a.backend = backend
	device.SetDefault(backend)
	logging.L().WithFields(logrus.Fields{"backend": backend.Name(), "capacity": cfg.Device.Capacity}).Debug("device opened")
	return nil
}

// close releases a backend that holds native resources.
func (a *app) close(_ *cobra.Command, _ []string) {
	if r, ok := a.backend.(interface{ Release() }); ok {
		r.Release()
	}
	device.SetDefault(device.Unavailable{})
}
