// Package cli assembles the usbmsctl cobra command tree, binding the
// module's configuration knobs the same way coreos-assembler's
// mantle/cmd/ore subcommands bind their PersistentFlags into a shared
// options struct before preflight.
package cli

import (
	"log/slog"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ardnew/usbms/config"
	"github.com/ardnew/usbms/pkg"
	"github.com/ardnew/usbms/session"
	"github.com/ardnew/usbms/transport"
	"github.com/ardnew/usbms/transport/gousb"
	"github.com/ardnew/usbms/transport/simulator"
	"github.com/ardnew/usbms/transport/usbfs"
)

var (
	cfg        = config.Default()
	configFile string
	verbose    bool
	jsonLogs   bool
)

// Root returns the usbmsctl root command.
func Root() *cobra.Command {
	root := &cobra.Command{
		Use:           "usbmsctl",
		Short:         "Inspect and exercise a USB mass storage device from the host side",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if verbose {
				pkg.SetLogLevel(slog.LevelDebug)
			}
			if jsonLogs {
				pkg.SetLogFormat(pkg.LogFormatJSON)
			}
			loaded, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return errors.Wrap(err, "loading configuration")
			}
			cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVar(&configFile, "config", "", "optional config file (viper-compatible: yaml, json, toml, ...)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.PersistentFlags().BoolVar(&jsonLogs, "json-logs", false, "emit logs as JSON")
	cfg.BindFlags(root.PersistentFlags())

	root.AddCommand(infoCmd(), ddCmd(), benchCmd())
	return root
}

// openDevice resolves the configured transport backend and brings up a
// mass-storage session on it, following the bring-up sequence spec.md S4.E
// describes.
func openDevice(cmd *cobra.Command) (*session.Device, error) {
	adapter, err := resolveAdapter()
	if err != nil {
		return nil, err
	}

	dev, err := session.Open(cmd.Context(), adapter,
		session.WithTimeout(cfg.Timeout),
		session.WithCacheCapacity(cfg.CacheCapacity),
		session.WithBlockSizeAssumed(cfg.BlockSizeAssumed),
		session.WithLUN(cfg.LUN),
	)
	if err != nil {
		return nil, errors.Wrap(err, "opening mass storage session")
	}
	return dev, nil
}

func resolveAdapter() (transport.Adapter, error) {
	switch cfg.Transport {
	case "usbfs":
		if cfg.DevicePath == "" {
			return nil, errors.New("--device is required for the usbfs transport")
		}
		return usbfs.New(cfg.DevicePath), nil
	case "gousb":
		if cfg.VendorID == 0 || cfg.ProductID == 0 {
			return nil, errors.New("--vid and --pid are required for the gousb transport")
		}
		return gousb.New(cfg.VendorID, cfg.ProductID), nil
	case "simulator", "":
		return simulator.New(simulator.Options{}), nil
	default:
		return nil, errors.Errorf("unknown transport %q", cfg.Transport)
	}
}
