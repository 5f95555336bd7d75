package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds the configuration knobs of a bring-up run, plus the
// transport backend selection needed to pick an adapter.
type Config struct {
	Transport string // "usbfs", "gousb", or "simulator"
	VendorID  uint16
	ProductID uint16
	DevicePath string // usbfs bus/device path, e.g. "/dev/bus/usb/001/004"

	Timeout          time.Duration
	CacheCapacity    int
	BlockSizeAssumed int
	LUN              uint8
}

// Default returns the stack's knob defaults.
func Default() Config {
	return Config{
		Transport:        "simulator",
		Timeout:          1 * time.Second,
		CacheCapacity:    128,
		BlockSizeAssumed: 512,
		LUN:              0,
	}
}

// BindFlags registers every knob as a persistent flag on fs, following the
// teacher-repo cobra style of binding flags directly to a shared options
// struct (mirrored from coreos-assembler's mantle/cmd/ore subcommands,
// which bind PersistentFlags into a package-level options value before
// preflight).
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&c.Transport, "transport", c.Transport, "transport backend: usbfs, gousb, or simulator")
	fs.Uint16Var(&c.VendorID, "vid", c.VendorID, "USB vendor ID (gousb transport)")
	fs.Uint16Var(&c.ProductID, "pid", c.ProductID, "USB product ID (gousb transport)")
	fs.StringVar(&c.DevicePath, "device", c.DevicePath, "usbdevfs device path (usbfs transport)")
	fs.DurationVar(&c.Timeout, "timeout", c.Timeout, "timeout for each device read, write, or flush call")
	fs.IntVar(&c.CacheCapacity, "cache-capacity", c.CacheCapacity, "number of cached blocks")
	fs.IntVar(&c.BlockSizeAssumed, "block-size", c.BlockSizeAssumed, "nominal block size (recorded only; the cache uses the block size the device reports)")
	fs.Uint8Var(&c.LUN, "lun", c.LUN, "logical unit number to bring up")
}

// Load merges defaults, an optional config file, environment variables
// (USBMSCTL_*), and already-parsed flags (via BindFlags) through viper,
// returning the effective Config.
func Load(fs *pflag.FlagSet, configFile string) (Config, error) {
	c := Default()

	v := viper.New()
	v.SetEnvPrefix("USBMSCTL")
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return c, fmt.Errorf("config: reading %s: %w", configFile, err)
		}
	}

	if err := v.BindPFlags(fs); err != nil {
		return c, fmt.Errorf("config: binding flags: %w", err)
	}

	c.Transport = v.GetString("transport")
	c.VendorID = uint16(v.GetUint32("vid"))
	c.ProductID = uint16(v.GetUint32("pid"))
	c.DevicePath = v.GetString("device")
	c.Timeout = v.GetDuration("timeout")
	c.CacheCapacity = v.GetInt("cache-capacity")
	c.BlockSizeAssumed = v.GetInt("block-size")
	c.LUN = uint8(v.GetUint32("lun"))

	return c, nil
}
