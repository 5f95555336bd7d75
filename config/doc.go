// Package config loads usbmsctl's configuration knobs from flags,
// environment variables, and an optional config file, layered with
// github.com/spf13/pflag and github.com/spf13/viper the way coreos-assembler's
// mantle/cmd/ore subcommands bind PersistentFlags before preflight.
package config
