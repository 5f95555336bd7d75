// Command usbmsctl is a host-side utility for bringing up a USB mass
// storage device, inspecting it, and reading/writing raw blocks through the
// session/blockcache stack.
package main

import (
	"fmt"
	"os"

	"github.com/ardnew/usbms/cmd/usbmsctl/internal/cli"
)

func main() {
	if err := cli.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
