package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ardnew/usbms/pkg/linux/usbid"
)

func infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Bring up the device and print its identity and geometry",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := openDevice(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			id := dev.Identity()
			geo := dev.Geometry()
			fmt.Fprintf(cmd.OutOrStdout(), "device:    %s\n", dev.Name())
			if cfg.Transport == "gousb" && cfg.VendorID != 0 {
				if name := lookupUSBIDName(cfg.VendorID, cfg.ProductID); name != "" {
					fmt.Fprintf(cmd.OutOrStdout(), "usb.ids:   %s\n", name)
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "revision:  %s\n", id.Revision)
			fmt.Fprintf(cmd.OutOrStdout(), "removable: %t\n", id.Removable)
			fmt.Fprintf(cmd.OutOrStdout(), "blocks:    %d\n", geo.BlockCount())
			fmt.Fprintf(cmd.OutOrStdout(), "blocksize: %d\n", geo.BlockSize())
			fmt.Fprintf(cmd.OutOrStdout(), "capacity:  %d bytes\n", geo.CapacityBytes())
			return nil
		},
	}
}

// lookupUSBIDName resolves a VID/PID pair against the system usb.ids
// database for a friendlier label than the bare INQUIRY strings, when one
// is installed. It returns "" on any platform or lookup miss.
func lookupUSBIDName(vid, pid uint16) string {
	db := usbid.New()
	if !db.Load() {
		return ""
	}
	vendor := db.LookupVendor(vid)
	product := db.LookupProduct(vid, pid)
	switch {
	case vendor != "" && product != "":
		return vendor + " " + product
	case vendor != "":
		return vendor
	default:
		return ""
	}
}
