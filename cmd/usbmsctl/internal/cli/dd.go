package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func ddCmd() *cobra.Command {
	var (
		inputPath  string
		outputPath string
		offset     int64
		count      int64
	)

	cmd := &cobra.Command{
		Use:   "dd",
		Short: "Copy bytes between the device and a local file through the block cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (inputPath == "") == (outputPath == "") {
				return errors.New("exactly one of --if or --of must name the device")
			}

			dev, err := openDevice(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			if _, err := dev.Seek(offset, io.SeekStart); err != nil {
				return errors.Wrap(err, "seeking device")
			}

			if outputPath == "" {
				// --of device: read from --if file, write to device.
				f, err := os.Open(inputPath)
				if err != nil {
					return errors.Wrap(err, "opening input file")
				}
				defer f.Close()
				n, err := copyN(dev, f, count)
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %d bytes\n", n)
				if err != nil {
					return err
				}
				return dev.Flush()
			}

			// --if device: read from device, write to --of file.
			f, err := os.Create(outputPath)
			if err != nil {
				return errors.Wrap(err, "creating output file")
			}
			defer f.Close()
			n, err := copyN(f, dev, count)
			fmt.Fprintf(cmd.OutOrStdout(), "read %d bytes\n", n)
			return err
		},
	}

	cmd.Flags().StringVar(&inputPath, "if", "", "local file to write to the device (device is the output)")
	cmd.Flags().StringVar(&outputPath, "of", "", "local file to receive device data (device is the input)")
	cmd.Flags().Int64Var(&offset, "skip", 0, "byte offset on the device to start at")
	cmd.Flags().Int64Var(&count, "count", -1, "number of bytes to copy; -1 copies until EOF")
	return cmd
}

func copyN(dst io.Writer, src io.Reader, count int64) (int64, error) {
	if count < 0 {
		return io.Copy(dst, src)
	}
	return io.CopyN(dst, src, count)
}
