package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/ardnew/usbms/pkg/prof"
)

func benchCmd() *cobra.Command {
	var (
		blocks     int
		chunkBytes int
		cpuProfile string
	)

	cmd := &cobra.Command{
		Use:   "bench",
		Short: "Measure sequential read throughput through the block cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			dev, err := openDevice(cmd)
			if err != nil {
				return err
			}
			defer dev.Close()

			if cpuProfile != "" {
				if err := prof.StartCPU(cpuProfile); err != nil {
					return errors.Wrap(err, "starting cpu profile")
				}
				defer prof.StopCPU()
			}

			total := int64(blocks) * int64(dev.BlockSize())
			if total <= 0 {
				return errors.New("--blocks must be positive")
			}

			buf := make([]byte, chunkBytes)
			start := time.Now()
			var read int64
			for read < total {
				n, err := dev.Read(buf)
				read += int64(n)
				if err != nil {
					if err == io.EOF {
						break
					}
					return errors.Wrap(err, "reading device")
				}
			}
			elapsed := time.Since(start)

			mbPerSec := float64(read) / elapsed.Seconds() / (1 << 20)
			fmt.Fprintf(cmd.OutOrStdout(), "read %d bytes in %s (%.2f MB/s)\n", read, elapsed, mbPerSec)
			return nil
		},
	}

	cmd.Flags().IntVar(&blocks, "blocks", 256, "number of logical blocks to read")
	cmd.Flags().IntVar(&chunkBytes, "chunk", 4096, "read chunk size in bytes")
	cmd.Flags().StringVar(&cpuProfile, "cpuprofile", "", "write a CPU profile to this path while benchmarking (requires -tags profile to capture samples)")
	return cmd
}
