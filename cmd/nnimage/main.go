// Command nnimage builds the disk image a bootloader and kernel ship
// on, from a bootcfg configuration file. Its flag contract is the one
// spec §6 pins down literally:
//
//	nnimage [-h] [-f CONFFILE] [-o OUTPUT] [-d DIRECTORY] ACTION
//
// ACTION is one of create, partition, update, all. Grounded in
// github.com/spf13/cobra plus github.com/spf13/pflag for the flag and
// subcommand shape, the library pair the rest of this codebase's
// host-side tooling standardizes on.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"nexke/internal/bootcfg"
	"nexke/internal/console"
	"nexke/internal/diskimage"
	"nexke/internal/klog"
)

type options struct {
	confFile  string
	output    string
	directory string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "nnimage ACTION",
		Short:         "build a nexke disk image from a bootcfg file",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(opts, args[0])
		},
	}

	flags := root.PersistentFlags()
	flags.StringVarP(&opts.confFile, "conf", "f", "nnimage.conf", "bootloader configuration file")
	flags.StringVarP(&opts.output, "output", "o", "nndisk.img", "output disk image path")
	flags.StringVarP(&opts.directory, "directory", "d", ".", "directory image sources are resolved against")

	return root
}

// run dispatches on the ACTION positional argument. create and all
// both parse the configuration, plan the layout, and write the image;
// partition only plans and reports the layout without writing;
// update is handled exactly like create: it re-plans and rewrites the
// whole output file, truncating any existing image. Grounded
// in spec §6's literal ACTION set; nnimage has no further actions.
func run(opts *options, action string) error {
	logger := klog.New(klog.NewConsoleSink(console.New(os.Stdout)), klog.Info)

	f, err := os.Open(opts.confFile)
	if err != nil {
		return fmt.Errorf("%s: %w", opts.confFile, err)
	}
	defer f.Close()

	blocks, err := bootcfg.Parse(opts.confFile, f)
	if err != nil {
		return err
	}

	img, err := diskimage.Plan(blocks, opts.directory)
	if err != nil {
		return err
	}

	switch action {
	case "create", "all", "update":
		if err := diskimage.Write(img, opts.output); err != nil {
			return err
		}
		logger.Infof("wrote %s (%d bytes, %d partitions)", opts.output, img.TotalSize, len(img.Partitions))
	case "partition":
		logger.Infof("planned %d partitions, %d bytes total", len(img.Partitions), img.TotalSize)
		for _, p := range img.Partitions {
			logger.Infof("  %-8s offset=%#x size=%#x", p.Name, p.Offset, p.Size)
		}
	default:
		return fmt.Errorf("unknown action %q (want one of create, partition, update, all)", action)
	}

	return nil
}
