// Command vfat mounts a FAT32 image file and browses it: volume info,
// directory listings and file contents.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/max-b/vfat"
)

func mount(imagePath string) (*vfat.Fs, *os.File, error) {
	imageFile, err := os.Open(imagePath)
	if err != nil {
		return nil, nil, err
	}

	fatFs, err := vfat.NewFromReader(imageFile)
	if err != nil {
		imageFile.Close()
		return nil, nil, err
	}

	return fatFs, imageFile, nil
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <image>",
		Short: "Print volume information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fatFs, imageFile, err := mount(args[0])
			if err != nil {
				return err
			}
			defer imageFile.Close()

			fmt.Fprintf(cmd.OutOrStdout(), "label: %v\n", fatFs.Label())
			return nil
		},
	}
}

func newLsCmd() *cobra.Command {
	var recursive bool

	cmd := &cobra.Command{
		Use:   "ls <image> [path]",
		Short: "List a directory of the volume",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fatFs, imageFile, err := mount(args[0])
			if err != nil {
				return err
			}
			defer imageFile.Close()

			dirPath := "/"
			if len(args) == 2 {
				dirPath = args[1]
			}

			if recursive {
				return afero.Walk(fatFs, dirPath, func(path string, info os.FileInfo, err error) error {
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%v\t%v\t%v\n", info.Size(), info.ModTime().Format("2006-01-02 15:04:05"), path)
					return nil
				})
			}

			dir, err := fatFs.Open(dirPath)
			if err != nil {
				return err
			}
			defer dir.Close()

			entries, err := dir.Readdir(-1)
			if err != nil {
				return err
			}

			for _, entry := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%v\t%v\t%v\n", entry.Size(), entry.ModTime().Format("2006-01-02 15:04:05"), entry.Name())
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&recursive, "recursive", "r", false, "walk the whole tree below path")

	return cmd
}

func newCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <image> <path>",
		Short: "Write a file of the volume to stdout",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			fatFs, imageFile, err := mount(args[0])
			if err != nil {
				return err
			}
			defer imageFile.Close()

			file, err := fatFs.Open(args[1])
			if err != nil {
				return err
			}
			defer file.Close()

			_, err = io.Copy(cmd.OutOrStdout(), file)
			return err
		},
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:           "vfat",
		Short:         "Browse FAT32 disk images",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	rootCmd.AddCommand(newInfoCmd(), newLsCmd(), newCatCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
