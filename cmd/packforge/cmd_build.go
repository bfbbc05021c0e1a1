package main

import (
	"fmt"

	"github.com/odvcencio/packforge/pkg/object"
	"github.com/odvcencio/packforge/pkg/pack"
	"github.com/spf13/cobra"
)

func newBuildCmd() *cobra.Command {
	var (
		storePath string
		outPath   string
		cfgPath   string
	)

	cmd := &cobra.Command{
		Use:   "build <root-hash>...",
		Short: "Build a pack file from one or more root objects",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pack.LoadConfig(cfgPath)
			if err != nil {
				return err
			}

			store := object.NewStore(storePath)
			b := pack.New(store, cfg)

			for _, arg := range args {
				hash := object.Hash(arg)
				kind, _, err := store.Read(hash)
				if err != nil {
					return fmt.Errorf("resolve root %s: %w", hash, err)
				}
				if kind == object.TypeTree {
					if err := b.InsertTree(hash); err != nil {
						return err
					}
					continue
				}
				if err := b.Insert(hash, ""); err != nil {
					return err
				}
			}

			sum, err := b.WriteToFile(cmd.Context(), outPath)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d objects, checksum %s)\n", outPath, b.Len(), sum)
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "store", ".", "root of the backing object store")
	cmd.Flags().StringVar(&outPath, "out", "out.pack", "destination pack file path")
	cmd.Flags().StringVar(&cfgPath, "config", "packforge.toml", "pack builder configuration file")
	return cmd
}
