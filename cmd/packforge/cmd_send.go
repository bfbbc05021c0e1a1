package main

import (
	"fmt"

	"github.com/odvcencio/packforge/pkg/object"
	"github.com/odvcencio/packforge/pkg/pack"
	"github.com/spf13/cobra"
)

func newSendCmd() *cobra.Command {
	var (
		storePath string
		remoteURL string
		cfgPath   string
	)

	cmd := &cobra.Command{
		Use:   "send <root-hash>...",
		Short: "Build a pack from one or more root objects and POST it to a remote",
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

			sink := pack.NewNetworkSink(remoteURL)
			if err := b.Send(cmd.Context(), sink); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "sent %d objects to %s\n", b.Len(), remoteURL)
			return nil
		},
	}

	cmd.Flags().StringVar(&storePath, "store", ".", "root of the backing object store")
	cmd.Flags().StringVar(&remoteURL, "remote", "", "remote endpoint to POST the pack to")
	cmd.Flags().StringVar(&cfgPath, "config", "packforge.toml", "pack builder configuration file")
	_ = cmd.MarkFlagRequired("remote")
	return cmd
}
