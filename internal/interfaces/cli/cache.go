package cli

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/corpgraph/CorpRisk-Insight/internal/analysis/weights"
	redisstore "github.com/corpgraph/CorpRisk-Insight/internal/infrastructure/database/redis"
)

func newCacheCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and invalidate the edge-weight cache",
	}
	cmd.AddCommand(newCacheInspectCmd(root))
	cmd.AddCommand(newCacheInvalidateCmd(root))
	return cmd
}

// openStore connects the configured redis-backed weight store.
func openStore(ctx context.Context, root *rootOptions) (weights.Store, func(), error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log := root.logger()
	client, err := redisstore.NewClient(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	store := redisstore.NewWeightStore(client, cfg.Redis.KeyPrefix, log)
	return store, func() { _ = client.Close() }, nil
}

func newCacheInspectCmd(root *rootOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List cached weight-set keys, or dump one entry",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			store, cleanup, err := openStore(ctx, root)
			if err != nil {
				return err
			}
			defer cleanup()

			if key != "" {
				entry, ok, err := store.Get(ctx, key)
				if err != nil {
					return err
				}
				if !ok {
					return fmt.Errorf("no cached weight set for key %q", key)
				}
				if root.output == "json" {
					return printJSON(map[string]interface{}{"key": key, "weights": entry})
				}
				w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
				fmt.Fprintln(w, "EDGE\tWEIGHT")
				for edge, weight := range entry {
					fmt.Fprintf(w, "%s\t%.4f\n", edge, weight)
				}
				return w.Flush()
			}

			keys, err := store.Keys(ctx)
			if err != nil {
				return err
			}
			if root.output == "json" {
				return printJSON(map[string]interface{}{"keys": keys, "count": len(keys)})
			}
			for _, k := range keys {
				fmt.Println(k)
			}
			fmt.Printf("%d cached weight set(s)\n", len(keys))
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "dump this cache entry instead of listing keys")
	return cmd
}

func newCacheInvalidateCmd(root *rootOptions) *cobra.Command {
	var key string

	cmd := &cobra.Command{
		Use:   "invalidate",
		Short: "Drop one cache entry, or the whole cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			store, cleanup, err := openStore(ctx, root)
			if err != nil {
				return err
			}
			defer cleanup()

			removed, err := store.Invalidate(ctx, key)
			if err != nil {
				return err
			}
			fmt.Printf("removed %d cached weight set(s)\n", removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&key, "key", "", "invalidate only this key (empty drops everything)")
	return cmd
}
