// Package cli holds the tuition command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"tuition-server-go/attendance"
	"tuition-server-go/config"
	"tuition-server-go/db"
	"tuition-server-go/tracker"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "tuition",
	Short: "Tuition class attendance and fee tracker",
	Long: `tuition keeps the roster, attendance and fees of after-school classes
(grades 9 to 12) and mirrors them to a spreadsheet-backed remote endpoint.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Config file (yaml, toml or json)")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// openService loads config, opens the configured store and starts a Service on it.
// The returned close func releases the store connection.
func openService(ctx context.Context) (*tracker.Service, config.Config, func(), error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, config.Config{}, nil, err
	}

	closer := func() {}
	var blobs db.BlobStore
	switch cfg.StoreDriver {
	case "redis":
		client, err := db.InitializeRedisClient(ctx, db.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			return nil, cfg, nil, err
		}
		closer = func() {
			if err := client.Close(); err != nil {
				log.Printf("Error closing redis client: %v", err)
			}
		}
		blobs = db.NewRedisBlobStore(client, cfg.StoreKey)
	case "memory":
		blobs = &db.MemoryBlobStore{}
	default:
		blobs = db.NewFileBlobStore(cfg.StorePath)
	}

	store := db.NewDataStore(blobs, cfg.DefaultEndpoint)
	svc := tracker.NewService(store, tracker.HTTPRemote(cfg.RemoteTimeout), tracker.Options{
		Policy:         attendance.PresencePolicy{DefaultPresent: cfg.DefaultPresent},
		MasterPassword: cfg.MasterPassword,
	})
	svc.Start(ctx)
	return svc, cfg, closer, nil
}

// reportSync prints a push failure that happened after a successful local save.
// Any other error is returned.
func reportSync(w io.Writer, err error) error {
	var se *tracker.SyncError
	if errors.As(err, &se) {
		fmt.Fprintf(w, "Saved locally, but remote sync failed: %v\n", se.Err)
		return nil
	}
	return err
}

func printJSON(w io.Writer, v interface{}) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(out))
	return err
}
