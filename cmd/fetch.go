package cmd

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"slices"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/logger"
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <resource>",
	Short: "Fetch and print the records of a backend resource (jobs, users, ratings)",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		fetch(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().Bool("no-cache", false, "always query the backend instead of the cache")
}

func fetch(cmd *cobra.Command, resource string) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	ctx := context.Background()
	data, err := newDataLayer(ctx, config, logger, nil)
	if err != nil {
		logger.Fatal("building the data layer", zap.Error(err))
	}
	defer data.Close()

	if !slices.Contains(data.backend.Resources(), resource) {
		logger.Fatal("unknown resource", zap.String("resource", resource), zap.Strings("known", data.backend.Resources()))
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	fetcher := data.cache.GetOrFetch
	if noCache {
		fetcher = data.backend.Fetch
	}

	records, err := fetcher(ctx, resource)
	if err != nil {
		logger.Fatal("fetching records", zap.String("resource", resource), zap.Error(err))
	}
	logger.Info("fetched records", zap.String("resource", resource), zap.Int("count", len(records)))

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		logger.Fatal("writing records", zap.Error(err))
	}
}
