package cmd

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/cache"
	"github.com/spigell/freelance-advisor/internal/logger"
	"github.com/spigell/freelance-advisor/internal/metrics"
	"github.com/spigell/freelance-advisor/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the agent HTTP API",
	Run: func(_ *cobra.Command, _ []string) {
		serve()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "", "listen address, host:port (default is "+server.DefaultAddr+")")
	serveCmd.Flags().Duration("warm-interval", 0, "refresh cached resources in the background at this interval")

	viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
	viper.BindPFlag("cache.warm-interval", serveCmd.Flags().Lookup("warm-interval"))
}

func serve() {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("can't initialize zap logger: %v", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("failed to load config", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	agent, err := newAgent(ctx, config, logger, m)
	if err != nil {
		logger.Fatal("failed to build agent", zap.Error(err))
	}
	defer agent.Close()

	if config.Cache.WarmInterval > 0 {
		warmer := cache.NewWarmer(agent.cache, config.Cache.WarmInterval, agent.backend.Resources(), logger)
		if err := warmer.Start(ctx); err != nil {
			logger.Fatal("failed to start cache warmer", zap.Error(err))
		}
		defer warmer.Stop()
	}

	logger.Info("starting the freelance-advisor",
		zap.String("version", version),
		zap.String("name", config.Name),
		zap.String("addr", config.Server.Addr),
		zap.String("provider", config.LLM.Provider),
		zap.String("model", config.LLM.Model),
	)

	srv := server.New(config.Server, config.Name, agent.orchestrator, agent.cache, logger, m)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("server stopped with error", zap.Error(err))
		return
	}

	logger.Info("agent stopped")
}
