package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/freelance-advisor/internal/logger"
	"github.com/spigell/freelance-advisor/internal/metrics"
)

const promptExit = "exit"

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the agent a question, or start an interactive session without arguments",
	Run: func(cmd *cobra.Command, args []string) {
		ask(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringP("user", "u", "", "act as this logged in user id")
}

func ask(cmd *cobra.Command, args []string) {
	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}
	defer logger.Sync()

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	userID, _ := cmd.Flags().GetString("user")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	agent, err := newAgent(ctx, config, logger, metrics.New())
	if err != nil {
		logger.Fatal("building the agent", zap.Error(err))
	}
	defer agent.Close()

	if question := strings.TrimSpace(strings.Join(args, " ")); question != "" {
		fmt.Println(agent.orchestrator.Respond(ctx, question, userID))
		return
	}

	if err := interactive(ctx, agent, userID); err != nil {
		logger.Fatal("interactive session failed", zap.Error(err))
	}
}

func interactive(ctx context.Context, a *agent, userID string) error {
	prompt := promptui.Prompt{
		Label: "You",
		Validate: func(s string) error {
			if strings.TrimSpace(s) == "" {
				return errors.New("empty question")
			}
			return nil
		},
	}

	fmt.Printf("Type %q or press Ctrl+C to leave.\n", promptExit)
	for ctx.Err() == nil {
		question, err := prompt.Run()
		if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
			return nil
		}
		if err != nil {
			return err
		}

		question = strings.TrimSpace(question)
		if strings.EqualFold(question, promptExit) {
			return nil
		}

		fmt.Printf("\n%s\n\n", a.orchestrator.Respond(ctx, question, userID))
	}

	return nil
}
