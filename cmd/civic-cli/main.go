package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/civicai/civicai/internal/auth"
	"github.com/civicai/civicai/internal/classify"
	"github.com/civicai/civicai/internal/config"
	"github.com/civicai/civicai/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// CLI flags
var (
	modelFlag  string
	serverFlag string
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "civic",
	Short: "AI-assisted civic issue reporting",
	Long: `Civic CLI classifies photos and descriptions of civic issues (potholes,
broken streetlights, garbage, water leaks) using Gemini, and files reports
against a civicd server.

Examples:
  civic classify ./pothole.jpg
  civic describe "water leaking from a broken pipe on Oak Street"
  civic check
  civic report ./pothole.jpg --title "Pothole on Oak St" --server http://localhost:8080`,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&modelFlag, "model", "m", "", "Gemini model to use (overrides config)")
	rootCmd.AddCommand(classifyCmd, describeCmd, checkCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newClassifier wires a Classifier from config and the stored API key.
func newClassifier(ctx context.Context) (*classify.Classifier, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	model := cfg.Gemini.Model
	if modelFlag != "" {
		model = modelFlag
	}

	apiKey, err := auth.GetAPIKey()
	if err != nil {
		return nil, err
	}

	client, err := classify.NewGeminiClient(ctx, apiKey)
	if err != nil {
		return nil, err
	}

	return classify.New(classify.Config{
		MaxAttempts: cfg.Gemini.MaxAttempts,
		BaseDelay:   cfg.Gemini.BaseDelay,
		MinInterval: cfg.Gemini.MinInterval,
	},
		classify.NewSDKTransport(client, model),
		classify.NewRESTTransport(apiKey, model),
	), nil
}

// printProgress surfaces retry updates on stderr so stdout stays parseable.
func printProgress(message string, attempt, maxAttempts int) {
	fmt.Fprintln(os.Stderr, message)
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Verify the Gemini API key and connectivity",
	Run: func(cmd *cobra.Command, args []string) {
		logging.Init()

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		classifier, err := newClassifier(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up classifier")
		}

		if classifier.TestConnection(ctx) {
			fmt.Println("Gemini connection OK")
			return
		}
		fmt.Fprintln(os.Stderr, "Gemini connection failed")
		os.Exit(1)
	},
}
