package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/civicai/civicai/internal/issues"
	"github.com/civicai/civicai/internal/logging"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// report flags
var (
	titleFlag     string
	latitudeFlag  float64
	longitudeFlag float64
	addressFlag   string
	anonymousFlag bool
)

var reportCmd = &cobra.Command{
	Use:   "report <image>",
	Short: "Classify a photo and file an issue report with a civicd server",
	Long: `report classifies the photo, pre-fills an issue from the verdict and the
photo's EXIF location, and submits it to the civicd server. The photo itself
is uploaded to the issue afterwards.`,
	Args: cobra.ExactArgs(1),
	Run:  runReport,
}

func init() {
	reportCmd.Flags().StringVar(&serverFlag, "server", "http://localhost:8080", "civicd server base URL")
	reportCmd.Flags().StringVarP(&titleFlag, "title", "t", "", "Issue title (defaults to the AI description)")
	reportCmd.Flags().Float64Var(&latitudeFlag, "lat", 0, "Issue latitude (defaults to EXIF GPS)")
	reportCmd.Flags().Float64Var(&longitudeFlag, "lng", 0, "Issue longitude (defaults to EXIF GPS)")
	reportCmd.Flags().StringVar(&addressFlag, "address", "", "Street address of the issue")
	reportCmd.Flags().BoolVar(&anonymousFlag, "anonymous", true, "File the report anonymously")
}

func runReport(cmd *cobra.Command, args []string) {
	logging.Init()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	b64, meta := loadImage(args[0])

	classifier, err := newClassifier(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to set up classifier")
	}

	result := classifier.ClassifyImage(ctx, b64, printProgress)
	if result.Fallback {
		fmt.Fprintln(os.Stderr, "Classification unavailable; filing with manual defaults")
	}

	lat, lng := latitudeFlag, longitudeFlag
	if lat == 0 && lng == 0 && meta != nil && meta.HasGPS {
		lat, lng = meta.Latitude, meta.Longitude
	}

	title := titleFlag
	if title == "" {
		title = result.Description
	}

	issue, err := submitIssue(ctx, issuePayload{
		Anonymous:    anonymousFlag,
		Title:        title,
		Description:  result.Description,
		Category:     result.Category,
		Priority:     string(issues.PriorityFromUrgency(result.Urgency)),
		Latitude:     lat,
		Longitude:    lng,
		Address:      addressFlag,
		AICategory:   result.Category,
		AIConfidence: result.Confidence,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to submit issue")
	}

	fmt.Printf("Issue filed: %s\n", issue["id"])
	printResult(issue)
}

type issuePayload struct {
	Anonymous    bool    `json:"anonymous"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	Category     string  `json:"category"`
	Priority     string  `json:"priority"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	Address      string  `json:"address"`
	AICategory   string  `json:"aiCategory"`
	AIConfidence int     `json:"aiConfidence"`
}

// submitIssue posts the issue to civicd and decodes the created record.
func submitIssue(ctx context.Context, payload issuePayload) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding issue: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		serverFlag+"/api/issues", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posting issue: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode != http.StatusCreated {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, respBody)
	}

	var issue map[string]interface{}
	if err := json.Unmarshal(respBody, &issue); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return issue, nil
}
