package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/civicai/civicai/internal/logging"
	"github.com/civicai/civicai/internal/photo"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// classifyMaxDimension keeps the inline payload small enough for the model.
const classifyMaxDimension = 1024

var classifyCmd = &cobra.Command{
	Use:   "classify <image>",
	Short: "Classify a photo of a civic issue",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logging.Init()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		b64, meta := loadImage(args[0])

		classifier, err := newClassifier(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up classifier")
		}

		result := classifier.ClassifyImage(ctx, b64, printProgress)
		printResult(result)

		if meta != nil && meta.HasGPS {
			fmt.Fprintf(os.Stderr, "Photo location: %.6f, %.6f\n", meta.Latitude, meta.Longitude)
		}
	},
}

var describeCmd = &cobra.Command{
	Use:   "describe <text>",
	Short: "Structure a free-form issue description",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		logging.Init()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		classifier, err := newClassifier(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to set up classifier")
		}

		result := classifier.ClassifyText(ctx, strings.Join(args, " "), printProgress)
		printResult(result)
	},
}

// loadImage reads a JPEG from disk, downscales it, and returns the base64
// payload plus any EXIF metadata (nil when the image carries none).
func loadImage(path string) (string, *photo.Metadata) {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Failed to read image")
	}

	meta, err := photo.ExtractMetadata(data)
	if err != nil {
		log.Debug().Err(err).Msg("No EXIF metadata in image")
		meta = nil
	}

	scaled, err := photo.ScaleJPEG(data, classifyMaxDimension)
	if err != nil {
		log.Fatal().Err(err).Str("path", path).Msg("Image is not a valid JPEG")
	}

	return base64.StdEncoding.EncodeToString(scaled), meta
}

func printResult(result interface{}) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to encode result")
	}
	fmt.Println(string(out))
}
