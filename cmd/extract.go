package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"labelcheck/internal/extraction"
)

var extractCmd = &cobra.Command{
	Use:   "extract [image-files...]",
	Short: "Dump raw OCR output for label images",
	Long: `Run Google Cloud Vision document text detection over label images and
print the raw OCR output. Useful for debugging why a field was or was not
reconciled during verification.`,
	Example: `  # Print OCR text for a label photograph
  labelcheck extract front.jpg

  # Include word-level bounding boxes as JSON
  labelcheck extract front.jpg back.jpg --words --json`,
	Args: cobra.RangeArgs(1, extraction.MaxImages),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().Bool("words", false, "Include word-level entries with bounding boxes")
	extractCmd.Flags().Bool("json", false, "Output as JSON")
	extractCmd.Flags().Int("timeout", 60, "Processing timeout in seconds")
}

func runExtract(cmd *cobra.Command, args []string) error {
	includeWords, _ := cmd.Flags().GetBool("words")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	ocr, err := extraction.NewVisionOCR(ctx)
	if err != nil {
		return err
	}
	defer ocr.Close()

	var images [][]byte
	for _, path := range args {
		img, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read image %s: %w", path, err)
		}
		images = append(images, img)
	}

	pages, err := ocr.AnnotateImages(ctx, images)
	if err != nil {
		return err
	}

	if jsonOutput {
		type page struct {
			File       string            `json:"file"`
			Text       string            `json:"text"`
			Confidence float64           `json:"confidence"`
			Words      []extraction.Word `json:"words,omitempty"`
		}
		out := make([]page, len(pages))
		for i, p := range pages {
			out[i] = page{File: args[i], Text: p.Text, Confidence: p.Confidence}
			if includeWords {
				out[i].Words = p.Words
			}
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	for i, p := range pages {
		fmt.Printf("--- %s (confidence %.2f) ---\n%s\n", args[i], p.Confidence, p.Text)
		if includeWords {
			for _, w := range p.Words {
				fmt.Printf("  %-24s conf=%.2f box=(%.3f,%.3f %.3fx%.3f)\n",
					w.Text, w.Confidence, w.Bounds.X, w.Bounds.Y, w.Bounds.Width, w.Bounds.Height)
			}
		}
		fmt.Println()
	}
	return nil
}
