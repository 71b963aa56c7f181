package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"labelcheck/internal/compliance"
	"labelcheck/internal/config"
	"labelcheck/internal/extraction"
	"labelcheck/internal/logger"
	"labelcheck/internal/rules"
	"labelcheck/internal/store"
	"labelcheck/pkg/models"
)

var verifyCmd = &cobra.Command{
	Use:   "verify [image-files...]",
	Short: "Verify label images against application data",
	Long: `Run one compliance validation: OCR the label images, classify the text
into candidate field values, compare every expected field, and compute the
overall compliance decision.

The application data file is a JSON object mapping application keys to the
declared values, for example:

  {"brand_name": "Old Tom Reserve", "alcohol_content": "45% ALC/VOL",
   "net_contents": "750 mL", "class_type": "Straight Bourbon Whiskey",
   "name_address": "Old Tom Distilling Co., Louisville, KY"}

Required environment variables:
  GOOGLE_APPLICATION_CREDENTIALS - Path to service account JSON file, OR
  GOOGLE_CREDENTIALS - Inline JSON credentials string
  OPENAI_API_KEY - OpenAI API key for the field classifier`,
	Example: `  # Verify two label photographs of a wine application
  labelcheck verify front.jpg back.jpg -a application.json -b wine --container-ml 750

  # Verify a PDF label sheet via Document AI
  labelcheck verify label-sheet.pdf --pdf -a application.json -b distilled_spirits

  # Persist the result for later status inspection
  labelcheck verify front.jpg -a application.json -b malt_beverage --save`,
	Args: cobra.MinimumNArgs(1),
	RunE: runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().StringP("application", "a", "", "JSON file with the application field data (required)")
	verifyCmd.Flags().StringP("beverage-type", "b", "", "Beverage category: wine, distilled_spirits or malt_beverage (required)")
	verifyCmd.Flags().Int("container-ml", 0, "Declared container size in milliliters")
	verifyCmd.Flags().Bool("pdf", false, "Treat the single input file as a PDF label sheet (Document AI)")
	verifyCmd.Flags().Bool("save", false, "Persist the result to the database")
	verifyCmd.Flags().String("label-id", "", "Existing label ID to attach the result to (default: new label)")
	verifyCmd.Flags().Bool("json", false, "Output as JSON")
	verifyCmd.Flags().StringP("output", "o", "", "Output file path (default: stdout)")
	verifyCmd.Flags().Int("timeout", 120, "Processing timeout in seconds")

	_ = verifyCmd.MarkFlagRequired("application")
	_ = verifyCmd.MarkFlagRequired("beverage-type")
}

// pdfExtractor adapts a pre-OCR'd PDF text to the Extractor contract so the
// pipeline stays uniform across image and PDF submissions.
type pdfExtractor struct {
	classifier *extraction.OpenAIExtractor
	texts      []string
}

func (p *pdfExtractor) ExtractFields(ctx context.Context, _ [][]byte, bt models.BeverageType, hints map[models.FieldID]string) (*extraction.Result, error) {
	return p.classifier.ExtractFromText(ctx, p.texts, bt, hints)
}

func runVerify(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("verify")

	applicationPath, _ := cmd.Flags().GetString("application")
	beverageType, _ := cmd.Flags().GetString("beverage-type")
	containerMl, _ := cmd.Flags().GetInt("container-ml")
	isPDF, _ := cmd.Flags().GetBool("pdf")
	save, _ := cmd.Flags().GetBool("save")
	labelIDFlag, _ := cmd.Flags().GetString("label-id")
	jsonOutput, _ := cmd.Flags().GetBool("json")
	outputPath, _ := cmd.Flags().GetString("output")
	timeoutSecs, _ := cmd.Flags().GetInt("timeout")

	bt := models.BeverageType(beverageType)
	switch bt {
	case models.BeverageWine, models.BeverageDistilledSpirits, models.BeverageMalt:
	default:
		return fmt.Errorf("unknown beverage type %q", beverageType)
	}

	if isPDF && len(args) != 1 {
		return fmt.Errorf("--pdf expects exactly one input file")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ruleset, err := loadRuleset(cfg)
	if err != nil {
		return err
	}

	application, err := readApplicationData(applicationPath)
	if err != nil {
		return err
	}

	expected, unknown := compliance.BuildExpectedFields(application, bt, ruleset)
	for _, key := range unknown {
		log.Warn().Str("key", key).Msg("Unknown application data key, ignoring")
	}
	if missing := expected.MissingMandatory(bt, ruleset); len(missing) > 0 {
		return fmt.Errorf("application data is missing mandatory fields for %s: %v", bt, missing)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Duration(timeoutSecs)*time.Second)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	classifier, err := extraction.NewOpenAIExtractor(ctx)
	if err != nil {
		return err
	}

	var extractor extraction.Extractor = classifier
	var images [][]byte

	if isPDF {
		docOCR, err := extraction.NewDocumentOCR(ctx)
		if err != nil {
			return err
		}
		defer docOCR.Close()

		pdfFile, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open PDF: %w", err)
		}
		text, err := docOCR.ProcessPDF(ctx, pdfFile)
		pdfFile.Close()
		if err != nil {
			return err
		}
		extractor = &pdfExtractor{classifier: classifier, texts: []string{text}}
	} else {
		for _, path := range args {
			img, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("failed to read image %s: %w", path, err)
			}
			images = append(images, img)
		}
	}

	verifier := compliance.NewVerifier(extractor, ruleset)
	result, err := verifier.Verify(ctx, compliance.VerifyInput{
		Expected:        expected,
		Images:          images,
		BeverageType:    bt,
		ContainerSizeMl: containerMl,
	})
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	if save {
		if err := saveResult(ctx, cfg, result, application, bt, containerMl, labelIDFlag); err != nil {
			return err
		}
	}

	return writeVerifyOutput(result, jsonOutput, outputPath)
}

func loadRuleset(cfg *config.Config) (*rules.Ruleset, error) {
	if cfg.RulesFile != "" {
		return rules.Load(cfg.RulesFile)
	}
	return rules.Default(), nil
}

func readApplicationData(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read application data: %w", err)
	}
	var application map[string]string
	if err := json.Unmarshal(data, &application); err != nil {
		return nil, fmt.Errorf("failed to parse application data: %w", err)
	}
	return application, nil
}

func saveResult(ctx context.Context, cfg *config.Config, result *compliance.VerifyOutput, application map[string]string, bt models.BeverageType, containerMl int, labelIDFlag string) error {
	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		return err
	}
	defer db.Close()

	labelID := uuid.New()
	if labelIDFlag != "" {
		parsed, err := uuid.Parse(labelIDFlag)
		if err != nil {
			return fmt.Errorf("invalid label ID %q: %w", labelIDFlag, err)
		}
		labelID = parsed
	}

	label := &models.Label{
		ID:              labelID,
		BrandName:       application["brand_name"],
		BeverageType:    bt,
		ContainerSizeMl: containerMl,
		Status:          result.Status,
	}
	if err := db.SaveLabel(ctx, label); err != nil {
		return err
	}

	record := &models.ValidationResult{
		LabelID:          labelID,
		Status:           result.Status,
		DeadlineDays:     result.DeadlineDays,
		Confidence:       result.Confidence,
		Fields:           result.Fields,
		ModelUsed:        result.Extraction.ModelUsed,
		ProcessingTimeMs: result.Extraction.ProcessingTime.Milliseconds(),
		PromptTokens:     result.Extraction.Tokens.PromptTokens,
		CompletionTokens: result.Extraction.Tokens.CompletionTokens,
	}
	if err := db.SaveResult(ctx, record); err != nil {
		return err
	}

	fmt.Printf("Saved validation result for label %s\n", labelID)
	return nil
}

func writeVerifyOutput(result *compliance.VerifyOutput, jsonOutput bool, outputPath string) error {
	out := os.Stdout
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		out = f
	}

	if jsonOutput {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	fmt.Fprintf(out, "Overall status: %s\n", result.Status)
	if result.DeadlineDays > 0 {
		fmt.Fprintf(out, "Correction deadline: %d days\n", result.DeadlineDays)
	}
	fmt.Fprintf(out, "Confidence: %.1f\n\n", result.Confidence)

	for _, f := range result.Fields {
		fmt.Fprintf(out, "%-22s %-18s %5.1f  %s\n", f.Field, f.Status, f.Confidence, f.Reasoning)
	}

	if len(result.ImageRelabels) > 0 {
		fmt.Fprintln(out)
		for _, r := range result.ImageRelabels {
			fmt.Fprintf(out, "Image %d looks like a %s label (confidence %.0f)\n", r.ImageIndex, r.ImageType, r.Confidence)
		}
	}
	return nil
}
