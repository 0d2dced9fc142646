package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/BVG-Design/brokercompare-sub001/internal/assessment"
	"github.com/BVG-Design/brokercompare-sub001/internal/encoding"
	apperrors "github.com/BVG-Design/brokercompare-sub001/internal/errors"
	"github.com/BVG-Design/brokercompare-sub001/internal/scoring"
)

// document is an assessment written by hand. JSON documents parse as YAML too.
type document struct {
	VendorID   string             `yaml:"vendor_id"`
	VendorName string             `yaml:"vendor_name"`
	Features   []featureInput     `yaml:"features"`
	Pricing    assessment.Pricing `yaml:"pricing"`
}

type featureInput struct {
	Name            string         `yaml:"name"`
	Category        string         `yaml:"category"`
	Score           *int           `yaml:"score"`
	Boost           *scoring.Boost `yaml:"boost"`
	TopFeatureOrder *int           `yaml:"top_feature_order"`
	PublicNote      string         `yaml:"public_note"`
}

type scoreReport struct {
	VendorID       string                      `json:"vendor_id,omitempty" yaml:"vendor_id,omitempty"`
	VendorName     string                      `json:"vendor_name,omitempty" yaml:"vendor_name,omitempty"`
	CategoryScores scoring.CategoryScores      `json:"category_scores" yaml:"category_scores"`
	OverallScore   float64                     `json:"overall_score" yaml:"overall_score"`
	TopFeatures    []scoring.PublicFeature     `json:"top_features" yaml:"top_features"`
	Validation     assessment.ValidationReport `json:"validation" yaml:"validation"`
}

type scoreFlags struct {
	format  string
	verbose bool
}

func newScoreCmd() *cobra.Command {
	f := &scoreFlags{}

	cmd := &cobra.Command{
		Use:   "score <file>",
		Short: "Score an assessment document and check whether it could be finalized",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScore(cmd.OutOrStdout(), cmd.ErrOrStderr(), args[0], f)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&f.format, "format", "json", "Output format: json or yaml")
	flags.BoolVar(&f.verbose, "verbose", false, "Log processing steps to stderr")

	return cmd
}

func runScore(stdout, stderr io.Writer, path string, f *scoreFlags) error {
	if f.format != "json" && f.format != "yaml" {
		return exitError(exitInvalidInput, "unknown format %q: use json or yaml", f.format)
	}

	level := slog.LevelWarn
	if f.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(tint.NewHandler(stderr, &tint.Options{Level: level, NoColor: true}))

	data, err := os.ReadFile(path)
	if err != nil {
		return exitError(exitInvalidInput, "failed to read %s: %v", path, err)
	}

	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return exitError(exitInvalidInput, "failed to parse %s: %v", path, err)
	}
	logger.Debug("Loaded assessment document", "path", path, "features", len(doc.Features))

	features, err := buildFeatures(doc.Features)
	if err != nil {
		return exitError(exitInvalidInput, "%v", err)
	}

	result := scoring.Score(features)
	top := scoring.TopFeatures(features)

	report := scoreReport{
		VendorID:       doc.VendorID,
		VendorName:     doc.VendorName,
		CategoryScores: result.CategoryScores,
		OverallScore:   result.OverallScore,
		TopFeatures:    make([]scoring.PublicFeature, 0, len(top)),
		Validation:     assessment.Check(features, doc.Pricing),
	}
	for _, feature := range top {
		report.TopFeatures = append(report.TopFeatures, feature.Public())
	}
	logger.Debug("Scored assessment", "overall_score", report.OverallScore, "valid", report.Validation.Valid)

	if err := writeOutput(stdout, f.format, report); err != nil {
		return err
	}

	if !report.Validation.Valid {
		codes := make([]string, 0, len(report.Validation.Blocking))
		for _, issue := range report.Validation.Blocking {
			codes = append(codes, issue.Code)
		}
		return exitError(exitBlocked, "assessment cannot be finalized: %s", strings.Join(codes, ", "))
	}
	return nil
}

// buildFeatures applies the editor's validation rules to every document feature
func buildFeatures(inputs []featureInput) ([]scoring.Feature, error) {
	features := make([]scoring.Feature, 0, len(inputs))
	for i, in := range inputs {
		category, err := scoring.ParseCategory(in.Category)
		if err != nil {
			return nil, featureError(i, in, err)
		}

		feature, err := scoring.NewFeature(uuid.NewString(), category)
		if err != nil {
			return nil, featureError(i, in, err)
		}

		name := strings.TrimSpace(in.Name)
		update := scoring.FeatureUpdate{
			Name:            &name,
			Score:           in.Score,
			Boost:           in.Boost,
			TopFeatureOrder: in.TopFeatureOrder,
			PublicNote:      &in.PublicNote,
		}
		if feature, err = update.Apply(feature); err != nil {
			return nil, featureError(i, in, err)
		}

		features = append(features, feature)
	}
	return features, nil
}

func featureError(i int, in featureInput, err error) error {
	label := fmt.Sprintf("feature %d", i+1)
	if name := strings.TrimSpace(in.Name); name != "" {
		label += fmt.Sprintf(" (%s)", name)
	}

	if appErr := apperrors.ToAppError(err); appErr != nil {
		return fmt.Errorf("%s: %s %v", label, appErr.Message(), sortedFields(appErr.Fields))
	}
	return fmt.Errorf("%s: %w", label, err)
}

func sortedFields(fields map[string]string) []string {
	out := make([]string, 0, len(fields))
	for key, value := range fields {
		out = append(out, key+"="+value)
	}
	slices.Sort(out)
	return out
}

func writeOutput(w io.Writer, format string, v any) error {
	switch format {
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case "json":
		data, err := encoding.Default().MarshalIndent(v, "", "  ")
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	default:
		return exitError(exitInvalidInput, "unknown format %q", format)
	}
}
