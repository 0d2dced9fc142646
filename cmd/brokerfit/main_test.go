package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	var stdout, stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func exitCode(err error) int {
	var ee *exitErr
	if errors.As(err, &ee) {
		return ee.code
	}
	if err != nil {
		return 1
	}
	return 0
}

func TestCategoriesTable(t *testing.T) {
	out, _, err := execute(t, "categories")
	require.NoError(t, err)

	assert.Contains(t, out, "KEY")
	assert.Contains(t, out, "security")
	assert.Contains(t, out, "0.250")
	assert.Contains(t, out, "innovation")
	assert.Contains(t, out, "1.000")
}

func TestCategoriesJSON(t *testing.T) {
	out, _, err := execute(t, "categories", "--format", "json")
	require.NoError(t, err)

	var categories []map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &categories))
	require.Len(t, categories, 9)
	assert.Equal(t, "security", categories[0]["key"])
	assert.Equal(t, 0.25, categories[0]["weight"])
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		file string
	}{
		{"yaml document", "valid.yaml"},
		{"json document", "valid.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := execute(t, "score", filepath.Join("testdata", tt.file))
			require.NoError(t, err)

			var report map[string]any
			require.NoError(t, json.Unmarshal([]byte(out), &report))

			assert.Equal(t, "acme-crm", report["vendor_id"])
			assert.Equal(t, 4.08, report["overall_score"])

			scores := report["category_scores"].(map[string]any)
			assert.Equal(t, 12.0, scores["security"])
			assert.Equal(t, 5.4, scores["automation"])
			assert.Equal(t, 0.0, scores["support"])

			top := report["top_features"].([]any)
			require.Len(t, top, 2)
			assert.Equal(t, "Audit trail", top[0].(map[string]any)["name"])
			assert.Equal(t, "Lodgement workflow", top[1].(map[string]any)["name"])

			validation := report["validation"].(map[string]any)
			assert.Equal(t, true, validation["valid"])
		})
	}
}

func TestScoreWarnsWithoutPricing(t *testing.T) {
	out, _, err := execute(t, "score", filepath.Join("testdata", "valid.json"))
	require.NoError(t, err)

	var report scoreReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Validation.Warnings, 1)
	assert.Equal(t, "no_pricing", report.Validation.Warnings[0].Code)
}

func TestScoreYAMLOutput(t *testing.T) {
	out, _, err := execute(t, "score", filepath.Join("testdata", "valid.yaml"), "--format", "yaml")
	require.NoError(t, err)

	var report scoreReport
	require.NoError(t, yaml.Unmarshal([]byte(out), &report))
	assert.Equal(t, 4.08, report.OverallScore)
	assert.Equal(t, "Acme CRM", report.VendorName)
	assert.Contains(t, out, "top_feature_order: 1")
}

func TestScoreExitCodes(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		code     int
		contains string
	}{
		{"blocked", []string{"score", "testdata/blocked.yaml"}, exitBlocked, "no_scored_features"},
		{"unnamed feature", []string{"score", "testdata/unnamed.yaml"}, exitBlocked, "unnamed_features"},
		{"score out of range", []string{"score", "testdata/invalid_score.yaml"}, exitInvalidInput, "feature 1 (Support desk)"},
		{"boost not allowed", []string{"score", "testdata/invalid_boost.yaml"}, exitInvalidInput, "boost"},
		{"unknown category", []string{"score", "testdata/invalid_category.yaml"}, exitInvalidInput, "aesthetics"},
		{"malformed document", []string{"score", "testdata/malformed.yaml"}, exitInvalidInput, "failed to parse"},
		{"missing file", []string{"score", "testdata/nope.yaml"}, exitInvalidInput, "failed to read"},
		{"unknown format", []string{"score", "testdata/valid.yaml", "--format", "xml"}, exitInvalidInput, "unknown format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := execute(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.code, exitCode(err))
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestScoreBlockedStillPrintsReport(t *testing.T) {
	out, _, err := execute(t, "score", "testdata/blocked.yaml")
	require.Error(t, err)

	var report scoreReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	assert.False(t, report.Validation.Valid)
	assert.Equal(t, 0.0, report.OverallScore)
	assert.Empty(t, report.TopFeatures)
}

func TestScoreVerboseLogsToStderr(t *testing.T) {
	_, stderr, err := execute(t, "score", "testdata/valid.yaml", "--verbose")
	require.NoError(t, err)
	assert.Contains(t, stderr, "Scored assessment")
}
