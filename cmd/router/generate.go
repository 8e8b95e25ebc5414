package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rxtech-lab/argo-router/internal/config"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	schemaFileName = "router-config.json"
	sampleFileName = "router-config.yaml"
)

// generateAction writes the config schema and, unless one already exists, a
// sample config that references it.
func generateAction(_ context.Context, cmd *cli.Command) error {
	dir := cmd.String("dir")
	out := cmd.Root().Writer

	sample := config.SampleConfig()

	schemaJSON, err := sample.GenerateSchemaJSON()
	if err != nil {
		return fmt.Errorf("failed to generate schema: %w", err)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	schemaPath := filepath.Join(dir, schemaFileName)
	if err := os.WriteFile(schemaPath, []byte(schemaJSON), 0o644); err != nil {
		return fmt.Errorf("failed to write schema to file: %w", err)
	}

	fmt.Fprintf(out, "Schema generated at %s\n", schemaPath)

	samplePath := filepath.Join(dir, sampleFileName)
	if _, err := os.Stat(samplePath); err == nil {
		return nil
	}

	yamlBytes, err := yaml.Marshal(sample)
	if err != nil {
		return fmt.Errorf("failed to marshal sample config to yaml: %w", err)
	}

	yamlBytes = append([]byte("# yaml-language-server: $schema="+schemaFileName+"\n"), yamlBytes...)

	if err := os.WriteFile(samplePath, yamlBytes, 0o644); err != nil {
		return fmt.Errorf("failed to write sample config to file: %w", err)
	}

	fmt.Fprintf(out, "Sample config generated at %s\n", samplePath)

	return nil
}
