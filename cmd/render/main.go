// Command render turns template.json/context.json artifacts into a
// DOCX. It is a local tool; the queue pipeline does not invoke it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dtce-ai/docpipe/internal/models"
	"github.com/dtce-ai/docpipe/internal/render"
)

type overrideFlags map[string]string

func (o overrideFlags) String() string { return fmt.Sprintf("%v", map[string]string(o)) }

func (o overrideFlags) Set(value string) error {
	k, v, ok := strings.Cut(value, "=")
	if !ok {
		return fmt.Errorf("override must be placeholderId=text, got %q", value)
	}
	o[k] = v
	return nil
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	var (
		templatePath = flag.String("template", "", "path to template.json (required)")
		contextPath  = flag.String("context", "", "path to context.json")
		outPath      = flag.String("out", "output.docx", "output DOCX path")
		placeholders = flag.Bool("placeholders", false, "emit {{PlaceholderId}} tokens for missing content")
		overrides    = overrideFlags{}
	)
	flag.Var(overrides, "override", "content override placeholderId=text (repeatable)")
	flag.Parse()

	if *templatePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	var template models.TemplateJSON
	if err := readJSON(*templatePath, &template); err != nil {
		log.Fatal().Err(err).Msg("Failed to load template")
	}

	var contextJSON models.ContextJSON
	if *contextPath != "" {
		if err := readJSON(*contextPath, &contextJSON); err != nil {
			log.Fatal().Err(err).Msg("Failed to load context")
		}
	}

	renderer := render.NewRenderer(nil)
	data, err := renderer.Render(context.Background(), template, contextJSON, render.Options{
		EmitPlaceholderForMissingContent: *placeholders,
		ContentOverrides:                 overrides,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Render failed")
	}

	if err := os.WriteFile(*outPath, data, 0o644); err != nil {
		log.Fatal().Err(err).Msg("Failed to write output")
	}
	log.Info().Str("out", *outPath).Int("bytes", len(data)).Msg("Document rendered")
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
