package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhruvpathak/finimport/internal/classify"
	"github.com/dhruvpathak/finimport/internal/domain"
	"github.com/dhruvpathak/finimport/internal/extract"
	"github.com/dhruvpathak/finimport/internal/fetch"
	"github.com/dhruvpathak/finimport/internal/logger"
	"github.com/dhruvpathak/finimport/internal/pipeline"
)

func main() {
	var (
		file       = flag.String("file", "", "path to a statement file (.csv, .txt, .xlsx, .pdf)")
		gcsURI     = flag.String("gcs-uri", "", "gs:// URI of a statement to fetch instead of -file")
		useAI      = flag.Bool("ai", true, "use the AI classification strategy when available")
		categorize = flag.Bool("categorize", true, "assign spending categories to transactions")
		merge      = flag.Bool("merge-duplicates", true, "collapse duplicate rows into one transaction")
		maxAmount  = flag.Float64("max-amount", 0, "reject transactions above this amount (0 uses the default cap)")
		aiModel    = flag.String("ai-model", classify.DefaultModel, "Gemini model for categorization")
		pretty     = flag.Bool("pretty", false, "indent the JSON output")
	)
	flag.Parse()

	log := logger.New()
	ctx := logger.WithContext(context.Background(), log)

	if (*file == "") == (*gcsURI == "") {
		fmt.Fprintln(os.Stderr, "exactly one of -file or -gcs-uri is required")
		flag.Usage()
		os.Exit(1)
	}

	opts := domain.DefaultOptions()
	opts.UseAI = *useAI
	opts.AutoCategorize = *categorize
	opts.MergeDuplicates = *merge
	if *maxAmount > 0 {
		opts.MaxAmount = *maxAmount
	}

	var ai classify.Strategy
	if *useAI {
		ai = classify.NewGeminiClassifier(classify.AIConfig{Model: *aiModel})
	}
	parser := pipeline.New(pipeline.Config{AI: ai, Logger: log})

	name := *file
	var data []byte
	var err error
	if *gcsURI != "" {
		name = fetch.Filename(*gcsURI)
		data, err = fetch.FromGCS(ctx, *gcsURI)
	} else {
		data, err = os.ReadFile(*file)
	}
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read statement")
	}

	var result *domain.ParseResult
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		result, err = parser.ParseXLSX(ctx, data, opts)
	case ".pdf":
		path := *file
		if path == "" {
			path, err = spoolTemp(data)
			if err != nil {
				log.Fatal().Err(err).Msg("Failed to stage PDF for extraction")
			}
			defer os.Remove(path)
		}
		var text string
		text, err = extract.PDFText(path)
		if err == nil {
			result, err = parser.Parse(ctx, text, opts)
		}
	default:
		result, err = parser.Parse(ctx, string(data), opts)
	}
	if err != nil {
		log.Error().Err(err).Msg("Statement could not be parsed")
	}

	enc := json.NewEncoder(os.Stdout)
	if *pretty {
		enc.SetIndent("", "  ")
	}
	if encErr := enc.Encode(result); encErr != nil {
		log.Fatal().Err(encErr).Msg("Failed to encode result")
	}
	if err != nil || !result.Success {
		os.Exit(1)
	}
}

func spoolTemp(data []byte) (string, error) {
	tmp, err := os.CreateTemp("", "statement-*.pdf")
	if err != nil {
		return "", err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", err
	}
	return tmp.Name(), nil
}
