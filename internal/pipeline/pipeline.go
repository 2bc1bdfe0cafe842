// Package pipeline drives one statement import: normalize the text into
// rows, classify the rows, apply the merge and validation policies, and
// assemble the ParseResult envelope. A Parser holds no per-call state, so
// any number of imports may run concurrently on one instance.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dhruvpathak/finimport/internal/classify"
	"github.com/dhruvpathak/finimport/internal/domain"
	"github.com/dhruvpathak/finimport/internal/statement"
)

// Config configures a Parser. Explicit configuration replaces any
// process-wide singleton: construct one Parser per configuration and share
// it freely.
type Config struct {
	// AI is the primary classification strategy. Nil disables the AI path
	// entirely; options.UseAI then has no effect.
	AI classify.Strategy

	Logger zerolog.Logger
}

// Parser runs statement imports.
type Parser struct {
	ai  classify.Strategy
	log zerolog.Logger
}

// New creates a Parser from the given configuration.
func New(cfg Config) *Parser {
	return &Parser{
		ai:  cfg.AI,
		log: cfg.Logger,
	}
}

// State is the shared state threaded through the pipeline steps for one
// parse invocation.
type State struct {
	Hint    statement.Format
	Options domain.Options

	Doc          *statement.Document
	Transactions []domain.Transaction
	AIUsed       bool
	Errors       []string
}

// Step is a single stage of the import pipeline.
type Step interface {
	Execute(ctx context.Context, state *State) error
}

// Parse imports one statement text blob.
//
// Structural failures (empty statement, unrecognized format) return a typed
// error and a ParseResult with Success=false; row-level issues never abort
// the batch and are reported through the result's Errors list.
func (p *Parser) Parse(ctx context.Context, text string, opts domain.Options) (*domain.ParseResult, error) {
	return p.run(ctx, opts, func(state *State) error {
		doc, err := statement.Normalize(text, state.Hint)
		if err != nil {
			return err
		}
		state.Doc = doc
		return nil
	})
}

// ParseRows imports a statement from already-tokenized records, e.g. XLSX
// sheet rows.
func (p *Parser) ParseRows(ctx context.Context, records [][]string, opts domain.Options) (*domain.ParseResult, error) {
	return p.run(ctx, opts, func(state *State) error {
		doc, err := statement.NormalizeRows(records, state.Hint)
		if err != nil {
			return err
		}
		state.Doc = doc
		return nil
	})
}

// ParseXLSX imports a statement from XLSX workbook bytes.
func (p *Parser) ParseXLSX(ctx context.Context, data []byte, opts domain.Options) (*domain.ParseResult, error) {
	return p.run(ctx, opts, func(state *State) error {
		doc, err := statement.NormalizeXLSX(data, state.Hint)
		if err != nil {
			return err
		}
		state.Doc = doc
		return nil
	})
}

func (p *Parser) run(ctx context.Context, opts domain.Options, normalize func(*State) error) (*domain.ParseResult, error) {
	state := &State{Hint: statement.FormatAuto, Options: opts}

	if err := normalize(state); err != nil {
		p.log.Warn().Err(err).Msg("statement normalization failed")
		return failedResult(err), err
	}
	state.Errors = append(state.Errors, state.Doc.Skipped...)

	steps := []Step{
		&classifyStep{ai: p.ai, log: p.log},
		&validateAmountsStep{},
		&mergeDuplicatesStep{},
	}
	for i, step := range steps {
		if err := step.Execute(ctx, state); err != nil {
			return failedResult(err), fmt.Errorf("pipeline step %d: %w", i+1, err)
		}
	}

	result := assemble(state)
	p.log.Info().
		Int("transactions", len(result.Transactions)).
		Int("skipped", len(result.Errors)).
		Bool("ai_used", result.AIUsed).
		Bool("success", result.Success).
		Msg("statement import finished")
	return result, nil
}

func failedResult(err error) *domain.ParseResult {
	return &domain.ParseResult{
		Success:      false,
		Transactions: []domain.Transaction{},
		Errors:       []string{err.Error()},
	}
}

// classifyStep runs the AI strategy when enabled and falls back to rules on
// any failure. The transition is all-or-nothing: either every row is
// AI-classified or every row goes through the keyword table.
type classifyStep struct {
	ai  classify.Strategy
	log zerolog.Logger
}

func (s *classifyStep) Execute(ctx context.Context, state *State) error {
	rows := classifiable(state.Doc.Rows)
	if len(rows) == 0 {
		state.Transactions = []domain.Transaction{}
		return nil
	}

	if state.Options.UseAI && state.Options.AutoCategorize && s.ai != nil {
		txs, err := s.ai.Classify(ctx, rows)
		if err == nil {
			state.Transactions = txs
			state.AIUsed = true
			return nil
		}
		s.log.Warn().Err(err).Str("strategy", s.ai.Name()).Msg("AI classification failed, falling back to rules")
		state.Errors = append(state.Errors, fmt.Sprintf("AI classification unavailable, used keyword rules instead: %v", err))
	}

	rules := &classify.RuleClassifier{AutoCategorize: state.Options.AutoCategorize}
	txs, err := rules.Classify(ctx, rows)
	if err != nil {
		return &ClassificationUnavailableError{Err: err}
	}
	state.Transactions = txs
	return nil
}

// classifiable filters out balance-forward markers; they carry no amount and
// only contribute their date to the statement's range.
func classifiable(rows []statement.RawRow) []statement.RawRow {
	out := make([]statement.RawRow, 0, len(rows))
	for _, row := range rows {
		if !row.BalanceForward {
			out = append(out, row)
		}
	}
	return out
}
