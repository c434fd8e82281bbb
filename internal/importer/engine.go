// =============================================================================
// Patient Import - Import Engine
// =============================================================================
//
// The engine orchestrates one import from parsed rows to an annotated record
// set ready for review.
//
// IMPORT PIPELINE:
//   1. Field Validator gate on the header set (fatal)
//   2. Row name gate (fatal)
//   3. Normalize every row
//   4. Read the repository's existing codes once
//   5. Flag duplicates against that snapshot
//   6. Group transactions and classify promotions and conflicts
//
// Nothing is written to the repository here. Writing happens in Execute or
// Session.Commit after the caller has chosen what to keep.
//
// =============================================================================

package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/ginjaninja78/patient-import/internal/config"
	"github.com/ginjaninja78/patient-import/internal/csvparser"
	"github.com/ginjaninja78/patient-import/internal/inference"
	"github.com/ginjaninja78/patient-import/internal/reconcile"
	"github.com/ginjaninja78/patient-import/internal/types"
	"github.com/ginjaninja78/patient-import/internal/validation"
	"github.com/ginjaninja78/patient-import/internal/xlsxparser"
)

// CodeLister provides the snapshot of codes already persisted.
type CodeLister interface {
	ListExistingCodes(ctx context.Context) ([]string, error)
}

// =============================================================================
// ANALYSIS
// =============================================================================

// Analysis is what the engine hands back for review.
type Analysis struct {
	// SourceFile is the input path, empty for in-memory input.
	SourceFile string

	// Headers is the header row of the input.
	Headers []string

	// Fields is the Field Validator report.
	Fields validation.FieldReport

	// Records are the normalized records in row order.
	Records []types.PatientRecord

	// RowNumbers holds the source line of each record.
	RowNumbers []int

	// Duplicates are records whose code exists in the repository.
	Duplicates types.IndexSet

	// TransactionGroups maps transaction codes to record indices.
	TransactionGroups map[string][]int

	// PromotionalIndices are records marked as bundle items.
	PromotionalIndices types.IndexSet

	// Conflicts are transaction codes shared across patients, by code.
	Conflicts []types.Conflict

	// BatchCollisions maps codes used by several records of this batch to
	// their indices.
	BatchCollisions map[string][]int

	// Issues holds the per-record normalization and validation issues.
	Issues [][]*validation.ValidationError

	// Warnings is every issue of the analysis, including duplicate and
	// conflict notices, ordered by record index.
	Warnings []*validation.ValidationError

	// ExistingCodes is the repository snapshot the analysis used.
	ExistingCodes []string

	Stats Stats
}

// Stats contains counts about one analysis.
type Stats struct {
	Rows           int
	Duplicates     int
	Promotional    int
	Conflicts      int
	Warnings       int
	Errors         int
	ProcessingTime time.Duration
}

// IsConflicted reports whether record i belongs to a conflicting group.
func (a *Analysis) IsConflicted(i int) bool {
	for _, c := range a.Conflicts {
		for _, idx := range c.Indices {
			if idx == i {
				return true
			}
		}
	}
	return false
}

// HasErrors reports whether record i carries an error-severity issue.
func (a *Analysis) HasErrors(i int) bool {
	for _, issue := range a.Issues[i] {
		if !issue.IsWarning() {
			return true
		}
	}
	return false
}

// reconcile recomputes every derived annotation from Records and the
// existing-code snapshot. It is also run after a caller edit.
func (a *Analysis) reconcile() {
	a.Duplicates = reconcile.DetectDuplicates(a.Records, a.ExistingCodes)
	classification := reconcile.ClassifyPromotions(a.Records)
	a.TransactionGroups = classification.Groups
	a.PromotionalIndices = classification.PromotionalIndices
	a.Conflicts = classification.Conflicts
	a.BatchCollisions = reconcile.BatchCodeCollisions(a.Records)

	conflicted := make(map[int][]string)
	for _, c := range a.Conflicts {
		for _, idx := range c.Indices {
			conflicted[idx] = append(conflicted[idx], c.Code)
		}
	}

	a.Warnings = a.Warnings[:0]
	for i := range a.Records {
		a.Warnings = append(a.Warnings, a.Issues[i]...)
		if a.Duplicates.Has(i) {
			a.Warnings = append(a.Warnings, a.notice(i, validation.RuleDuplicate, "patient_id", a.Records[i].Code,
				"patient code already exists in the repository"))
		}
		for _, code := range conflicted[i] {
			a.Warnings = append(a.Warnings, a.notice(i, validation.RuleConflict, "transactions", code,
				"transaction is referenced by more than one patient"))
		}
	}

	a.Stats.Rows = len(a.Records)
	a.Stats.Duplicates = len(a.Duplicates)
	a.Stats.Promotional = len(a.PromotionalIndices)
	a.Stats.Conflicts = len(a.Conflicts)

	result := validation.Summarize(a.Warnings)
	a.Stats.Errors = result.ErrorCount
	a.Stats.Warnings = result.WarningCount
}

func (a *Analysis) notice(i int, rule, field, value, message string) *validation.ValidationError {
	w := validation.Warning(rule, field, value, message)
	w.Index = i
	w.RowNumber = a.RowNumbers[i]
	return w
}

// =============================================================================
// ENGINE
// =============================================================================

// Engine runs imports. It holds no state between calls and may be shared.
type Engine struct {
	aliases inference.AliasTable
	logger  Logger
	newID   IDGenerator
	now     func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithAliases replaces the alias table.
func WithAliases(aliases inference.AliasTable) Option {
	return func(e *Engine) { e.aliases = aliases }
}

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// WithIDGenerator sets the record id source.
func WithIDGenerator(gen IDGenerator) Option {
	return func(e *Engine) { e.newID = gen }
}

// WithClock sets the clock used for default created dates.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine creates an Engine with the given options.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		aliases: inference.DefaultAliasTable(),
		logger:  nopLogger{},
		newID:   UUIDGenerator,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AliasesFromConfig returns the built-in alias table with the configured
// overrides applied.
func AliasesFromConfig(cfg *config.MainConfig) (inference.AliasTable, error) {
	aliases := inference.DefaultAliasTable().Merge(cfg.Aliases)
	if err := aliases.Validate(); err != nil {
		return nil, fmt.Errorf("invalid alias configuration: %w", err)
	}
	return aliases, nil
}

// ImportFile parses path (CSV or XLSX, chosen by extension) and analyzes it.
//
// RETURNS:
//   - The analysis, or nil with a *csvparser.ParseError or
//     *validation.FieldError for fatal input problems.
func (e *Engine) ImportFile(ctx context.Context, path string, settings config.CSVSettings, codes CodeLister) (*Analysis, error) {
	data, err := LoadFile(path, settings)
	if err != nil {
		e.logger.Error("Failed to parse input", "file", path, "error", err)
		return nil, err
	}

	e.logger.Debug("Parsed input", "file", path, "rows", data.RowCount, "columns", data.ColumnCount)
	return e.Analyze(ctx, data, codes)
}

// LoadFile parses a workbook or delimited file into rows.
func LoadFile(path string, settings config.CSVSettings) (*csvparser.CSVData, error) {
	if xlsxparser.IsWorkbook(path) {
		return xlsxparser.ParseFile(path, xlsxparser.Options{})
	}
	return csvparser.ParseFile(path, settings)
}

// Analyze runs the pipeline over already parsed rows.
//
// PARAMETERS:
//   - ctx: Passed to the repository.
//   - data: The parsed input.
//   - codes: Source of the existing-code snapshot, read once.
//
// RETURNS:
//   - The analysis. On a fatal validation failure the analysis is nil and
//     no record is produced for any row.
func (e *Engine) Analyze(ctx context.Context, data *csvparser.CSVData, codes CodeLister) (*Analysis, error) {
	start := e.now()

	// =========================================================================
	// STEP 1: FIELD VALIDATOR
	// =========================================================================

	headers := data.Headers
	if len(data.Rows) > 0 {
		headers = data.Rows[0].Headers
	}

	report := validation.ValidateHeaders(headers)
	if err := report.Err(); err != nil {
		e.logger.Error("Input rejected", "file", data.SourceFile, "missing", report.Missing)
		return nil, err
	}
	if !report.HasAge() {
		e.logger.Warn("No age-like column; ages default to 0", "file", data.SourceFile)
	}

	// =========================================================================
	// STEP 2: ROW NAME GATE
	// =========================================================================

	if err := validation.ValidateRowNames(data.Rows, e.aliases); err != nil {
		e.logger.Error("Input rejected", "file", data.SourceFile, "error", err)
		return nil, err
	}

	// =========================================================================
	// STEP 3: NORMALIZE
	// =========================================================================

	normalizer := NewNormalizer(e.aliases, e.newID, e.now)
	analysis := &Analysis{
		SourceFile: data.SourceFile,
		Headers:    data.Headers,
		Fields:     report,
		Records:    make([]types.PatientRecord, len(data.Rows)),
		RowNumbers: make([]int, len(data.Rows)),
		Issues:     make([][]*validation.ValidationError, len(data.Rows)),
	}

	for i, row := range data.Rows {
		analysis.Records[i], analysis.Issues[i] = normalizer.Normalize(row, i)
		analysis.RowNumbers[i] = row.LineNumber
	}

	e.logger.Debug("Normalized rows", "count", len(analysis.Records))

	// =========================================================================
	// STEP 4: EXISTING CODE SNAPSHOT
	// =========================================================================

	existing, err := codes.ListExistingCodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read existing codes: %w", err)
	}
	analysis.ExistingCodes = existing

	// =========================================================================
	// STEP 5-6: DUPLICATES, GROUPS, PROMOTIONS
	// =========================================================================

	analysis.reconcile()
	analysis.Stats.ProcessingTime = e.now().Sub(start)

	e.logger.Info("Analysis complete",
		"file", data.SourceFile,
		"rows", analysis.Stats.Rows,
		"duplicates", analysis.Stats.Duplicates,
		"promotional", analysis.Stats.Promotional,
		"conflicts", analysis.Stats.Conflicts,
	)
	for _, c := range analysis.Conflicts {
		e.logger.Warn("Transaction shared by several patients", "transaction", c.Code, "patients", c.PatientCodes)
	}

	return analysis, nil
}
