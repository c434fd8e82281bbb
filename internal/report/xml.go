// =============================================================================
// Patient Import - Review Report
// =============================================================================
//
// This module renders an analysis as an XML review document, the artifact a
// reviewer reads before (or after) committing an import.
//
// XML STRUCTURE:
//
//   <importReport source="export.csv" generated="2025-04-15T09:30:00Z">
//     <summary rows="5" duplicates="1" promotional="1" conflicts="1" .../>
//     <patient n="1" line="2" id="..." code="PX-AB-0000012" duplicate="true">
//       <firstName>Ann</firstName>
//       ...
//       <transactions>
//         <transaction>TX25-04-00009</transaction>
//       </transactions>
//       <issue severity="warning" rule="duplicate" field="patient_id">...</issue>
//     </patient>
//     <transactionGroup code="TX25-05-00001" status="bundle">
//       <member n="3" code="PX-EF-0000004" role="primary"/>
//       <member n="4" code="PX-EF-0000004" role="promotional"/>
//     </transactionGroup>
//     <commit written="3" failed="0"/>
//   </importReport>
//
// Record numbering (n) is 1-based in row order.
//
// =============================================================================

package report

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"sort"
	"time"

	"github.com/ginjaninja78/patient-import/internal/importer"
	"github.com/ginjaninja78/patient-import/internal/types"
	"github.com/ginjaninja78/patient-import/internal/validation"
)

// =============================================================================
// GENERATION OPTIONS
// =============================================================================

// Options contains options for report generation.
type Options struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// GeneratedAt stamps the report. Zero means time.Now.
	GeneratedAt time.Time

	// Selected marks the records chosen for commit, if known.
	Selected []int

	// Commit is the commit outcome, if the import was committed.
	Commit *importer.CommitResult
}

// DefaultOptions returns the default generation options.
func DefaultOptions() Options {
	return Options{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
	}
}

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

type document struct {
	XMLName   xml.Name       `xml:"importReport"`
	Source    string         `xml:"source,attr,omitempty"`
	Generated string         `xml:"generated,attr"`
	Summary   summaryElement `xml:"summary"`
	Patients  []patient      `xml:"patient"`
	Groups    []group        `xml:"transactionGroup"`
	Commit    *commitElement `xml:"commit,omitempty"`
}

type summaryElement struct {
	Rows        int `xml:"rows,attr"`
	Duplicates  int `xml:"duplicates,attr"`
	Promotional int `xml:"promotional,attr"`
	Conflicts   int `xml:"conflicts,attr"`
	Warnings    int `xml:"warnings,attr"`
	Errors      int `xml:"errors,attr"`
}

type patient struct {
	N           int      `xml:"n,attr"`
	Line        int      `xml:"line,attr"`
	ID          string   `xml:"id,attr"`
	Code        string   `xml:"code,attr"`
	Duplicate   bool     `xml:"duplicate,attr,omitempty"`
	Promotional bool     `xml:"promotional,attr,omitempty"`
	GroupID     string   `xml:"promotionalGroup,attr,omitempty"`
	Selected    bool     `xml:"selected,attr,omitempty"`
	FirstName   string   `xml:"firstName"`
	LastName    string   `xml:"lastName"`
	Age         int      `xml:"age"`
	Sex         string   `xml:"sex"`
	Email       string   `xml:"email,omitempty"`
	Phone       string   `xml:"phone,omitempty"`
	Address     string   `xml:"address,omitempty"`
	CreatedDate string   `xml:"createdDate"`
	Hint        *hint    `xml:"sourceHint,omitempty"`
	Txs         []string `xml:"transactions>transaction"`
	Issues      []issue  `xml:"issue"`
}

type hint struct {
	Promotional bool   `xml:"promotional,attr"`
	GroupID     string `xml:"group,attr,omitempty"`
}

type issue struct {
	Severity string `xml:"severity,attr"`
	Rule     string `xml:"rule,attr"`
	Field    string `xml:"field,attr"`
	Value    string `xml:"value,attr,omitempty"`
	Message  string `xml:",chardata"`
}

type group struct {
	Code    string   `xml:"code,attr"`
	Status  string   `xml:"status,attr"`
	Members []member `xml:"member"`
}

type member struct {
	N    int    `xml:"n,attr"`
	Code string `xml:"code,attr"`
	Role string `xml:"role,attr"`
}

type commitElement struct {
	Written  int       `xml:"written,attr"`
	Failed   int       `xml:"failed,attr"`
	Failures []failure `xml:"failure"`
}

type failure struct {
	N       int    `xml:"n,attr"`
	Code    string `xml:"code,attr"`
	Message string `xml:",chardata"`
}

// Group statuses.
const (
	StatusSingle   = "single"
	StatusBundle   = "bundle"
	StatusConflict = "conflict"
)

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Generate renders the analysis with the default options.
func Generate(a *importer.Analysis) ([]byte, error) {
	return GenerateWithOptions(a, DefaultOptions())
}

// GenerateWithOptions renders the analysis as an XML review document.
//
// PARAMETERS:
//   - a: The analysis to render.
//   - options: Layout and optional selection/commit details.
//
// RETURNS:
//   - The XML document as a byte slice.
//   - An error if marshaling fails.
func GenerateWithOptions(a *importer.Analysis, options Options) ([]byte, error) {
	var buffer bytes.Buffer

	if options.IncludeXMLDeclaration {
		buffer.WriteString(xml.Header)
	}

	out, err := xml.MarshalIndent(buildDocument(a, options), "", options.Indent)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	buffer.Write(out)
	buffer.WriteByte('\n')

	return buffer.Bytes(), nil
}

func buildDocument(a *importer.Analysis, options Options) *document {
	generated := options.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}

	doc := &document{
		Source:    a.SourceFile,
		Generated: generated.UTC().Format(time.RFC3339),
		Summary: summaryElement{
			Rows:        a.Stats.Rows,
			Duplicates:  a.Stats.Duplicates,
			Promotional: a.Stats.Promotional,
			Conflicts:   a.Stats.Conflicts,
			Warnings:    a.Stats.Warnings,
			Errors:      a.Stats.Errors,
		},
	}

	selected := types.NewIndexSet(options.Selected...)
	for i, rec := range a.Records {
		var issues []issue
		for _, w := range validation.ForIndex(a.Warnings, i) {
			issues = append(issues, issue{
				Severity: w.Severity,
				Rule:     w.Rule,
				Field:    w.Field,
				Value:    w.Value,
				Message:  w.Message,
			})
		}
		doc.Patients = append(doc.Patients, buildPatient(i, a.RowNumbers[i], rec,
			a.Duplicates.Has(i), selected.Has(i), issues))
	}

	doc.Groups = buildGroups(a)

	if options.Commit != nil {
		c := &commitElement{Written: options.Commit.Written, Failed: len(options.Commit.Failures)}
		for _, f := range options.Commit.Failures {
			c.Failures = append(c.Failures, failure{N: f.Index + 1, Code: f.Code, Message: f.Err.Error()})
		}
		doc.Commit = c
	}

	return doc
}

func buildPatient(i, line int, rec types.PatientRecord, duplicate, selected bool, issues []issue) patient {
	p := patient{
		N:           i + 1,
		Line:        line,
		ID:          rec.ID,
		Code:        rec.Code,
		Duplicate:   duplicate,
		Promotional: rec.IsPromotionalItem,
		GroupID:     rec.PromotionalGroupID,
		Selected:    selected,
		FirstName:   rec.FirstName,
		LastName:    rec.LastName,
		Age:         rec.Age,
		Sex:         string(rec.Sex),
		Email:       rec.Email,
		Phone:       rec.Phone,
		Address:     rec.Address,
		CreatedDate: rec.CreatedDate,
		Txs:         rec.Transactions,
		Issues:      issues,
	}
	if rec.PromotionalHint || rec.HintGroupID != "" {
		p.Hint = &hint{Promotional: rec.PromotionalHint, GroupID: rec.HintGroupID}
	}
	return p
}

// buildGroups lists every transaction group in code order with its status.
func buildGroups(a *importer.Analysis) []group {
	conflicts := make(map[string]bool, len(a.Conflicts))
	for _, c := range a.Conflicts {
		conflicts[c.Code] = true
	}

	txCodes := make([]string, 0, len(a.TransactionGroups))
	for code := range a.TransactionGroups {
		txCodes = append(txCodes, code)
	}
	sort.Strings(txCodes)

	groups := make([]group, 0, len(txCodes))
	for _, code := range txCodes {
		indices := a.TransactionGroups[code]

		status := StatusBundle
		switch {
		case conflicts[code]:
			status = StatusConflict
		case len(indices) == 1:
			status = StatusSingle
		}

		g := group{Code: code, Status: status}
		for k, idx := range indices {
			rec := a.Records[idx]
			role := "member"
			switch {
			case status != StatusBundle:
			case k == 0:
				role = "primary"
			case rec.IsPromotionalItem && rec.PromotionalGroupID == code:
				role = "promotional"
			}
			g.Members = append(g.Members, member{N: idx + 1, Code: a.Records[idx].Code, Role: role})
		}
		groups = append(groups, g)
	}
	return groups
}
