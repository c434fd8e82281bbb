// =============================================================================
// Patient Import - Sample Export Generator
// =============================================================================
//
// Generates synthetic clinic exports for demos and tests. The output looks
// like a file from another system: loosely named columns, legacy short codes,
// several transaction references per cell.
//
// ROW KINDS:
//   - new:      a fresh patient with a fresh transaction
//   - bundle:   the previous patient again, citing the same transaction
//               (analysis marks it promotional)
//   - conflict: a fresh patient citing the previous row's transaction
//               (analysis reports a conflict)
//
// The same seed always produces the same file.
//
// =============================================================================

package sample

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"

	"github.com/ginjaninja78/patient-import/internal/codes"
)

// HeaderStyle selects one of the column layouts.
type HeaderStyle string

const (
	// StyleStandard uses a combined full-name column.
	StyleStandard HeaderStyle = "standard"

	// StyleSplit uses separate first and last name columns.
	StyleSplit HeaderStyle = "split"
)

var headerSets = map[HeaderStyle][]string{
	StyleStandard: {"Patient ID", "Full Name", "Age", "Gender", "Phone", "Address", "Email",
		"Registration Date", "Recent Transaction", "Transaction History", "Promotional"},
	StyleSplit: {"Code", "First Name", "Last Name", "Years", "Sex", "Mobile", "Home Address", "E-mail",
		"Created Date", "Transactions", "Promo"},
}

// Options controls generation.
type Options struct {
	// Rows is the number of data rows.
	Rows int

	// Seed makes output reproducible. 0 picks a random seed.
	Seed int64

	// PromoRate is the chance that a row is a bundle item of the previous
	// row.
	PromoRate float64

	// ConflictRate is the chance that a row cites the previous row's
	// transaction under another patient.
	ConflictRate float64

	// LegacyCodes writes short codes (PX-AB7, TX25-04-3) instead of the
	// canonical fixed-width forms.
	LegacyCodes bool

	// Style picks the header layout. Default StyleStandard.
	Style HeaderStyle
}

// Stats counts what was generated.
type Stats struct {
	Rows      int
	Patients  int
	Bundles   int
	Conflicts int
}

type row struct {
	kind      string
	code      string
	first     string
	last      string
	age       int
	sex       string
	phone     string
	address   string
	email     string
	created   time.Time
	recent    string
	history   []string
	promoHint bool
}

// Generate writes a CSV export to w.
//
// RETURNS:
//   - Counts of each row kind.
//   - An error if the options are invalid or writing fails.
func Generate(w io.Writer, opts Options) (Stats, error) {
	if opts.Rows < 0 {
		return Stats{}, fmt.Errorf("rows must not be negative")
	}
	if opts.PromoRate < 0 || opts.ConflictRate < 0 || opts.PromoRate+opts.ConflictRate > 1 {
		return Stats{}, fmt.Errorf("promo and conflict rates must be non-negative and sum to at most 1")
	}
	if opts.Style == "" {
		opts.Style = StyleStandard
	}
	headers, ok := headerSets[opts.Style]
	if !ok {
		return Stats{}, fmt.Errorf("unknown header style %q", opts.Style)
	}

	g := &generator{faker: gofakeit.New(opts.Seed), opts: opts}
	rows, stats := g.rows()

	out := csv.NewWriter(w)
	if err := out.Write(headers); err != nil {
		return Stats{}, fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range rows {
		if err := out.Write(g.record(r)); err != nil {
			return Stats{}, fmt.Errorf("failed to write row: %w", err)
		}
	}
	out.Flush()
	if err := out.Error(); err != nil {
		return Stats{}, fmt.Errorf("failed to flush output: %w", err)
	}

	return stats, nil
}

type generator struct {
	faker *gofakeit.Faker
	opts  Options

	patientSeq int
	txSeq      int
}

func (g *generator) rows() ([]row, Stats) {
	stats := Stats{Rows: g.opts.Rows}
	rows := make([]row, 0, g.opts.Rows)

	for i := 0; i < g.opts.Rows; i++ {
		var r row
		roll := g.faker.Float64()

		switch {
		// A bundle repeats a patient whose transaction has a single owner.
		case i > 0 && rows[i-1].kind != "conflict" && roll < g.opts.PromoRate:
			r = rows[i-1]
			r.kind = "bundle"
			r.history = nil
			r.promoHint = true
			stats.Bundles++

		// A conflict only borrows from a fresh patient, so each conflict
		// row produces its own conflicting group.
		case i > 0 && rows[i-1].kind == "new" && roll < g.opts.PromoRate+g.opts.ConflictRate:
			r = g.newPatient()
			r.kind = "conflict"
			r.recent = rows[i-1].recent
			stats.Patients++
			stats.Conflicts++

		default:
			r = g.newPatient()
			stats.Patients++
		}

		rows = append(rows, r)
	}

	return rows, stats
}

func (g *generator) newPatient() row {
	f := g.faker
	first, last := f.FirstName(), f.LastName()
	created := f.DateRange(
		time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC),
	)

	g.patientSeq++
	r := row{
		kind:    "new",
		code:    g.patientCode(codes.Initials(first, last), g.patientSeq),
		first:   first,
		last:    last,
		age:     f.Number(1, 95),
		sex:     f.Gender(),
		phone:   f.Phone(),
		address: f.Address().Address,
		email:   strings.ToLower(f.Email()),
		created: created,
		recent:  g.transactionCode(created),
	}

	for n := f.Number(0, 2); n > 0; n-- {
		r.history = append(r.history, g.transactionCode(created.AddDate(0, -n, 0)))
	}
	return r
}

func (g *generator) patientCode(initials string, seq int) string {
	if g.opts.LegacyCodes {
		return fmt.Sprintf("%s%s%d", codes.PatientPrefix, initials, seq)
	}
	return codes.PatientCodePrefix(initials) + codes.PadLeft(fmt.Sprint(seq), codes.PatientSequenceWidth, '0')
}

func (g *generator) transactionCode(at time.Time) string {
	g.txSeq++
	prefix := fmt.Sprintf("%s%s-%s-", codes.TransactionPrefix, at.Format("06"), at.Format("01"))
	if g.opts.LegacyCodes {
		return fmt.Sprintf("%s%d", prefix, g.txSeq)
	}
	return prefix + codes.PadLeft(fmt.Sprint(g.txSeq), codes.TransactionSequenceWidth, '0')
}

func (g *generator) record(r row) []string {
	promo := ""
	if r.promoHint {
		promo = "yes"
	}
	history := strings.Join(r.history, "; ")

	switch g.opts.Style {
	case StyleSplit:
		return []string{r.code, r.first, r.last, fmt.Sprint(r.age), r.sex, r.phone, r.address, r.email,
			r.created.Format("01/02/2006"), strings.Join(append([]string{r.recent}, r.history...), ", "), promo}
	default:
		return []string{r.code, r.first + " " + r.last, fmt.Sprint(r.age), r.sex, r.phone, r.address, r.email,
			r.created.Format("2006-01-02"), r.recent, history, promo}
	}
}
