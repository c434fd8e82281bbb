package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ginjaninja78/patient-import/internal/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS patients (
	id                   TEXT PRIMARY KEY,
	code                 TEXT NOT NULL,
	first_name           TEXT NOT NULL DEFAULT '',
	last_name            TEXT NOT NULL DEFAULT '',
	age                  INTEGER NOT NULL DEFAULT 0,
	sex                  TEXT NOT NULL DEFAULT 'Male',
	email                TEXT NOT NULL DEFAULT '',
	phone                TEXT NOT NULL DEFAULT '',
	address              TEXT NOT NULL DEFAULT '',
	created_date         TEXT NOT NULL DEFAULT '',
	transactions         TEXT NOT NULL DEFAULT '[]',
	is_promotional_item  INTEGER NOT NULL DEFAULT 0,
	promotional_group_id TEXT NOT NULL DEFAULT '',
	promotional_hint     INTEGER NOT NULL DEFAULT 0,
	hint_group_id        TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_patients_code ON patients(code);
`

const selectColumns = `id, code, first_name, last_name, age, sex, email, phone, address,
	created_date, transactions, is_promotional_item, promotional_group_id,
	promotional_hint, hint_group_id`

// SQLiteStore persists records in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if needed) the database at path and applies
// the schema. The parent directory is created when missing.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "" && dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers on file databases.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]types.PatientRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM patients ORDER BY code, id`)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var out []types.PatientRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (types.PatientRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+selectColumns+` FROM patients WHERE id = ?`, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.PatientRecord{}, fmt.Errorf("get %s: %w", id, ErrNotFound)
	}
	return rec, err
}

func (s *SQLiteStore) Upsert(ctx context.Context, record types.PatientRecord) error {
	if record.ID == "" {
		return fmt.Errorf("upsert: record has no id")
	}

	txs := record.Transactions
	if txs == nil {
		txs = []string{}
	}
	encoded, err := json.Marshal(txs)
	if err != nil {
		return fmt.Errorf("upsert %s: encode transactions: %w", record.ID, err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO patients (`+selectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			code = excluded.code,
			first_name = excluded.first_name,
			last_name = excluded.last_name,
			age = excluded.age,
			sex = excluded.sex,
			email = excluded.email,
			phone = excluded.phone,
			address = excluded.address,
			created_date = excluded.created_date,
			transactions = excluded.transactions,
			is_promotional_item = excluded.is_promotional_item,
			promotional_group_id = excluded.promotional_group_id,
			promotional_hint = excluded.promotional_hint,
			hint_group_id = excluded.hint_group_id`,
		record.ID, record.Code, record.FirstName, record.LastName, record.Age,
		string(record.Sex), record.Email, record.Phone, record.Address,
		record.CreatedDate, string(encoded), record.IsPromotionalItem,
		record.PromotionalGroupID, record.PromotionalHint, record.HintGroupID,
	)
	if err != nil {
		return fmt.Errorf("upsert %s: %w", record.ID, err)
	}
	return nil
}

func (s *SQLiteStore) ListExistingCodes(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT DISTINCT code FROM patients WHERE code <> '' ORDER BY code`)
	if err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	defer rows.Close()

	var codes []string
	for rows.Next() {
		var code string
		if err := rows.Scan(&code); err != nil {
			return nil, fmt.Errorf("list codes: %w", err)
		}
		codes = append(codes, code)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list codes: %w", err)
	}
	return uniqueSorted(codes), nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (types.PatientRecord, error) {
	var (
		rec     types.PatientRecord
		sex     string
		encoded string
	)
	err := sc.Scan(
		&rec.ID, &rec.Code, &rec.FirstName, &rec.LastName, &rec.Age, &sex,
		&rec.Email, &rec.Phone, &rec.Address, &rec.CreatedDate, &encoded,
		&rec.IsPromotionalItem, &rec.PromotionalGroupID,
		&rec.PromotionalHint, &rec.HintGroupID,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return rec, err
		}
		return rec, fmt.Errorf("scan patient: %w", err)
	}

	rec.Sex = types.Sex(sex)
	if err := json.Unmarshal([]byte(encoded), &rec.Transactions); err != nil {
		return rec, fmt.Errorf("scan patient %s: decode transactions: %w", rec.ID, err)
	}
	if len(rec.Transactions) == 0 {
		rec.Transactions = nil
	}
	return rec, nil
}
