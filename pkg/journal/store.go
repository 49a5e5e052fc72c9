// Package journal provides durable storage of ingested real-time records.
// The journal is the source for the cumulative real-time counters and for
// the full-union retraining policy: every row ever ingested stays available.
package journal

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/hemoflow/hemoflow/pkg/blood"
)

// Store is a sqlite-backed append-only journal of transaction records.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS realtime_records (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	date TEXT NOT NULL,
	city TEXT NOT NULL,
	blood_type TEXT NOT NULL,
	kind TEXT NOT NULL,
	units INTEGER NOT NULL,
	weather TEXT,
	urgency TEXT,
	ingested_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_realtime_date ON realtime_records(date);
`

// Open opens (creating if necessary) the journal database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize journal schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Append journals a batch of records in one transaction.
func (s *Store) Append(records []blood.TransactionRecord) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO realtime_records
		(date, city, blood_type, kind, units, weather, urgency, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for _, r := range records {
		_, err := stmt.Exec(
			r.Date.Format("2006-01-02"),
			string(r.City),
			string(r.BloodType),
			string(r.Kind),
			r.Units,
			r.Weather,
			r.Urgency,
			now,
		)
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("journal insert failed: %w", err)
		}
	}
	return tx.Commit()
}

// All returns every journaled record, oldest first.
func (s *Store) All() ([]blood.TransactionRecord, error) {
	rows, err := s.db.Query(`SELECT date, city, blood_type, kind, units, weather, urgency
		FROM realtime_records ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []blood.TransactionRecord
	for rows.Next() {
		var r blood.TransactionRecord
		var date, city, bloodType, kind string
		var weather, urgency sql.NullString
		if err := rows.Scan(&date, &city, &bloodType, &kind, &r.Units, &weather, &urgency); err != nil {
			return nil, err
		}
		r.Date, err = time.Parse("2006-01-02", date)
		if err != nil {
			return nil, fmt.Errorf("corrupt journal date %q: %w", date, err)
		}
		r.City = blood.City(city)
		r.BloodType = blood.BloodType(bloodType)
		r.Kind = blood.TransactionKind(kind)
		r.Weather = weather.String
		r.Urgency = urgency.String
		records = append(records, r)
	}
	return records, rows.Err()
}

// Count returns the cumulative number of journaled records.
func (s *Store) Count() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM realtime_records").Scan(&n)
	return n, err
}
