/*
Package sqlite provides a SQLite-backed implementation of event and document
persistence.

PURPOSE:
  Stores rental events (with their material lines and beneficiaries) and the
  immutable financial documents issued against them. In production the same
  patterns apply to PostgreSQL - only minor SQL dialect differences.

IMMUTABILITY CONTRACT:
  Documents snapshot the discount rate and computed totals at creation time:
  - No UPDATE statement exists for the documents table
  - Estimates may be deleted; bills may not, ever

KEY TABLES:
  events:              Rental bookings (date range, title)
  event_materials:     Line items, ordered, owned by the event
  event_beneficiaries: Who the event is billed to
  documents:           Estimate/bill snapshots, most recent first on read

DECIMALS:
  Monetary values and rates are stored as TEXT and parsed through
  shopspring/decimal, avoiding float corruption in the database.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  multiple readers don't block, single writer at a time.

USAGE:
  store, err := sqlite.New("./data/billing.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

SEE ALSO:
  - billing/document.go: Document type stored here
  - api/handlers.go: Computes the totals snapshotted at creation
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/billing-engine/billing"
)

// Store-level sentinel errors.
var (
	ErrEventNotFound    = errors.New("event not found")
	ErrDocumentNotFound = errors.New("document not found")
	ErrBillNotDeletable = errors.New("bills cannot be deleted")
)

// Store persists events and documents using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS event_materials (
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		unit_price TEXT NOT NULL,
		quantity INTEGER NOT NULL,
		is_discountable INTEGER NOT NULL,
		is_hidden_on_bill INTEGER NOT NULL,
		PRIMARY KEY (event_id, position)
	);

	CREATE TABLE IF NOT EXISTS event_beneficiaries (
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		position INTEGER NOT NULL,
		name TEXT NOT NULL,
		PRIMARY KEY (event_id, position)
	);

	-- Immutable document snapshots. No UPDATE path exists for this table.
	CREATE TABLE IF NOT EXISTS documents (
		id TEXT PRIMARY KEY,
		event_id TEXT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
		kind TEXT NOT NULL CHECK (kind IN ('estimate', 'bill')),
		date TEXT NOT NULL,
		discount_rate TEXT NOT NULL,
		grand_total TEXT NOT NULL,
		discount_amount TEXT NOT NULL,
		grand_total_with_discount TEXT NOT NULL,
		replacement_total TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_documents_event_kind
		ON documents(event_id, kind, created_at DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// EVENTS
// =============================================================================

// SaveEvent inserts or replaces an event with its materials and
// beneficiaries. Documents are not touched: they are created and deleted
// through their own operations only.
func (s *Store) SaveEvent(ctx context.Context, event *billing.RentalEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO events (id, title, start_date, end_date, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		string(event.ID), event.Title,
		event.StartDate.String(), event.EndDate.String(),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_materials WHERE event_id = ?`, string(event.ID)); err != nil {
		return err
	}
	for i, m := range event.Materials {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO event_materials
				(event_id, position, name, unit_price, quantity, is_discountable, is_hidden_on_bill)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			string(event.ID), i, m.Name, m.UnitPrice.Value.String(), m.Quantity,
			boolToInt(m.Discountable), boolToInt(m.HiddenOnBill),
		)
		if err != nil {
			return err
		}
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM event_beneficiaries WHERE event_id = ?`, string(event.ID)); err != nil {
		return err
	}
	for i, b := range event.Beneficiaries {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO event_beneficiaries (event_id, position, name) VALUES (?, ?, ?)`,
			string(event.ID), i, b,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetEvent loads an event with its materials, beneficiaries, and document
// sequences (most recent first).
func (s *Store) GetEvent(ctx context.Context, id billing.EventID) (*billing.RentalEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, start_date, end_date FROM events WHERE id = ?`, string(id))

	var event billing.RentalEvent
	var eventID, startDate, endDate string
	if err := row.Scan(&eventID, &event.Title, &startDate, &endDate); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	event.ID = billing.EventID(eventID)

	var err error
	if event.StartDate, err = parseDate(startDate); err != nil {
		return nil, err
	}
	if event.EndDate, err = parseDate(endDate); err != nil {
		return nil, err
	}

	if event.Materials, err = s.queryMaterials(ctx, id); err != nil {
		return nil, err
	}
	if event.Beneficiaries, err = s.queryBeneficiaries(ctx, id); err != nil {
		return nil, err
	}
	if event.Estimates, err = s.queryDocuments(ctx, id, billing.KindEstimate); err != nil {
		return nil, err
	}
	if event.Bills, err = s.queryDocuments(ctx, id, billing.KindBill); err != nil {
		return nil, err
	}

	return &event, nil
}

func (s *Store) queryMaterials(ctx context.Context, eventID billing.EventID) ([]billing.LineItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, unit_price, quantity, is_discountable, is_hidden_on_bill
		FROM event_materials WHERE event_id = ? ORDER BY position`, string(eventID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []billing.LineItem
	for rows.Next() {
		var it billing.LineItem
		var price string
		var discountable, hidden int
		if err := rows.Scan(&it.Name, &price, &it.Quantity, &discountable, &hidden); err != nil {
			return nil, err
		}
		if it.UnitPrice, err = parseMoney(price); err != nil {
			return nil, err
		}
		it.Discountable = discountable != 0
		it.HiddenOnBill = hidden != 0
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *Store) queryBeneficiaries(ctx context.Context, eventID billing.EventID) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name FROM event_beneficiaries WHERE event_id = ? ORDER BY position`, string(eventID))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// =============================================================================
// DOCUMENTS - Create and delete only; snapshots never change
// =============================================================================

// CreateDocument persists a snapshot. The caller (the API layer) derives the
// totals from the event state at the requested rate.
func (s *Store) CreateDocument(ctx context.Context, doc billing.Document) (billing.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if doc.ID == "" {
		doc.ID = billing.DocumentID(fmt.Sprintf("%s-%d", doc.Kind, time.Now().UnixNano()))
	}
	if doc.Date.IsZero() {
		doc.Date = billing.Today()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents
			(id, event_id, kind, date, discount_rate,
			 grand_total, discount_amount, grand_total_with_discount, replacement_total,
			 created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(doc.ID), string(doc.EventID), string(doc.Kind), doc.Date.String(),
		doc.DiscountRate.Value.String(),
		doc.GrandTotal.Value.String(),
		doc.DiscountAmount.Value.String(),
		doc.GrandTotalWithDiscount.Value.String(),
		doc.ReplacementTotal.Value.String(),
		// Fixed-width timestamp: RFC3339Nano trims trailing zeros, which
		// breaks lexicographic ORDER BY created_at.
		time.Now().UTC().Format("2006-01-02T15:04:05.000000000Z"),
	)
	if err != nil {
		return billing.Document{}, err
	}
	return doc, nil
}

// GetDocument loads a single document by id.
func (s *Store) GetDocument(ctx context.Context, id billing.DocumentID) (*billing.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getDocument(ctx, id)
}

func (s *Store) getDocument(ctx context.Context, id billing.DocumentID) (*billing.Document, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, event_id, kind, date, discount_rate,
		       grand_total, discount_amount, grand_total_with_discount, replacement_total
		FROM documents WHERE id = ?`, string(id))

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrDocumentNotFound
		}
		return nil, err
	}
	return doc, nil
}

// DeleteEstimate removes an estimate and returns its id. Bills are refused.
func (s *Store) DeleteEstimate(ctx context.Context, id billing.DocumentID) (billing.DocumentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.getDocument(ctx, id)
	if err != nil {
		return "", err
	}
	if doc.Kind != billing.KindEstimate {
		return "", ErrBillNotDeletable
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, string(id)); err != nil {
		return "", err
	}
	return doc.ID, nil
}

func (s *Store) queryDocuments(ctx context.Context, eventID billing.EventID, kind billing.DocumentKind) ([]billing.Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, kind, date, discount_rate,
		       grand_total, discount_amount, grand_total_with_discount, replacement_total
		FROM documents
		WHERE event_id = ? AND kind = ?
		ORDER BY created_at DESC`, string(eventID), string(kind))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []billing.Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	return docs, rows.Err()
}

// =============================================================================
// SCAN HELPERS
// =============================================================================

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*billing.Document, error) {
	var doc billing.Document
	var id, eventID, kind, date, rate string
	var grand, discount, withDiscount, replacement string

	if err := row.Scan(&id, &eventID, &kind, &date, &rate,
		&grand, &discount, &withDiscount, &replacement); err != nil {
		return nil, err
	}

	doc.ID = billing.DocumentID(id)
	doc.EventID = billing.EventID(eventID)
	doc.Kind = billing.DocumentKind(kind)

	var err error
	if doc.Date, err = parseDate(date); err != nil {
		return nil, err
	}
	rateValue, err := decimal.NewFromString(rate)
	if err != nil {
		return nil, err
	}
	doc.DiscountRate = billing.DiscountRate{Value: rateValue}

	if doc.GrandTotal, err = parseMoney(grand); err != nil {
		return nil, err
	}
	if doc.DiscountAmount, err = parseMoney(discount); err != nil {
		return nil, err
	}
	if doc.GrandTotalWithDiscount, err = parseMoney(withDiscount); err != nil {
		return nil, err
	}
	if doc.ReplacementTotal, err = parseMoney(replacement); err != nil {
		return nil, err
	}

	return &doc, nil
}

func parseDate(s string) (billing.TimePoint, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return billing.TimePoint{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return billing.TimePoint{Time: t}, nil
}

func parseMoney(s string) (billing.Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return billing.Money{}, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	return billing.Money{Value: d}, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
