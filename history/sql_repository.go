package history

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/spinframework/spin-go-sdk/v2/sqlite"

	"github.com/timgluz/abfuhrplan/collection"
)

var (
	ErrDBNotAvailable = fmt.Errorf("SQLite DB is not available")
)

const createCollectionsTable = `
CREATE TABLE IF NOT EXISTS collections (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	street TEXT NOT NULL,
	number TEXT NOT NULL,
	waste_type TEXT NOT NULL,
	collected_on TEXT NOT NULL,
	UNIQUE (street, number, waste_type, collected_on)
)`

type SQLRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSpinSqliteDB(dbName string) (*sql.DB, error) {
	db := sqlite.Open(dbName)
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping SQLite DB: %w", err)
	}

	return db, nil
}

func NewSQLRepository(db *sql.DB, logger *slog.Logger) (*SQLRepository, error) {
	if db == nil {
		logger.Error("SQL DB is not initialized")
		return nil, ErrDBNotAvailable
	}

	return &SQLRepository{
		db:     db,
		logger: logger,
	}, nil
}

func (r *SQLRepository) IsReady() bool {
	if r.logger == nil {
		fmt.Println("Logger of SQLRepository is not initialized")
		return false
	}

	if r.db == nil {
		r.logger.Error("SQLite DB is not initialized")
		return false
	}

	return true
}

// EnsureSchema creates the collections table when it does not exist yet.
// Components call it once during initialization.
func (r *SQLRepository) EnsureSchema(ctx context.Context) error {
	defer ctx.Done()

	if _, err := r.db.Exec(createCollectionsTable); err != nil {
		r.logger.Error("Failed to create collections table", "error", err)
		return err
	}

	return nil
}

func (r *SQLRepository) Close() error {
	if r.db == nil {
		return ErrDBNotAvailable
	}

	if err := r.db.Close(); err != nil {
		r.logger.Error("Failed to close SQLite DB", "error", err)
		return err
	}

	r.logger.Info("SQLite DB closed successfully")
	return nil
}

// AddSchedule records every entry of the schedule, skipping dates that are
// already in the history.
func (r *SQLRepository) AddSchedule(ctx context.Context, schedule *collection.Schedule) error {
	defer ctx.Done()

	if schedule == nil {
		r.logger.Error("Cannot add nil schedule")
		return fmt.Errorf("schedule cannot be nil")
	}

	for _, entry := range schedule.Entries {
		if err := r.addEntry(schedule.Street, schedule.Number, entry); err != nil {
			r.logger.Error("Failed to add history entry", "entry", entry, "error", err)
			return err
		}
	}

	r.logger.Info("Schedule added to history", "street", schedule.Street, "number", schedule.Number, "entries", len(schedule.Entries))
	return nil
}

// GetEntries retrieves the recorded pickups for an address inside the period,
// ordered by date.
func (r *SQLRepository) GetEntries(ctx context.Context, address collection.Address, period collection.Period) ([]Entry, error) {
	defer ctx.Done()

	query := `
SELECT id, street, number, waste_type, collected_on
FROM collections
WHERE street = ? AND number = ?
	AND collected_on >= ? AND collected_on <= ?
ORDER BY collected_on ASC, waste_type ASC`

	rows, err := r.db.Query(query, address.Street, address.Number, period.Start.String(), period.End.String())
	if err != nil {
		r.logger.Error("Failed to query history entries", "error", err)
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			r.logger.Error("Failed to scan history row", "error", err)
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		r.logger.Error("Error occurred during row iteration", "error", err)
		return nil, err
	}

	r.logger.Info("History entries retrieved", "street", address.Street, "number", address.Number, "count", len(entries))
	return entries, nil
}

func (r *SQLRepository) hasEntry(street, number string, entry collection.Collection) (bool, error) {
	query := `SELECT COUNT(*) FROM collections WHERE street = ? AND number = ? AND waste_type = ? AND collected_on = ?`
	row := r.db.QueryRow(query, street, number, string(entry.WasteType), entry.Date.String())

	var count int
	if err := row.Scan(&count); err != nil {
		r.logger.Error("Failed to scan entry count", "error", err)
		return false, err
	}

	return count > 0, nil
}

func (r *SQLRepository) addEntry(street, number string, entry collection.Collection) error {
	ok, err := r.hasEntry(street, number, entry)
	if err != nil {
		return err
	}

	if ok {
		r.logger.Debug("skip: history entry already exists", "street", street, "date", entry.Date.String(), "wasteType", entry.WasteType)
		return nil
	}

	query := `INSERT INTO collections (street, number, waste_type, collected_on) VALUES (?, ?, ?, ?)`
	if _, err := r.db.Exec(query, street, number, string(entry.WasteType), entry.Date.String()); err != nil {
		r.logger.Error("Failed to insert history entry", "error", err)
		return err
	}

	return nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var entry Entry
	var wasteType, collectedOn string

	if err := rows.Scan(&entry.ID, &entry.Street, &entry.Number, &wasteType, &collectedOn); err != nil {
		return Entry{}, err
	}

	parsedType, err := collection.ParseWasteType(wasteType)
	if err != nil {
		return Entry{}, err
	}

	parsedDate, err := collection.ParseDate(collectedOn)
	if err != nil {
		return Entry{}, err
	}

	entry.WasteType = parsedType
	entry.CollectedOn = parsedDate
	return entry, nil
}
