package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DB wraps the SQL database connection
type DB struct {
	*sql.DB
}

// Account is a registered dashboard user
type Account struct {
	ID           string
	Username     string
	PasswordHash string
	APIKey       string
	CreatedAt    time.Time
}

// Device is one machine pushing usage for an account
type Device struct {
	ID         string
	AccountID  string
	Name       string
	LastPushAt *time.Time
	CreatedAt  time.Time
}

// DayUsage is one device's aggregate for one calendar day
type DayUsage struct {
	AccountID    string
	DeviceID     string
	Day          string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Records      int64
	Cost         float64
}

// DayRow is a per-day aggregate across all of an account's devices
type DayRow struct {
	Day          string
	InputTokens  int64
	OutputTokens int64
	TotalTokens  int64
	Records      int64
	Cost         float64
}

// Open opens a SQLite database connection
func Open(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Set busy timeout to avoid "database is locked" errors under concurrent load
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	return &DB{db}, nil
}

// Migrate creates the database schema
func (db *DB) Migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		username TEXT UNIQUE NOT NULL,
		password_hash TEXT NOT NULL,
		api_key TEXT UNIQUE NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS devices (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL,
		name TEXT NOT NULL,
		last_push_at TIMESTAMP,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS usage_days (
		account_id TEXT NOT NULL,
		device_id TEXT NOT NULL,
		day TEXT NOT NULL,
		input_tokens INTEGER NOT NULL,
		output_tokens INTEGER NOT NULL,
		total_tokens INTEGER NOT NULL,
		records INTEGER NOT NULL,
		cost REAL DEFAULT 0,
		PRIMARY KEY (account_id, device_id, day),
		FOREIGN KEY (account_id) REFERENCES accounts(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_usage_days_account_day ON usage_days(account_id, day);
	CREATE INDEX IF NOT EXISTS idx_devices_account ON devices(account_id);

	CREATE TABLE IF NOT EXISTS sessions (
		token TEXT PRIMARY KEY,
		data BLOB NOT NULL,
		expiry REAL NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_sessions_expiry ON sessions(expiry);
	`

	_, err := db.Exec(schema)
	return err
}

// CreateAccount creates a new account
func (db *DB) CreateAccount(a *Account) error {
	_, err := db.Exec(
		`INSERT INTO accounts (id, username, password_hash, api_key, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Username, a.PasswordHash, a.APIKey, a.CreatedAt,
	)
	return err
}

func (db *DB) accountBy(where, value string) (*Account, error) {
	a := &Account{}
	err := db.QueryRow(
		`SELECT id, username, password_hash, api_key, created_at
		 FROM accounts WHERE `+where+` = ?`,
		value,
	).Scan(&a.ID, &a.Username, &a.PasswordHash, &a.APIKey, &a.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

// AccountByUsername retrieves an account by username
func (db *DB) AccountByUsername(username string) (*Account, error) {
	return db.accountBy("username", username)
}

// AccountByID retrieves an account by ID
func (db *DB) AccountByID(id string) (*Account, error) {
	return db.accountBy("id", id)
}

// AccountByAPIKey retrieves an account by API key
func (db *DB) AccountByAPIKey(apiKey string) (*Account, error) {
	return db.accountBy("api_key", apiKey)
}

// GetOrCreateDevice gets an existing device or registers a new one
func (db *DB) GetOrCreateDevice(accountID, deviceID, name string) (*Device, error) {
	d := &Device{}
	var lastPush sql.NullTime
	err := db.QueryRow(
		`SELECT id, account_id, name, last_push_at, created_at FROM devices WHERE id = ? AND account_id = ?`,
		deviceID, accountID,
	).Scan(&d.ID, &d.AccountID, &d.Name, &lastPush, &d.CreatedAt)

	if err == nil {
		if lastPush.Valid {
			d.LastPushAt = &lastPush.Time
		}
		return d, nil
	}

	if err != sql.ErrNoRows {
		return nil, err
	}

	now := time.Now()
	_, err = db.Exec(
		`INSERT INTO devices (id, account_id, name, created_at) VALUES (?, ?, ?, ?)`,
		deviceID, accountID, name, now,
	)
	if err != nil {
		return nil, err
	}

	return &Device{
		ID:        deviceID,
		AccountID: accountID,
		Name:      name,
		CreatedAt: now,
	}, nil
}

// UpdateDevicePush records the last push time for a device
func (db *DB) UpdateDevicePush(deviceID string, at time.Time) error {
	_, err := db.Exec(`UPDATE devices SET last_push_at = ? WHERE id = ?`, at, deviceID)
	return err
}

// UpsertDays stores day snapshots for a device. The client recomputes each
// day's aggregate from its logs on every push, so a snapshot replaces the
// stored row rather than adding to it.
func (db *DB) UpsertDays(days []DayUsage) (int64, error) {
	tx, err := db.Begin()
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO usage_days
		(account_id, device_id, day, input_tokens, output_tokens, total_tokens, records, cost)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, device_id, day) DO UPDATE SET
			input_tokens = excluded.input_tokens,
			output_tokens = excluded.output_tokens,
			total_tokens = excluded.total_tokens,
			records = excluded.records,
			cost = excluded.cost
	`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	var updated int64
	for _, d := range days {
		result, err := stmt.Exec(
			d.AccountID, d.DeviceID, d.Day,
			d.InputTokens, d.OutputTokens, d.TotalTokens, d.Records, d.Cost,
		)
		if err != nil {
			return 0, err
		}
		n, _ := result.RowsAffected()
		updated += n
	}

	return updated, tx.Commit()
}

// RecentDays returns per-day usage for an account across all devices,
// newest first
func (db *DB) RecentDays(accountID string, limit int) ([]DayRow, error) {
	rows, err := db.Query(`
		SELECT day, SUM(input_tokens), SUM(output_tokens), SUM(total_tokens), SUM(records), SUM(cost)
		FROM usage_days
		WHERE account_id = ?
		GROUP BY day
		ORDER BY day DESC
		LIMIT ?`,
		accountID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []DayRow
	for rows.Next() {
		var r DayRow
		if err := rows.Scan(&r.Day, &r.InputTokens, &r.OutputTokens, &r.TotalTokens, &r.Records, &r.Cost); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// UsageOnDay returns an account's aggregate for one calendar day
func (db *DB) UsageOnDay(accountID, day string) (DayRow, error) {
	r := DayRow{Day: day}
	err := db.QueryRow(`
		SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(total_tokens), 0), COALESCE(SUM(records), 0), COALESCE(SUM(cost), 0)
		FROM usage_days
		WHERE account_id = ? AND day = ?`,
		accountID, day,
	).Scan(&r.InputTokens, &r.OutputTokens, &r.TotalTokens, &r.Records, &r.Cost)
	return r, err
}

// Totals returns an account's all-time aggregate
func (db *DB) Totals(accountID string) (DayRow, error) {
	r := DayRow{Day: "Total"}
	err := db.QueryRow(`
		SELECT COALESCE(SUM(input_tokens), 0), COALESCE(SUM(output_tokens), 0),
		       COALESCE(SUM(total_tokens), 0), COALESCE(SUM(records), 0), COALESCE(SUM(cost), 0)
		FROM usage_days
		WHERE account_id = ?`,
		accountID,
	).Scan(&r.InputTokens, &r.OutputTokens, &r.TotalTokens, &r.Records, &r.Cost)
	return r, err
}

// LastPush returns a device's last push time, or nil if it has never pushed
// or is unknown
func (db *DB) LastPush(accountID, deviceID string) (*time.Time, error) {
	var last sql.NullTime
	err := db.QueryRow(
		`SELECT last_push_at FROM devices WHERE account_id = ? AND id = ?`,
		accountID, deviceID,
	).Scan(&last)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !last.Valid {
		return nil, nil
	}
	return &last.Time, nil
}
