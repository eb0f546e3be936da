// Package trades persists account snapshots in SQLite. The table is an
// append-only log: the trading loop appends one row per cycle and the
// adjustment tool appends deposit/withdrawal rows; analysis only reads.
package trades

import (
	"database/sql"
	"strings"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"

	"github.com/jeongwoo-hong/jwcoin/internal/domain"
)

// ErrEmpty is returned when the log has no rows yet.
var ErrEmpty = errors.New("trades log is empty")

const timeLayout = "2006-01-02 15:04:05"

// Store wraps the SQLite trades table.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// New opens (or creates) the database at path and runs migrations.
func New(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.Wrap(err, "open sqlite")
	}

	// WAL mode lets the dashboard read while the bot writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "set WAL mode")
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, errors.Wrap(err, "migrate")
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS trades (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp         TEXT NOT NULL,
			decision          TEXT,
			reason            TEXT,
			base_balance      REAL NOT NULL DEFAULT 0,
			cash_balance      REAL NOT NULL DEFAULT 0,
			last_price        REAL NOT NULL DEFAULT 0,
			reported_avg_cost REAL NOT NULL DEFAULT 0,
			transaction_type  TEXT NOT NULL DEFAULT 'trade',
			manual_entry      INTEGER NOT NULL DEFAULT 0,
			notes             TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_ts ON trades(timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrapf(err, "exec %q", stmt[:30])
		}
	}
	return nil
}

// Save appends a snapshot row and returns its row id.
func (s *Store) Save(snap domain.Snapshot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if snap.TxType == "" {
		snap.TxType = domain.TxTypeTrade
	}
	res, err := s.db.Exec(`INSERT INTO trades
		(timestamp, decision, reason, base_balance, cash_balance, last_price,
		 reported_avg_cost, transaction_type, manual_entry, notes)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		snap.Timestamp.UTC().Format(timeLayout),
		snap.Decision, snap.Reason,
		decimalToFloat(snap.BaseBalance), decimalToFloat(snap.CashBalance),
		decimalToFloat(snap.LastPrice), decimalToFloat(snap.ReportedAvgCost),
		string(snap.TxType), boolToInt(snap.ManualEntry), snap.Note,
	)
	if err != nil {
		return 0, errors.Wrap(err, "insert snapshot")
	}
	return res.LastInsertId()
}

const selectColumns = `id, timestamp, decision, reason, base_balance,
	cash_balance, last_price, reported_avg_cost, transaction_type,
	manual_entry, notes`

// List returns all snapshots sorted by timestamp with the row id as
// tie-break. The single query gives analysis a consistent point-in-time
// read even while the trading loop keeps appending.
func (s *Store) List() ([]domain.Snapshot, error) {
	rows, err := s.db.Query(`SELECT ` + selectColumns + `
		FROM trades ORDER BY timestamp, id`)
	if err != nil {
		return nil, errors.Wrap(err, "query snapshots")
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// After returns snapshots with a row id greater than the given one, in
// insertion order. Used by the dashboard stream to resume.
func (s *Store) After(id int64) ([]domain.Snapshot, error) {
	rows, err := s.db.Query(`SELECT `+selectColumns+`
		FROM trades WHERE id > ? ORDER BY id`, id)
	if err != nil {
		return nil, errors.Wrap(err, "query snapshots after id")
	}
	defer rows.Close()
	return scanSnapshots(rows)
}

// Latest returns the most recently inserted snapshot.
func (s *Store) Latest() (domain.Snapshot, error) {
	row := s.db.QueryRow(`SELECT ` + selectColumns + `
		FROM trades ORDER BY id DESC LIMIT 1`)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Snapshot{}, ErrEmpty
	}
	return snap, err
}

// AddDeposit appends a manual deposit row: balances are copied from the
// latest snapshot with the cash delta applied, so downstream analysis sees
// a cash movement without a base-asset change.
func (s *Store) AddDeposit(amount decimal.Decimal, at time.Time, description string) (domain.Snapshot, error) {
	return s.addCashMovement(amount, at, description, domain.TxTypeDeposit)
}

// AddWithdraw appends a manual withdrawal row.
func (s *Store) AddWithdraw(amount decimal.Decimal, at time.Time, description string) (domain.Snapshot, error) {
	return s.addCashMovement(amount.Neg(), at, description, domain.TxTypeWithdrawal)
}

func (s *Store) addCashMovement(delta decimal.Decimal, at time.Time, description string, txType domain.TxType) (domain.Snapshot, error) {
	latest, err := s.Latest()
	if err != nil {
		return domain.Snapshot{}, errors.Wrap(err, "load latest snapshot")
	}

	verb := "deposit"
	if txType == domain.TxTypeWithdrawal {
		verb = "withdraw"
	}
	if at.IsZero() {
		at = time.Now()
	}

	snap := domain.Snapshot{
		Timestamp:       at,
		Decision:        domain.ActionHold,
		Reason:          "Manual " + verb + ": " + description,
		BaseBalance:     latest.BaseBalance,
		CashBalance:     latest.CashBalance.Add(delta),
		LastPrice:       latest.LastPrice,
		ReportedAvgCost: latest.ReportedAvgCost,
		TxType:          txType,
		ManualEntry:     true,
		Note:            description,
	}
	if snap.CashBalance.IsNegative() {
		return domain.Snapshot{}, errors.Errorf(
			"withdrawal of %s exceeds cash balance %s", delta.Abs(), latest.CashBalance)
	}

	id, err := s.Save(snap)
	if err != nil {
		return domain.Snapshot{}, err
	}
	snap.ID = id
	return snap, nil
}

// UpdateTxType retags an existing row.
func (s *Store) UpdateTxType(id int64, txType domain.TxType) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`UPDATE trades SET transaction_type = ? WHERE id = ?`,
		string(txType), id)
	if err != nil {
		return errors.Wrap(err, "update transaction type")
	}
	return expectOneRow(res, id)
}

// Delete removes a row. Downstream figures change deterministically on the
// next analysis run; nothing else needs invalidating.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return errors.Wrap(err, "delete snapshot")
	}
	return expectOneRow(res, id)
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func expectOneRow(res sql.Result, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.Errorf("no snapshot with id %d", id)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row rowScanner) (domain.Snapshot, error) {
	var (
		snap                              domain.Snapshot
		ts                                string
		decision, reason, txType, notes   sql.NullString
		base, cash, price, avgCost        float64
		manual                            int
	)
	err := row.Scan(&snap.ID, &ts, &decision, &reason, &base, &cash,
		&price, &avgCost, &txType, &manual, &notes)
	if err != nil {
		return domain.Snapshot{}, err
	}

	// A row with an unparseable timestamp is still returned; the zero
	// Timestamp makes the analysis engine exclude and report it.
	snap.Timestamp = parseTimestamp(ts)
	snap.Decision = decision.String
	snap.Reason = reason.String
	snap.BaseBalance = decimal.NewFromFloat(base)
	snap.CashBalance = decimal.NewFromFloat(cash)
	snap.LastPrice = decimal.NewFromFloat(price)
	snap.ReportedAvgCost = decimal.NewFromFloat(avgCost)
	snap.TxType = domain.TxType(txType.String)
	snap.ManualEntry = manual != 0
	snap.Note = notes.String
	return snap, nil
}

func scanSnapshots(rows *sql.Rows) ([]domain.Snapshot, error) {
	var snaps []domain.Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, errors.Wrap(err, "scan snapshot")
		}
		snaps = append(snaps, snap)
	}
	return snaps, rows.Err()
}

// parseTimestamp accepts both the store's own layout and RFC3339 variants
// written by older tooling.
func parseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{timeLayout, time.RFC3339, time.RFC3339Nano} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

func decimalToFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
