// Package history keeps an append-only audit trail of draws, payouts, and
// settled orders in SQLite. The trail is reporting data: the lottery state
// machine never reads it back, so a write failure here is logged and
// tolerated rather than failing the operation that produced it.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/nantokaworks/ticket-lottery/internal/shared/logger"
	"go.uber.org/zap"
)

var dbClient *sql.DB

// DrawRecord is one completed draw.
type DrawRecord struct {
	ID            int       `json:"id"`
	RoundID       uint64    `json:"round_id"`
	WinningTicket uint64    `json:"winning_ticket"`
	TicketsSold   uint64    `json:"tickets_sold"`
	Players       int       `json:"players"`
	DrawnAt       time.Time `json:"drawn_at"`
}

// PayoutRecord is one successful winner payout.
type PayoutRecord struct {
	ID         int       `json:"id"`
	RoundID    uint64    `json:"round_id"`
	Winner     string    `json:"winner"`
	Reward     uint64    `json:"reward"`
	BlockIndex uint64    `json:"block_index"`
	PaidAt     time.Time `json:"paid_at"`
}

// SettledOrderRecord is one verified and credited ticket order.
type SettledOrderRecord struct {
	ID        int       `json:"id"`
	Memo      uint64    `json:"memo"`
	RoundID   uint64    `json:"round_id"`
	Buyer     string    `json:"buyer"`
	Amount    uint64    `json:"amount"`
	Block     uint64    `json:"block"`
	SettledAt time.Time `json:"settled_at"`
}

// SetupDB opens (or creates) the history database and its tables.
func SetupDB(dbPath string) (*sql.DB, error) {
	if dbClient != nil {
		return dbClient, nil
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	// SQLite is a single writer; keep the pool at one connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS draw_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round_id INTEGER NOT NULL,
		winning_ticket INTEGER NOT NULL,
		tickets_sold INTEGER NOT NULL,
		players INTEGER NOT NULL,
		drawn_at TIMESTAMP NOT NULL
	)`); err != nil {
		logger.Error("Failed to create draw_history table", zap.Error(err))
		return nil, fmt.Errorf("failed to create draw_history table: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS payout_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		round_id INTEGER NOT NULL,
		winner TEXT NOT NULL,
		reward INTEGER NOT NULL,
		block_index INTEGER NOT NULL,
		paid_at TIMESTAMP NOT NULL
	)`); err != nil {
		logger.Error("Failed to create payout_history table", zap.Error(err))
		return nil, fmt.Errorf("failed to create payout_history table: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS settled_orders (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		memo INTEGER NOT NULL,
		round_id INTEGER NOT NULL,
		buyer TEXT NOT NULL,
		amount INTEGER NOT NULL,
		block INTEGER NOT NULL,
		settled_at TIMESTAMP NOT NULL
	)`); err != nil {
		logger.Error("Failed to create settled_orders table", zap.Error(err))
		return nil, fmt.Errorf("failed to create settled_orders table: %w", err)
	}

	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_settled_orders_buyer ON settled_orders(buyer)`); err != nil {
		logger.Warn("Failed to create settled_orders index", zap.Error(err))
	}

	dbClient = db
	return db, nil
}

// Close closes the history database.
func Close() {
	if dbClient != nil {
		_ = dbClient.Close()
		dbClient = nil
	}
}

// SaveDraw records a completed draw.
func SaveDraw(record DrawRecord) error {
	if dbClient == nil {
		return fmt.Errorf("history database not initialized")
	}
	if record.DrawnAt.IsZero() {
		record.DrawnAt = time.Now()
	}

	_, err := dbClient.Exec(`
		INSERT INTO draw_history (round_id, winning_ticket, tickets_sold, players, drawn_at)
		VALUES (?, ?, ?, ?, ?)`,
		record.RoundID, record.WinningTicket, record.TicketsSold, record.Players, record.DrawnAt)
	if err != nil {
		return fmt.Errorf("failed to save draw record: %w", err)
	}
	return nil
}

// SavePayout records a successful winner payout.
func SavePayout(record PayoutRecord) error {
	if dbClient == nil {
		return fmt.Errorf("history database not initialized")
	}
	if record.PaidAt.IsZero() {
		record.PaidAt = time.Now()
	}

	_, err := dbClient.Exec(`
		INSERT INTO payout_history (round_id, winner, reward, block_index, paid_at)
		VALUES (?, ?, ?, ?, ?)`,
		record.RoundID, record.Winner, record.Reward, record.BlockIndex, record.PaidAt)
	if err != nil {
		return fmt.Errorf("failed to save payout record: %w", err)
	}
	return nil
}

// SaveSettledOrder records a verified and credited order.
func SaveSettledOrder(record SettledOrderRecord) error {
	if dbClient == nil {
		return fmt.Errorf("history database not initialized")
	}
	if record.SettledAt.IsZero() {
		record.SettledAt = time.Now()
	}

	_, err := dbClient.Exec(`
		INSERT INTO settled_orders (memo, round_id, buyer, amount, block, settled_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		record.Memo, record.RoundID, record.Buyer, record.Amount, record.Block, record.SettledAt)
	if err != nil {
		return fmt.Errorf("failed to save settled order: %w", err)
	}
	return nil
}

// ListDraws returns draw records, latest first. limit <= 0 means no limit.
func ListDraws(limit int) ([]DrawRecord, error) {
	if dbClient == nil {
		return []DrawRecord{}, fmt.Errorf("history database not initialized")
	}

	query := `
		SELECT id, round_id, winning_ticket, tickets_sold, players, drawn_at
		FROM draw_history
		ORDER BY drawn_at DESC, id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = dbClient.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = dbClient.Query(query)
	}
	if err != nil {
		return []DrawRecord{}, fmt.Errorf("failed to list draw history: %w", err)
	}
	defer rows.Close()

	records := []DrawRecord{}
	for rows.Next() {
		var r DrawRecord
		if err := rows.Scan(&r.ID, &r.RoundID, &r.WinningTicket, &r.TicketsSold, &r.Players, &r.DrawnAt); err != nil {
			logger.Error("Failed to scan draw record", zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return []DrawRecord{}, fmt.Errorf("failed to iterate draw history: %w", err)
	}
	return records, nil
}

// ListPayouts returns payout records, latest first.
func ListPayouts(limit int) ([]PayoutRecord, error) {
	if dbClient == nil {
		return []PayoutRecord{}, fmt.Errorf("history database not initialized")
	}

	query := `
		SELECT id, round_id, winner, reward, block_index, paid_at
		FROM payout_history
		ORDER BY paid_at DESC, id DESC`

	var (
		rows *sql.Rows
		err  error
	)
	if limit > 0 {
		rows, err = dbClient.Query(query+" LIMIT ?", limit)
	} else {
		rows, err = dbClient.Query(query)
	}
	if err != nil {
		return []PayoutRecord{}, fmt.Errorf("failed to list payout history: %w", err)
	}
	defer rows.Close()

	records := []PayoutRecord{}
	for rows.Next() {
		var r PayoutRecord
		if err := rows.Scan(&r.ID, &r.RoundID, &r.Winner, &r.Reward, &r.BlockIndex, &r.PaidAt); err != nil {
			logger.Error("Failed to scan payout record", zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return []PayoutRecord{}, fmt.Errorf("failed to iterate payout history: %w", err)
	}
	return records, nil
}

// ListSettledOrders returns settled orders, latest first, optionally
// filtered by buyer.
func ListSettledOrders(buyer string, limit int) ([]SettledOrderRecord, error) {
	if dbClient == nil {
		return []SettledOrderRecord{}, fmt.Errorf("history database not initialized")
	}

	query := `
		SELECT id, memo, round_id, buyer, amount, block, settled_at
		FROM settled_orders`
	args := []any{}
	if buyer != "" {
		query += " WHERE buyer = ?"
		args = append(args, buyer)
	}
	query += " ORDER BY settled_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := dbClient.Query(query, args...)
	if err != nil {
		return []SettledOrderRecord{}, fmt.Errorf("failed to list settled orders: %w", err)
	}
	defer rows.Close()

	records := []SettledOrderRecord{}
	for rows.Next() {
		var r SettledOrderRecord
		if err := rows.Scan(&r.ID, &r.Memo, &r.RoundID, &r.Buyer, &r.Amount, &r.Block, &r.SettledAt); err != nil {
			logger.Error("Failed to scan settled order", zap.Error(err))
			continue
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return []SettledOrderRecord{}, fmt.Errorf("failed to iterate settled orders: %w", err)
	}
	return records, nil
}
