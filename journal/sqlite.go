package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(id, ticket, symbol, side, volume, entry_price, exit_price, open_time, close_time, realized_pnl, session, strategy, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Ticket, t.Symbol, t.Side.String(), t.Volume,
		t.EntryPrice, t.ExitPrice, t.OpenTime, t.CloseTime,
		t.RealizedPnL, string(t.Session), t.Strategy, t.Reason,
	)
	return err
}

func (j *SQLite) RecordEquity(e EquitySnapshot) error {
	_, err := j.db.Exec(`
		INSERT INTO equity
		(time, balance, equity, daily_pnl, open_positions, drawdown)
		VALUES (?, ?, ?, ?, ?, ?)`,
		e.Time, e.Balance, e.Equity, e.DailyPnL, e.OpenPositions, e.Drawdown,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
