package journal

const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	ticket INTEGER NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	volume REAL NOT NULL,
	entry_price REAL NOT NULL,
	exit_price REAL NOT NULL,
	open_time DATETIME NOT NULL,
	close_time DATETIME NOT NULL,
	realized_pnl REAL NOT NULL,
	session TEXT NOT NULL,
	strategy TEXT NOT NULL,
	reason TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_ticket ON trades(ticket);
CREATE INDEX IF NOT EXISTS idx_trades_close_time ON trades(close_time);

CREATE TABLE IF NOT EXISTS equity (
	time DATETIME NOT NULL,
	balance REAL NOT NULL,
	equity REAL NOT NULL,
	daily_pnl REAL NOT NULL,
	open_positions INTEGER NOT NULL,
	drawdown REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_equity_time ON equity(time);
`
