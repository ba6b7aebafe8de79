package journal

import (
	"encoding/csv"
	"os"
	"strconv"
	"time"
)

type CSV struct {
	trades *csv.Writer
	equity *csv.Writer
	tf, ef *os.File
}

func NewCSV(tradesPath, equityPath string) (*CSV, error) {
	tf, err := os.Create(tradesPath)
	if err != nil {
		return nil, err
	}
	ef, err := os.Create(equityPath)
	if err != nil {
		tf.Close()
		return nil, err
	}

	tw := csv.NewWriter(tf)
	ew := csv.NewWriter(ef)

	if err := tw.Write([]string{"id", "ticket", "symbol", "side", "volume", "entry_price", "exit_price", "open_time", "close_time", "realized_pnl", "session", "strategy", "reason"}); err != nil {
		return nil, err
	}
	if err := ew.Write([]string{"time", "balance", "equity", "daily_pnl", "open_positions", "drawdown"}); err != nil {
		return nil, err
	}

	tw.Flush()
	if err := tw.Error(); err != nil {
		return nil, err
	}
	ew.Flush()
	if err := ew.Error(); err != nil {
		return nil, err
	}

	return &CSV{tw, ew, tf, ef}, nil
}

func (j *CSV) RecordTrade(t TradeRecord) error {
	if err := j.trades.Write([]string{
		t.ID,
		strconv.FormatInt(t.Ticket, 10),
		t.Symbol,
		t.Side.String(),
		f(t.Volume),
		f(t.EntryPrice),
		f(t.ExitPrice),
		t.OpenTime.Format(time.RFC3339),
		t.CloseTime.Format(time.RFC3339),
		f(t.RealizedPnL),
		string(t.Session),
		t.Strategy,
		t.Reason,
	}); err != nil {
		return err
	}

	j.trades.Flush()
	return j.trades.Error()
}

func (j *CSV) RecordEquity(e EquitySnapshot) error {
	if err := j.equity.Write([]string{
		e.Time.Format(time.RFC3339),
		f(e.Balance),
		f(e.Equity),
		f(e.DailyPnL),
		strconv.Itoa(e.OpenPositions),
		f(e.Drawdown),
	}); err != nil {
		return err
	}

	j.equity.Flush()
	return j.equity.Error()
}

func (j *CSV) Close() error {
	j.trades.Flush()
	if err := j.trades.Error(); err != nil {
		return err
	}
	j.equity.Flush()
	if err := j.equity.Error(); err != nil {
		return err
	}

	if err := j.tf.Close(); err != nil {
		return err
	}
	return j.ef.Close()
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', 6, 64)
}
