package types

// PerformanceMetrics is the aggregate statistics reduced from one trade
// log and equity curve. Undefined ratios (no losing trades, zero trades)
// are NaN sentinels rather than errors.
type PerformanceMetrics struct {
	// Gross PnL before costs.
	GrossPnL float64 `yaml:"gross_pnl"`
	// Net PnL after costs.
	NetPnL float64 `yaml:"net_pnl"`
	// Fraction of trades with positive net PnL.
	WinRate float64 `yaml:"win_rate"`
	// Fraction of trades with negative net PnL.
	LossRate float64 `yaml:"loss_rate"`
	// Average net PnL of winning trades.
	AvgWin float64 `yaml:"avg_win"`
	// Average net PnL of losing trades (negative).
	AvgLoss float64 `yaml:"avg_loss"`
	// AvgWin over |AvgLoss|.
	WinLossRatio float64 `yaml:"win_loss_ratio"`
	// Maximum peak-to-trough decline of the equity curve. Always <= 0.
	MaxDrawdown float64 `yaml:"max_drawdown"`
	// Annualization-free Sharpe over per-trade or per-period returns.
	SharpeRatio float64 `yaml:"sharpe_ratio"`
	// Count of closed trades.
	TradeCount int `yaml:"trade_count"`
}
