package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/vitos/solana_trade_bot/internal/domain"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS orders (
			id TEXT PRIMARY KEY,
			token_mint TEXT NOT NULL,
			side TEXT NOT NULL,
			amount REAL NOT NULL,
			slippage REAL NOT NULL,
			priority_fee INTEGER NOT NULL,
			compute_unit_limit INTEGER NOT NULL,
			wallet_address TEXT NOT NULL,
			cluster TEXT NOT NULL,
			status TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			executed_price REAL NOT NULL DEFAULT 0,
			executed_amount REAL NOT NULL DEFAULT 0,
			signature TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE INDEX IF NOT EXISTS idx_orders_wallet ON orders(wallet_address, created_at);`,
		`CREATE TABLE IF NOT EXISTS snipers (
			sniper_id TEXT PRIMARY KEY,
			wallet_address TEXT NOT NULL,
			target_tokens TEXT NOT NULL,
			buy_amount REAL NOT NULL,
			max_slippage REAL NOT NULL,
			profit_target REAL NOT NULL,
			stop_loss REAL NOT NULL,
			auto_sell BOOLEAN NOT NULL,
			compute_unit_limit INTEGER NOT NULL,
			cluster TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			is_running BOOLEAN NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS snipe_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			sniper_id TEXT NOT NULL,
			token_mint TEXT NOT NULL,
			buy_amount REAL NOT NULL,
			buy_price REAL NOT NULL,
			buy_signature TEXT NOT NULL,
			buy_time INTEGER NOT NULL,
			sell_price REAL,
			sell_signature TEXT,
			sell_time INTEGER,
			profit REAL NOT NULL DEFAULT 0,
			profit_percentage REAL NOT NULL DEFAULT 0,
			success BOOLEAN NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_snipe_records_sniper ON snipe_records(sniper_id, buy_time);`,
		`CREATE TABLE IF NOT EXISTS copy_traders (
			copy_trade_id TEXT PRIMARY KEY,
			source_wallet TEXT NOT NULL,
			target_wallet TEXT NOT NULL,
			allocation_percentage REAL NOT NULL,
			max_position_size REAL NOT NULL,
			min_trade_amount REAL NOT NULL,
			max_trades_per_hour INTEGER NOT NULL,
			cluster TEXT NOT NULL,
			start_time DATETIME NOT NULL,
			is_running BOOLEAN NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS copy_trade_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			copy_trade_id TEXT NOT NULL,
			source_wallet TEXT NOT NULL,
			target_wallet TEXT NOT NULL,
			token_mint TEXT NOT NULL,
			amount REAL NOT NULL,
			side TEXT NOT NULL,
			profit REAL NOT NULL DEFAULT 0,
			signature TEXT NOT NULL,
			timestamp INTEGER NOT NULL,
			success BOOLEAN NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_copy_trade_records_id ON copy_trade_records(copy_trade_id, timestamp);`,
	}

	for _, q := range queries {
		if _, err := s.db.Exec(q); err != nil {
			return fmt.Errorf("failed to exec query %s: %w", q, err)
		}
	}

	return nil
}

// OrderRepository implementation

func (s *SQLiteStore) SaveOrder(ctx context.Context, order *domain.Order) error {
	query := `INSERT INTO orders (id, token_mint, side, amount, slippage, priority_fee, compute_unit_limit, wallet_address, cluster, status, created_at, executed_price, executed_amount, signature)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		order.ID, order.TokenMint, order.Side, order.Amount, order.Slippage,
		order.PriorityFee, order.ComputeUnitLimit, order.WalletAddress, order.Cluster,
		order.Status, order.CreatedAt, order.ExecutedPrice, order.ExecutedAmount, order.Signature)
	return err
}

func (s *SQLiteStore) UpdateOrder(ctx context.Context, order *domain.Order) error {
	query := `UPDATE orders SET status = ?, executed_price = ?, executed_amount = ?, signature = ? WHERE id = ?`
	_, err := s.db.ExecContext(ctx, query,
		order.Status, order.ExecutedPrice, order.ExecutedAmount, order.Signature, order.ID)
	return err
}

func (s *SQLiteStore) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	query := `SELECT id, token_mint, side, amount, slippage, priority_fee, compute_unit_limit, wallet_address, cluster, status, created_at, executed_price, executed_amount, signature
			  FROM orders WHERE id = ?`
	row := s.db.QueryRowContext(ctx, query, id)

	var o domain.Order
	err := row.Scan(&o.ID, &o.TokenMint, &o.Side, &o.Amount, &o.Slippage, &o.PriorityFee,
		&o.ComputeUnitLimit, &o.WalletAddress, &o.Cluster, &o.Status, &o.CreatedAt,
		&o.ExecutedPrice, &o.ExecutedAmount, &o.Signature)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *SQLiteStore) ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error) {
	query := `SELECT id, token_mint, side, amount, slippage, priority_fee, compute_unit_limit, wallet_address, cluster, status, created_at, executed_price, executed_amount, signature FROM orders`
	var conds []string
	var args []any

	if filter.WalletAddress != "" {
		conds = append(conds, "wallet_address = ?")
		args = append(args, filter.WalletAddress)
	}
	if filter.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, filter.Status)
	}
	if !filter.StartTime.IsZero() {
		conds = append(conds, "created_at >= ?")
		args = append(args, filter.StartTime)
	}
	if !filter.EndTime.IsZero() {
		conds = append(conds, "created_at <= ?")
		args = append(args, filter.EndTime)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []*domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.ID, &o.TokenMint, &o.Side, &o.Amount, &o.Slippage, &o.PriorityFee,
			&o.ComputeUnitLimit, &o.WalletAddress, &o.Cluster, &o.Status, &o.CreatedAt,
			&o.ExecutedPrice, &o.ExecutedAmount, &o.Signature); err != nil {
			return nil, err
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

// SniperRepository implementation

func (s *SQLiteStore) SaveSniperConfig(ctx context.Context, session *domain.SniperSession) error {
	query := `INSERT INTO snipers (sniper_id, wallet_address, target_tokens, buy_amount, max_slippage, profit_target, stop_loss, auto_sell, compute_unit_limit, cluster, start_time, is_running)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.WalletAddress, strings.Join(session.Targets(), ","),
		session.BuyAmount, session.MaxSlippage, session.ProfitTarget, session.StopLoss,
		session.AutoSell, session.ComputeUnitLimit, session.Cluster, session.StartTime, session.Running)
	return err
}

func (s *SQLiteStore) SetSniperRunning(ctx context.Context, sniperID string, running bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE snipers SET is_running = ? WHERE sniper_id = ?`, running, sniperID)
	return err
}

func (s *SQLiteStore) SaveSnipeRecord(ctx context.Context, record *domain.SnipeRecord) error {
	query := `INSERT INTO snipe_records (sniper_id, token_mint, buy_amount, buy_price, buy_signature, buy_time, success)
			  VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		record.SniperID, record.TokenMint, record.BuyAmount, record.BuyPrice,
		record.BuySignature, record.BuyTime, record.Success)
	return err
}

func (s *SQLiteStore) FinalizeSnipeRecord(ctx context.Context, sniperID, tokenMint string, sellPrice float64, sellSignature string, sellTime int64, profit, profitPercentage float64) error {
	// one sell closes one record; with overlapping buys of the same mint the
	// oldest open row is the one being closed
	query := `UPDATE snipe_records SET sell_price = ?, sell_signature = ?, sell_time = ?, profit = ?, profit_percentage = ?
			  WHERE id = (SELECT id FROM snipe_records
				  WHERE sniper_id = ? AND token_mint = ? AND sell_price IS NULL
				  ORDER BY buy_time LIMIT 1)`
	_, err := s.db.ExecContext(ctx, query,
		sellPrice, sellSignature, sellTime, profit, profitPercentage, sniperID, tokenMint)
	return err
}

func (s *SQLiteStore) ListSnipeRecords(ctx context.Context, sniperID string) ([]*domain.SnipeRecord, error) {
	query := `SELECT sniper_id, token_mint, buy_amount, buy_price, buy_signature, buy_time,
			  COALESCE(sell_price, 0), COALESCE(sell_signature, ''), COALESCE(sell_time, 0),
			  profit, profit_percentage, success
			  FROM snipe_records WHERE sniper_id = ? ORDER BY buy_time DESC`
	rows, err := s.db.QueryContext(ctx, query, sniperID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.SnipeRecord
	for rows.Next() {
		var r domain.SnipeRecord
		if err := rows.Scan(&r.SniperID, &r.TokenMint, &r.BuyAmount, &r.BuyPrice, &r.BuySignature,
			&r.BuyTime, &r.SellPrice, &r.SellSignature, &r.SellTime, &r.Profit,
			&r.ProfitPercentage, &r.Success); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

func (s *SQLiteStore) GetLastBuyPrice(ctx context.Context, sniperID, tokenMint string) (float64, error) {
	query := `SELECT buy_price FROM snipe_records WHERE sniper_id = ? AND token_mint = ? ORDER BY buy_time DESC LIMIT 1`
	row := s.db.QueryRowContext(ctx, query, sniperID, tokenMint)

	var price float64
	err := row.Scan(&price)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, domain.ErrNotFound
	}
	if err != nil {
		return 0, err
	}
	return price, nil
}

// CopyTradeRepository implementation

func (s *SQLiteStore) SaveCopyTradeConfig(ctx context.Context, session *domain.CopyTradeSession) error {
	// upsert: AddTrader re-points an existing session
	query := `INSERT INTO copy_traders (copy_trade_id, source_wallet, target_wallet, allocation_percentage, max_position_size, min_trade_amount, max_trades_per_hour, cluster, start_time, is_running)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(copy_trade_id) DO UPDATE SET
				source_wallet = excluded.source_wallet,
				allocation_percentage = excluded.allocation_percentage,
				is_running = excluded.is_running`
	_, err := s.db.ExecContext(ctx, query,
		session.ID, session.SourceWallet, session.TargetWallet, session.AllocationPercentage,
		session.MaxPositionSize, session.MinTradeAmount, session.MaxTradesPerHour,
		session.Cluster, session.StartTime, session.Running)
	return err
}

func (s *SQLiteStore) SetCopyTradeRunning(ctx context.Context, copyTradeID string, running bool) error {
	_, err := s.db.ExecContext(ctx, `UPDATE copy_traders SET is_running = ? WHERE copy_trade_id = ?`, running, copyTradeID)
	return err
}

func (s *SQLiteStore) SaveCopyTradeRecord(ctx context.Context, record *domain.CopyTradeRecord) error {
	query := `INSERT INTO copy_trade_records (copy_trade_id, source_wallet, target_wallet, token_mint, amount, side, profit, signature, timestamp, success)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query,
		record.CopyTradeID, record.SourceWallet, record.TargetWallet, record.TokenMint,
		record.Amount, record.Side, record.Profit, record.Signature, record.Timestamp, record.Success)
	return err
}

func (s *SQLiteStore) ListCopyTradeRecords(ctx context.Context, copyTradeID string) ([]*domain.CopyTradeRecord, error) {
	query := `SELECT copy_trade_id, source_wallet, target_wallet, token_mint, amount, side, profit, signature, timestamp, success
			  FROM copy_trade_records WHERE copy_trade_id = ? ORDER BY timestamp DESC`
	rows, err := s.db.QueryContext(ctx, query, copyTradeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*domain.CopyTradeRecord
	for rows.Next() {
		var r domain.CopyTradeRecord
		if err := rows.Scan(&r.CopyTradeID, &r.SourceWallet, &r.TargetWallet, &r.TokenMint,
			&r.Amount, &r.Side, &r.Profit, &r.Signature, &r.Timestamp, &r.Success); err != nil {
			return nil, err
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
