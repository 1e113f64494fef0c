package tracker

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"escrow-sol/internal/types"

	"github.com/lib/pq"
)

// HistoryStore 持久化交易状态快照
type HistoryStore interface {
	BatchUpsertTrades(ctx context.Context, records []*TradeRecord) error
}

// HistoryReader 按 escrow 读取历史快照，启动时用来恢复状态表
type HistoryReader interface {
	GetTrades(ctx context.Context, escrows []types.Pubkey) ([]*TradeRecord, error)
}

// HistoryPruner 清理过期的已完成交易
type HistoryPruner interface {
	DeleteCompletedBefore(ctx context.Context, before time.Time) (int64, error)
}

var (
	_ HistoryStore  = (*DBTradeStore)(nil)
	_ HistoryReader = (*DBTradeStore)(nil)
	_ HistoryPruner = (*DBTradeStore)(nil)
)

const createTradeTable = `
CREATE TABLE IF NOT EXISTS escrow_trade (
	escrow              VARCHAR(44) PRIMARY KEY,
	initializer         VARCHAR(44) NOT NULL,
	holding_account     VARCHAR(44) NOT NULL,
	initializer_receive VARCHAR(44) NOT NULL,
	expected_amount     NUMERIC(20, 0) NOT NULL,
	holding_amount      NUMERIC(20, 0) NOT NULL,
	status              SMALLINT NOT NULL,
	observed_at         BIGINT NOT NULL,
	updated_at          TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const tradeColumns = 8

// DBTradeStore 管理 escrow 交易在 PostgreSQL 中的历史记录
type DBTradeStore struct {
	db *sql.DB
}

func NewDBTradeStore(db *sql.DB) *DBTradeStore {
	return &DBTradeStore{db: db}
}

// EnsureSchema 建表（幂等）
func (d *DBTradeStore) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, createTradeTable); err != nil {
		return fmt.Errorf("create escrow_trade table: %w", err)
	}
	return nil
}

// BatchUpsertTrades 批量写入状态快照，按 batchLimit 分批。
// 同一 escrow 冲突时，只接受 observed_at 不早于库中记录的快照。
func (d *DBTradeStore) BatchUpsertTrades(ctx context.Context, records []*TradeRecord) error {
	const batchLimit = 500
	for i := 0; i < len(records); i += batchLimit {
		end := min(i+batchLimit, len(records))
		query, args := buildUpsertQuery(records[i:end])
		if _, err := d.db.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert %d escrow trades failed: %w", end-i, err)
		}
	}
	return nil
}

// buildUpsertQuery 构造多行 INSERT ... ON CONFLICT 语句
func buildUpsertQuery(records []*TradeRecord) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`INSERT INTO escrow_trade (escrow, initializer, holding_account, initializer_receive, ` +
		`expected_amount, holding_amount, status, observed_at, updated_at) VALUES `)

	args := make([]any, 0, len(records)*tradeColumns)
	for i, r := range records {
		if i > 0 {
			sb.WriteByte(',')
		}
		base := i * tradeColumns
		fmt.Fprintf(&sb, "($%d,$%d,$%d,$%d,$%d,$%d,$%d,$%d,CURRENT_TIMESTAMP)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8)
		// NUMERIC 列以字符串传入，避免 uint64 高位被 driver 拒绝
		args = append(args,
			r.Escrow.String(),
			r.Initializer.String(),
			r.HoldingAccount.String(),
			r.InitializerReceive.String(),
			strconv.FormatUint(r.ExpectedAmount, 10),
			strconv.FormatUint(r.HoldingAmount, 10),
			int16(r.Status),
			r.ObservedAt,
		)
	}

	sb.WriteString(` ON CONFLICT (escrow) DO UPDATE SET
	initializer = EXCLUDED.initializer,
	holding_account = EXCLUDED.holding_account,
	initializer_receive = EXCLUDED.initializer_receive,
	expected_amount = EXCLUDED.expected_amount,
	holding_amount = EXCLUDED.holding_amount,
	status = EXCLUDED.status,
	observed_at = EXCLUDED.observed_at,
	updated_at = CURRENT_TIMESTAMP
	WHERE escrow_trade.observed_at <= EXCLUDED.observed_at`)
	return sb.String(), args
}

// GetTrades 按 escrow 地址批量查询
func (d *DBTradeStore) GetTrades(ctx context.Context, escrows []types.Pubkey) ([]*TradeRecord, error) {
	if len(escrows) == 0 {
		return nil, nil
	}
	keys := make([]string, len(escrows))
	for i, e := range escrows {
		keys[i] = e.String()
	}

	rows, err := d.db.QueryContext(ctx, `SELECT escrow, initializer, holding_account, initializer_receive,
		expected_amount::TEXT, holding_amount::TEXT, status, observed_at
		FROM escrow_trade WHERE escrow = ANY($1)`, pq.Array(keys))
	if err != nil {
		return nil, fmt.Errorf("query escrow trades: %w", err)
	}
	defer rows.Close()

	var result []*TradeRecord
	for rows.Next() {
		rec, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func scanTrade(rows *sql.Rows) (*TradeRecord, error) {
	var (
		escrow, initializer, holding, receive string
		expected, holdingAmount               string
		status                                int16
		observedAt                            int64
	)
	if err := rows.Scan(&escrow, &initializer, &holding, &receive, &expected, &holdingAmount, &status, &observedAt); err != nil {
		return nil, fmt.Errorf("scan escrow trade: %w", err)
	}

	keys, err := types.PubkeysFromBase58([]string{escrow, initializer, holding, receive})
	if err != nil {
		return nil, err
	}
	expectedAmount, err := strconv.ParseUint(expected, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse expected_amount %q: %w", expected, err)
	}
	heldAmount, err := strconv.ParseUint(holdingAmount, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse holding_amount %q: %w", holdingAmount, err)
	}

	return &TradeRecord{
		Escrow:             keys[0],
		Initializer:        keys[1],
		HoldingAccount:     keys[2],
		InitializerReceive: keys[3],
		ExpectedAmount:     expectedAmount,
		HoldingAmount:      heldAmount,
		Status:             TradeStatus(status),
		ObservedAt:         observedAt,
	}, nil
}

// DeleteCompletedBefore 删除早于 before 的已完成交易（历史 GC），分批执行避免长事务
func (d *DBTradeStore) DeleteCompletedBefore(ctx context.Context, before time.Time) (int64, error) {
	const batchSize = 1000
	var total int64
	for {
		res, err := d.db.ExecContext(ctx, `DELETE FROM escrow_trade WHERE escrow IN (
			SELECT escrow FROM escrow_trade WHERE status = $1 AND observed_at < $2 LIMIT $3)`,
			int16(StatusCompleted), before.UnixMilli(), batchSize)
		if err != nil {
			return total, fmt.Errorf("delete completed trades failed: %w", err)
		}
		n, _ := res.RowsAffected()
		total += n
		if n < batchSize {
			return total, nil
		}
	}
}
