package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"LoanServe/internal/domain/models"
	pkgch "LoanServe/pkg/clickhouse"
	applogger "LoanServe/pkg/logger"
)

// CHAuditStore implements AuditStore backed by ClickHouse. Features are kept
// as a JSON string column so the table schema does not chase the model schema.
type CHAuditStore struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHAuditStore(ch *pkgch.Client, table string) *CHAuditStore {
	if table == "" {
		table = "predictions"
	}
	return &CHAuditStore{db: ch.DB(), table: table}
}

// SetLogger injects a structured logger.
func (s *CHAuditStore) SetLogger(l *applogger.Logger) { s.l = l }

// Init creates the predictions table if it does not exist.
func (s *CHAuditStore) Init(ctx context.Context) error {
	q := fmt.Sprintf(`
        CREATE TABLE IF NOT EXISTS %s (
            ts DateTime64(3) DEFAULT now64(3),
            label LowCardinality(String),
            probability Float64,
            confidence Float64,
            features String,
            model_name LowCardinality(String),
            latency_ms Float64,
            cached UInt8
        ) ENGINE = MergeTree()
        ORDER BY ts
        TTL toDateTime(ts) + INTERVAL 90 DAY
    `, s.table)
	if _, err := s.db.ExecContext(ctx, q); err != nil {
		return fmt.Errorf("init predictions table: %w", err)
	}
	return nil
}

func (s *CHAuditStore) Record(ctx context.Context, rec *models.PredictionRecord) error {
	features, err := json.Marshal(rec.Features)
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	cached := uint8(0)
	if rec.Cached {
		cached = 1
	}

	q := fmt.Sprintf(`
        INSERT INTO %s (ts, label, probability, confidence, features, model_name, latency_ms, cached)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?)
    `, s.table)
	if _, err := s.db.ExecContext(ctx, q,
		rec.Timestamp, rec.Label, rec.Probability, rec.Confidence,
		string(features), rec.ModelName, rec.LatencyMs, cached,
	); err != nil {
		if s.l != nil {
			s.l.Error("clickhouse prediction insert error",
				applogger.String("table", s.table),
				applogger.String("label", rec.Label),
				applogger.Error(err),
			)
		}
		return fmt.Errorf("insert prediction: %w", err)
	}
	return nil
}

func (s *CHAuditStore) Recent(ctx context.Context, limit int, label string) ([]*models.PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	q := fmt.Sprintf(`
        SELECT ts, label, probability, confidence, features, model_name, latency_ms, cached
        FROM %s
    `, s.table)
	args := make([]interface{}, 0, 2)
	if label != "" {
		q += " WHERE label = ?"
		args = append(args, label)
	}
	q += " ORDER BY ts DESC LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		if s.l != nil {
			s.l.Error("clickhouse recent predictions query error",
				applogger.String("table", s.table),
				applogger.Error(err),
			)
		}
		return nil, fmt.Errorf("query recent predictions: %w", err)
	}
	defer rows.Close()

	out := make([]*models.PredictionRecord, 0, limit)
	for rows.Next() {
		var (
			rec      models.PredictionRecord
			features string
			cached   uint8
		)
		if err := rows.Scan(&rec.Timestamp, &rec.Label, &rec.Probability, &rec.Confidence,
			&features, &rec.ModelName, &rec.LatencyMs, &cached); err != nil {
			return nil, fmt.Errorf("scan prediction: %w", err)
		}
		if err := json.Unmarshal([]byte(features), &rec.Features); err != nil {
			return nil, fmt.Errorf("unmarshal features: %w", err)
		}
		rec.Cached = cached != 0
		out = append(out, &rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (s *CHAuditStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *CHAuditStore) Close() error {
	return s.db.Close()
}
