package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/mnavarrete/customers-api/internal/model"
)

// BalanceAggregates are population-wide balance figures. Zero values when the
// table is empty.
type BalanceAggregates struct {
	Average decimal.Decimal
	Sum     decimal.Decimal
	Max     decimal.Decimal
	Min     decimal.Decimal
}

// GenderSatisfaction is the per-gender satisfaction rollup.
type GenderSatisfaction struct {
	Average float64
	Count   int
}

// StatsRepository exposes the aggregate primitives the statistics engine reads.
// Every method is an independent query: a summary computed while writes are in
// flight may see a torn snapshot, which is accepted for analytics.
type StatsRepository interface {
	TotalCount(ctx context.Context) (int, error)
	ActiveCount(ctx context.Context) (int, error)
	CountBalanceGreater(ctx context.Context, d decimal.Decimal) (int, error)
	CountBalanceAtLeast(ctx context.Context, d decimal.Decimal) (int, error)
	AverageAge(ctx context.Context) (float64, error)
	AverageBalance(ctx context.Context) (decimal.Decimal, error)
	CountByGender(ctx context.Context) (map[model.Gender]int, error)
	CountBySatisfaction(ctx context.Context) (map[model.SatisfactionLevel]int, error)
	CountAgeBetween(ctx context.Context, min, max int) (int, error)
	BalanceAggregates(ctx context.Context) (BalanceAggregates, error)
	AgeExtremes(ctx context.Context) (max, min int, err error)
	TopByBalance(ctx context.Context, n int) ([]model.Customer, error)
	BalanceAtOffset(ctx context.Context, offset int) (decimal.Decimal, error)
	SatisfactionByGender(ctx context.Context) (map[model.Gender]GenderSatisfaction, error)
	CountSatisfactionAtLeast(ctx context.Context, level model.SatisfactionLevel) (int, error)
}

type StatsRepositoryImpl struct {
	db *sqlx.DB
}

func NewStatsRepository(db *sqlx.DB) *StatsRepositoryImpl {
	return &StatsRepositoryImpl{db: db}
}

var _ StatsRepository = (*StatsRepositoryImpl)(nil)

func (r *StatsRepositoryImpl) count(ctx context.Context, q string, args ...any) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, q, args...); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *StatsRepositoryImpl) TotalCount(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM customers`)
}

func (r *StatsRepositoryImpl) ActiveCount(ctx context.Context) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM customers WHERE active = TRUE`)
}

func (r *StatsRepositoryImpl) CountBalanceGreater(ctx context.Context, d decimal.Decimal) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM customers WHERE balance > ?`, d)
}

func (r *StatsRepositoryImpl) CountBalanceAtLeast(ctx context.Context, d decimal.Decimal) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM customers WHERE balance >= ?`, d)
}

func (r *StatsRepositoryImpl) AverageAge(ctx context.Context) (float64, error) {
	var avg float64
	err := r.db.GetContext(ctx, &avg, `SELECT COALESCE(AVG(age), 0) FROM customers`)
	return avg, err
}

func (r *StatsRepositoryImpl) AverageBalance(ctx context.Context) (decimal.Decimal, error) {
	var avg decimal.Decimal
	err := r.db.GetContext(ctx, &avg, `SELECT COALESCE(AVG(balance), 0) FROM customers`)
	return avg, err
}

func (r *StatsRepositoryImpl) CountByGender(ctx context.Context) (map[model.Gender]int, error) {
	rows := []struct {
		Gender model.Gender `db:"gender"`
		N      int          `db:"n"`
	}{}
	err := r.db.SelectContext(ctx, &rows, `SELECT gender, COUNT(*) AS n FROM customers GROUP BY gender`)
	if err != nil {
		return nil, err
	}
	out := make(map[model.Gender]int, len(rows))
	for _, row := range rows {
		out[row.Gender] = row.N
	}
	return out, nil
}

func (r *StatsRepositoryImpl) CountBySatisfaction(ctx context.Context) (map[model.SatisfactionLevel]int, error) {
	rows := []struct {
		Level int `db:"satisfaction_level"`
		N     int `db:"n"`
	}{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT satisfaction_level, COUNT(*) AS n
		  FROM customers
		 GROUP BY satisfaction_level
	`)
	if err != nil {
		return nil, err
	}
	out := make(map[model.SatisfactionLevel]int, len(rows))
	for _, row := range rows {
		out[model.SatisfactionLevel(row.Level)] = row.N
	}
	return out, nil
}

// CountAgeBetween counts ages in [min, max], both inclusive. max <= 0 means
// open-ended above min.
func (r *StatsRepositoryImpl) CountAgeBetween(ctx context.Context, min, max int) (int, error) {
	if max <= 0 {
		return r.count(ctx, `SELECT COUNT(*) FROM customers WHERE age >= ?`, min)
	}
	return r.count(ctx, `SELECT COUNT(*) FROM customers WHERE age BETWEEN ? AND ?`, min, max)
}

func (r *StatsRepositoryImpl) BalanceAggregates(ctx context.Context) (BalanceAggregates, error) {
	var row struct {
		Avg decimal.Decimal `db:"avg"`
		Sum decimal.Decimal `db:"sum"`
		Max decimal.Decimal `db:"max"`
		Min decimal.Decimal `db:"min"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT COALESCE(AVG(balance), 0) AS avg,
		       COALESCE(SUM(balance), 0) AS sum,
		       COALESCE(MAX(balance), 0) AS max,
		       COALESCE(MIN(balance), 0) AS min
		  FROM customers
	`)
	if err != nil {
		return BalanceAggregates{}, err
	}
	return BalanceAggregates{Average: row.Avg, Sum: row.Sum, Max: row.Max, Min: row.Min}, nil
}

func (r *StatsRepositoryImpl) AgeExtremes(ctx context.Context) (int, int, error) {
	var row struct {
		Max int `db:"max"`
		Min int `db:"min"`
	}
	err := r.db.GetContext(ctx, &row, `
		SELECT COALESCE(MAX(age), 0) AS max, COALESCE(MIN(age), 0) AS min FROM customers
	`)
	if err != nil {
		return 0, 0, err
	}
	return row.Max, row.Min, nil
}

// TopByBalance returns the n richest customers, ties broken by the default
// newest-first ordering.
func (r *StatsRepositoryImpl) TopByBalance(ctx context.Context, n int) ([]model.Customer, error) {
	customers := []model.Customer{}
	err := r.db.SelectContext(ctx, &customers, `
		SELECT id, owner_id, age, gender, balance, active, satisfaction_level, created_at, updated_at
		  FROM customers
		 ORDER BY balance DESC, id DESC
		 LIMIT ?
	`, n)
	return customers, err
}

// BalanceAtOffset returns the balance at the given 0-based position of the
// balance-descending ordering. ErrNotFound past the end.
func (r *StatsRepositoryImpl) BalanceAtOffset(ctx context.Context, offset int) (decimal.Decimal, error) {
	var d decimal.Decimal
	err := r.db.GetContext(ctx, &d, `
		SELECT balance FROM customers ORDER BY balance DESC, id DESC LIMIT 1 OFFSET ?
	`, offset)
	if err == sql.ErrNoRows {
		return decimal.Zero, ErrNotFound
	}
	return d, err
}

func (r *StatsRepositoryImpl) SatisfactionByGender(ctx context.Context) (map[model.Gender]GenderSatisfaction, error) {
	rows := []struct {
		Gender model.Gender `db:"gender"`
		Avg    float64      `db:"avg"`
		N      int          `db:"n"`
	}{}
	err := r.db.SelectContext(ctx, &rows, `
		SELECT gender, COALESCE(AVG(satisfaction_level), 0) AS avg, COUNT(*) AS n
		  FROM customers
		 GROUP BY gender
	`)
	if err != nil {
		return nil, err
	}
	out := make(map[model.Gender]GenderSatisfaction, len(rows))
	for _, row := range rows {
		out[row.Gender] = GenderSatisfaction{Average: row.Avg, Count: row.N}
	}
	return out, nil
}

func (r *StatsRepositoryImpl) CountSatisfactionAtLeast(ctx context.Context, level model.SatisfactionLevel) (int, error) {
	return r.count(ctx, `SELECT COUNT(*) FROM customers WHERE satisfaction_level >= ?`, int(level))
}
