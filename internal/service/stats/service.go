// Package stats computes the derived metrics behind the statistics endpoints.
// All reads go through StatsRepository as independent queries; a summary
// assembled while writes are in flight may reflect a torn snapshot, which is
// acceptable for analytics. Every ratio treats division by zero as 0, so an
// empty store degrades to zeros instead of failing.
package stats

import (
	"context"
	"math"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/mnavarrete/customers-api/internal/model"
	"github.com/mnavarrete/customers-api/internal/repository"
)

type Service struct {
	customers repository.CustomersRepository
	stats     repository.StatsRepository
}

func New(customers repository.CustomersRepository, stats repository.StatsRepository) *Service {
	return &Service{customers: customers, stats: stats}
}

// ageBands are the fixed distribution buckets. A zero Max means open-ended.
var ageBands = []struct {
	Label    string
	Min, Max int
}{
	{"18-30", 18, 30},
	{"31-45", 31, 45},
	{"46-60", 46, 60},
	{"61-80", 61, 80},
	{"81+", 81, 0},
}

type Comparison struct {
	Age struct {
		Value      int     `json:"value"`
		Average    float64 `json:"average"`
		Difference float64 `json:"difference"`
	} `json:"age"`
	Balance struct {
		Value      decimal.Decimal `json:"value"`
		Average    decimal.Decimal `json:"average"`
		Difference decimal.Decimal `json:"difference"`
	} `json:"balance"`
}

// RecordStats is the per-customer statistics payload.
type RecordStats struct {
	ID                  int64           `json:"id"`
	Age                 int             `json:"age"`
	Gender              string          `json:"gender"`
	GenderDisplay       string          `json:"gender_display"`
	Balance             decimal.Decimal `json:"balance"`
	Active              bool            `json:"active"`
	SatisfactionLevel   int             `json:"satisfaction_level"`
	SatisfactionDisplay string          `json:"satisfaction_display"`
	Ranking             string          `json:"ranking"`
	Comparison          Comparison      `json:"comparison_to_average"`
}

// Record computes a single customer's statistics against the current peer
// population.
func (s *Service) Record(ctx context.Context, id int64) (*RecordStats, error) {
	c, err := s.customers.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	total, err := s.stats.TotalCount(ctx)
	if err != nil {
		return nil, err
	}
	above, err := s.stats.CountBalanceGreater(ctx, c.Balance)
	if err != nil {
		return nil, err
	}
	avgAge, err := s.stats.AverageAge(ctx)
	if err != nil {
		return nil, err
	}
	avgBalance, err := s.stats.AverageBalance(ctx)
	if err != nil {
		return nil, err
	}

	out := &RecordStats{
		ID:                  c.ID,
		Age:                 c.Age,
		Gender:              c.Gender.String(),
		GenderDisplay:       c.Gender.Label(),
		Balance:             c.Balance,
		Active:              c.Active,
		SatisfactionLevel:   int(c.SatisfactionLevel),
		SatisfactionDisplay: c.SatisfactionLevel.Label(),
		Ranking:             ranking(above, total),
	}

	out.Comparison.Age.Value = c.Age
	out.Comparison.Age.Average = round1(avgAge)
	out.Comparison.Age.Difference = round1(float64(c.Age) - avgAge)

	out.Comparison.Balance.Value = c.Balance
	out.Comparison.Balance.Average = avgBalance.Round(2)
	out.Comparison.Balance.Difference = c.Balance.Sub(avgBalance).Round(2)

	return out, nil
}

// ranking formats the balance percentile: round((1 - above/total) * 100, 1),
// with an empty population pinned to 0.
func ranking(above, total int) string {
	pct := 0.0
	if total > 0 {
		pct = round1((1 - float64(above)/float64(total)) * 100)
	}
	return "Top " + strconv.FormatFloat(pct, 'f', -1, 64) + "%"
}

type AgeBandCount struct {
	Band  string `json:"band"`
	Count int    `json:"count"`
}

type BalanceStats struct {
	Average decimal.Decimal `json:"average"`
	Sum     decimal.Decimal `json:"sum"`
	Max     decimal.Decimal `json:"max"`
	Min     decimal.Decimal `json:"min"`
}

type AgeStats struct {
	Max int `json:"max"`
	Min int `json:"min"`
}

type GenderSatisfaction struct {
	AverageSatisfaction float64 `json:"average_satisfaction"`
	Count               int     `json:"count"`
}

type TopCustomer struct {
	ID      int64           `json:"id"`
	Age     int             `json:"age"`
	Gender  string          `json:"gender"`
	Balance decimal.Decimal `json:"balance"`
}

// Summary is the population statistics payload.
type Summary struct {
	TotalCustomers       int                           `json:"total_customers"`
	ActiveCustomers      int                           `json:"active_customers"`
	InactiveCustomers    int                           `json:"inactive_customers"`
	ActivePercentage     float64                       `json:"active_percentage"`
	ByGender             map[string]int                `json:"by_gender"`
	BySatisfactionLevel  map[string]int                `json:"by_satisfaction_level"`
	ByAgeBand            []AgeBandCount                `json:"by_age_band"`
	Balance              BalanceStats                  `json:"balance"`
	Age                  AgeStats                      `json:"age"`
	Top5ByBalance        []TopCustomer                 `json:"top_5_by_balance"`
	SatisfactionByGender map[string]GenderSatisfaction `json:"satisfaction_by_gender"`
	HighBalanceCount     int                           `json:"high_balance_count"`
	SatisfactionRate     float64                       `json:"satisfaction_rate"`
}

// Summary computes the population-wide statistics over the current store
// contents.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	total, err := s.stats.TotalCount(ctx)
	if err != nil {
		return nil, err
	}
	active, err := s.stats.ActiveCount(ctx)
	if err != nil {
		return nil, err
	}

	out := &Summary{
		TotalCustomers:    total,
		ActiveCustomers:   active,
		InactiveCustomers: total - active,
		ActivePercentage:  percentage(active, total),
	}

	byGender, err := s.stats.CountByGender(ctx)
	if err != nil {
		return nil, err
	}
	out.ByGender = map[string]int{
		model.GenderMale.Label():   byGender[model.GenderMale],
		model.GenderFemale.Label(): byGender[model.GenderFemale],
	}

	bySat, err := s.stats.CountBySatisfaction(ctx)
	if err != nil {
		return nil, err
	}
	out.BySatisfactionLevel = make(map[string]int, MaxSatisfactionBuckets)
	for lvl := model.SatisfactionLevel(model.MinSatisfaction); lvl <= model.MaxSatisfaction; lvl++ {
		out.BySatisfactionLevel[lvl.Label()] = bySat[lvl]
	}

	for _, b := range ageBands {
		n, err := s.stats.CountAgeBetween(ctx, b.Min, b.Max)
		if err != nil {
			return nil, err
		}
		out.ByAgeBand = append(out.ByAgeBand, AgeBandCount{Band: b.Label, Count: n})
	}

	agg, err := s.stats.BalanceAggregates(ctx)
	if err != nil {
		return nil, err
	}
	out.Balance = BalanceStats{
		Average: agg.Average.Round(2),
		Sum:     agg.Sum.Round(2),
		Max:     agg.Max.Round(2),
		Min:     agg.Min.Round(2),
	}

	maxAge, minAge, err := s.stats.AgeExtremes(ctx)
	if err != nil {
		return nil, err
	}
	out.Age = AgeStats{Max: maxAge, Min: minAge}

	top, err := s.stats.TopByBalance(ctx, 5)
	if err != nil {
		return nil, err
	}
	out.Top5ByBalance = make([]TopCustomer, 0, len(top))
	for _, c := range top {
		out.Top5ByBalance = append(out.Top5ByBalance, TopCustomer{
			ID:      c.ID,
			Age:     c.Age,
			Gender:  c.Gender.String(),
			Balance: c.Balance,
		})
	}

	satByGender, err := s.stats.SatisfactionByGender(ctx)
	if err != nil {
		return nil, err
	}
	out.SatisfactionByGender = make(map[string]GenderSatisfaction, 2)
	for _, g := range []model.Gender{model.GenderMale, model.GenderFemale} {
		gs := satByGender[g]
		out.SatisfactionByGender[g.Label()] = GenderSatisfaction{
			AverageSatisfaction: round2(gs.Average),
			Count:               gs.Count,
		}
	}

	highCount, err := s.highBalanceCount(ctx, total)
	if err != nil {
		return nil, err
	}
	out.HighBalanceCount = highCount

	satisfied, err := s.stats.CountSatisfactionAtLeast(ctx, 4)
	if err != nil {
		return nil, err
	}
	out.SatisfactionRate = percentage(satisfied, total)

	return out, nil
}

// MaxSatisfactionBuckets is the number of labeled satisfaction buckets.
const MaxSatisfactionBuckets = model.MaxSatisfaction - model.MinSatisfaction + 1

// highBalanceCount approximates the top-decile population: the threshold is
// the balance at 0-based position floor(total/10) of the balance-descending
// ordering when total exceeds 10, otherwise 0. With a 0 threshold every record
// qualifies (balances are non-negative).
func (s *Service) highBalanceCount(ctx context.Context, total int) (int, error) {
	threshold := decimal.Zero
	if total > 10 {
		if idx := total / 10; idx > 0 {
			d, err := s.stats.BalanceAtOffset(ctx, idx)
			if err != nil && err != repository.ErrNotFound {
				return 0, err
			}
			if err == nil {
				threshold = d
			}
		}
	}
	return s.stats.CountBalanceAtLeast(ctx, threshold)
}

func percentage(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
