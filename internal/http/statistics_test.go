package http

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/mnavarrete/customers-api/internal/model"
	"github.com/mnavarrete/customers-api/internal/repository"
)

// memRepoStats answers aggregate queries over the same map a memRepo writes,
// so handler tests see statistics consistent with the seeded records.
type memRepoStats struct {
	repo *memRepo
}

var _ repository.StatsRepository = (*memRepoStats)(nil)

func (m *memRepoStats) all() []model.Customer {
	out := make([]model.Customer, 0, len(m.repo.customers))
	for _, c := range m.repo.customers {
		out = append(out, *c)
	}
	return out
}

func (m *memRepoStats) byBalanceDesc() []model.Customer {
	out := m.all()
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Balance.Equal(out[j].Balance) {
			return out[i].Balance.GreaterThan(out[j].Balance)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (m *memRepoStats) TotalCount(context.Context) (int, error) {
	return len(m.repo.customers), nil
}

func (m *memRepoStats) ActiveCount(context.Context) (int, error) {
	n := 0
	for _, c := range m.all() {
		if c.Active {
			n++
		}
	}
	return n, nil
}

func (m *memRepoStats) CountBalanceGreater(_ context.Context, d decimal.Decimal) (int, error) {
	n := 0
	for _, c := range m.all() {
		if c.Balance.GreaterThan(d) {
			n++
		}
	}
	return n, nil
}

func (m *memRepoStats) CountBalanceAtLeast(_ context.Context, d decimal.Decimal) (int, error) {
	n := 0
	for _, c := range m.all() {
		if c.Balance.GreaterThanOrEqual(d) {
			n++
		}
	}
	return n, nil
}

func (m *memRepoStats) AverageAge(context.Context) (float64, error) {
	cs := m.all()
	if len(cs) == 0 {
		return 0, nil
	}
	sum := 0
	for _, c := range cs {
		sum += c.Age
	}
	return float64(sum) / float64(len(cs)), nil
}

func (m *memRepoStats) AverageBalance(context.Context) (decimal.Decimal, error) {
	cs := m.all()
	if len(cs) == 0 {
		return decimal.Zero, nil
	}
	sum := decimal.Zero
	for _, c := range cs {
		sum = sum.Add(c.Balance)
	}
	return sum.Div(decimal.NewFromInt(int64(len(cs)))), nil
}

func (m *memRepoStats) CountByGender(context.Context) (map[model.Gender]int, error) {
	out := map[model.Gender]int{}
	for _, c := range m.all() {
		out[c.Gender]++
	}
	return out, nil
}

func (m *memRepoStats) CountBySatisfaction(context.Context) (map[model.SatisfactionLevel]int, error) {
	out := map[model.SatisfactionLevel]int{}
	for _, c := range m.all() {
		out[c.SatisfactionLevel]++
	}
	return out, nil
}

func (m *memRepoStats) CountAgeBetween(_ context.Context, min, max int) (int, error) {
	n := 0
	for _, c := range m.all() {
		if c.Age >= min && (max <= 0 || c.Age <= max) {
			n++
		}
	}
	return n, nil
}

func (m *memRepoStats) BalanceAggregates(context.Context) (repository.BalanceAggregates, error) {
	cs := m.all()
	if len(cs) == 0 {
		return repository.BalanceAggregates{}, nil
	}
	agg := repository.BalanceAggregates{Max: cs[0].Balance, Min: cs[0].Balance}
	for _, c := range cs {
		agg.Sum = agg.Sum.Add(c.Balance)
		if c.Balance.GreaterThan(agg.Max) {
			agg.Max = c.Balance
		}
		if c.Balance.LessThan(agg.Min) {
			agg.Min = c.Balance
		}
	}
	agg.Average = agg.Sum.Div(decimal.NewFromInt(int64(len(cs))))
	return agg, nil
}

func (m *memRepoStats) AgeExtremes(context.Context) (int, int, error) {
	cs := m.all()
	if len(cs) == 0 {
		return 0, 0, nil
	}
	max, min := cs[0].Age, cs[0].Age
	for _, c := range cs {
		if c.Age > max {
			max = c.Age
		}
		if c.Age < min {
			min = c.Age
		}
	}
	return max, min, nil
}

func (m *memRepoStats) TopByBalance(_ context.Context, n int) ([]model.Customer, error) {
	sorted := m.byBalanceDesc()
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted, nil
}

func (m *memRepoStats) BalanceAtOffset(_ context.Context, offset int) (decimal.Decimal, error) {
	sorted := m.byBalanceDesc()
	if offset >= len(sorted) {
		return decimal.Zero, repository.ErrNotFound
	}
	return sorted[offset].Balance, nil
}

func (m *memRepoStats) SatisfactionByGender(context.Context) (map[model.Gender]repository.GenderSatisfaction, error) {
	sums := map[model.Gender]int{}
	counts := map[model.Gender]int{}
	for _, c := range m.all() {
		sums[c.Gender] += int(c.SatisfactionLevel)
		counts[c.Gender]++
	}
	out := map[model.Gender]repository.GenderSatisfaction{}
	for g, n := range counts {
		out[g] = repository.GenderSatisfaction{Average: float64(sums[g]) / float64(n), Count: n}
	}
	return out, nil
}

func (m *memRepoStats) CountSatisfactionAtLeast(_ context.Context, level model.SatisfactionLevel) (int, error) {
	n := 0
	for _, c := range m.all() {
		if c.SatisfactionLevel >= level {
			n++
		}
	}
	return n, nil
}
