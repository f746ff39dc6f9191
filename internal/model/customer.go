package model

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

func (g Gender) String() string {
	return string(g)
}

func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

// Label resolves the single-letter code to its display text.
func (g Gender) Label() string {
	switch g {
	case GenderMale:
		return "Male"
	case GenderFemale:
		return "Female"
	}
	return string(g)
}

type SatisfactionLevel int

const (
	MinSatisfaction = 1
	MaxSatisfaction = 5
)

var satisfactionLabels = map[SatisfactionLevel]string{
	1: "Very Dissatisfied",
	2: "Dissatisfied",
	3: "Neutral",
	4: "Satisfied",
	5: "Very Satisfied",
}

func (s SatisfactionLevel) Valid() bool {
	return s >= MinSatisfaction && s <= MaxSatisfaction
}

func (s SatisfactionLevel) Label() string {
	if l, ok := satisfactionLabels[s]; ok {
		return l
	}
	return fmt.Sprintf("Unknown (%d)", int(s))
}

// Customer is the DB entity persisted in the customers table.
type Customer struct {
	ID                int64             `db:"id"`
	OwnerID           *int64            `db:"owner_id"` // nullable
	Age               int               `db:"age"`
	Gender            Gender            `db:"gender"`
	Balance           decimal.Decimal   `db:"balance"`
	Active            bool              `db:"active"`
	SatisfactionLevel SatisfactionLevel `db:"satisfaction_level"`
	CreatedAt         time.Time         `db:"created_at"`
	UpdatedAt         time.Time         `db:"updated_at"`
}

const (
	MinAge = 18
	MaxAge = 120
)

// Validate checks the field invariants enforced on every write path.
func (c *Customer) Validate() error {
	errs := ValidationErrors{}

	if c.Age < MinAge {
		errs["age"] = fmt.Sprintf("customer must be at least %d years old", MinAge)
	} else if c.Age > MaxAge {
		errs["age"] = fmt.Sprintf("age cannot exceed %d", MaxAge)
	}

	if !c.Gender.Valid() {
		errs["gender"] = `gender must be "M" or "F"`
	}

	if c.Balance.IsNegative() {
		errs["balance"] = "balance cannot be negative"
	} else if c.Balance.Exponent() < -2 {
		errs["balance"] = "balance cannot have more than 2 decimal places"
	}

	if !c.SatisfactionLevel.Valid() {
		errs["satisfaction_level"] = fmt.Sprintf("satisfaction level must be between %d and %d", MinSatisfaction, MaxSatisfaction)
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ValidationErrors maps offending field names to human-readable messages.
type ValidationErrors map[string]string

func (e ValidationErrors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	return "validation failed: " + strings.Join(fields, ", ")
}

// CustomerFilter holds the list-endpoint predicates. Zero values mean "not set";
// all set predicates compose with AND.
type CustomerFilter struct {
	Gender            Gender
	Active            *bool
	SatisfactionLevel SatisfactionLevel // exact match
	MinAge            int               // age >= MinAge
	MinBalance        *decimal.Decimal  // balance >= MinBalance
}
