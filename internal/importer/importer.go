// Package importer loads customer rows from CSV exports into the record
// store. The pipeline is synchronous and row-by-row: a bad row is counted and
// logged, never fatal; only file-level problems abort the run.
package importer

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/mnavarrete/customers-api/internal/model"
	"github.com/mnavarrete/customers-api/internal/repository"
)

// Expected CSV header names (source export format).
const (
	colID           = "Cliente_ID"
	colAge          = "Edad"
	colGender       = "Genero"
	colBalance      = "Saldo"
	colActive       = "Activo"
	colSatisfaction = "Nivel_de_Satisfaccion"
)

// genderMap normalizes the free-text labels found in exports to the stored
// single-letter codes.
var genderMap = map[string]model.Gender{
	"Masculino": model.GenderMale,
	"Femenino":  model.GenderFemale,
	"Male":      model.GenderMale,
	"Female":    model.GenderFemale,
	"M":         model.GenderMale,
	"F":         model.GenderFemale,
}

// Result tallies a finished run.
type Result struct {
	Created int
	Skipped int
	Errored int
}

type Importer struct {
	customers repository.CustomersRepository
	log       *zap.Logger

	// OwnerID, when set, is assigned to every imported record.
	OwnerID *int64
}

func New(customers repository.CustomersRepository, log *zap.Logger) *Importer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Importer{customers: customers, log: log}
}

// Run imports the CSV file at path. A missing or unreadable file aborts before
// any row is processed.
func (im *Importer) Run(ctx context.Context, path string) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, fmt.Errorf("open csv %s: %w", path, err)
	}
	defer f.Close()

	return im.RunReader(ctx, f)
}

// RunReader imports CSV rows from r. The first record must be the header.
func (im *Importer) RunReader(ctx context.Context, r io.Reader) (Result, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return Result{}, fmt.Errorf("read csv header: %w", err)
	}
	cols, err := indexColumns(header)
	if err != nil {
		return Result{}, err
	}

	var res Result
	rowNum := 1 // header was row 1
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// structurally broken file: abort, counts so far are not reported
			return Result{}, fmt.Errorf("read csv row %d: %w", rowNum+1, err)
		}
		rowNum++

		skipped, err := im.importRow(ctx, cols, record, rowNum)
		switch {
		case skipped:
			res.Skipped++
		case err != nil:
			res.Errored++
			im.log.Warn("import row failed",
				zap.Int("row", rowNum),
				zap.String("source_id", rawField(cols, record, colID)),
				zap.Error(err),
			)
		default:
			res.Created++
		}

		if processed := res.Created + res.Skipped + res.Errored; processed%500 == 0 {
			im.log.Info("import progress", zap.Int("processed", processed))
		}
	}

	return res, nil
}

type columns map[string]int

func indexColumns(header []string) (columns, error) {
	cols := columns{}
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, required := range []string{colID, colAge, colGender, colBalance, colActive, colSatisfaction} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("csv is missing required column %q", required)
		}
	}
	return cols, nil
}

func rawField(cols columns, record []string, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// importRow normalizes and persists one record. The skipped return is true
// when a customer with the row's id already exists; no fields are compared or
// merged in that case.
func (im *Importer) importRow(ctx context.Context, cols columns, record []string, rowNum int) (bool, error) {
	id, err := strconv.ParseInt(rawField(cols, record, colID), 10, 64)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", colID, err)
	}

	exists, err := im.customers.Exists(ctx, id)
	if err != nil {
		return false, fmt.Errorf("check existing id %d: %w", id, err)
	}
	if exists {
		return true, nil
	}

	age, err := strconv.Atoi(rawField(cols, record, colAge))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", colAge, err)
	}

	rawGender := rawField(cols, record, colGender)
	gender, ok := genderMap[rawGender]
	if !ok {
		// documented default; keep it visible rather than silent
		im.log.Warn("unrecognized gender label, defaulting to M",
			zap.Int("row", rowNum), zap.String("value", rawGender))
		gender = model.GenderMale
	}

	// numeric truth test: "1.0"/"0.0" as well as plain 0/1
	activeRaw, err := strconv.ParseFloat(rawField(cols, record, colActive), 64)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", colActive, err)
	}
	active := activeRaw != 0

	// Round half-up from the decimal string representation of the float, so
	// binary float noise in the export does not leak into stored balances.
	balanceRaw, err := strconv.ParseFloat(rawField(cols, record, colBalance), 64)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", colBalance, err)
	}
	balance := decimal.NewFromFloat(balanceRaw).Round(2)

	satisfaction, err := strconv.Atoi(rawField(cols, record, colSatisfaction))
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", colSatisfaction, err)
	}

	c := &model.Customer{
		ID:                id,
		OwnerID:           im.OwnerID,
		Age:               age,
		Gender:            gender,
		Balance:           balance,
		Active:            active,
		SatisfactionLevel: model.SatisfactionLevel(satisfaction),
	}

	// create path re-runs full validation
	if err := im.customers.Create(ctx, c); err != nil {
		return false, err
	}
	return false, nil
}
