package importer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnavarrete/customers-api/internal/model"
	"github.com/mnavarrete/customers-api/internal/repository"
)

// memStore is an in-memory CustomersRepository covering what the importer
// touches.
type memStore struct {
	customers map[int64]model.Customer
}

func newMemStore() *memStore {
	return &memStore{customers: map[int64]model.Customer{}}
}

func (m *memStore) Create(_ context.Context, c *model.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, ok := m.customers[c.ID]; ok {
		return repository.ErrDuplicateID
	}
	m.customers[c.ID] = *c
	return nil
}

func (m *memStore) Exists(_ context.Context, id int64) (bool, error) {
	_, ok := m.customers[id]
	return ok, nil
}

func (m *memStore) Get(_ context.Context, id int64) (*model.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (m *memStore) Update(context.Context, *model.Customer) error { return nil }
func (m *memStore) Delete(context.Context, int64) error           { return nil }
func (m *memStore) DeleteAll(context.Context) (int64, error)      { return 0, nil }
func (m *memStore) List(context.Context, model.CustomerFilter, int, int) ([]model.Customer, int, error) {
	return nil, 0, nil
}

const header = "Cliente_ID,Edad,Genero,Saldo,Activo,Nivel_de_Satisfaccion\n"

func runCSV(t *testing.T, store *memStore, csv string) Result {
	t.Helper()
	im := New(store, nil)
	res, err := im.RunReader(context.Background(), strings.NewReader(csv))
	require.NoError(t, err)
	return res
}

func TestImportMapsGenderLabels(t *testing.T) {
	store := newMemStore()
	res := runCSV(t, store, header+
		"1,30,Masculino,1000.00,1.0,4\n"+
		"2,40,Femenino,2000.00,1.0,5\n"+
		"3,50,Desconocido,3000.00,1.0,3\n")

	assert.Equal(t, Result{Created: 3}, res)
	assert.Equal(t, model.GenderMale, store.customers[1].Gender)
	assert.Equal(t, model.GenderFemale, store.customers[2].Gender)
	// unrecognized labels fall back to the male code
	assert.Equal(t, model.GenderMale, store.customers[3].Gender)
}

func TestImportIsIdempotent(t *testing.T) {
	csv := header +
		"1,30,M,1000.00,1,4\n" +
		"2,40,F,2000.00,1,5\n"

	store := newMemStore()
	first := runCSV(t, store, csv)
	assert.Equal(t, Result{Created: 2}, first)

	second := runCSV(t, store, csv)
	assert.Equal(t, Result{Skipped: 2}, second)
	assert.Len(t, store.customers, 2)
}

func TestImportRoundsBalanceHalfUp(t *testing.T) {
	store := newMemStore()
	res := runCSV(t, store, header+
		"1,30,M,100.005,1,4\n"+
		"2,40,F,2719.9999999999995,1,4\n")

	require.Equal(t, Result{Created: 2}, res)
	assert.Equal(t, "100.01", store.customers[1].Balance.StringFixed(2))
	assert.Equal(t, "2720.00", store.customers[2].Balance.StringFixed(2))
}

func TestImportActiveNumericTruth(t *testing.T) {
	store := newMemStore()
	res := runCSV(t, store, header+
		"1,30,M,100.00,1.0,4\n"+
		"2,40,F,100.00,0.0,4\n"+
		"3,50,M,100.00,0,4\n")

	require.Equal(t, Result{Created: 3}, res)
	assert.True(t, store.customers[1].Active)
	assert.False(t, store.customers[2].Active)
	assert.False(t, store.customers[3].Active)
}

func TestImportContinuesPastBadRows(t *testing.T) {
	store := newMemStore()
	res := runCSV(t, store, header+
		"1,30,M,1000.00,1,4\n"+
		"2,17,M,1000.00,1,4\n"+ // fails validation: under-age
		"3,30,M,not-a-number,1,4\n"+ // fails coercion
		"4,30,F,500.00,1,2\n")

	assert.Equal(t, Result{Created: 2, Errored: 2}, res)
	assert.Contains(t, store.customers, int64(1))
	assert.Contains(t, store.customers, int64(4))
	assert.NotContains(t, store.customers, int64(2))
	assert.NotContains(t, store.customers, int64(3))
}

func TestImportMissingColumnIsFatal(t *testing.T) {
	im := New(newMemStore(), nil)
	_, err := im.RunReader(context.Background(), strings.NewReader(
		"Cliente_ID,Edad,Genero\n1,30,M\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required column")
}

func TestImportFileNotFound(t *testing.T) {
	im := New(newMemStore(), nil)
	_, err := im.Run(context.Background(), "does/not/exist.csv")
	require.Error(t, err)
}

func TestImportAssignsOwner(t *testing.T) {
	store := newMemStore()
	im := New(store, nil)
	owner := int64(7)
	im.OwnerID = &owner

	_, err := im.RunReader(context.Background(), strings.NewReader(header+"1,30,M,100.00,1,4\n"))
	require.NoError(t, err)
	require.NotNil(t, store.customers[1].OwnerID)
	assert.Equal(t, owner, *store.customers[1].OwnerID)
}
