package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"

	"github.com/mnavarrete/customers-api/internal/model"
)

var (
	// ErrNotFound is returned by object-level operations on an unknown id.
	ErrNotFound = errors.New("customer not found")
	// ErrDuplicateID is returned when an explicit id collides with an existing row.
	ErrDuplicateID = errors.New("customer id already exists")
)

// CustomersRepository is the durable record store. Validation runs inside
// Create and Update, so no write path can bypass the field invariants.
type CustomersRepository interface {
	Create(ctx context.Context, c *model.Customer) error
	Get(ctx context.Context, id int64) (*model.Customer, error)
	Update(ctx context.Context, c *model.Customer) error
	Delete(ctx context.Context, id int64) error
	DeleteAll(ctx context.Context) (int64, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, f model.CustomerFilter, page, pageSize int) ([]model.Customer, int, error)
}

type CustomersRepositoryImpl struct {
	db *sqlx.DB
}

func NewCustomersRepository(db *sqlx.DB) *CustomersRepositoryImpl {
	return &CustomersRepositoryImpl{db: db}
}

var _ CustomersRepository = (*CustomersRepositoryImpl)(nil)

const mysqlErrDupEntry = 1062

// Create validates and inserts a customer. A non-zero ID is honored (import
// path carries source identifiers); otherwise the id is auto-assigned and
// written back.
func (r *CustomersRepositoryImpl) Create(ctx context.Context, c *model.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}

	if c.ID > 0 {
		const q = `
			INSERT INTO customers
			    (id, owner_id, age, gender, balance, active, satisfaction_level, created_at, updated_at)
			VALUES
			    (?,  ?,        ?,   ?,      ?,       ?,      ?,                  NOW(),      NOW())
		`
		_, err := r.db.ExecContext(ctx, q,
			c.ID, c.OwnerID, c.Age, c.Gender.String(), c.Balance, c.Active, int(c.SatisfactionLevel),
		)
		return mapDupErr(err)
	}

	const q = `
		INSERT INTO customers
		    (owner_id, age, gender, balance, active, satisfaction_level, created_at, updated_at)
		VALUES
		    (?,        ?,   ?,      ?,       ?,      ?,                  NOW(),      NOW())
	`
	res, err := r.db.ExecContext(ctx, q,
		c.OwnerID, c.Age, c.Gender.String(), c.Balance, c.Active, int(c.SatisfactionLevel),
	)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	c.ID = id
	return nil
}

func mapDupErr(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == mysqlErrDupEntry {
		return ErrDuplicateID
	}
	return err
}

func (r *CustomersRepositoryImpl) Get(ctx context.Context, id int64) (*model.Customer, error) {
	var c model.Customer
	err := r.db.GetContext(ctx, &c, `
		SELECT id, owner_id, age, gender, balance, active, satisfaction_level, created_at, updated_at
		  FROM customers
		 WHERE id = ? LIMIT 1
	`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Update rewrites the full row after re-running validation. The id itself is
// immutable.
func (r *CustomersRepositoryImpl) Update(ctx context.Context, c *model.Customer) error {
	if err := c.Validate(); err != nil {
		return err
	}

	const q = `
		UPDATE customers
		   SET owner_id = ?, age = ?, gender = ?, balance = ?, active = ?, satisfaction_level = ?, updated_at = NOW()
		 WHERE id = ?
	`
	res, err := r.db.ExecContext(ctx, q,
		c.OwnerID, c.Age, c.Gender.String(), c.Balance, c.Active, int(c.SatisfactionLevel), c.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// 0 rows can also mean a no-op write to an existing row
		exists, err := r.Exists(ctx, c.ID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
	}
	return nil
}

func (r *CustomersRepositoryImpl) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAll removes every customer and reports how many were deleted.
func (r *CustomersRepositoryImpl) DeleteAll(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM customers`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *CustomersRepositoryImpl) Exists(ctx context.Context, id int64) (bool, error) {
	var one int
	err := r.db.GetContext(ctx, &one, `SELECT 1 FROM customers WHERE id = ? LIMIT 1`, id)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// List returns one page ordered newest-first plus the total match count.
// All set filter predicates compose with AND.
func (r *CustomersRepositoryImpl) List(ctx context.Context, f model.CustomerFilter, page, pageSize int) ([]model.Customer, int, error) {
	where, args := buildFilter(f)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM customers`+where, args...); err != nil {
		return nil, 0, err
	}

	if page < 1 {
		page = 1
	}
	offset := (page - 1) * pageSize

	q := `
		SELECT id, owner_id, age, gender, balance, active, satisfaction_level, created_at, updated_at
		  FROM customers` + where + `
		 ORDER BY id DESC
		 LIMIT ? OFFSET ?
	`
	customers := []model.Customer{}
	listArgs := append(append([]any{}, args...), pageSize, offset)
	if err := r.db.SelectContext(ctx, &customers, q, listArgs...); err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}

func buildFilter(f model.CustomerFilter) (string, []any) {
	var conds []string
	var args []any

	if f.Gender != "" {
		conds = append(conds, "gender = ?")
		args = append(args, f.Gender.String())
	}
	if f.Active != nil {
		conds = append(conds, "active = ?")
		args = append(args, *f.Active)
	}
	if f.SatisfactionLevel != 0 {
		conds = append(conds, "satisfaction_level = ?")
		args = append(args, int(f.SatisfactionLevel))
	}
	if f.MinAge > 0 {
		conds = append(conds, "age >= ?")
		args = append(args, f.MinAge)
	}
	if f.MinBalance != nil {
		conds = append(conds, "balance >= ?")
		args = append(args, *f.MinBalance)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
