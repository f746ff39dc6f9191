package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/mnavarrete/customers-api/internal/model"
)

type AccountsRepository interface {
	GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error)
	GetByUsername(ctx context.Context, username string) (*model.Account, error)
	Create(ctx context.Context, a *model.Account) error
}

type AccountsRepositoryImpl struct {
	db *sqlx.DB
}

func NewAccountsRepository(db *sqlx.DB) *AccountsRepositoryImpl {
	return &AccountsRepositoryImpl{db: db}
}

var _ AccountsRepository = (*AccountsRepositoryImpl)(nil)

func (r *AccountsRepositoryImpl) GetByAPIKey(ctx context.Context, apiKey string) (*model.Account, error) {
	var a model.Account
	err := r.db.GetContext(ctx, &a, `
		SELECT id, username, api_key, staff, created_at
		  FROM accounts
		 WHERE api_key = ? LIMIT 1
	`, apiKey)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountsRepositoryImpl) GetByUsername(ctx context.Context, username string) (*model.Account, error) {
	var a model.Account
	err := r.db.GetContext(ctx, &a, `
		SELECT id, username, api_key, staff, created_at
		  FROM accounts
		 WHERE username = ? LIMIT 1
	`, username)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *AccountsRepositoryImpl) Create(ctx context.Context, a *model.Account) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (username, api_key, staff, created_at)
		VALUES (?, ?, ?, NOW())
	`, a.Username, a.APIKey, a.Staff)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = id
	return nil
}
