package model

import "time"

// Account is an API caller identity. Staff accounts may write; everyone may read.
type Account struct {
	ID        int64     `db:"id"`
	Username  string    `db:"username"`
	APIKey    string    `db:"api_key"`
	Staff     bool      `db:"staff"`
	CreatedAt time.Time `db:"created_at"`
}
