package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnavarrete/customers-api/internal/config"
	"github.com/mnavarrete/customers-api/internal/db"
	"github.com/mnavarrete/customers-api/internal/model"
	"github.com/mnavarrete/customers-api/internal/repository"
	"github.com/mnavarrete/customers-api/internal/util"
)

var createAdminCmd = &cobra.Command{
	Use:   "create-admin <username>",
	Short: "Provision a staff account and print its API key",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		ctx := context.Background()
		accounts := repository.NewAccountsRepository(sqlDB)

		username := args[0]
		existing, err := accounts.GetByUsername(ctx, username)
		if err != nil {
			return fmt.Errorf("lookup account: %w", err)
		}
		if existing != nil {
			return fmt.Errorf("account %q already exists", username)
		}

		acc := &model.Account{
			Username: username,
			APIKey:   util.NewAPIKey(),
			Staff:    true,
		}
		if err := accounts.Create(ctx, acc); err != nil {
			return fmt.Errorf("create account: %w", err)
		}

		// printed once; not retrievable later
		fmt.Printf(">> Staff account %q created (id %d)\n", acc.Username, acc.ID)
		fmt.Printf("   API key: %s\n", acc.APIKey)
		return nil
	},
}
