package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnavarrete/customers-api/internal/config"
	"github.com/mnavarrete/customers-api/internal/db"
	"github.com/mnavarrete/customers-api/internal/importer"
	"github.com/mnavarrete/customers-api/internal/logger"
	"github.com/mnavarrete/customers-api/internal/model"
	"github.com/mnavarrete/customers-api/internal/repository"
	"github.com/mnavarrete/customers-api/internal/util"
)

var importCmd = &cobra.Command{
	Use:   "import <csvfile>",
	Short: "Import customers from a CSV file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

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
		customersRepo := repository.NewCustomersRepository(sqlDB)
		accountsRepo := repository.NewAccountsRepository(sqlDB)

		admin, err := ensureAdminAccount(ctx, accountsRepo)
		if err != nil {
			return err
		}

		im := importer.New(customersRepo, logger.Log)
		im.OwnerID = &admin.ID

		res, err := im.Run(ctx, args[0])
		if err != nil {
			return err
		}

		fmt.Println(">> Import complete")
		fmt.Printf("   created: %d\n", res.Created)
		if res.Skipped > 0 {
			fmt.Printf("   skipped: %d (already existed)\n", res.Skipped)
		}
		if res.Errored > 0 {
			fmt.Printf("   errored: %d\n", res.Errored)
		}
		return nil
	},
}

// ensureAdminAccount fetches or provisions the account imported records are
// assigned to.
func ensureAdminAccount(ctx context.Context, accounts repository.AccountsRepository) (*model.Account, error) {
	admin, err := accounts.GetByUsername(ctx, "admin")
	if err != nil {
		return nil, fmt.Errorf("lookup admin account: %w", err)
	}
	if admin != nil {
		return admin, nil
	}
	admin = &model.Account{
		Username: "admin",
		APIKey:   util.NewAPIKey(),
		Staff:    true,
	}
	if err := accounts.Create(ctx, admin); err != nil {
		return nil, fmt.Errorf("create admin account: %w", err)
	}
	return admin, nil
}
