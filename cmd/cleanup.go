package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mnavarrete/customers-api/internal/config"
	"github.com/mnavarrete/customers-api/internal/db"
	"github.com/mnavarrete/customers-api/internal/repository"
)

var cleanupConfirm bool

var cleanupCmd = &cobra.Command{
	Use:   "cleanup",
	Short: "Delete ALL customers from the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cleanupConfirm {
			fmt.Println("WARNING: this command deletes ALL customers")
			fmt.Println("run again with --confirm to proceed")
			return nil
		}

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

		repo := repository.NewCustomersRepository(sqlDB)
		n, err := repo.DeleteAll(context.Background())
		if err != nil {
			return fmt.Errorf("delete customers: %w", err)
		}
		if n == 0 {
			fmt.Println(">> No customers to delete")
			return nil
		}
		fmt.Printf(">> Deleted %d customers\n", n)
		return nil
	},
}

func init() {
	cleanupCmd.Flags().BoolVar(&cleanupConfirm, "confirm", false, "confirm deleting all customers")
}
