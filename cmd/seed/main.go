package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sanosuguru/go-seat-booking/internal/api/middleware"
	"github.com/sanosuguru/go-seat-booking/internal/application"
	"github.com/sanosuguru/go-seat-booking/internal/config"
	"github.com/sanosuguru/go-seat-booking/internal/infrastructure/sqlstore"
	"github.com/sanosuguru/go-seat-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-seat-booking/internal/seed"
)

func main() {
	var (
		generated   int
		printTokens bool
		tokenTTL    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "サンプルのイベントと予約を投入する",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger.Init(cfg.Env)
			defer logger.Sync()

			db, err := sqlstore.NewConnection(&cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			if cfg.Database.Driver != config.DriverSQLite {
				if err := sqlstore.RunMigrations(db.DB, cfg.Database.MigrationsPath); err != nil {
					return err
				}
			}

			registry := sqlstore.NewReservationRepository(db)
			events := application.NewEventService(sqlstore.NewEventRepository(db), registry, nil)
			booking := application.NewBookingService(
				sqlstore.NewTxManager(db, sqlstore.TxOptions(&cfg.Database)),
				sqlstore.NewInventoryRepository(db),
				registry,
			)

			if _, err := seed.Run(cmd.Context(), events, booking, generated); err != nil {
				return err
			}

			if printTokens {
				for _, user := range seed.Users {
					token, err := middleware.IssueToken(cfg.Auth.JWTSecret, user, tokenTTL)
					if err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", user, token)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&generated, "generated", 120, "ページング確認用に追加で作るイベント数")
	cmd.Flags().BoolVar(&printTokens, "print-tokens", false, "サンプルユーザーの開発用トークンを出力する")
	cmd.Flags().DurationVar(&tokenTTL, "token-ttl", 24*time.Hour, "開発用トークンの有効期間")

	if err := cmd.Execute(); err != nil {
		logger.Error("シード投入エラー", zap.Error(err))
		os.Exit(1)
	}
}
