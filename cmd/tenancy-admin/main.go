package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/platinummonkey/tenancy/pkg/admins"
	"github.com/platinummonkey/tenancy/pkg/audit"
	"github.com/platinummonkey/tenancy/pkg/auth"
	"github.com/platinummonkey/tenancy/pkg/cli"
	"github.com/platinummonkey/tenancy/pkg/config"
	"github.com/platinummonkey/tenancy/pkg/rbac"
	"github.com/platinummonkey/tenancy/pkg/storage/postgres"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	var cm *postgres.ConnectionManager
	connect := func(ctx context.Context) (*postgres.ConnectionManager, error) {
		if cm != nil {
			return cm, nil
		}
		var err error
		cm, err = postgres.NewConnectionManager(ctx, cfg.Storage.Connection())
		return cm, err
	}
	defer func() {
		if cm != nil {
			cm.Close()
		}
	}()

	root := cli.NewRootCommand(cli.Env{
		Admins: func(ctx context.Context) (cli.AdminService, error) {
			conn, err := connect(ctx)
			if err != nil {
				return nil, err
			}
			return admins.NewService(admins.Deps{
				Admins:    postgres.NewAdminRepository(conn.DB()),
				Hasher:    auth.NewArgon2Hasher(auth.DefaultPasswordParams),
				Evaluator: rbac.NewEvaluator(nil),
				Audit:     audit.NewLogrusLogger(os.Stderr),
			}), nil
		},
		Migrate: func(ctx context.Context) error {
			conn, err := connect(ctx)
			if err != nil {
				return err
			}
			return postgres.Migrate(ctx, conn.DB())
		},
	})

	if err := root.Execute(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		stop()
		if cm != nil {
			cm.Close()
		}
		os.Exit(1)
	}
}
