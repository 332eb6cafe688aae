package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/handler"
	"storefront/internal/infra/db"
	infraRepo "storefront/internal/infra/repository"
	"storefront/internal/logger"
	"storefront/internal/middleware"
	repo "storefront/internal/repository"
	"storefront/internal/server"
	"storefront/internal/usecase"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "storefront: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	flags := pflag.NewFlagSet(os.Args[0], pflag.ExitOnError)
	envFile := flags.String("env-file", "../.env", "dotenv file (ignored if missing)")
	addrFlag := flags.String("addr", "", "listen address (overrides PORT)")
	_ = flags.Parse(os.Args[1:])

	//.envがあれば読む
	if err := godotenv.Load(*envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("load %s: %w", *envFile, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log, err := logger.New(cfg.GoEnv, cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	//DB接続
	gormDB, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	if err := db.Migrate(gormDB); err != nil {
		return fmt.Errorf("db migrate: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//カート状態の保存先
	var store repo.CartStateStore
	switch cfg.CartStore {
	case config.CartStoreMemory:
		mem := infraRepo.NewCartStateMemoryRepository(cfg.CartTTL)
		defer mem.Close()
		store = mem
	default:
		pg := infraRepo.NewCartStateGormRepository(gormDB, cfg.CartTTL)
		if n, err := pg.PurgeExpired(ctx); err != nil {
			log.Warn("purge expired carts failed", zap.Error(err))
		} else if n > 0 {
			log.Info("purged expired carts", zap.Int64("count", n))
		}
		store = pg
	}

	//Repository / Usecase
	productRepo := infraRepo.NewProductGormRepository(gormDB)
	productUC := usecase.NewProductUsecase(productRepo, log)
	cartUC := usecase.NewCartUsecase(productUC)

	sessions := usecase.NewCartSessions(store, cfg.CartKeyPrefix, cfg.CartIdleTTL, log)
	defer sessions.Close()

	//Handler
	e := server.New(log, server.Deps{
		ProductH: handler.NewProductHandler(productUC, cfg.CMSWebhookSecret),
		CartH:    handler.NewCartHandler(cartUC, sessions),
		Issuer:   middleware.NewSessionIssuer(cfg),
	})

	//Server起動
	addr := cfg.Port
	if addr[0] != ':' {
		addr = ":" + addr
	}
	if *addrFlag != "" {
		addr = *addrFlag
	}
	return server.Start(ctx, e, addr, log)
}
