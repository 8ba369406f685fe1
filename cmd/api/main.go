package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/kwabenaio/sika/internal/admission"
	"github.com/kwabenaio/sika/internal/btcinvoice"
	btcStore "github.com/kwabenaio/sika/internal/btcinvoice/store"
	"github.com/kwabenaio/sika/internal/config"
	"github.com/kwabenaio/sika/internal/database"
	sikaHttp "github.com/kwabenaio/sika/internal/http"
	importHandler "github.com/kwabenaio/sika/internal/http/importrates"
	invoiceHandler "github.com/kwabenaio/sika/internal/http/invoice"
	limitHandler "github.com/kwabenaio/sika/internal/http/limit"
	pricingHandler "github.com/kwabenaio/sika/internal/http/pricing"
	profileHandler "github.com/kwabenaio/sika/internal/http/profile"
	transferHandler "github.com/kwabenaio/sika/internal/http/transfer"
	webhookHandler "github.com/kwabenaio/sika/internal/http/webhook"
	"github.com/kwabenaio/sika/internal/importer"
	"github.com/kwabenaio/sika/internal/limit"
	limitStore "github.com/kwabenaio/sika/internal/limit/store"
	"github.com/kwabenaio/sika/internal/mail"
	"github.com/kwabenaio/sika/internal/pricing"
	pricingStore "github.com/kwabenaio/sika/internal/pricing/store"
	"github.com/kwabenaio/sika/internal/processor"
	"github.com/kwabenaio/sika/internal/processor/blockchain"
	"github.com/kwabenaio/sika/internal/processor/coinapult"
	"github.com/kwabenaio/sika/internal/processor/gocoin"
	"github.com/kwabenaio/sika/internal/profile"
	profileStore "github.com/kwabenaio/sika/internal/profile/store"
	"github.com/kwabenaio/sika/internal/transfer"
	transferStore "github.com/kwabenaio/sika/internal/transfer/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	db, err := database.New(cfg.ConnectionString())
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		slog.Error("failed to migrate database", "error", err)
		os.Exit(1)
	}

	var notifier transfer.Notifier = mail.Noop{}
	if cfg.Mail.BaseURL != "" {
		notifier = mail.NewSender(cfg.Mail.BaseURL, cfg.Mail.Token, cfg.Mail.From)
	}

	var checker admission.Checker = admission.AllowAll{}
	if cfg.Admission.BaseURL != "" {
		checker = admission.NewClient(cfg.Admission.BaseURL, cfg.Admission.Token)
	}

	processors := processor.NewService(map[processor.Kind]processor.Client{
		processor.KindGoCoin: gocoin.New(
			cfg.Processors.GoCoin.BaseURL,
			cfg.Processors.GoCoin.Token,
			cfg.Processors.GoCoin.Secret,
		),
		processor.KindBlockchain: blockchain.New(
			cfg.Processors.Blockchain.BaseURL,
			cfg.Processors.Blockchain.XPub,
			cfg.Processors.Blockchain.Key,
			cfg.Processors.Blockchain.Secret,
		),
		processor.KindCoinapult: coinapult.New(
			cfg.Processors.Coinapult.BaseURL,
			cfg.Processors.Coinapult.Key,
			cfg.Processors.Coinapult.Secret,
		),
	})

	var (
		pricingService = pricing.NewService(pricingStore.New(db))
		limitService   = limit.NewService(limitStore.New(db))
		profileService = profile.NewService(profileStore.New(db))

		transferService = transfer.NewService(
			transferStore.New(db), pricingService, profileService, limitService, notifier)

		invoiceService = btcinvoice.NewService(
			btcStore.New(db), processors, pricingService, transferService,
			notifier, cfg.Processors.CallbackURL, cfg.Invoice.Timeout)

		importService = importer.NewService()
	)

	router := sikaHttp.New(sikaHttp.Config{
		AuthSecret:  cfg.Auth.Secret,
		Checker:     checker,
		TransfersV1: transferHandler.NewHandler(transferService),
		ProfilesV1:  profileHandler.NewHandler(profileService),
		PricingV1:   pricingHandler.NewHandler(pricingService),
		LimitsV1:    limitHandler.NewHandler(limitService, pricingService),
		InvoicesV1:  invoiceHandler.NewHandler(invoiceService, transferService),
		WebhooksV1:  webhookHandler.NewHandler(processors, invoiceService),
		ImportV1:    importHandler.NewHandler(importService, pricingService),
	})

	addr := fmt.Sprintf(":%d", cfg.App.Port)
	slog.Info("starting server", "site", cfg.App.Site, "addr", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.Timeout,
		WriteTimeout: cfg.Server.Timeout,
	}

	if err := server.ListenAndServe(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}
