package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"ShopifyWithOdoo/internal/cache"
	"ShopifyWithOdoo/internal/config"
	"ShopifyWithOdoo/internal/connector"
	"ShopifyWithOdoo/internal/database"
	"ShopifyWithOdoo/internal/database/model/queue"
	httphandler "ShopifyWithOdoo/internal/handlers/http"
	"ShopifyWithOdoo/internal/odooapi"
	"ShopifyWithOdoo/internal/shopifyapi"
	"ShopifyWithOdoo/internal/sync"
	"ShopifyWithOdoo/internal/telegram"
	"ShopifyWithOdoo/internal/version"
	"ShopifyWithOdoo/pkg/logging"
	"github.com/jmoiron/sqlx"
)

func main() {
	logger := logging.GetLogger()
	logger.Info("Start Main")
	v := version.GetVersion()
	logger.Infof("Version %s", v.String())
	defer logger.Info("End Main")

	cfg := config.GetConfig()

	db, err := database.Open(cfg.DBSQLITE.DB)
	if err != nil {
		logger.Fatalf("failed database.Open(%s); %v", cfg.DBSQLITE.DB, err)
	}
	defer func(db *sqlx.DB) {
		if err := db.Close(); err != nil {
			logger.Errorf("failed close db, err: %v", err)
		}
	}(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connect := func(name string) (*connector.Connector, error) {
		return connector.Get(cfg, db, name)
	}

	go sync.SyncServiceWithRecovered(ctx, db)
	go telegram.BotStart(botCommands(ctx, connect))

	router := httphandler.NewRouter(&httphandler.Handler{Token: cfg.SERVICE.Token, Connect: connect})
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.SERVICE.PORT),
		Handler:           router,
		ReadHeaderTimeout: 30 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdown, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdown); err != nil {
			logger.Errorf("failed server.Shutdown(); %v", err)
		}
	}()

	logger.Infof("Listen on %s", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatal(err)
	}
}

// botCommands are the operator commands of the Telegram bot:
//
//	/version
//	/run <instance> <operation> [key=value ...]
//	/queues <instance>
func botCommands(ctx context.Context, connect func(string) (*connector.Connector, error)) map[string]telegram.Command {
	return map[string]telegram.Command{
		"version": func(string) string {
			return fmt.Sprintf("Version %s", version.GetVersion().String())
		},
		"run": func(args string) string {
			fields := strings.Fields(args)
			if len(fields) < 2 {
				return fmt.Sprintf("Usage: /run <instance> <operation> [key=value ...]\nOperations: %s", strings.Join(sync.Operations, ", "))
			}
			c, err := connect(fields[0])
			if err != nil {
				return err.Error()
			}
			values := url.Values{}
			for _, kv := range fields[2:] {
				if k, v, ok := strings.Cut(kv, "="); ok {
					values.Set(k, v)
				}
			}
			p, err := sync.ParseParams(values)
			if err != nil {
				return err.Error()
			}
			result, err := sync.Run(ctx, c, fields[1], p)
			if err != nil {
				return fmt.Sprintf("%s of %s failed: %v", fields[1], c.Name, err)
			}
			return fmt.Sprintf("%s of %s: %s", result.Operation, result.Instance, result.Message)
		},
		"queues": func(args string) string {
			c, err := connect(strings.TrimSpace(args))
			if err != nil {
				return err.Error()
			}
			queues, err := queue.ListWithCounts(c.DB, c.Name)
			if err != nil {
				return err.Error()
			}
			var b strings.Builder
			for _, q := range queues {
				if q.State == queue.STATE_COMPLETED {
					continue
				}
				fmt.Fprintf(&b, "%s %s %s: %d/%d done, %d failed\n", q.Name, q.Kind, q.State, q.Done, q.Total, q.Failed)
			}
			if b.Len() == 0 {
				return "No open queues"
			}
			return b.String()
		},
	}
}

func init() {
	logger := logging.GetLogger()

	logger.Println("Start main init...")
	defer logger.Println("End main init.")
	cfg := config.GetConfig()

	logging.SetDebug(cfg.LOG.Debug == 1)
	cache.InitFromConfig(cfg)
	_ = odooapi.GetClient()

	for _, name := range cfg.InstanceNames() {
		instance, _ := cfg.Instance(name)
		_ = shopifyapi.NewAPI(instance)
	}
}
