package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shoplist-server/confs"
	"shoplist-server/db"
	"shoplist-server/repositories"
	"shoplist-server/server"
	"shoplist-server/services"
)

func main() {
	// load config
	cfg, err := confs.LoadConfig()
	if err != nil {
		slog.Error("error loading config", "error", err)
		os.Exit(1)
	}

	stores, err := openStores(cfg)
	if err != nil {
		slog.Error("failed to open store", "driver", cfg.StoreDriver, "error", err)
		os.Exit(1)
	}

	var suggester services.Suggester = services.KeywordSuggester{}
	if cfg.GeminiAPIKey != "" {
		gemini, closeGemini, err := services.NewGeminiSuggester(context.Background(), cfg.GeminiAPIKey, cfg.GeminiModel, suggester)
		if err != nil {
			slog.Warn("gemini unavailable, using keyword suggestions", "error", err)
		} else {
			defer closeGemini()
			suggester = gemini
			slog.Info("using gemini suggestions", "model", cfg.GeminiModel)
		}
	}

	srv := server.NewServer(cfg, stores, suggester).HTTPServer()

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-ctrlc
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}()

	slog.Info("listening", "addr", srv.Addr, "store", cfg.StoreDriver)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("server closed")
}

func openStores(cfg *confs.Config) (server.Stores, error) {
	if cfg.StoreDriver == confs.StoreDriverMemory {
		slog.Warn("using in-memory store; data is lost on restart")
		mem := repositories.NewMemoryStore()
		return server.Stores{Users: mem.Users(), Lists: mem.Lists()}, nil
	}

	// connect to database Postgres
	database, err := db.Connect()
	if err != nil {
		return server.Stores{}, err
	}
	return server.Stores{
		Users: repositories.NewUserPgRepository(database),
		Lists: repositories.NewShoppingListPgRepository(database),
	}, nil
}
