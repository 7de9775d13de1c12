package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/jonboulle/clockwork"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/admin"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/config"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/events"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/gateway"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/match"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/relay"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/store"
	"github.com/suncoastfinancialfootball-cloud/financial-football-sub001/internal/tournament"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Warn().Err(err).Msg("could not load .env file")
	}

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load(os.Getenv("CONFIG_FILE"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, err := store.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to mongodb")
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer closeCancel()
		if err := st.Close(closeCtx); err != nil {
			log.Error().Err(err).Msg("mongodb disconnect failed")
		}
	}()

	bus := events.NewBus(log.Logger)
	defer bus.Close()

	var publisher events.Publisher = bus
	var natsRelay *relay.Publisher
	if cfg.NATS.Enabled {
		rcfg := relay.DefaultConfig()
		rcfg.URL = cfg.NATS.URL
		rcfg.SubjectPrefix = cfg.NATS.SubjectPrefix
		natsRelay, err = relay.New(rcfg, bus, log.Logger)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect NATS relay")
		}
		defer natsRelay.Close()
		publisher = natsRelay
	}

	clock := clockwork.NewRealClock()
	tournaments := tournament.NewService(st, publisher, clock, log.Logger)
	engine := match.NewEngine(cfg.Match.Rules(), clock, st, tournaments, tournaments, publisher, log.Logger)

	restored, err := engine.Recover(ctx, st)
	if err != nil {
		log.Fatal().Err(err).Msg("live match recovery failed")
	}
	if restored > 0 {
		log.Info().Int("matches", restored).Msg("live matches recovered")
	}

	commands := gateway.NewCommandRouter(engine, log.Logger)
	manager := gateway.NewConnectionManager(ctx, bus, commands, gateway.DefaultConnectionConfig(), log.Logger)
	gatewayHandler := gateway.NewHandler(manager, commands, log.Logger)
	adminHandler := admin.NewHandler(tournaments, engine, log.Logger)

	mux := http.NewServeMux()
	gatewayHandler.Register(mux)
	adminHandler.Register(mux)
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	handler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}).Handler(mux)

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	sig := <-sigChan
	log.Info().Str("signal", sig.String()).Msg("received shutdown signal")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	cancel()
	time.Sleep(500 * time.Millisecond)
	log.Info().Msg("shutdown complete")
}
