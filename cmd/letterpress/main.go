package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/clairempr/letterpress-sub000/internal/index"
	"github.com/clairempr/letterpress-sub000/internal/letters"
	"github.com/clairempr/letterpress-sub000/internal/logger"
	"github.com/clairempr/letterpress-sub000/internal/search"
	"github.com/clairempr/letterpress-sub000/internal/sentiment"
	"github.com/clairempr/letterpress-sub000/internal/server"
	"github.com/clairempr/letterpress-sub000/internal/store"
)

var (
	dbPath    string
	listen    string
	indexName string
	logLevel  string
	pretty    bool
)

func main() {
	root := &cobra.Command{
		Use:   "letterpress",
		Short: "Historical letter catalog with sentiment search",
	}
	root.PersistentFlags().StringVar(&dbPath, "db", "letterpress.db", "path to the catalog database")
	root.PersistentFlags().StringVar(&indexName, "index", "letterpress", "logical search index name")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	root.PersistentFlags().BoolVar(&pretty, "pretty", false, "human-readable log output")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	serveCmd.Flags().StringVar(&listen, "listen", ":8080", "listen address")

	reindexCmd := &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the search index from the catalog",
		RunE:  runReindex,
	}

	root.AddCommand(serveCmd, reindexCmd)
	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

type app struct {
	log     zerolog.Logger
	store   *store.Store
	engine  *index.Engine
	indexer *letters.Indexer
	server  *server.Server
}

func buildApp() (*app, error) {
	log := logger.New(logLevel, pretty)

	st, err := store.Open(dbPath, log)
	if err != nil {
		return nil, err
	}

	engine := index.New(indexName, log)
	indexer := letters.NewIndexer(engine, log)
	vectors := sentiment.NewTermVectors(engine)
	scorer := sentiment.NewScorer(st, vectors, log)
	indexScorer := sentiment.NewIndexScorer(st, engine, vectors, log)
	highlighter := sentiment.NewHighlighter(st, vectors, log)
	searchSvc := search.NewService(engine, st, scorer, log)

	return &app{
		log:     log,
		store:   st,
		engine:  engine,
		indexer: indexer,
		server:  server.New(engine, st, indexer, searchSvc, scorer, indexScorer, highlighter, log),
	}, nil
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.store.Close()

	// The index is in-process, so every start replays the catalog.
	total, err := a.indexer.Rebuild(cmd.Context(), a.store)
	if err != nil {
		return err
	}
	a.log.Info().Int("letters", total).Str("index", a.engine.Name()).Msg("index built")

	srv := &http.Server{
		Addr:    listen,
		Handler: a.server.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", listen).Msg("listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case sig := <-stop:
		a.log.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

func runReindex(cmd *cobra.Command, _ []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.store.Close()

	total, err := a.indexer.Rebuild(cmd.Context(), a.store)
	if err != nil {
		return err
	}
	a.log.Info().Int("letters", total).Msg("reindex complete")
	return nil
}
