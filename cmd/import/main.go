// Command import loads or clears the development tour data in the configured store.
//
//	import -import ./dev-data/tours.json
//	import -delete
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"natours/api/internal/config"
	"natours/api/internal/database"
	"natours/api/internal/devdata"
	"natours/api/internal/log"
)

func main() {
	var (
		importPath string
		deleteAll  bool
	)
	flag.StringVar(&importPath, "import", "", "path of a JSON file of tours to import")
	flag.BoolVar(&deleteAll, "delete", false, "delete every tour")
	flag.Parse()

	if (importPath == "") == !deleteAll {
		fmt.Fprintln(os.Stderr, "usage: import -import <tours.json> | -delete")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	logger := log.New("natours-import", cfg.Environment, cfg.Log)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := database.Open(ctx, cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open store")
	}
	defer func() {
		if err := store.Close(context.Background()); err != nil {
			logger.Error().Err(err).Msg("store close error")
		}
	}()

	if deleteAll {
		n, err := devdata.Delete(ctx, store.Tours)
		if err != nil {
			logger.Error().Err(err).Msg("delete failed")
			return
		}
		logger.Info().Int64("deleted", n).Msg("data successfully deleted")
		return
	}

	f, err := os.Open(importPath)
	if err != nil {
		logger.Error().Err(err).Msg("open data file")
		return
	}
	defer f.Close()

	tours, err := devdata.Decode(f, time.Now())
	if err != nil {
		logger.Error().Err(err).Msg("decode data file")
		return
	}
	if err := devdata.Import(ctx, store.Tours, tours); err != nil {
		logger.Error().Err(err).Msg("import failed")
		return
	}
	logger.Info().Int("imported", len(tours)).Str("driver", store.Driver).Msg("data successfully loaded")
}
