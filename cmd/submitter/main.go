package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/go-sql-driver/mysql"
	"github.com/rs/zerolog/log"

	"venue_submit/internal/adapters/console"
	"venue_submit/internal/adapters/foursquare"
	"venue_submit/internal/adapters/observability"
	redisad "venue_submit/internal/adapters/redis"
	"venue_submit/internal/adapters/rowfile"
	"venue_submit/internal/app"
	"venue_submit/internal/domain"
	"venue_submit/internal/shared"
	mysqlrepo "venue_submit/internal/storage/mysql"
)

func main() {
	rowsPath := flag.String("rows", "rows.json", "JSON file with the places to submit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr)

	rows, err := rowfile.LoadRows(*rowsPath, cfg.SearchRadius)
	if err != nil {
		log.Fatal().Err(err).Str("path", *rowsPath).Msg("load rows failed")
	}
	log.Info().
		Str("base", cfg.FoursquareBase).
		Int("rows", len(rows)).
		Str("policy", cfg.DuplicatePolicy).
		Msg("submitter starting")

	client, err := foursquare.New(cfg.FoursquareBase, cfg.Token, cfg.FoursquareVersion, cfg.RPS)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize Foursquare client")
	}

	var cache domain.Cache
	if cfg.RedisAddr != "" {
		rc := redisad.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		defer rc.Close()
		cache = rc
	}
	svc := app.NewSubmissionService(client, policyFor(cfg.DuplicatePolicy), cache, cfg.CacheTTL)

	me, err := svc.GetUser(ctx, "self")
	if err != nil {
		log.Fatal().Err(err).Msg("token check failed")
	}
	fmt.Printf("Hello, %s!\n", me.FullName())

	var ledger domain.SubmissionRepository
	if cfg.MySQLDSN != "" {
		db, err := sql.Open("mysql", cfg.MySQLDSN)
		if err != nil {
			log.Fatal().Err(err).Msg("sql.Open failed")
		}
		defer db.Close()
		if err := db.PingContext(ctx); err != nil {
			log.Fatal().Err(err).Msg("db.Ping failed")
		}
		ledger = mysqlrepo.New(db)
		log.Info().Msg("submission ledger enabled")
	}

	runner := app.NewBatchRunner(svc, ledger, printResult)
	results := runner.SubmitNew(ctx, rows)

	counts := map[domain.SubmissionStatus]int{}
	skipped := 0
	for _, r := range results {
		if r.Skipped {
			skipped++
			continue
		}
		counts[r.Status]++
	}
	log.Info().
		Int("created", counts[domain.StatusCreated]).
		Int("existing", counts[domain.StatusExisting]).
		Int("abstained", counts[domain.StatusAbstained]).
		Int("edit_failed", counts[domain.StatusEditFailed]).
		Int("failed", counts[domain.StatusFailed]).
		Int("skipped", skipped).
		Msg("submission completed")
}

func policyFor(name string) domain.DuplicatePolicy {
	switch name {
	case "approve":
		return console.Fixed(true)
	case "decline":
		return console.Fixed(false)
	default:
		return console.NewPromptPolicy(os.Stdin, os.Stdout)
	}
}

func printResult(r app.RowResult) {
	if r.Skipped {
		fmt.Printf("= %s :: already submitted\n", r.Key)
		return
	}
	observability.ObserveSubmission(r.Status)

	switch r.Status {
	case domain.StatusExisting:
		fmt.Printf("? %s :: found %d candidate(s)\n", r.Key, len(r.Candidates))
		for _, c := range r.Candidates {
			fmt.Printf("  %s :: %s (%d m)\n", domain.VenueURL(c.ID), c.Name, c.Distance)
		}
	case domain.StatusCreated:
		fmt.Printf("+ %s :: %s\n", r.Key, domain.VenueURL(r.Venue.ID))
	case domain.StatusEditFailed:
		fmt.Printf("! %s :: created %s but the edit failed: %v\n", r.Key, domain.VenueURL(r.Venue.ID), r.Err)
	case domain.StatusAbstained:
		fmt.Printf("- %s :: abstained\n", r.Key)
	default:
		fmt.Printf("x %s :: %v\n", r.Key, r.Err)
	}
}
