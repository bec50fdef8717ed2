package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"

	"venue_submit/internal/adapters/foursquare"
	"venue_submit/internal/adapters/observability"
	redisad "venue_submit/internal/adapters/redis"
	"venue_submit/internal/adapters/rowfile"
	"venue_submit/internal/app"
	"venue_submit/internal/domain"
	"venue_submit/internal/shared"
)

func main() {
	idsPath := flag.String("ids", "venues.txt", "file with one venue id per line")
	editPath := flag.String("edit", "edit.json", "JSON file with the edit to propose")
	flagReason := flag.String("flag", "", "flag every venue with this reason instead of proposing an edit")
	show := flag.Bool("show", false, "print each venue's current details first")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg := shared.Load()
	log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr)

	ids, err := rowfile.LoadIDs(*idsPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *idsPath).Msg("load venue ids failed")
	}

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
	// no venue is created here, so the duplicate policy is never consulted
	svc := app.NewSubmissionService(client, nil, cache, cfg.CacheTTL)

	if *show {
		for _, id := range ids {
			v, err := svc.GetVenue(ctx, id)
			if err != nil {
				log.Warn().Err(err).Str("venue_id", id).Msg("get venue failed")
				continue
			}
			fmt.Printf("%s :: %s :: %s\n", v.ShortURL, v.Name, v.Location.Summary())
		}
	}

	if *flagReason != "" {
		reason, err := domain.ParseFlagReason(*flagReason)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid flag reason")
		}
		for _, id := range ids {
			if err := svc.FlagVenue(ctx, id, reason); err != nil {
				log.Error().Err(err).Str("venue_id", id).Msg("flag failed")
				continue
			}
			fmt.Printf("flagged %s as %s\n", domain.VenueURL(id), reason)
		}
		return
	}

	edit, err := rowfile.LoadEdit(*editPath)
	if err != nil {
		log.Fatal().Err(err).Str("path", *editPath).Msg("load edit failed")
	}
	log.Info().
		Int("venues", len(ids)).
		Int("workers", cfg.Workers).
		Int("fields", len(edit.WireFields())).
		Msg("editor starting")

	runner := app.NewBatchRunner(svc, nil, func(r app.RowResult) {
		observability.ObserveSubmission(r.Status)
	})
	failed := 0
	for _, r := range runner.ProposeAll(ctx, ids, edit, cfg.Workers) {
		if r.Err != nil {
			failed++
			fmt.Printf("x %s :: %v\n", domain.VenueURL(r.Key), r.Err)
			continue
		}
		fmt.Printf("+ %s\n", domain.VenueURL(r.Key))
	}
	log.Info().Int("failed", failed).Int("total", len(ids)).Msg("edits completed")
}
