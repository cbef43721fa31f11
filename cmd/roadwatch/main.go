package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	"github.com/jonboulle/clockwork"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"
	_ "modernc.org/sqlite"

	"github.com/frostline/roadwatch/internal/api"
	"github.com/frostline/roadwatch/internal/closure"
	"github.com/frostline/roadwatch/internal/ingest"
	"github.com/frostline/roadwatch/internal/models"
	"github.com/frostline/roadwatch/internal/pipeline"
	"github.com/frostline/roadwatch/internal/scoring"
	"github.com/frostline/roadwatch/internal/sources"
	"github.com/frostline/roadwatch/internal/store"
	"github.com/frostline/roadwatch/internal/weather"
)

// Statewide reference point for ambient weather context.
const (
	vermontLat = 44.26
	vermontLon = -72.58

	// Burlington International, the state's primary NWS observing station.
	nwsStationID = "KBTV"
)

type CLI struct {
	DB             string `help:"Path to SQLite database." env:"ROADWATCH_DB" default:"data/roadwatch.db"`
	Vermont511Key  string `help:"Vermont 511 API key." env:"VERMONT511_API_KEY"`
	OpenWeatherKey string `help:"OpenWeatherMap API key." env:"OPENWEATHER_API_KEY"`
	WeatherAPIKey  string `help:"WeatherAPI key." env:"WEATHERAPI_KEY"`

	Serve   ServeCmd   `cmd:"" default:"withargs" help:"Run the HTTP server and the ingestion scheduler."`
	Ingest  IngestCmd  `cmd:"" help:"Poll every source once and exit."`
	Predict PredictCmd `cmd:"" help:"Print closure predictions and exit."`
	Score   ScoreCmd   `cmd:"" help:"Score stored observations and exit."`
}

type ServeCmd struct {
	Port   string `help:"HTTP server port." env:"ROADWATCH_PORT" default:"8080"`
	NoPoll bool   `help:"Disable polling (server only, for local dev)."`
}

type IngestCmd struct{}

type PredictCmd struct {
	District string `help:"Predict for one district only."`
	Days     int    `help:"Number of days to predict." default:"1"`
}

type ScoreCmd struct {
	Hours int `help:"How many hours of stored observations to score." default:"24"`
}

// app wires the shared pieces every command needs.
type app struct {
	store     *store.Store
	loc       *time.Location
	scheduler *ingest.Scheduler
	forecasts *ingest.NWSForecast
}

func (c *CLI) build() (*app, func(), error) {
	db, err := sql.Open("sqlite", c.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	db.Exec("PRAGMA journal_mode=WAL")
	db.Exec("PRAGMA busy_timeout=5000")

	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		log.Printf("Warning: could not load America/New_York timezone, using UTC: %v", err)
		loc = time.UTC
	}

	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("migrate: %w", err)
	}
	log.Println("database migrated")

	for _, d := range closure.DefaultDistricts {
		if err := st.UpsertDistrict(d); err != nil {
			db.Close()
			return nil, nil, fmt.Errorf("upsert district %s: %w", d.ID, err)
		}
	}
	log.Println("districts seeded")

	var srcs []ingest.Source
	if c.Vermont511Key != "" {
		srcs = append(srcs, ingest.NewVermont511(c.Vermont511Key))
	} else {
		log.Println("VERMONT511_API_KEY not set, skipping Vermont 511")
	}
	srcs = append(srcs, ingest.NewRWIS())

	// Providers in priority order; later ones only run when earlier ones fail
	// the confidence gate.
	var providers []weather.Provider
	for _, name := range sources.ProviderPriority {
		switch name {
		case "NWS":
			providers = append(providers, weather.NewNWS(nwsStationID))
		case "OpenWeatherMap":
			if c.OpenWeatherKey != "" {
				providers = append(providers, weather.NewOpenWeatherMap(c.OpenWeatherKey))
			}
		case "WeatherAPI":
			if c.WeatherAPIKey != "" {
				providers = append(providers, weather.NewWeatherAPI(c.WeatherAPIKey))
			}
		}
	}
	resolver := weather.NewResolver(providers, clockwork.NewRealClock())

	return &app{
		store:     st,
		loc:       loc,
		scheduler: ingest.NewScheduler(st, srcs, resolver, vermontLat, vermontLon, clockwork.NewRealClock()),
		forecasts: ingest.NewNWSForecast(loc),
	}, func() { db.Close() }, nil
}

func (cmd *ServeCmd) Run(cli *CLI) error {
	a, cleanup, err := cli.build()
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if !cmd.NoPoll {
		go a.scheduler.Run(ctx)
	} else {
		log.Println("polling disabled (--no-poll)")
	}

	predictor := closure.New(a.forecasts, a.store, clockwork.NewRealClock())
	server := api.NewServer(a.store, cmd.Port, a.loc, predictor)

	log.Printf("starting server on :%s", cmd.Port)
	return server.Run(ctx)
}

func (cmd *IngestCmd) Run(cli *CLI) error {
	a, cleanup, err := cli.build()
	if err != nil {
		return err
	}
	defer cleanup()

	log.Println("running single ingestion")
	a.scheduler.IngestOnce(context.Background())
	log.Println("done")
	return nil
}

func (cmd *PredictCmd) Run(cli *CLI) error {
	if cmd.Days < 1 || cmd.Days > 10 {
		return fmt.Errorf("days must be between 1 and 10")
	}

	a, cleanup, err := cli.build()
	if err != nil {
		return err
	}
	defer cleanup()

	districts, err := a.store.GetDistricts()
	if err != nil {
		return fmt.Errorf("load districts: %w", err)
	}
	if cmd.District != "" {
		d, err := a.store.GetDistrict(cmd.District)
		if err != nil {
			return err
		}
		if d == nil {
			return fmt.Errorf("unknown district %q", cmd.District)
		}
		districts = districts[:0]
		districts = append(districts, *d)
	}

	ctx := context.Background()
	predictor := closure.New(a.forecasts, a.store, clockwork.NewRealClock())
	start := time.Now().In(a.loc)

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, d := range districts {
		preds, err := predictor.PredictRange(ctx, closure.ApplyDefaults(d), start, cmd.Days)
		if err != nil {
			return fmt.Errorf("predict %s: %w", d.ID, err)
		}
		for _, p := range preds {
			if err := enc.Encode(p); err != nil {
				return err
			}
		}
	}
	return nil
}

func (cmd *ScoreCmd) Run(cli *CLI) error {
	a, cleanup, err := cli.build()
	if err != nil {
		return err
	}
	defer cleanup()

	now := time.Now()
	observations, err := a.store.GetObservationsSince(now.Add(-time.Duration(cmd.Hours) * time.Hour))
	if err != nil {
		return fmt.Errorf("load observations: %w", err)
	}

	weatherCtx := models.WeatherContext{}
	if reading, err := a.store.GetLatestWeatherReading(); err == nil && reading != nil {
		weatherCtx = reading.Context()
	}

	scorer := scoring.New(a.loc)
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	for _, obs := range pipeline.Deduplicate(observations) {
		assessment := scorer.Score(obs, weatherCtx, now)
		if err := enc.Encode(struct {
			Route      string                `json:"route"`
			Source     string                `json:"source"`
			Assessment models.RiskAssessment `json:"assessment"`
		}{obs.Route, obs.Source, assessment}); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("roadwatch"),
		kong.Description("Vermont road condition risk scoring and school closure prediction."),
		kong.Configuration(kongdotenv.ENVFileReader, ".env"),
	)
	if err := ctx.Run(&cli); err != nil {
		log.Fatalf("%s: %v", ctx.Command(), err)
	}
}
