package shared

import (
	"bufio"
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string
	MySQLDSN    string // empty disables the submission ledger
	RedisAddr   string // empty disables the venue cache
	RedisDB     int
	RedisPass   string

	FoursquareBase    string
	FoursquareVersion string
	Token             string
	RPS               int

	Workers         int
	SearchRadius    int
	CacheTTL        time.Duration
	DuplicatePolicy string // prompt | decline | approve
}

// Load reads configuration from the environment after merging an optional
// .env file. Variables already set in the environment win over .env.
func Load() Config {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg(".env could not be loaded")
	}

	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("not an integer, using default")
		}
		return def
	}
	c := Config{
		AppEnv:            env("APP_ENV", "prod"),
		LogLevel:          env("LOG_LEVEL", "info"),
		HTTPAddr:          env("HTTP_ADDR", ":8080"),
		MetricsAddr:       env("METRICS_ADDR", ""),
		MySQLDSN:          env("MYSQL_DSN", ""),
		RedisAddr:         env("REDIS_ADDR", ""),
		RedisPass:         env("REDIS_PASSWORD", ""),
		RedisDB:           atoi("REDIS_DB", 0),
		FoursquareBase:    env("FSQ_BASE_URL", "https://api.foursquare.com/v2/"),
		FoursquareVersion: env("FSQ_API_VERSION", "20190815"),
		RPS:               atoi("FSQ_RPS", 5),
		Workers:           atoi("EDIT_WORKERS", 4),
		SearchRadius:      atoi("SEARCH_RADIUS_M", 100),
		CacheTTL:          time.Duration(atoi("CACHE_TTL_SECONDS", 900)) * time.Second,
		DuplicatePolicy:   strings.ToLower(env("DUPLICATE_POLICY", "prompt")),
	}

	if dsn, err := NormalizeDSN(c.MySQLDSN); err != nil {
		log.Warn().Err(err).Msg("MYSQL_DSN could not be parsed")
	} else {
		c.MySQLDSN = dsn
	}

	c.Token = os.Getenv("FSQ_TOKEN")
	if c.Token == "" {
		path := env("FSQ_TOKEN_FILE", "token.txt")
		t, err := ReadToken(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("oauth token file not readable")
		}
		c.Token = t
	}
	if c.Token == "" {
		log.Warn().Msg("FSQ_TOKEN is empty")
	}
	return c
}

// NormalizeDSN forces parseTime=true so DATETIME columns scan into
// time.Time. An empty DSN stays empty.
func NormalizeDSN(dsn string) (string, error) {
	if dsn == "" {
		return "", nil
	}
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", err
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// ReadToken returns the first line of the file at path, trimmed.
func ReadToken(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if sc.Scan() {
		return strings.TrimSpace(sc.Text()), nil
	}
	return "", sc.Err()
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
