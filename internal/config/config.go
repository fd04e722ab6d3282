package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dqtoy/crazy-eights/engine"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Addr        string
	RedisURL    string // optional; empty disables history and resume
	DatabaseURL string // optional; empty disables the results archive

	JWTSecret string
	JWTIssuer string
	JWTTTL    time.Duration

	WSAllowedOrigins []string // host patterns accepted on WebSocket upgrade

	Rules       engine.HouseRules
	Timing      engine.Timing
	TurnTimeout time.Duration
	SnapshotTTL time.Duration
	Seed        uint64 // 0 seeds each session from the clock

	LogLevel  logrus.Level
	LogFormat string // "text" or "json"
}

// LoadFromEnv reads the environment, after loading any of files that exist
// (".env" when none are given). Variables already set take precedence.
func LoadFromEnv(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}

	var invalid []string
	dur := func(key string, unit time.Duration, def time.Duration) time.Duration {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return def
		}
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil || n < 0 {
			invalid = append(invalid, key)
			return def
		}
		return time.Duration(n) * unit
	}
	small := func(key string, def, lo, hi uint8) uint8 {
		v := strings.TrimSpace(os.Getenv(key))
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < int(lo) || n > int(hi) {
			invalid = append(invalid, key)
			return def
		}
		return uint8(n)
	}

	def := engine.DefaultTiming()
	cfg := Config{
		Addr:        strings.TrimSpace(os.Getenv("EIGHTS_ADDR")),
		RedisURL:    strings.TrimSpace(os.Getenv("REDIS_URL")),
		DatabaseURL: strings.TrimSpace(os.Getenv("DATABASE_URL")),
		JWTSecret:   os.Getenv("JWT_SECRET"),
		JWTIssuer:   os.Getenv("JWT_ISSUER"),
		JWTTTL:      dur("JWT_TTL_MINUTES", time.Minute, 24*time.Hour),
		Rules: engine.HouseRules{
			CardsPerPlayer: small("CARDS_PER_PLAYER", 7, 1, 10),
			NumPlayers:     small("NUM_PLAYERS", 2, 2, engine.MaxPlayers),
		},
		Timing: engine.Timing{
			EndTurnDelay: dur("END_TURN_DELAY_MS", time.Millisecond, def.EndTurnDelay),
			ThinkDelay:   dur("THINK_DELAY_MS", time.Millisecond, def.ThinkDelay),
			DealStagger:  dur("DEAL_STAGGER_MS", time.Millisecond, def.DealStagger),
			AIDrawDelay:  dur("AI_DRAW_DELAY_MS", time.Millisecond, def.AIDrawDelay),
		},
		TurnTimeout: dur("TURN_TIMEOUT_SEC", time.Second, 0),
		SnapshotTTL: dur("SNAPSHOT_TTL_MINUTES", time.Minute, 24*time.Hour),
		LogFormat:   strings.ToLower(strings.TrimSpace(os.Getenv("LOG_FORMAT"))),
	}
	if v := os.Getenv("WS_ALLOWED_ORIGINS"); v != "" {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				cfg.WSAllowedOrigins = append(cfg.WSAllowedOrigins, p)
			}
		}
	}
	if cfg.JWTIssuer == "" {
		cfg.JWTIssuer = "crazy-eights"
	}
	if cfg.LogFormat == "" {
		cfg.LogFormat = "text"
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		invalid = append(invalid, "LOG_FORMAT")
	}

	cfg.LogLevel = logrus.InfoLevel
	if v := strings.TrimSpace(os.Getenv("LOG_LEVEL")); v != "" {
		lvl, err := logrus.ParseLevel(v)
		if err != nil {
			invalid = append(invalid, "LOG_LEVEL")
		} else {
			cfg.LogLevel = lvl
		}
	}
	if v := strings.TrimSpace(os.Getenv("SEED")); v != "" {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			invalid = append(invalid, "SEED")
		}
		cfg.Seed = n
	}

	// EIGHTS_ADDR is optional if PORT is set by the hosting environment.
	if cfg.Addr == "" {
		if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
			if strings.Contains(port, ":") {
				cfg.Addr = port
			} else {
				cfg.Addr = ":" + port
			}
		}
	}

	if cfg.JWTSecret == "" {
		invalid = append(invalid, "JWT_SECRET")
	}
	if cfg.Addr == "" {
		invalid = append(invalid, "EIGHTS_ADDR (or PORT)")
	}
	if len(invalid) > 0 {
		return Config{}, fmt.Errorf("missing/invalid env: %s", strings.Join(invalid, ", "))
	}
	return cfg, nil
}

// Logger builds the process logger from LogLevel and LogFormat.
func (c Config) Logger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(c.LogLevel)
	if c.LogFormat == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}
