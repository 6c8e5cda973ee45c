/*
Package config assembles server configuration from the environment and
command-line flags.

Precedence (last wins): struct defaults < environment < flags. An optional
.env file is loaded by the caller before FromEnv runs, so it behaves like
any other environment source.
*/
package config

import (
	"flag"

	"github.com/caarlos0/env/v6"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Addr          string `env:"KIOSK_ADDR"           envDefault:"localhost:8080"`
	DBPath        string `env:"KIOSK_DB_PATH"        envDefault:"./data/kiosk.db"`
	LogLevel      string `env:"KIOSK_LOG_LEVEL"      envDefault:"info"`
	CacheInterval string `env:"KIOSK_CACHE_INTERVAL" envDefault:"10m"`
}

type Builder struct {
	cfg *Config
	log *logrus.Logger
}

func NewBuilder(log *logrus.Logger) *Builder {
	return &Builder{cfg: &Config{}, log: log}
}

func (b *Builder) FromEnv() *Builder {
	if err := env.Parse(b.cfg); err != nil {
		b.log.WithError(err).Error("failed to parse config from environment")
	}
	return b
}

func (b *Builder) FromFlags() *Builder {
	flag.StringVar(&b.cfg.Addr, "a", b.cfg.Addr, "Listen address")
	flag.StringVar(&b.cfg.DBPath, "d", b.cfg.DBPath, "SQLite database path")
	flag.StringVar(&b.cfg.LogLevel, "l", b.cfg.LogLevel, "Log level")
	flag.StringVar(&b.cfg.CacheInterval, "c", b.cfg.CacheInterval, "Checkpoint cache update interval")

	flag.Parse()
	return b
}

func (b *Builder) GetConfig() *Config {
	return b.cfg
}
