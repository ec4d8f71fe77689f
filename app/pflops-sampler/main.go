package main

import (
	"context"
	"fmt"
	"github.com/amadeus-explorer/go-explorer/external/node"
	"github.com/amadeus-explorer/go-explorer/infrastructure/store/jsonfile"
	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"log"
	"os"
	"time"
)

const envPrefix = "AMADEUS_PFLOPS_SAMPLER"

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	log.SetOutput(os.Stdout)

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] main: could not load .env file: %v", err)
	}

	var cfg struct {
		ApiUrl   string        `conf:"default:https://nodes.amadeus.bot/api"`
		DataFile string        `conf:"default:pflops_data.json"`
		Timeout  time.Duration `conf:"default:30s"`
		Capacity int           `conf:"default:720"`
	}

	// environment only, this runs from a scheduler
	if err := conf.Parse(nil, envPrefix, &cfg); err != nil {
		if errors.Is(err, conf.ErrHelpWanted) {
			usage, err := conf.Usage(envPrefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config usage")
			}
			fmt.Println(usage)
			return nil
		}
		return errors.Wrap(err, "parsing config")
	}

	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)
	logger, err := config.Build()
	if err != nil {
		return errors.Wrap(err, "creating logger")
	}
	defer logger.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	client := node.NewClient(cfg.ApiUrl, cfg.Timeout)
	store := jsonfile.NewStore(cfg.DataFile, cfg.Capacity)
	sampler := NewSampler(client, store, logger.Sugar())
	return sampler.Collect(ctx, time.Now())
}
