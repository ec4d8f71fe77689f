package main

import (
	"context"
	"fmt"
	"github.com/amadeus-explorer/go-explorer/api"
	"github.com/amadeus-explorer/go-explorer/business/domain/ledger"
	"github.com/amadeus-explorer/go-explorer/business/domain/search"
	"github.com/amadeus-explorer/go-explorer/business/domain/sync"
	"github.com/amadeus-explorer/go-explorer/business/domain/tracking"
	"github.com/amadeus-explorer/go-explorer/external/node"
	"github.com/amadeus-explorer/go-explorer/external/stream"
	"github.com/amadeus-explorer/go-explorer/infrastructure/store/jsonfile"
	"github.com/amadeus-explorer/go-explorer/metrics"
	"github.com/ardanlabs/conf"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
)

const envPrefix = "AMADEUS_EXPLORER"

func main() {
	if err := run(); err != nil {
		log.Fatalf("main: exited with error: %s", err.Error())
	}
}

func run() error {
	log.SetOutput(os.Stdout) // default is stderr

	// optional, the environment wins
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] main: could not load .env file: %v", err)
	}

	var cfg struct {
		Node struct {
			ApiUrl    string        `conf:"default:https://nodes.amadeus.bot/api"`
			StreamUrl string        `conf:"default:wss://nodes.amadeus.bot/ws/rpc"`
			Timeout   time.Duration `conf:"default:20s"`
		}
		Server struct {
			HttpHost        string `conf:"default:0.0.0.0:8000"`
			MetricsHttpHost string `conf:"default:0.0.0.0:9999"`
		}
		Stream struct {
			MinReconnectInterval time.Duration `conf:"default:10s"`
			HandshakeTimeout     time.Duration `conf:"default:10s"`
		}
		Sync struct {
			MetricsNamespace string        `conf:"default:amadeus_explorer"`
			RefreshInterval  time.Duration `conf:"default:30s"`
			BlockDepth       int           `conf:"default:10"`
			TxsPerBlock      int           `conf:"default:5"`
			NumMaxWorkers    int           `conf:"default:4"`
			BlockWindow      int           `conf:"default:50"`
			TxWindow         int           `conf:"default:50"`
			MaxDetailFetches int64         `conf:"default:8"`
		}
		Cache struct {
			Ttl        time.Duration `conf:"default:1m"`
			BalanceTtl time.Duration `conf:"default:15s"`
		}
		Pflops struct {
			DataFile string `conf:"default:pflops_data.json"`
		}
	}

	if err := conf.Parse(os.Args[1:], envPrefix, &cfg); err != nil {
		switch {
		case errors.Is(err, conf.ErrHelpWanted):
			usage, err := conf.Usage(envPrefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config usage")
			}
			fmt.Println(usage)
			return nil
		case errors.Is(err, conf.ErrVersionWanted):
			version, err := conf.VersionString(envPrefix, &cfg)
			if err != nil {
				return errors.Wrap(err, "generating config version")
			}
			fmt.Println(version)
			return nil
		}
		return errors.Wrap(err, "parsing config")
	}

	out, err := conf.String(&cfg)
	if err != nil {
		return errors.Wrap(err, "generating config for output")
	}
	log.Printf("main: Config :\n%v\n", out)

	config := zap.NewProductionConfig()
	// readable date instead of epoch time
	config.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.DateTime)
	logger, err := config.Build()
	if err != nil {
		return errors.Wrap(err, "creating logger")
	}
	defer logger.Sync()
	sLogger := logger.Sugar()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	m := metrics.NewMetrics(cfg.Sync.MetricsNamespace, prometheus.DefaultRegisterer)

	client := node.NewClient(cfg.Node.ApiUrl, cfg.Node.Timeout)
	cache := node.NewCache(client, cfg.Cache.Ttl, cfg.Cache.BalanceTtl)
	cache.Start()
	defer cache.Stop()

	view := ledger.NewView(ledger.Config{
		BlockWindow:      cfg.Sync.BlockWindow,
		TxWindow:         cfg.Sync.TxWindow,
		DetailTimeout:    cfg.Node.Timeout,
		MaxDetailFetches: cfg.Sync.MaxDetailFetches,
	}, client, client, sLogger)
	defer view.Close()

	channel := stream.NewChannel(cfg.Node.StreamUrl, sLogger,
		stream.WithDialer(stream.WebsocketDialer(cfg.Stream.HandshakeTimeout)),
		stream.WithBackoff(stream.BackoffPolicy{MinInterval: cfg.Stream.MinReconnectInterval}),
		stream.WithRecorder(m),
	)
	tracker := tracking.NewTracker(channel, sLogger)
	processor := sync.NewChainProcessor(client, view, tracker, m, sync.Config{
		RefreshInterval: cfg.Sync.RefreshInterval,
		BlockDepth:      cfg.Sync.BlockDepth,
		TxsPerBlock:     cfg.Sync.TxsPerBlock,
		TxLimit:         cfg.Sync.TxWindow,
		NumMaxWorkers:   cfg.Sync.NumMaxWorkers,
		RequestTimeout:  cfg.Node.Timeout,
	}, sLogger)
	channel.OnStateChange(processor.HandleStateChange)

	store := jsonfile.NewStore(cfg.Pflops.DataFile, jsonfile.DefaultCapacity)
	server := api.NewServer(view, processor, tracker, cache, search.NewResolver(client), store, sLogger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	syncError := make(chan error, 1)
	go func() {
		syncError <- processor.Synchronize(ctx)
	}()

	streamError := make(chan error, 1)
	go func() {
		streamError <- channel.Run(ctx, processor)
	}()

	serverError := make(chan error, 1)
	go func() {
		log.Printf("main: Starting server on addr [%s].", cfg.Server.HttpHost)
		srv := &http.Server{
			Addr:              cfg.Server.HttpHost,
			Handler:           server.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		serverError <- srv.ListenAndServe()
	}()

	metricsServerError := make(chan error, 1)
	go func() {
		log.Printf("main: Starting metrics server on addr [%s].", cfg.Server.MetricsHttpHost)
		http.Handle("/metrics", promhttp.Handler())
		metricsServerError <- http.ListenAndServe(cfg.Server.MetricsHttpHost, nil)
	}()

	log.Println("main: Service started.")

	for {
		select {
		case <-shutdown:
			log.Println("main: Received shutdown signal, shutting down...")
			return nil
		case err := <-syncError:
			return errors.Wrap(err, "synchronizing")
		case err := <-streamError:
			return errors.Wrap(err, "running event stream")
		case err := <-metricsServerError:
			return errors.Wrap(err, "[ERROR] starting metrics endpoint")
		case err := <-serverError:
			return errors.Wrap(err, "[ERROR] starting server endpoint")
		}
	}
}
