package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"

	"github.com/dpdjournals/marketing-service/internal/campaign"
	"github.com/dpdjournals/marketing-service/internal/common"
	"github.com/dpdjournals/marketing-service/internal/site"
	"github.com/dpdjournals/marketing-service/internal/storage"
	"github.com/dpdjournals/marketing-service/internal/track"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := common.LoadConfig("marketing-service")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := common.NewLogger(cfg.ServiceName)
	shutdown, err := common.SetupOTel(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialise telemetry")
	}
	defer common.ShutdownTelemetry(context.Background(), shutdown)

	metricsSrv := common.StartMetricsServer(cfg.MetricsPort)
	defer metricsSrv.Shutdown(context.Background())

	db, err := storage.Open(cfg.DBPath)
	if err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DBPath).Msg("open database")
	}
	defer db.Close()

	campaignStore, err := campaign.NewSQLiteStore(db)
	if err != nil {
		logger.Fatal().Err(err).Msg("init campaign store")
	}
	visitStore, err := track.NewStore(db)
	if err != nil {
		logger.Fatal().Err(err).Msg("init visit store")
	}
	blogStore, err := site.NewStore(db)
	if err != nil {
		logger.Fatal().Err(err).Msg("init blog store")
	}

	emitter, closeEmitter := buildEmitter(cfg, logger)
	defer closeEmitter()

	dispatcher := campaign.NewDispatcher(
		campaignStore,
		buildSenders(logger),
		emitter,
		visitStore,
		logger,
	)

	driver := &campaign.Driver{
		Interval: cfg.SchedulerInterval,
		Cycle:    dispatcher.RunCycle,
		Logger:   logger,
	}
	if err := driver.Start(ctx); err != nil {
		// Double start is a wiring bug, not a reason to crash.
		logger.Warn().Err(err).Msg("scheduler start skipped")
	}
	defer driver.Stop()

	r := chi.NewRouter()
	campaign.NewHandler(campaignStore, driver, logger).Routes(r)
	track.NewHandler(visitStore, logger).Routes(r)
	site.NewHandler(blogStore, cfg.SiteBase, logger).Routes(r)

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.HTTPPort),
		Handler: r,
	}

	go func() {
		logger.Info().Int("port", cfg.HTTPPort).Msg("marketing service listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	<-ctx.Done()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
}

func buildSenders(logger zerolog.Logger) map[campaign.Channel]campaign.Sender {
	senders := map[campaign.Channel]campaign.Sender{
		campaign.ChannelEmail: &campaign.EmailSender{Logger: logger},
	}
	for _, network := range []campaign.Channel{
		campaign.ChannelX,
		campaign.ChannelLinkedIn,
		campaign.ChannelFacebook,
		campaign.ChannelInstagram,
	} {
		senders[network] = &campaign.SocialSender{Network: network, Logger: logger}
	}
	return senders
}

func buildEmitter(cfg *common.Config, logger zerolog.Logger) (campaign.Emitter, func()) {
	if len(cfg.KafkaBrokers) == 0 {
		return &campaign.LogEmitter{Logger: logger}, func() {}
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(cfg.KafkaBrokers...),
		Topic:    cfg.CampaignEventsTopic,
		Balancer: &kafka.Hash{},
	}
	return &campaign.KafkaEmitter{Writer: writer}, func() { _ = writer.Close() }
}
