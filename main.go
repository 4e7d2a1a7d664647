package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"

	"royaltyhub/src/api"
	"royaltyhub/src/api/handlers"
	"royaltyhub/src/config"
	"royaltyhub/src/database"
	"royaltyhub/src/repositories"
	"royaltyhub/src/scheduler"
	"royaltyhub/src/services"
	"royaltyhub/src/utils"
	redis_utils "royaltyhub/src/utils/redis"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.LoadConfig("./settings")
	if err != nil {
		log.Println(err, "Error while loading config")
		return
	}
	errC, err := run(cfg)
	if err != nil {
		log.Println(err, "Couldn't run")
		return
	}

	if err := <-errC; err != nil {
		log.Println(err, "Error while running")
	}
}

func run(cfg *config.Config) (<-chan error, error) {
	errC := make(chan error, 1)

	logLevel, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		logLevel = logrus.InfoLevel
	}
	logger := utils.NewLogger(logLevel, cfg.Logging.LogToFile, cfg.Logging.FilePath)

	db, err := database.SetupDB(cfg)
	if err != nil {
		return nil, err
	}

	var cache utils.CacheStore
	if cfg.Databases.Redis.Enabled {
		cache, err = redis_utils.NewRedisCacheStore(cfg)
		if err != nil {
			return nil, err
		}
	} else {
		cache = utils.NewMemoryCacheStore()
	}

	templateRepo := repositories.NewTemplateRepository(db)
	scheduleRepo := repositories.NewScheduleRepository(db)
	analyticsRepo := repositories.NewAnalyticsRepository(db)

	resolver := services.NewResolverService(analyticsRepo, cache)
	preview := services.NewPreviewService(templateRepo, resolver, cache)
	templateService := services.NewTemplateService(templateRepo, cache)
	scheduleService := services.NewScheduleService(scheduleRepo, templateRepo)
	exporter := services.NewExcelExporter()
	mailer := services.NewSMTPMailer(cfg)

	reportScheduler := scheduler.New(cfg, scheduleRepo, preview, exporter, mailer, logger)

	handler := handlers.NewHandler(templateService, scheduleService, preview, reportScheduler, logger)
	server := api.NewServer(handler)
	httpServer := api.NewHTTPServer(server, cfg.Service.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	if cfg.Scheduler.Enabled {
		go reportScheduler.Run(ctx)
	}

	go func() {
		defer stop()
		logger.Info("Starting server on port ", cfg.Service.Port)

		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("An error raised while setting up server: ", err)
			errC <- err
		}
	}()

	go func() {
		<-ctx.Done()
		_ = httpServer.Shutdown(context.Background())
		db.Close()
		_ = cache.Close()
		errC <- nil
	}()

	return errC, nil
}
