package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/rocketscienceinc/rps-backend/internal/config"
	"github.com/rocketscienceinc/rps-backend/internal/repository"
	"github.com/rocketscienceinc/rps-backend/internal/repository/storage"
	"github.com/rocketscienceinc/rps-backend/internal/service"
	"github.com/rocketscienceinc/rps-backend/internal/usecase"
	"github.com/rocketscienceinc/rps-backend/transport/events"
	"github.com/rocketscienceinc/rps-backend/transport/rest"
	"github.com/rocketscienceinc/rps-backend/transport/websocket"
)

var ErrAddrNotFound = errors.New("redis address string is empty")

// RunApp - runs the application.
func RunApp(logger *slog.Logger, conf *config.Config) error {
	log := logger.With("component", "app")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigs
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	redisAddrString := conf.Redis.GetRedisAddr()
	if redisAddrString == "" {
		return ErrAddrNotFound
	}

	redisStorage, err := storage.New(ctx, redisAddrString)
	if err != nil {
		return fmt.Errorf("could not connect to redis storage: %w", err)
	}

	defer func() {
		if err = redisStorage.Close(); err != nil {
			log.Error("could not close redis storage", "error", err)
		}
	}()

	hub := websocket.NewHub(logger)
	roomRepo := repository.NewRoomRepository()
	resultRepo := repository.NewResultRepository(redisStorage, conf.Results.TTL)
	matchManager := usecase.NewMatchManager(logger, roomRepo, hub, resultRepo, conf.Room.CodeAttempts)

	if conf.NATS.Enabled() {
		conn, err := events.Connect(conf.NATS.URL)
		if err != nil {
			return fmt.Errorf("could not connect to nats: %w", err)
		}

		publisher := events.NewPublisher(conn, conf.NATS.SubjectPrefix)
		defer func() {
			if err := publisher.Close(); err != nil {
				log.Error("could not close nats publisher", "error", err)
			}
		}()

		matchManager.SetPublisher(publisher)
		log.Info("Mirroring room events to NATS", "prefix", conf.NATS.SubjectPrefix)
	}

	soloService := service.NewSoloService(logger, service.NewBotService())

	// every goroutine stops when ctx is cancelled or one of them fails; Wait returns only
	// after both servers have drained, so the deferred closes never race a handler
	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		matchManager.RunJanitor(groupCtx, conf.Room.CleanupInterval, conf.Room.IdleTTL)
		return nil
	})

	// run HTTP server
	group.Go(func() error {
		log.Info("Starting HTTP server", "port", conf.HTTPPort)
		handlers := rest.NewHandlers(logger, matchManager, conf.ClientURL)
		if httpErr := rest.Start(groupCtx, logger, handlers, conf.HTTPPort); httpErr != nil {
			log.Error("HTTP server error", "error", httpErr)
			return fmt.Errorf("HTTP server error: %w", httpErr)
		}
		return nil
	})

	// run Websocket server
	group.Go(func() error {
		log.Info("Starting WebSocket server", "port", conf.SocketPort)
		wsServer := websocket.New(logger, hub, matchManager, soloService)
		if wsErr := wsServer.Start(groupCtx, conf.SocketPort); wsErr != nil {
			log.Error("WebSocket server error", "error", wsErr)
			return fmt.Errorf("WebSocket server error: %w", wsErr)
		}
		return nil
	})

	if err = group.Wait(); err != nil {
		return err
	}

	log.Info("Application stopped")

	return nil
}
