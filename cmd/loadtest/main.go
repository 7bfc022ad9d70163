// Command loadtest drives one room through a baseline phase and repeated peak
// phases while reporting how many messages the store retained.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hilthontt/cipherroom/internal/domain"
	"github.com/hilthontt/cipherroom/internal/infrastructure/auth"
	"github.com/hilthontt/cipherroom/internal/infrastructure/configs"
	"github.com/hilthontt/cipherroom/internal/infrastructure/logging"
	"github.com/hilthontt/cipherroom/internal/persistence/db"
	mongorepo "github.com/hilthontt/cipherroom/internal/persistence/repository"
	"github.com/hilthontt/cipherroom/pkg/client"
	"github.com/hilthontt/cipherroom/pkg/e2ee"
)

type options struct {
	server   string
	baseline time.Duration
	peak     time.Duration
	cooldown time.Duration
	cycles   int
	peakRate int
	plain    bool
	noStats  bool
}

func main() {
	var opts options
	flag.StringVar(&opts.server, "server", "http://localhost:8080", "Base URL of the chat server")
	flag.DurationVar(&opts.baseline, "baseline", time.Minute, "Duration of the 1 msg/s baseline phase")
	flag.DurationVar(&opts.peak, "peak", time.Minute, "Duration of each peak phase")
	flag.DurationVar(&opts.cooldown, "cooldown", time.Minute, "Pause after each peak phase")
	flag.IntVar(&opts.cycles, "cycles", 2, "Number of peak phases")
	flag.IntVar(&opts.peakRate, "peak-rate", 10, "Messages per second during a peak phase")
	flag.BoolVar(&opts.plain, "plain", false, "Send plaintext instead of encrypted envelopes")
	flag.BoolVar(&opts.noStats, "no-stats", false, "Skip reading message counts from the store")

	// DetermineConfigPath registers --config and parses the command line.
	cfg, err := configs.Load(configs.DetermineConfigPath())
	if err != nil {
		log.Fatal(err)
	}

	logger := logging.NewLogger(&cfg.Logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, opts, logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Fatal(logging.General, logging.Startup, "load test failed", map[logging.ExtraKey]any{
			logging.ErrorMessage: err.Error(),
		})
	}
}

func run(ctx context.Context, cfg *configs.Config, opts options, logger logging.Logger) error {
	counter, closeCounter, err := openCounter(ctx, cfg, opts, logger)
	if err != nil {
		return err
	}
	defer closeCounter()

	verifier, err := auth.NewVerifier(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
	if err != nil {
		return err
	}
	token, err := verifier.Sign("loadtest-"+uuid.NewString(), "LoadOwner", time.Hour)
	if err != nil {
		return fmt.Errorf("sign owner token: %w", err)
	}

	owner, err := client.Dial(ctx, opts.server, client.Options{Token: token})
	if err != nil {
		return err
	}
	defer owner.Close()

	codes := make(chan string, 1)
	go listen(ctx, owner, "owner", logger, func(f client.Frame) {
		if f.Type != client.RoomMetadata {
			return
		}
		if meta, err := client.Decode[client.Metadata](f); err == nil {
			select {
			case codes <- meta.Code:
			default:
			}
		}
	})

	if err := owner.CreateRoom("LoadOwner", "Load Test Room", ""); err != nil {
		return err
	}

	var code string
	select {
	case code = <-codes:
	case <-time.After(5 * time.Second):
		return errors.New("no room code received")
	case <-ctx.Done():
		return ctx.Err()
	}

	logger.Info(logging.Room, logging.Create, "room created", map[logging.ExtraKey]any{
		logging.RoomRef: domain.RoomRef(code),
	})

	sender, err := client.Dial(ctx, opts.server, client.Options{})
	if err != nil {
		return err
	}
	defer sender.Close()

	joined := make(chan struct{})
	go listen(ctx, sender, "sender", logger, func(f client.Frame) {
		if f.Type == client.ChatHistory {
			select {
			case <-joined:
			default:
				close(joined)
			}
		}
	})

	if err := sender.JoinRoom(code, "LoadSender", "", ""); err != nil {
		return err
	}

	select {
	case <-joined:
	case <-time.After(5 * time.Second):
		return errors.New("sender did not join")
	case <-ctx.Done():
		return ctx.Err()
	}

	sealer, err := e2ee.ForRoom(code)
	if err != nil {
		return err
	}
	send := func(text string) error {
		if opts.plain {
			return sender.SendText(text)
		}
		return sender.SendEncrypted(sealer, text)
	}

	report := func(label string) {
		if counter == nil {
			return
		}
		count, err := counter.CountByRoom(ctx, code)
		if err != nil {
			logger.Warn(logging.MongoDB, logging.Load, "count failed", map[logging.ExtraKey]any{
				logging.ErrorMessage: err.Error(),
			})
			return
		}
		logger.Info(logging.Retention, logging.Load, "stats "+label, map[logging.ExtraKey]any{
			logging.RoomRef: domain.RoomRef(code),
			logging.Count:   count,
		})
	}

	logger.Infof("baseline start (1 msg/s for %s)", opts.baseline)
	if err := phase(ctx, opts.baseline, 1, "baseline", send, func(sent int) {
		if sent%10 == 0 {
			report(fmt.Sprintf("baseline sent=%d", sent))
		}
	}); err != nil {
		return err
	}
	report("baseline end")

	for cycle := 1; cycle <= opts.cycles; cycle++ {
		logger.Infof("peak cycle %d start (%d msg/s for %s)", cycle, opts.peakRate, opts.peak)
		if err := phase(ctx, opts.peak, opts.peakRate, fmt.Sprintf("peak%d", cycle), send, func(sent int) {
			if sent%100 == 0 {
				report(fmt.Sprintf("peak cycle %d sent=%d", cycle, sent))
			}
		}); err != nil {
			return err
		}
		report(fmt.Sprintf("peak cycle %d end", cycle))

		logger.Infof("cooldown %s", opts.cooldown)
		select {
		case <-time.After(opts.cooldown):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	report("done")
	return nil
}

// phase sends rate messages per second for d, calling tick after each send.
func phase(ctx context.Context, d time.Duration, rate int, label string, send func(string) error, tick func(int)) error {
	if rate <= 0 || d <= 0 {
		return nil
	}

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	deadline := time.After(d)
	sent := 0
	for {
		select {
		case <-ticker.C:
			if err := send(fmt.Sprintf("%s %d", label, sent)); err != nil {
				return err
			}
			sent++
			tick(sent)
		case <-deadline:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func listen(ctx context.Context, c *client.Client, who string, logger logging.Logger, handle func(client.Frame)) {
	err := c.Listen(ctx, func(f client.Frame) {
		if f.Type == client.ErrorMessage {
			if serverErr, err := client.Decode[client.ServerError](f); err == nil {
				logger.Warn(logging.WebSocket, logging.Dispatch, "server error", map[logging.ExtraKey]any{
					logging.Username:     who,
					logging.ErrorMessage: serverErr.Error(),
				})
			}
			return
		}
		handle(f)
	})
	if err != nil && ctx.Err() == nil {
		logger.Error(logging.WebSocket, logging.Connection, "connection lost", map[logging.ExtraKey]any{
			logging.Username:     who,
			logging.ErrorMessage: err.Error(),
		})
	}
}

type messageCounter interface {
	CountByRoom(ctx context.Context, roomCode string) (int64, error)
}

func openCounter(ctx context.Context, cfg *configs.Config, opts options, logger logging.Logger) (messageCounter, func(), error) {
	if opts.noStats || cfg.Store.Driver != configs.StoreDriverMongo {
		return nil, func() {}, nil
	}

	mongoCfg := &db.MongoConfig{
		URI:               cfg.Store.Mongo.URI,
		Database:          cfg.Store.Mongo.Database,
		ConnectionTimeout: cfg.Store.Mongo.ConnectionTimeout,
	}
	mongoClient, err := db.NewMongoClient(ctx, mongoCfg, logger)
	if err != nil {
		return nil, nil, err
	}

	repo := mongorepo.NewMessageRepository(db.GetDatabase(mongoClient, mongoCfg))
	return repo, func() { _ = db.DisconnectMongo(context.Background(), mongoClient) }, nil
}
