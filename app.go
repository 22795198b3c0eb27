// Package tradeclient assembles the signed exchange client, the generation
// guarded state and the operator control surface into one App.
package tradeclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/google/uuid"
	"github.com/layer-3/tradeclient/adapters/events"
	"github.com/layer-3/tradeclient/adapters/exchange"
	"github.com/layer-3/tradeclient/adapters/signer"
	"github.com/layer-3/tradeclient/adapters/store"
	"github.com/layer-3/tradeclient/adapters/tokenizer"
	"github.com/layer-3/tradeclient/config"
	"github.com/layer-3/tradeclient/core"
	"github.com/layer-3/tradeclient/metrics"
	"github.com/layer-3/tradeclient/ports"
	"github.com/layer-3/tradeclient/service"
	transport "github.com/layer-3/tradeclient/transport/http"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// App owns every long-lived component of the trade client
type App struct {
	cfg       *config.Config
	log       logrus.FieldLogger
	state     *service.AppState
	tokenizer *tokenizer.JWTTokenizer
	metrics   *metrics.Metrics
	publisher message.Publisher
	redis     *redis.Client
	router    http.Handler
}

// New wires the app from cfg. With a redis_url credentials live in a Redis hash
// and events go to Redis streams; without one both stay in process.
func New(ctx context.Context, cfg *config.Config, log logrus.FieldLogger) (*App, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}

	policy, err := service.ParseLatePolicy(cfg.LateResultPolicy)
	if err != nil {
		return nil, err
	}

	app := &App{
		cfg:     cfg,
		log:     log,
		metrics: metrics.New("tradeclient"),
	}

	wmLogger := watermill.NewStdLogger(false, false)

	var creds ports.CredentialStore
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse redis url: %w", err)
		}
		app.redis = redis.NewClient(opts)
		if err := app.redis.Ping(ctx).Err(); err != nil {
			app.redis.Close()
			return nil, fmt.Errorf("failed to reach redis: %w", err)
		}

		creds = store.NewRedisStore(app.redis, cfg.Account)
		app.publisher, err = redisstream.NewPublisher(redisstream.PublisherConfig{Client: app.redis}, wmLogger)
		if err != nil {
			app.redis.Close()
			return nil, fmt.Errorf("failed to create redis publisher: %w", err)
		}
	} else {
		log.Warn("No redis_url configured, credentials and events stay in memory")
		creds = store.NewMemoryStore()
		app.publisher = gochannel.NewGoChannel(gochannel.Config{}, wmLogger)
	}

	client, err := exchange.NewHTTPClient(exchange.Config{
		Domain:            cfg.Domain,
		SigningDomain:     cfg.SigningDomain,
		Scheme:            cfg.Scheme,
		UserAgent:         cfg.UserAgent,
		Timeout:           cfg.HTTPTimeout,
		RequestsPerSecond: cfg.RateLimit.RPS,
		Burst:             cfg.RateLimit.Burst,
		Logger:            log,
		Metrics:           app.metrics,
	}, creds, signer.NewHMACSigner(), core.NewNonceSequencer(time.Now))
	if err != nil {
		app.Close()
		return nil, err
	}

	app.state = service.NewAppState(client, creds, core.NewGenerationGuard(), events.NewWatermillPublisher(app.publisher), service.Options{
		Timeout:    cfg.OperationTimeout,
		LatePolicy: policy,
		Origin: service.LoginOrigin{
			ClientType:     cfg.App.ClientType,
			OS:             config.PlatformOS(),
			AppVersion:     cfg.App.Version,
			AppBuildNumber: cfg.App.BuildNumber,
			AppTier:        cfg.App.Tier,
		},
		Logger:  log,
		Metrics: app.metrics,
	})

	app.tokenizer, err = tokenizer.NewJWTTokenizer([]byte(cfg.ControlTokenSecret))
	if err != nil {
		app.Close()
		return nil, err
	}

	app.router = transport.SetupRouter(app.state, app.tokenizer, app.metrics, log)
	return app, nil
}

// Client returns the state every screen talks to
func (a *App) Client() Client {
	return a.state
}

// Handler returns the control surface
func (a *App) Handler() http.Handler {
	return a.router
}

// Publisher exposes the underlying event publisher
func (a *App) Publisher() message.Publisher {
	return a.publisher
}

// IssueOperatorToken signs a control surface token valid for the configured TTL
func (a *App) IssueOperatorToken(subject string) (string, time.Time, error) {
	now := time.Now()
	expires := now.Add(a.cfg.ControlTokenTTL)
	token, err := a.tokenizer.SessionToToken(&ports.OperatorSession{
		ID:        uuid.New().String(),
		Subject:   subject,
		IssuedAt:  now,
		ExpiresAt: expires,
	})
	if err != nil {
		return "", time.Time{}, err
	}
	return token, expires, nil
}

// Serve runs the control surface until ctx is done, then drains late responses
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              a.cfg.ListenAddr,
		Handler:           a.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithFields(logrus.Fields{"addr": a.cfg.ListenAddr, "domain": a.cfg.Domain}).Info("Control surface listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to serve: %w", err)
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := srv.Shutdown(shutdownCtx)
	a.state.Wait()
	return err
}

// Close releases the publisher and the Redis connection
func (a *App) Close() error {
	var errs []error
	if a.publisher != nil {
		errs = append(errs, a.publisher.Close())
	}
	if a.redis != nil {
		errs = append(errs, a.redis.Close())
	}
	return errors.Join(errs...)
}
