package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	auth "github.com/yapyap/go-auth"
	"github.com/yapyap/go-auth/blobstore"
	"github.com/yapyap/go-auth/config"
	"github.com/yapyap/go-auth/mailer"
	"github.com/yapyap/go-auth/middleware/ratelimit"
	"github.com/yapyap/go-auth/observability"
	"github.com/yapyap/go-auth/store"
)

const mediaPrefix = "/media"

func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the auth HTTP server",
		Args:  cobra.NoArgs,
		RunE:  runServe,
	}

	cmd.Flags().String("server.addr", ":5001", "HTTP listen address")
	cmd.Flags().String("server.metrics_addr", ":9090", "metrics and health listen address")
	cmd.Flags().String("auth.client_base_url", "http://localhost:5173", "base URL of the chat client")

	return cmd
}

// server is the assembled process: HTTP app plus the resources it owns.
type server struct {
	cfg     *config.Config
	logger  auth.Logger
	http    router.Server[*fiber.App]
	app     *fiber.App
	db      *bun.DB
	obs     *observability.Server
	closers []func() error
}

func (s *server) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if cfg.Debug {
		redacted := *cfg
		redacted.Auth.SigningKey = "********"
		redacted.Mail.Password = "********"
		redacted.Storage.SecretKey = "********"
		redacted.RateLimit.RedisPassword = "********"
		fmt.Fprintln(cmd.ErrOrStderr(), print.MaybePrettyJSON(redacted))
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := auth.NewSlogLogger(newLogger(cfg.Log, cmd.ErrOrStderr()))

	srv, err := buildServer(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer srv.Close()

	obsErr, err := srv.obs.Start()
	if err != nil {
		return err
	}

	httpErr := make(chan error, 1)
	go func() {
		logger.Info("auth server listening", "addr", cfg.Server.Addr, "base_path", cfg.Server.BasePath)
		httpErr <- srv.http.Serve(cfg.Server.Addr)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-httpErr:
	case err = <-obsErr:
	}

	if shutdownErr := srv.app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout); shutdownErr != nil {
		logger.Error("http shutdown failed", "error", shutdownErr)
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if stopErr := srv.obs.Stop(stopCtx); stopErr != nil {
		logger.Error("observability shutdown failed", "error", stopErr)
	}

	return err
}

func buildServer(ctx context.Context, cfg *config.Config, logger auth.Logger) (*server, error) {
	srv := &server{cfg: cfg, logger: logger}

	db, err := openDatabase(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	srv.db = db
	srv.closers = append(srv.closers, db.Close)

	if cfg.Database.AutoMigrate {
		if err := store.Migrate(ctx, db); err != nil {
			_ = srv.Close()
			return nil, fmt.Errorf("migrate: %w", err)
		}
	}

	blobs, media, err := newBlobStore(ctx, cfg.Storage)
	if err != nil {
		_ = srv.Close()
		return nil, err
	}

	srv.obs = observability.NewServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		return db.PingContext(ctx)
	}, logger)

	deps := auth.Dependencies{
		Config: cfg,
		Logger: logger,
		Repo:   auth.NewRepositoryManager(db, auth.WithHashidAccountIDs(cfg.Auth.UseHashid)),
		Codec: auth.NewTokenCodec(
			[]byte(cfg.Auth.SigningKey),
			cfg.Auth.Issuer,
			auth.WithCodecLogger(logger),
		),
		Mailer:   newMailer(cfg.Mail, logger),
		Blobs:    blobs,
		Metrics:  srv.obs.Metrics(),
		Activity: auth.NewLogActivitySink(logger),
	}

	var opts []auth.AuthControllerOption
	if cfg.RateLimit.Enabled {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RateLimit.RedisAddr,
			Password: cfg.RateLimit.RedisPassword,
			DB:       cfg.RateLimit.RedisDB,
		})
		srv.closers = append(srv.closers, rdb.Close)

		opts = append(opts, auth.WithLimiter(ratelimit.New(rdb, ratelimit.Config{
			Max:          cfg.RateLimit.Max,
			Window:       cfg.RateLimit.Window,
			ErrorHandler: auth.NewErrorHandler(logger),
			FailOpen:     true,
			Logger:       logger,
		})))
	}

	controller := auth.NewAuthController(deps, opts...)
	srv.http = newHTTPServer(cfg, controller, media, logger)
	srv.app = srv.http.WrappedRouter()

	return srv, nil
}

func newHTTPServer(cfg *config.Config, controller *auth.AuthController, media *blobstore.Memory, logger auth.Logger) router.Server[*fiber.App] {
	srv := router.NewFiberAdapter(func(_ *fiber.App) *fiber.App {
		app := fiber.New(fiber.Config{
			AppName:               "yapyap-auth",
			BodyLimit:             cfg.Server.BodyLimit,
			DisableStartupMessage: true,
			ErrorHandler:          fallbackErrorHandler(logger),
		})
		app.Use(recover.New())
		app.Use(cors.New(cors.Config{
			AllowOrigins:     strings.TrimRight(cfg.Auth.ClientBaseURL, "/"),
			AllowCredentials: true,
			AllowMethods:     "GET,POST,PUT,OPTIONS",
		}))
		return app
	})

	controller.RegisterRoutes(srv.Router().Group(cfg.Server.BasePath))

	if media != nil {
		srv.WrappedRouter().Get(mediaPrefix+"/*", media.Serve)
	}

	return srv
}

// fallbackErrorHandler covers what never reaches a route handler: unknown
// paths, oversized bodies and recovered panics.
func fallbackErrorHandler(logger auth.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := auth.MsgInternalServerError

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			code = fiberErr.Code
			message = fiberErr.Message
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("unhandled request error", "error", err, "path", c.Path())
		}

		return c.Status(code).JSON(auth.ErrorResponse{Message: message})
	}
}

func openDatabase(ctx context.Context, cfg *config.Config, logger auth.Logger) (*bun.DB, error) {
	return store.Open(ctx, store.Options{
		Driver:         cfg.Database.Driver,
		DSN:            cfg.Database.DSN,
		MaxOpenConns:   cfg.Database.MaxOpenConns,
		ConnectRetries: cfg.Database.ConnectRetries,
		ConnectBackoff: cfg.Database.ConnectBackoff,
		Logger:         logger,
	})
}

func newMailer(cfg config.MailConfig, logger auth.Logger) auth.Mailer {
	if cfg.Driver == "smtp" {
		return mailer.NewSMTP(mailer.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
			TLS:      cfg.TLS,
		}, logger)
	}
	return mailer.NewLog(logger)
}

// newBlobStore returns the configured store. The memory store is also
// returned on its own so the app can serve its objects.
func newBlobStore(ctx context.Context, cfg config.StorageConfig) (auth.BlobStore, *blobstore.Memory, error) {
	if cfg.Driver == "s3" {
		s3, err := blobstore.NewS3(ctx, blobstore.S3Config{
			Bucket:        cfg.Bucket,
			Region:        cfg.Region,
			Endpoint:      cfg.Endpoint,
			AccessKey:     cfg.AccessKey,
			SecretKey:     cfg.SecretKey,
			PublicBaseURL: cfg.PublicBaseURL,
			UsePathStyle:  cfg.UsePathStyle,
		})
		if err != nil {
			return nil, nil, err
		}
		return s3, nil, nil
	}

	mem := blobstore.NewMemory(cfg.PublicBaseURL)
	return mem, mem, nil
}
