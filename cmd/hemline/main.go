package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/xxxsen/hemline/internal/config"
	"github.com/xxxsen/hemline/internal/db"
	"github.com/xxxsen/hemline/internal/filestore"
	"github.com/xxxsen/hemline/internal/handler"
	"github.com/xxxsen/hemline/internal/job"
	"github.com/xxxsen/hemline/internal/mailer"
	"github.com/xxxsen/hemline/internal/middleware"
	"github.com/xxxsen/hemline/internal/notify"
	"github.com/xxxsen/hemline/internal/pkg/adminkey"
	"github.com/xxxsen/hemline/internal/pkg/jwt"
	"github.com/xxxsen/hemline/internal/repo"
	"github.com/xxxsen/hemline/internal/schedule"
	"github.com/xxxsen/hemline/internal/service"
	"github.com/xxxsen/hemline/internal/throttle"
)

const (
	shutdownTimeout  = 15 * time.Second
	notifyTimeout    = 30 * time.Second
	jobTimeout       = 10 * time.Minute
	credentialRetain = 24 * time.Hour
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "hemline",
		Short: "hemline account and session service",
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "apply migrations and run the api server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			return runServer(cfg, conn)
		},
	}

	migrateCmd := &cobra.Command{
		Use:   "migrate",
		Short: "apply database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			version, err := db.MigrationVersion(conn)
			if err != nil {
				return err
			}
			logutil.GetLogger(context.Background()).Info("migrations applied", zap.Int64("version", version))
			return nil
		},
	}

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "delete accounts whose deletion grace window has passed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, conn, err := bootstrap(configPath)
			if err != nil {
				return err
			}
			defer conn.Close()
			a, err := buildApp(cfg, conn)
			if err != nil {
				return err
			}
			deleted, err := a.accounts.SweepExpiredDeletions(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d accounts\n", deleted)
			return nil
		},
	}

	var presetKey string
	adminKeyCmd := &cobra.Command{
		Use:   "admin-key",
		Short: "generate an admin key and the hash for admin_key_hash",
		RunE: func(cmd *cobra.Command, args []string) error {
			key := presetKey
			if key == "" {
				generated, err := adminkey.Generate()
				if err != nil {
					return err
				}
				key = generated
			}
			hash, err := adminkey.Hash(key)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "key:  %s\nhash: %s\n", key, hash)
			return nil
		},
	}
	adminKeyCmd.Flags().StringVar(&presetKey, "key", "", "hash this key instead of generating one")

	rootCmd.AddCommand(runCmd, migrateCmd, sweepCmd, adminKeyCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func bootstrap(configPath string) (*config.Config, *sqlx.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	conn, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(conn); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, conn, nil
}

type app struct {
	notifier *notify.Notifier
	sessions *service.SessionService
	accounts *service.AccountService
	profiles *service.UserService
	waitlist *service.WaitlistService
	clients  *service.ClientService
	orders   *service.OrderService
	gallery  *service.GalleryService
	folders  *service.FolderService
	creds    *service.CredentialService
	tokens   *service.TokenService
	store    filestore.Store
	cookie   *handler.RefreshCookie
}

func buildApp(cfg *config.Config, conn *sqlx.DB) (*app, error) {
	sender, err := mailer.New(cfg.Mail)
	if err != nil {
		return nil, fmt.Errorf("init mailer: %w", err)
	}
	store, err := filestore.New(cfg.FileStore, cfg.PublicBaseURL)
	if err != nil {
		return nil, fmt.Errorf("init file store: %w", err)
	}
	limiter, err := throttle.New(cfg.Throttle, time.Duration(cfg.LoginCooldownSeconds)*time.Second)
	if err != nil {
		return nil, fmt.Errorf("init login throttle: %w", err)
	}
	notifier := notify.NewNotifier(sender, notifyTimeout)

	userRepo := repo.NewUserRepo(conn)
	credRepo := repo.NewCredentialRepo(conn)
	tokenRepo := repo.NewTokenRepo(conn)

	codec := jwt.NewCodec([]byte(cfg.JWTSecret))
	tokens := service.NewTokenService(tokenRepo, codec,
		time.Duration(cfg.AccessTokenTTLMinutes)*time.Minute,
		time.Duration(cfg.RefreshTokenTTLDays)*24*time.Hour,
	)
	creds := service.NewCredentialService(conn, credRepo, time.Duration(cfg.CredentialTTLMinutes)*time.Minute)
	grace := time.Duration(cfg.DeletionGraceDays) * 24 * time.Hour

	clientRepo := repo.NewClientRepo(conn)
	galleryRepo := repo.NewGalleryRepo(conn)
	folderRepo := repo.NewFolderRepo(conn)
	orders := service.NewOrderService(conn, repo.NewOrderRepo(conn), clientRepo)

	return &app{
		notifier: notifier,
		sessions: service.NewSessionService(conn, userRepo, creds, tokens, notifier, limiter, cfg.ClientBaseURL),
		accounts: service.NewAccountService(conn, userRepo, credRepo, tokens, notifier, store, grace),
		profiles: service.NewUserService(userRepo, store, notifier, cfg.UploadMaxBytes),
		waitlist: service.NewWaitlistService(repo.NewWaitlistRepo(conn), notifier),
		clients:  service.NewClientService(conn, clientRepo, orders),
		orders:   orders,
		gallery:  service.NewGalleryService(conn, galleryRepo, folderRepo, store, cfg.UploadMaxBytes),
		folders:  service.NewFolderService(conn, folderRepo, galleryRepo, userRepo, notifier, cfg.ClientBaseURL),
		creds:    creds,
		tokens:   tokens,
		store:    store,
		cookie:   handler.NewRefreshCookie(cfg.Cookie, tokens.RefreshTTL()),
	}, nil
}

func runServer(cfg *config.Config, conn *sqlx.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("mail_provider", cfg.Mail.Provider),
		zap.String("file_store", cfg.FileStore.Type),
		zap.String("throttle", cfg.Throttle.Type),
	)
	a, err := buildApp(cfg, conn)
	if err != nil {
		return err
	}

	deps := handler.RouterDeps{
		Auth:          handler.NewAuthHandler(a.sessions, a.cookie),
		Users:         handler.NewUserHandler(a.profiles),
		Accounts:      handler.NewAccountHandler(a.accounts, a.cookie),
		Waitlist:      handler.NewWaitlistHandler(a.waitlist),
		Files:         handler.NewFileHandler(a.store),
		Clients:       handler.NewClientHandler(a.clients, a.orders),
		Orders:        handler.NewOrderHandler(a.orders),
		Gallery:       handler.NewGalleryHandler(a.gallery),
		Folders:       handler.NewFolderHandler(a.folders),
		Health:        handler.NewHealthHandler(conn),
		Authenticator: a.sessions,
		AdminKeyHash:  cfg.AdminKeyHash,
		RateWindow:    time.Duration(cfg.RateLimitWindowMs) * time.Millisecond,
	}

	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Port)
	engine, err := webapi.NewEngine(
		"/api/v1",
		addr,
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var scheduler *schedule.CronScheduler
	if !cfg.Schedule.Disabled {
		scheduler = schedule.NewCronScheduler(jobTimeout)
		if err := scheduler.AddJob(job.NewDeletionSweepJob(a.accounts), cfg.Schedule.SweepSpec); err != nil {
			return err
		}
		if err := scheduler.AddJob(job.NewCredentialCleanupJob(a.creds, a.tokens, credentialRetain), cfg.Schedule.CleanupSpec); err != nil {
			return err
		}
		scheduler.Start(ctx)
	}

	errCh := make(chan error, 1)
	go func() {
		logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", addr))
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
	}
	logutil.GetLogger(context.Background()).Info("server stopping...")
	if scheduler != nil {
		scheduler.Stop()
	}

	drained := make(chan struct{})
	go func() {
		a.notifier.Wait()
		close(drained)
	}()
	select {
	case <-drained:
	case <-time.After(shutdownTimeout):
		logutil.GetLogger(context.Background()).Warn("pending notifications abandoned")
	}
	return nil
}
