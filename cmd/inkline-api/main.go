package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkline-labs/inkline/internal/auth"
	"github.com/inkline-labs/inkline/internal/blame"
	"github.com/inkline-labs/inkline/internal/config"
	"github.com/inkline-labs/inkline/internal/database"
	"github.com/inkline-labs/inkline/internal/logging"
	"github.com/inkline-labs/inkline/internal/notes"
	"github.com/inkline-labs/inkline/internal/realtime"
	"github.com/inkline-labs/inkline/internal/server"
	"github.com/inkline-labs/inkline/internal/users"
)

var cfgFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "inkline-api",
		Short: "Inkline notes backend with line-level attribution",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context())
		},
	}

	setupFlags(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupFlags(cmd *cobra.Command) {
	config.ApplyDefaults(viper.GetViper())
	defaults := config.NewViper()
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Path to configuration file")
	cmd.PersistentFlags().String("http-address", defaults.GetString("http.address"), "HTTP listen address")
	cmd.PersistentFlags().String("database-driver", defaults.GetString("database.driver"), "Database driver (sqlite, postgres)")
	cmd.PersistentFlags().String("database-path", defaults.GetString("database.path"), "SQLite database path")
	cmd.PersistentFlags().String("database-dsn", defaults.GetString("database.dsn"), "Postgres connection string")
	cmd.PersistentFlags().String("redis-address", defaults.GetString("redis.address"), "Redis address for cross-replica events (optional)")
	cmd.PersistentFlags().String("log-level", defaults.GetString("log.level"), "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("signing-secret", "", "Bearer token signing secret (overrides env)")

	bindFlag(cmd, "http.address", "http-address")
	bindFlag(cmd, "database.driver", "database-driver")
	bindFlag(cmd, "database.path", "database-path")
	bindFlag(cmd, "database.dsn", "database-dsn")
	bindFlag(cmd, "redis.address", "redis-address")
	bindFlag(cmd, "log.level", "log-level")
	bindFlag(cmd, "auth.signing_secret", "signing-secret")
}

func bindFlag(cmd *cobra.Command, key, flag string) {
	if err := viper.BindPFlag(key, cmd.PersistentFlags().Lookup(flag)); err != nil {
		panic(err)
	}
}

func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	}

	if err := viper.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if cfgFile != "" && errors.As(err, &configNotFound) {
			return err
		}
	}

	return nil
}

func openDatabase(appConfig config.AppConfig, logger *zap.Logger) (*gorm.DB, blame.Dialect, error) {
	switch appConfig.DatabaseDriver {
	case config.DriverPostgres:
		db, err := database.OpenPostgres(appConfig.DatabaseDSN, logger)
		return db, blame.PostgresDialect{}, err
	default:
		db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
		return db, blame.SQLiteDialect{}, err
	}
}

func runServer(ctx context.Context) error {
	appConfig, err := config.Load(viper.GetViper())
	if err != nil {
		return err
	}

	logger, err := logging.NewLogger(appConfig.LogLevel)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	db, dialect, err := openDatabase(appConfig, logger)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	signalCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dispatcher := realtime.NewDispatcher()
	var notifier blame.NotificationPort = dispatcher
	if appConfig.RedisAddress != "" {
		bridge, err := realtime.NewRedisBridge(realtime.RedisBridgeConfig{
			Client: redis.NewClient(&redis.Options{Addr: appConfig.RedisAddress}),
			Topic:  appConfig.RedisTopic,
			Local:  dispatcher,
			Logger: logger,
		})
		if err != nil {
			return err
		}
		notifier = bridge
		go func() {
			if err := bridge.Run(signalCtx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("realtime bridge stopped", zap.Error(err))
			}
		}()
	}

	usersService, err := users.NewService(users.ServiceConfig{Database: db})
	if err != nil {
		return err
	}

	notesService, err := notes.NewService(notes.ServiceConfig{
		Database:   db,
		Clock:      time.Now,
		IDProvider: notes.NewPublicIDProvider(),
		Logger:     logger,
	})
	if err != nil {
		return err
	}

	blameStore, err := blame.NewStore(blame.StoreConfig{
		Database:  db,
		Dialect:   dialect,
		Clock:     time.Now,
		Notifier:  notifier,
		Directory: usersService,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	tokenManager := auth.NewTokenIssuer(auth.TokenIssuerConfig{
		SigningSecret: []byte(appConfig.SigningSecret),
		Issuer:        "inkline-auth",
		Audience:      "inkline-api",
		TokenTTL:      appConfig.TokenTTL,
	})

	handler, err := server.NewHTTPHandler(server.Dependencies{
		TokenManager: tokenManager,
		NotesService: notesService,
		BlameStore:   blameStore,
		Realtime:     dispatcher,
		UsersService: usersService,
		Logger:       logger,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{
		Addr:    appConfig.HTTPAddress,
		Handler: handler,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("address", appConfig.HTTPAddress),
			zap.String("driver", appConfig.DatabaseDriver))
		err := httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-signalCtx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
