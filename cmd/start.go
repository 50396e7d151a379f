package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"diary-sync/core/loader"
	"diary-sync/core/logger"
	"diary-sync/core/middleware/auth"
	"diary-sync/core/middleware/errorhandler"
	"diary-sync/core/middleware/rayid"

	"diary-sync/feature/conflict"
	"diary-sync/feature/diary"
	"diary-sync/feature/integrity"
	"diary-sync/feature/remote"
	"diary-sync/feature/sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	_ "diary-sync/docs/swagger"
)

// @title Diary Sync API
// @version 1.0
// @description API for reading diary entries, syncing them with a remote copy and resolving conflicts.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the diary server",
	Long:  `Starts the HTTP server, the periodic sync scheduler and, for a local remote with watch enabled, the file watcher.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a, err := bootstrap(ctx)
		if err != nil {
			return err
		}
		defer a.close()
		zap.ReplaceGlobals(a.logger)
		logg := a.logger
		cfg := a.cfg

		app := fiber.New(fiber.Config{
			DisableStartupMessage: true,
			ErrorHandler:          errorhandler.New(logg),
			ReadTimeout:           cfg.Server.ReadTimeout(),
			WriteTimeout:          cfg.Server.WriteTimeout(),
		})

		mgr := loader.NewManager(logg)
		mgr.Register(diary.NewFeature(a.diary))
		mgr.Register(conflict.NewFeature(a.conflicts))
		mgr.Register(sync.NewFeature(a.sync))
		mgr.Register(integrity.NewFeature(a.integrity))

		// RayID goes first so every later log line carries it.
		app.Use(rayid.New())

		app.Use(func(c *fiber.Ctx) error {
			l := logger.WithRayID(logg, c)
			start := time.Now()
			err := c.Next()
			l.Info("Request",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("ip", c.IP()),
				zap.Int("status", c.Response().StatusCode()),
				zap.Duration("latency", time.Since(start)),
			)
			return err
		})

		// Swagger stays public.
		app.Get("/swagger/*", swagger.HandlerDefault)

		app.Use(auth.New(auth.Config{ApiKey: cfg.Server.ApiKey}))

		if err := mgr.LoadAll(app); err != nil {
			return err
		}

		scheduler := sync.NewScheduler(a.sync, cfg.Sync.Interval(), logg)
		scheduler.Start(ctx)
		defer scheduler.Stop()

		if cfg.Remote.Kind == remote.KindLocal && cfg.Remote.Watch {
			w := remote.NewWatcher(cfg.Remote.Dir, cfg.Remote.Ext(), cfg.Remote.Debounce(), logg, a.sync.OnFileChange)
			go func() {
				if err := w.Run(ctx); err != nil {
					logg.Error("Watcher stopped", zap.Error(err))
				}
			}()
		}

		errCh := make(chan error, 1)
		go func() {
			logg.Info("Starting server",
				zap.String("port", cfg.Server.Port),
				zap.String("remote", a.source.Name()))
			errCh <- app.Listen(":" + cfg.Server.Port)
		}()

		select {
		case err := <-errCh:
			return err
		case <-ctx.Done():
		}

		logg.Info("Shutting down server...")
		return app.ShutdownWithTimeout(cfg.Server.ShutdownTimeout())
	},
}

func init() {
	RootCmd.AddCommand(startCmd)
}
