package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nuvemautoma/hot-class/config"
	"github.com/nuvemautoma/hot-class/db"
	"github.com/nuvemautoma/hot-class/internal/auth/handler"
	repo "github.com/nuvemautoma/hot-class/internal/auth/repository/postgres"
	"github.com/nuvemautoma/hot-class/internal/auth/service"
	communityhandler "github.com/nuvemautoma/hot-class/internal/community/handler"
	communityrepo "github.com/nuvemautoma/hot-class/internal/community/repository/postgres"
	communityservice "github.com/nuvemautoma/hot-class/internal/community/service"
	"github.com/nuvemautoma/hot-class/internal/iplookup"
	"github.com/nuvemautoma/hot-class/internal/realtime"
)

const (
	listenRetryDelay = 5 * time.Second
	shutdownTimeout  = 10 * time.Second
)

func main() {
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbPool, err := db.NewPostgresPool(ctx, cfg.DBURL)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer dbPool.Close()

	if err := db.Migrate(ctx, dbPool); err != nil {
		log.Fatalf("database: %v", err)
	}

	authRepo := repo.NewPostgresRepository(dbPool)
	communityRepo := communityrepo.NewPostgresRepository(dbPool)

	tokenService := service.NewTokenService(cfg.AccessTokenSecret, cfg.RefreshTokenSecret, cfg.AccessExpiryMin, cfg.RefreshExpiryMin)
	deviceService := service.NewDeviceService(authRepo, cfg)
	resolver := iplookup.NewResolver(
		iplookup.NewClient(cfg.IPLookupURL, time.Duration(cfg.IPLookupTimeoutSec)*time.Second),
		time.Duration(cfg.IPLookupCacheMinutes)*time.Minute,
	)
	userService := service.NewUserService(authRepo, tokenService, deviceService, resolver, cfg)
	adminService := service.NewAdminService(authRepo, authRepo, deviceService, cfg)

	if err := userService.EnsureOwner(ctx); err != nil {
		log.Fatalf("owner account: %v", err)
	}

	groupService := communityservice.NewGroupService(communityRepo, adminService)
	notificationService := communityservice.NewNotificationService(communityRepo, adminService)
	dashboardService := communityservice.NewDashboardService(userService, deviceService, groupService, notificationService)

	hub := realtime.NewHub(db.AuthorizedIPChannel)
	go listenForDeviceChanges(ctx, dbPool, hub)

	// The proxy header is honoured only when the peer is listed in TRUSTED_PROXIES.
	app := fiber.New(fiber.Config{
		ProxyHeader:             cfg.ProxyHeader,
		EnableTrustedProxyCheck: true,
		TrustedProxies:          cfg.TrustedProxies,
		EnableIPValidation:      true,
	})
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New())

	member, admin := handler.RegisterRoutes(app, tokenService,
		handler.NewAuthHandler(userService, adminService, cfg.SupportURL),
		handler.NewDeviceHandler(deviceService, userService, hub, cfg),
		handler.NewAdminHandler(adminService))
	communityhandler.RegisterRoutes(member, admin,
		communityhandler.NewCommunityHandler(groupService, notificationService, dashboardService))

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Errorf("shutdown: %v", err)
		}
	}()

	log.Infof("listening on :%s (env=%s)", cfg.Port, cfg.Env)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("server: %v", err)
	}
}

// listenForDeviceChanges keeps one dedicated connection in LISTEN and
// reconnects until ctx is cancelled.
func listenForDeviceChanges(ctx context.Context, pool *pgxpool.Pool, hub *realtime.Hub) {
	for {
		conn, err := pool.Acquire(ctx)
		if err == nil {
			pgConn := conn.Hijack()
			err = hub.Run(ctx, pgConn)
			pgConn.Close(context.Background())
		}
		if ctx.Err() != nil {
			return
		}

		log.Warnf("device change listener stopped: %v; retrying in %s", err, listenRetryDelay)
		select {
		case <-ctx.Done():
			return
		case <-time.After(listenRetryDelay):
		}
	}
}
