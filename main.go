package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SMProject/global"
	"SMProject/global/config"
	"SMProject/logger"
	"SMProject/middleware"
	midsec "SMProject/middleware/security"
	"SMProject/module/project"
	projectmodel "SMProject/module/project/model"
	projectsvc "SMProject/module/project/service"
	"SMProject/module/user"
	usermodel "SMProject/module/user/model"
	usersvc "SMProject/module/user/service"
	"SMProject/service/chat"
	"SMProject/service/chat/handlers"
	"SMProject/service/storage/redis"
	"SMProject/tools/security"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

const mongoWait = 15 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Error("load config", zap.Error(err))
		os.Exit(1)
	}
	config.Global = cfg
	global.ConfigLog(&cfg)
	global.ConfigIds(&cfg)
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, &cfg); err != nil {
		logger.Error("server exited", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.AppConfig) error {
	healthSrv := health.NewServer()
	jwt := global.JWTOptions(cfg)

	// gateway
	presence, err := global.ConfigPresence(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() { _ = redis.CloseRedis() }()

	natsMgr, bus, err := global.ConfigNats(cfg)
	if err != nil {
		return err
	}
	defer natsMgr.Close()

	hopts := []chat.HubOption{chat.WithVerifier(func(token string) (string, error) {
		claims, err := security.Verify(jwt, token)
		if err != nil {
			return "", err
		}
		return claims.UserID, nil
	})}
	if bus != nil {
		hopts = append(hopts, chat.WithBus(bus))
	}
	hub := chat.NewHub(presence, global.ChatOptions(cfg), hopts...)
	handlers.RegisterAll(hub.Dispatcher())

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	hubErr := make(chan error, 1)
	go func() { hubErr <- hub.Run(hubCtx) }()

	notifier, closeNotifier, err := global.ConfigNotifier(hubCtx, cfg, hub)
	if err != nil {
		return err
	}
	defer closeNotifier()

	// REST stores
	var (
		users    usermodel.Store    = usermodel.NewMemoryStore()
		projects projectmodel.Store = projectmodel.NewMemoryStore()
	)
	if cfg.Mongo.Enabled {
		mgr, err := global.ConfigMgo(hubCtx, cfg, mongoWait, func(ok bool) {
			status := healthpb.HealthCheckResponse_SERVING
			if !ok {
				status = healthpb.HealthCheckResponse_NOT_SERVING
			}
			healthSrv.SetServingStatus("smc.mongo", status)
		})
		if err != nil {
			return err
		}
		db, _ := mgr.TryGetDB()
		us, ps := usermodel.NewMongoStore(db), projectmodel.NewMongoStore(db)
		if err := us.EnsureIndexes(ctx); err != nil {
			return err
		}
		if err := ps.EnsureIndexes(ctx); err != nil {
			return err
		}
		users, projects = us, ps
	} else {
		logger.Warn("mongo disabled, REST data lives in memory")
	}
	userService := usersvc.NewService(users, jwt)
	projectService := projectsvc.NewService(projects, userService, notifier)

	// http
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(middleware.Recovery(), middleware.Logger(), middleware.Metrics())

	ws := chat.NewWSServer(hub, middleware.NewOriginPolicy(cfg.HTTP.AllowedOrigins).CheckOrigin)
	r.GET("/ws", ws.HandleWS)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		select {
		case <-hub.Done():
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "stopping"})
		default:
			c.JSON(http.StatusOK, gin.H{"status": "ok", "node": cfg.NodeID, "connections": hub.Registry().LocalCount()})
		}
	})
	api := middleware.NewRouter(r.Group("/api"), midsec.DefaultOptions(jwt))
	user.RegisterRoutes(api, user.NewHandler(userService))
	project.RegisterRoutes(api, project.NewHandler(projectService))

	httpSrv := &http.Server{Addr: cfg.HTTP.Addr, Handler: r}
	httpErr := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.HTTP.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			httpErr <- err
		}
	}()

	// grpc health
	lis, err := net.Listen("tcp", cfg.GRPC.Addr)
	if err != nil {
		return err
	}
	gs := grpc.NewServer()
	healthpb.RegisterHealthServer(gs, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSrv.SetServingStatus("smc.gateway", healthpb.HealthCheckResponse_SERVING)
	go func() {
		logger.Info("grpc health listening", zap.String("addr", cfg.GRPC.Addr))
		if err := gs.Serve(lis); err != nil {
			logger.Warn("grpc server stopped", zap.Error(err))
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err = <-httpErr:
		logger.Error("http server failed", zap.Error(err))
	case err = <-hubErr:
		logger.Error("hub stopped", zap.Error(err))
	}

	healthSrv.Shutdown()
	sctx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()
	if serr := httpSrv.Shutdown(sctx); serr != nil {
		logger.Warn("http shutdown", zap.Error(serr))
	}
	stopHub()
	hub.Wait()
	gs.GracefulStop()
	return err
}
