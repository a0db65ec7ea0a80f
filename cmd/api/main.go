package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quickchat/internal/config"
	"quickchat/internal/db"
	"quickchat/internal/email"
	apihttp "quickchat/internal/http"
	"quickchat/internal/realtime"
	"quickchat/internal/repository"
	"quickchat/internal/service"
	"quickchat/internal/storage"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := godotenv.Load(); err != nil {
		log.Printf("warning: loading .env: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		panic(err)
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	if cfg.AutoMigrate {
		if err := db.Migrate(ctx, cfg.DatabaseURL); err != nil {
			logger.Fatal("db migrate", zap.Error(err))
		}
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer pool.Close()

	pingCtx, cancelPing := context.WithTimeout(ctx, 5*time.Second)
	if err := db.Ping(pingCtx, pool); err != nil {
		logger.Warn("db ping failed", zap.Error(err))
	}
	cancelPing()

	userRepo := repository.NewPgUserRepository(pool)
	messageRepo := repository.NewPgMessageRepository(pool)

	emailSender := email.NewDisabledSender("email sender not configured")
	if cfg.SMTPHost != "" {
		sender, err := email.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom, cfg.SMTPFromName, cfg.SMTPUseTLS)
		if err != nil {
			logger.Warn("smtp sender init failed", zap.Error(err))
		} else {
			emailSender = sender
		}
	}

	var otpStore service.OTPStore
	if cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
		ctxPing, cancel := context.WithTimeout(ctx, 2*time.Second)
		if err := redisClient.Ping(ctxPing).Err(); err != nil {
			logger.Warn("redis ping failed, using in-memory otp store", zap.Error(err))
		} else {
			otpStore = service.NewRedisOTPStore(redisClient)
		}
		cancel()
	}
	if otpStore == nil {
		memStore := service.NewMemoryOTPStore()
		go memStore.Run(ctx, time.Minute)
		otpStore = memStore
	}

	assets := storage.NewDisabledUploader()
	if cfg.S3Bucket != "" {
		uploader, err := storage.NewS3Uploader(ctx, storage.S3Options{
			Endpoint:      cfg.S3Endpoint,
			Region:        cfg.S3Region,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
			UsePathStyle:  cfg.S3UsePathStyle,
		})
		if err != nil {
			logger.Warn("s3 uploader init failed", zap.Error(err))
		} else {
			assets = uploader
		}
	}

	hub := realtime.NewHub(logger, realtime.NewPresence())
	hubDone := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(hubDone)
	}()

	jwtSvc := service.NewJWTService(cfg.JWTSecret, cfg.JWTSessionTTL)
	verifier := service.NewVerificationTokenIssuer(cfg.JWTSecret, cfg.VerificationTokenTTL)
	ledger := service.NewOTPLedger(logger, otpStore, emailSender, cfg.OTPTTL)

	userSvc := service.NewUserService(logger, userRepo, ledger, verifier, jwtSvc, assets)
	msgSvc := service.NewMessageService(logger, messageRepo, userRepo, assets, hub)

	router := apihttp.NewRouter(
		logger,
		apihttp.RouterOptions{MaxBodyBytes: cfg.MaxBodyBytes, CORSOrigin: cfg.CORSOrigin},
		apihttp.NewUserHandler(logger, userSvc),
		apihttp.NewMessageHandler(logger, msgSvc),
		apihttp.NewSocketHandler(logger, hub, jwtSvc, cfg.RealtimeRequireToken),
		apihttp.JWTAuthMiddleware(jwtSvc, userSvc),
	)

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("starting server", zap.String("port", cfg.HTTPPort))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("server shutdown", zap.Error(err))
	}
	<-hubDone
}
