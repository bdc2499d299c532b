package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/RoseyCoUk/LVNClothing-sub003/internal/bundle"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart/cache"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart/poller"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart/repository"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/cart/storage"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/catalog"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/checkout"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/config"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/events"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/fulfillment"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/httpapi"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/newsletter"
	"github.com/RoseyCoUk/LVNClothing-sub003/internal/orders"
	"github.com/RoseyCoUk/LVNClothing-sub003/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	"google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

const serviceName = "storefront"

func main() {
	cfg, err := config.Load()
	if err != nil {
		zap.NewExample().Fatal("failed to load config", zap.Error(err))
	}

	log, err := logger.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		zap.NewExample().Fatal("failed to build logger", zap.Error(err))
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Cart storage: MongoDB behind a Redis cache
	mongoDB, disconnect, err := repository.ConnectMongoDB(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
	if err != nil {
		log.Fatal("failed to connect to MongoDB", zap.Error(err))
	}
	defer disconnect(context.Background())
	cartRepo := repository.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		log.Fatal("failed to create cart indexes", zap.Error(err))
	}
	log.Info("connected to MongoDB", zap.String("database", cfg.Mongo.Database))

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("redis connection failed", zap.Error(err))
	}

	cartStorage := storage.New(cartRepo, cache.NewRedisCache(redisClient, cfg.Redis.CartTTL), log)
	carts := cart.NewService(cartStorage, cfg.Bundle.RefreshConcurrency, log)

	// Catalog
	catalogRepo, err := catalog.NewRepository(cfg.Catalog.DBPath)
	if err != nil {
		log.Fatal("failed to open catalog", zap.Error(err))
	}
	defer catalogRepo.Close()
	if err := catalogRepo.RunMigrations(cfg.Catalog.MigrationsPath); err != nil {
		log.Fatal("failed to migrate catalog", zap.Error(err))
	}

	// Orders read model and newsletter subscribers
	creds := &orders.Credentials{
		Host:              cfg.Postgres.Host,
		Port:              cfg.Postgres.Port,
		User:              cfg.Postgres.User,
		Password:          cfg.Postgres.Password,
		DBName:            cfg.Postgres.DBName,
		MigrationsDirPath: cfg.Postgres.MigrationsPath,
	}
	ordersRepo, err := orders.NewRepository(creds)
	if err != nil {
		log.Fatal("failed to connect to orders database", zap.Error(err))
	}
	defer ordersRepo.Close()
	if err := ordersRepo.RunMigrations(creds); err != nil {
		log.Fatal("failed to migrate orders database", zap.Error(err))
	}
	newsletterService := newsletter.NewService(newsletter.NewRepository(ordersRepo.DB()), log)

	// Fulfillment provider
	fulfillmentClient := fulfillment.NewClient(fulfillment.Config{
		BaseURL: cfg.Fulfillment.BaseURL,
		Token:   cfg.Fulfillment.Token,
		Timeout: cfg.Fulfillment.Timeout,
	}, log)
	quoter := fulfillment.NewQuoter(fulfillmentClient, redisClient, cfg.Fulfillment.QuoteCacheTTL, log)

	var refreshPrices cart.PriceSource = catalogRepo
	if cfg.Fulfillment.Token != "" {
		refreshPrices = fulfillmentClient
	} else {
		log.Warn("fulfillment token not set, cart prices refresh from the local catalog")
	}

	// Checkout-completed events
	publisher := events.NewPublisher(events.NewKafkaWriter(cfg.Kafka.Topic, cfg.Kafka.Brokers...))
	defer publisher.Close()

	cartPoller := poller.NewPoller(
		poller.NewKafkaReader(cfg.Kafka.Topic, cfg.Kafka.GroupID, cfg.Kafka.Brokers...),
		cartStorage, log)
	go cartPoller.Run(ctx)
	defer cartPoller.Close()

	if cfg.Stripe.SecretKey == "" {
		log.Warn("stripe secret key not set, checkout is disabled")
	}
	checkoutService := checkout.NewService(
		checkout.NewBuilder(cfg.Stripe.Currency),
		checkout.NewStripeGateway(cfg.Stripe.SecretKey),
		log)

	pricer := bundle.NewPricer(catalogRepo, catalogRepo, cfg.Bundle.RefreshConcurrency, log)
	calculator := bundle.NewCalculator(decimal.NewFromFloat(cfg.Bundle.MarkupFactor))

	catalogHandler := httpapi.NewCatalogHandler(catalogRepo, catalogRepo, pricer, calculator, carts,
		cfg.Stripe.Currency, log)
	checkoutHandler := httpapi.NewCheckoutHandler(carts, checkoutService,
		checkout.NewWebhook(cfg.Stripe.WebhookSecret, publisher, log), quoter,
		cfg.Storefront.PublicURL, cfg.Stripe.Currency, log)

	router := httpapi.NewRouter(httpapi.Handlers{
		Cart:       httpapi.NewCartHandler(carts, refreshPrices, log),
		Catalog:    catalogHandler,
		Checkout:   checkoutHandler,
		Orders:     httpapi.NewOrdersHandler(orders.NewLookup(ordersRepo, log)),
		Admin:      httpapi.NewAdminHandler(catalogRepo, log),
		Newsletter: httpapi.NewNewsletterHandler(newsletterService, log),
		SizeCharts: httpapi.NewSizeChartHandler(fulfillmentClient, log),
	}, httpapi.Options{
		RequestTimeout: cfg.HTTP.RequestTimeout,
		MaxBodyBytes:   cfg.HTTP.MaxRequestBodySize,
		JWTSecret:      cfg.Auth.JWTSecret,
		AdminToken:     cfg.Auth.AdminToken,
		TrackRate:      rate.Every(time.Minute / time.Duration(cfg.Storefront.TrackPerMinute)),
		TrackBurst:     cfg.Storefront.TrackPerMinute,
	}, log)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTP.Port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.HTTP.RequestTimeout + 5*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Ops listener: gRPC health and reflection
	lis, err := net.Listen("tcp", ":"+cfg.GRPC.Port)
	if err != nil {
		log.Fatal("failed to listen", zap.String("port", cfg.GRPC.Port), zap.Error(err))
	}
	grpcServer := grpc.NewServer(grpc.StatsHandler(otelgrpc.NewServerHandler()))
	healthServer := health.NewServer()
	grpc_health_v1.RegisterHealthServer(grpcServer, healthServer)
	healthServer.SetServingStatus(serviceName, grpc_health_v1.HealthCheckResponse_SERVING)
	reflection.Register(grpcServer)

	go func() {
		log.Info("grpc ops server listening", zap.String("port", cfg.GRPC.Port))
		if err := grpcServer.Serve(lis); err != nil {
			log.Error("grpc server stopped", zap.Error(err))
		}
	}()

	go func() {
		log.Info("storefront starting", zap.String("port", cfg.HTTP.Port), zap.String("environment", cfg.Environment))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	log.Info("shutting down storefront")
	healthServer.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}
	grpcServer.GracefulStop()
	log.Info("storefront stopped")
}
