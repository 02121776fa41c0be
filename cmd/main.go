package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/hoaglog2004/Argaty-sub000/internal/cache"
	h "github.com/hoaglog2004/Argaty-sub000/internal/http"
	"github.com/hoaglog2004/Argaty-sub000/internal/metrics"
	"github.com/hoaglog2004/Argaty-sub000/internal/publisher"
	"github.com/hoaglog2004/Argaty-sub000/internal/repository"
	"github.com/hoaglog2004/Argaty-sub000/internal/service"
	"github.com/hoaglog2004/Argaty-sub000/internal/shipping"
)

func main() {
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("no .env file, using environment: %v", err)
	}

	httpPort := getEnv("HTTP_PORT", "8080")
	requestTimeout := 30 * time.Second
	shutdownTimeout := 10 * time.Second

	// Database
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		log.Fatalf("invalid DB_PORT: %v", err)
	}
	creds := &repository.Credentials{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              dbPort,
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", "postgres"),
		DBName:            getEnv("DB_NAME", "argaty"),
		MigrationsDirPath: getEnv("MIGRATIONS_PATH", "internal/repository/migrations"),
	}

	store, err := repository.NewStore(creds)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.RunMigrations(creds); err != nil {
		log.Fatalf("failed to run migrations: %v", err)
	}
	log.Printf("connected to postgres at %s:%d", creds.Host, creds.Port)

	// Redis
	ctx := context.Background()
	redisClient := redis.NewClient(&redis.Options{
		Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	log.Printf("redis ping succeeded")

	orderCache := cache.NewRedisCache(redisClient)

	// Shipping: external carrier quote with flat-rate fallback, or the
	// flat rate alone when no carrier is configured.
	var quoter service.ShippingQuoter = service.FlatRateQuoter{}
	if carrierURL := os.Getenv("JNT_BASE_URL"); carrierURL != "" {
		quoter = shipping.NewJNTQuoter(carrierURL, 5*time.Second)
		log.Printf("using J&T carrier quotes from %s", carrierURL)
	}

	checkoutService := service.NewCheckoutService(store, quoter)
	orderService := service.NewOrderService(store, orderCache)
	voucherService := service.NewVoucherService(store)

	// Outbox poller publishing committed order events to Kafka
	pollerCtx, stopPoller := context.WithCancel(ctx)
	defer stopPoller()
	brokers := strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ",")
	poller := publisher.NewOutboxPoller(store, brokers...)
	go poller.Run(pollerCtx)

	srvMetrics := metrics.NewServerMetrics("order_core")

	checkoutHandler := h.NewCheckoutHandler(checkoutService, requestTimeout)
	orderHandler := h.NewOrderHandler(orderService, requestTimeout)
	voucherHandler := h.NewVoucherHandler(voucherService, requestTimeout)

	router := h.NewRouter(checkoutHandler, orderHandler, voucherHandler, srvMetrics, requestTimeout)

	srv := &http.Server{
		Addr:         ":" + httpPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("order service listening on port %s", httpPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutting down order service...")
	stopPoller()

	shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	log.Println("order service stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
