package main // Entry point package

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"    // .env file loader for local development
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/vehicle-access-control/internal/broker"
	"github.com/iliyamo/vehicle-access-control/internal/config"
	"github.com/iliyamo/vehicle-access-control/internal/database"
	"github.com/iliyamo/vehicle-access-control/internal/handler"
	"github.com/iliyamo/vehicle-access-control/internal/lock"
	"github.com/iliyamo/vehicle-access-control/internal/queue"
	"github.com/iliyamo/vehicle-access-control/internal/repository"
	"github.com/iliyamo/vehicle-access-control/internal/router"
	"github.com/iliyamo/vehicle-access-control/internal/workflow"
)

func main() {
	_ = godotenv.Load() // best effort; real deployments set the environment directly

	cfg := config.Load() // Load environment config

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	// Redis backs the booking slot lock and the approval-request dedupe
	// guard.  Without it a single instance still works on in-process
	// fallbacks; running several instances that way is not safe.
	rdb := config.NewRedisClient()
	var locker lock.Locker
	var guard workflow.ApprovalGuard
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb)
		guard = workflow.NewRedisGuard(rdb)
	} else {
		log.Println("redis unavailable, using in-process lock and guard")
		locker = lock.NewMemoryLocker()
		guard = workflow.NewMemoryGuard()
	}

	users := repository.NewUserRepo(db)
	resources := repository.NewResourceRepo(db)
	bookings := repository.NewBookingRepo(db, locker)
	auths := repository.NewAuthorizationRepo(db)

	connector := broker.NewConnector(cfg.Broker)
	producer := broker.NewProducer(connector)
	consumer := broker.NewConsumer(connector)

	flow := workflow.New(auths, producer, guard)

	// Consumers run until the process receives a termination signal.  Each
	// Run call holds its own connection and channel, so the two queues are
	// drained independently.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go consumer.Run(ctx, queue.VehicleDetected, flow.HandleVehicleDetected)
	go consumer.Run(ctx, queue.ManualApprovalRequests, flow.HandleApprovalRequest)

	e := echo.New()
	router.RegisterRoutes(e, handler.NewDetectionHandler(flow))
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users), cfg.JWTSecret)
	router.RegisterBooking(e, handler.NewBookingHandler(bookings, resources), handler.NewResourceHandler(resources), cfg.JWTSecret)
	router.RegisterSecurity(e, handler.NewApprovalHandler(flow, auths), handler.NewVehicleHandler(auths), cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env) // Print startup info

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown: %v", err)
		}
	}()

	if err := e.Start(addr); err != nil { // Start HTTP server
		log.Printf("server stopped: %v", err)
	}
}
