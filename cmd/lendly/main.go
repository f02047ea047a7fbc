package main

import (
	"context"
	"time"

	bookinghandler "lendly/internal/bookings/handler"
	bookingrepo "lendly/internal/bookings/repository"
	bookingservice "lendly/internal/bookings/service"
	itemhandler "lendly/internal/items/handler"
	itemrepo "lendly/internal/items/repository"
	itemservice "lendly/internal/items/service"
	requesthandler "lendly/internal/requests/handler"
	requestrepo "lendly/internal/requests/repository"
	requestservice "lendly/internal/requests/service"
	userhandler "lendly/internal/users/handler"
	userrepo "lendly/internal/users/repository"
	userservice "lendly/internal/users/service"
	"lendly/pkg/app"
	"lendly/pkg/config"
	dbmongo "lendly/pkg/db/mongo"
	"lendly/pkg/kafka"
)

const decisionLockTTL = 30 * time.Second

func main() {
	cfg := config.Load("lendly")
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	mongoClient := cfg.Client.Mongo
	dbName := cfg.MongoDatabaseName

	users := userrepo.NewUserRepository(mongoClient, dbName)
	items := itemrepo.NewItemRepository(mongoClient, dbName)
	comments := itemrepo.NewCommentRepository(mongoClient, dbName)
	bookings := bookingrepo.NewBookingRepository(mongoClient, dbName)
	locks := bookingrepo.NewDecisionLockRepository(mongoClient, dbName, decisionLockTTL)
	requests := requestrepo.NewRequestRepository(mongoClient, dbName)

	indexCtx, cancel := context.WithTimeout(context.Background(), cfg.MongoConnTimeout)
	defer cancel()
	if err := locks.EnsureIndexes(indexCtx); err != nil {
		cfg.Log.Fatal("Failed to create lock indexes", "error", err)
	}

	var events bookingservice.EventPublisher
	if cfg.KafkaEnabled {
		producer := kafka.NewProducer(kafka.ProducerConfig{
			Brokers:      cfg.KafkaBrokers,
			Topic:        cfg.KafkaTopic,
			MaxAttempts:  cfg.KafkaMaxAttempts,
			BatchTimeout: cfg.KafkaBatchTimeout,
		}, cfg.Log)
		defer producer.Close()
		events = producer
	}

	txManager := dbmongo.NewTransactionManager(mongoClient)

	userSvc := userservice.NewUserService(users, cfg.Log)
	itemSvc := itemservice.NewItemService(items, comments, bookings, users, requests, cfg.Log)
	bookingSvc := bookingservice.NewBookingService(bookings, locks, items, users, txManager, events, cfg.Log)
	requestSvc := requestservice.NewRequestService(requests, items, users, cfg.Log)

	application := app.NewApplication(cfg,
		userhandler.NewUserHandler(userSvc, cfg.Log, cfg.PaginationLimit),
		itemhandler.NewItemHandler(itemSvc, cfg.Log, cfg.PaginationLimit),
		bookinghandler.NewBookingHandler(bookingSvc, cfg.Log, cfg.PaginationLimit),
		requesthandler.NewRequestHandler(requestSvc, cfg.Log, cfg.PaginationLimit),
	)

	if err := application.Run(); err != nil {
		cfg.Log.Fatal("Server terminated", "error", err)
	}
}
