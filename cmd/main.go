package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"grocery-app/delivery-scheduler/internal/config"
	"grocery-app/delivery-scheduler/internal/handler"
	"grocery-app/delivery-scheduler/internal/repository"
	"grocery-app/delivery-scheduler/internal/services"
	"grocery-app/delivery-scheduler/internal/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func main() {
	baseCtx := context.Background()
	ctx, shutdownManager := utils.NewShutdownManager(baseCtx)
	shutdownManager.StartListening()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal("Mongo connection failed:", err)
	}
	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing MongoDB connection...")
		return mongoClient.Disconnect(ctx)
	})

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Closing Redis connection...")
		return redisClient.Close()
	})

	db := mongoClient.Database("grocery_store")

	subRepo := repository.NewSubscriptionRepository(db)
	orderRepo := repository.NewOrderRepository(db)

	planClient := utils.NewPlanClient(cfg.PlanServiceURL)
	scheduleService := services.NewScheduleService(subRepo, planClient, redisClient)
	recurringOrderService := services.NewRecurringOrderService(orderRepo, redisClient)

	refresher := services.NewCacheRefresher(scheduleService, recurringOrderService)
	refresher.Start(ctx)

	scheduleHandler := handler.NewScheduleHandler(scheduleService, cfg)
	recurringOrderHandler := handler.NewRecurringOrderHandler(recurringOrderService, cfg)

	router := gin.Default()
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	authMiddleware := utils.AuthMiddleware(cfg.AuthServiceURL)
	staffOnly := utils.RoleMiddleware("admin", "manager")

	schedules := router.Group("/api/schedules", authMiddleware)
	{
		schedules.POST("/", scheduleHandler.Create)
		schedules.GET("/", staffOnly, scheduleHandler.GetAll)
		schedules.GET("/my", scheduleHandler.GetMy)
		schedules.GET("/due", staffOnly, scheduleHandler.Due)
		schedules.POST("/preview", scheduleHandler.Preview)
		schedules.GET("/next-slot", scheduleHandler.NextSlot)
		schedules.GET("/:id", scheduleHandler.GetByID)
		schedules.POST("/:id/pause", scheduleHandler.Pause)
		schedules.POST("/:id/resume", scheduleHandler.Resume)
		schedules.POST("/:id/activate", scheduleHandler.Activate)
		schedules.POST("/:id/skip", scheduleHandler.Skip)
		schedules.POST("/:id/cancel", scheduleHandler.Cancel)
	}

	orders := router.Group("/api/recurring-orders", authMiddleware)
	{
		orders.POST("/", recurringOrderHandler.Materialize)
		orders.GET("/", staffOnly, recurringOrderHandler.GetAll)
		orders.GET("/my", recurringOrderHandler.GetMy)
		orders.GET("/due", staffOnly, recurringOrderHandler.Due)
		orders.GET("/:id", recurringOrderHandler.GetByID)
		orders.POST("/:id/pause", recurringOrderHandler.Pause)
		orders.POST("/:id/resume", recurringOrderHandler.Resume)
		orders.POST("/:id/activate", recurringOrderHandler.Activate)
		orders.POST("/:id/skip", recurringOrderHandler.Skip)
		orders.POST("/:id/cancel", recurringOrderHandler.Cancel)
	}

	server := &http.Server{
		Addr:    cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Println("Delivery scheduler running on", cfg.ServerPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	shutdownManager.Register(func(ctx context.Context) error {
		log.Println("[SHUTDOWN] Shutting down HTTP server...")
		return server.Shutdown(ctx)
	})

	select {}
}
