package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"promo_service/handlers"
	"promo_service/models"
	"promo_service/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openDatabase() (*gorm.DB, error) {
	cfg := &gorm.Config{TranslateError: true}
	if dsn := os.Getenv("DATABASE_DSN"); dsn != "" {
		return gorm.Open(mysql.Open(dsn), cfg)
	}
	return gorm.Open(sqlite.Open("promo_service.db"), cfg)
}

func main() {
	// .env is optional; real deployments set the environment directly
	_ = godotenv.Load()

	db, err := openDatabase()
	if err != nil {
		logrus.WithError(err).Fatal("failed to connect to database")
	}

	if err := db.AutoMigrate(
		&models.PromoCode{},
		&models.PromoCodeRule{},
		&models.Redemption{},
		&models.Order{},
	); err != nil {
		logrus.WithError(err).Fatal("failed to migrate database")
	}

	promoService := services.NewPromoService(db)
	promoHandler := handlers.NewPromoHandler(promoService)

	adminEmails := strings.Split(os.Getenv("ADMIN_EMAILS"), ",")

	router := gin.Default()
	api := router.Group("/api")
	{
		admin := api.Group("/promo", handlers.AdminOnly(adminEmails))
		{
			admin.GET("", promoHandler.ListPromoCodes)
			admin.POST("", promoHandler.CreatePromoCode)
			admin.GET("/:code", promoHandler.GetPromoCode)
			admin.PUT("/:code", promoHandler.UpdatePromoCode)
			admin.DELETE("/:code", promoHandler.DeactivatePromoCode)
		}
		api.POST("/promo/apply", promoHandler.ApplyPromoCode)
		api.POST("/promo/commit", promoHandler.CommitPromoCode)
	}
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	go func() {
		logrus.WithField("port", port).Info("starting promo service")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.WithError(err).Fatal("failed to start service")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("shutting down promo service")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.WithError(err).Fatal("service forced to shutdown")
	}

	logrus.Info("service exited")
}
