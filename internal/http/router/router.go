package router

import (
	"github.com/gin-gonic/gin"

	"github.com/ignatzorin/quizzo-backend/internal/config"
	"github.com/ignatzorin/quizzo-backend/internal/http/handlers"
	"github.com/ignatzorin/quizzo-backend/internal/http/middleware"
	"github.com/ignatzorin/quizzo-backend/internal/metrics"
	"github.com/ignatzorin/quizzo-backend/internal/service"
)

// Сообщения лимитера по scope.
const (
	generalLimitMessage = "Too many requests from this IP, please try again later."
	authLimitMessage    = "Too many authentication attempts, please try again later."
	otpLimitMessage     = "Too many OTP requests, please wait before requesting again."
	uploadLimitMessage  = "Too many upload requests, please try again later."
)

func SetupRouter(
	cfg *config.Config,
	collector *metrics.Collector,
	limiter *middleware.RateLimiter,
	tokenManager *service.TokenManager,
	authHandler *handlers.AuthHandler,
	uploadHandler *handlers.UploadHandler,
	healthHandler *handlers.HealthHandler,
) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	debug := !cfg.IsProduction()

	r := gin.New()
	r.Use(middleware.Recovery(debug))
	r.Use(middleware.RequestLogger(cfg.SlowRequestThreshold))
	r.Use(middleware.Metrics(collector))
	r.Use(middleware.EnforceHTTPS(cfg.ForceHTTPS))
	r.Use(middleware.SecurityHeaders(cfg.ForceHTTPS))
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))
	r.Use(middleware.ErrorHandler(debug))
	r.NoRoute(middleware.NoRoute())

	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(collector.Handler()))

	// Без R2 фотографии лежат на диске и раздаются отсюда. Листинг каталогов выключен.
	if !cfg.R2.Configured() {
		r.Static("/media", cfg.MediaStoragePath)
	}

	api := r.Group("/api")
	api.Use(limiter.Limit("general", cfg.GeneralRateLimit, generalLimitMessage))

	authLimit := limiter.Limit("auth", cfg.AuthRateLimit, authLimitMessage)
	otpLimit := limiter.Limit("otp", cfg.OTPRateLimit, otpLimitMessage)
	uploadLimit := limiter.Limit("upload", cfg.UploadRateLimit, uploadLimitMessage)

	auth := api.Group("/auth")
	{
		auth.POST("/check-phone-availability", authHandler.CheckPhoneAvailability)
		auth.POST("/send-registration-otp", otpLimit, authHandler.SendRegistrationOTP)
		auth.POST("/upload-school-id", uploadLimit, uploadHandler.UploadSchoolID)
		auth.POST("/register", authLimit, authHandler.Register)
		auth.POST("/login", authLimit, authHandler.Login)
		auth.POST("/forgot-password", otpLimit, authHandler.ForgotPassword)
		auth.POST("/verify-otp", authLimit, authHandler.VerifyOTP)
		auth.POST("/reset-password", authLimit, authHandler.ResetPassword)
		auth.POST("/resend-otp", otpLimit, authHandler.ResendOTP)
		auth.POST("/refresh-token", authLimit, authHandler.RefreshToken)
		auth.POST("/logout", authHandler.Logout)
		auth.GET("/me", middleware.AuthMiddleware(tokenManager), authHandler.Me)
	}

	return r
}
