package cmd

import (
	"context"
	"database/sql"
	"net"

	"github.com/fitstack/ms-go-account/app/controller"
	"github.com/fitstack/ms-go-account/app/middleware"
	"github.com/fitstack/ms-go-account/app/notify"
	"github.com/fitstack/ms-go-account/app/repository"
	"github.com/fitstack/ms-go-account/app/service"
	"github.com/fitstack/ms-go-account/config"

	_ "github.com/go-sql-driver/mysql"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	Long:  `Start the HTTP (Echo) server for the account service, together with the background expiry sweeper.`,
	Run:   runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(_ *cobra.Command, _ []string) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	userRepo := repository.NewUserRepository(db)
	metricRepo := repository.NewBodyMetricRepository(db)
	pendingRepo := repository.NewPendingRegistrationRepository(db)
	otpRepo := repository.NewOTPCodeRepository(db)
	refreshTokenRepo := repository.NewRefreshTokenRepository(db)

	notifier := notify.NewSMTPSender(cfg.SMTP)
	otpService := service.NewOTPService(otpRepo, cfg)
	tokenService := service.NewTokenService(refreshTokenRepo, userRepo, cfg)
	registrationService := service.NewRegistrationService(userRepo, pendingRepo, otpService, tokenService, notifier, cfg)
	userService := service.NewUserService(userRepo, metricRepo, pendingRepo, tokenService, notifier, cfg)

	sweeper := service.NewSweeper(pendingRepo, otpRepo, refreshTokenRepo)
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	go sweeper.Run(sweepCtx, cfg.SweepInterval)

	startHTTPServer(cfg, registrationService, userService, tokenService)
}

func startHTTPServer(
	cfg *config.Config,
	registrationService *service.RegistrationService,
	userService *service.UserService,
	tokenService *service.TokenService,
) {
	e := echo.New()
	defer e.Close()
	e.HideBanner = true

	e.Use(echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogRemoteIP:  true,
		LogLatency:   true,
		LogUserAgent: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			fields := logrus.Fields{
				"remote_ip":  v.RemoteIP,
				"host":       v.Host,
				"method":     v.Method,
				"uri":        v.URI,
				"status":     v.Status,
				"latency":    v.Latency.String(),
				"latency_ns": v.Latency.Nanoseconds(),
				"user_agent": v.UserAgent,
			}
			entry := logrus.WithFields(fields)
			if v.Error != nil {
				entry = entry.WithError(v.Error)
			}
			entry.Info("http_request")
			return nil
		},
	}))
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())

	authController := controller.NewAuthController(registrationService, userService, tokenService)
	accountController := controller.NewAccountController(userService)
	authMiddleware := middleware.NewAuthMiddleware(tokenService)

	auth := e.Group("/auth")
	auth.POST("/register", authController.Register)
	auth.POST("/verify-code", authController.VerifyCode)
	auth.POST("/resend-code", authController.ResendCode)
	auth.POST("/login", authController.Login)
	auth.POST("/refresh-token", authController.RefreshToken)
	auth.POST("/logout", authController.Logout)
	auth.POST("/request-password-reset", authController.RequestPasswordReset)
	auth.POST("/reset-password", authController.ResetPassword)

	account := e.Group("/account")
	account.Use(authMiddleware.RequireAuth)
	account.GET("/profile", accountController.GetProfile)
	account.PUT("/profile", accountController.UpdateProfile)
	account.POST("/body-metrics", accountController.RecordBodyMetric)
	account.POST("/change-password", accountController.ChangePassword)
	account.DELETE("", accountController.DeleteAccount)

	httpAddr := net.JoinHostPort(cfg.HTTPHost, cfg.HTTPPort)
	logrus.WithField("addr", httpAddr).Info("Starting HTTP server")
	if err := e.Start(httpAddr); err != nil {
		logrus.WithError(err).Fatal("Failed to start HTTP server")
	}
}
