package router

import (
	"net/http"

	"guardianangel/config"
	"guardianangel/internal/domain"
	"guardianangel/internal/handler"
	"guardianangel/internal/metrics"
	"guardianangel/internal/middleware"
	"guardianangel/internal/ratelimit"
	"guardianangel/internal/repository"
	"guardianangel/internal/service"
	"guardianangel/internal/ws"
	"guardianangel/pkg/payment"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Deps are the collaborators built in main from configuration. Media and FCM may be nil.
type Deps struct {
	Gateway       payment.Gateway
	CooldownStore ratelimit.Store
	Media         service.AttachmentStore
	FCM           *service.FCMService
	Mailer        service.Mailer
	Registry      *prometheus.Registry
	Log           *zap.Logger
	// Done stops background sweepers; nil leaves them off.
	Done <-chan struct{}
}

func Setup(cfg *config.Config, db *gorm.DB, deps Deps) *gin.Engine {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	log := deps.Log
	m := metrics.New(deps.Registry)

	limiter := middleware.NewInMemoryRateLimiter(cfg.RateLimit)
	if deps.Done != nil {
		go limiter.Run(deps.Done)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.SecurityHeaders())
	r.Use(m.Middleware())

	// Repositories
	userRepo := repository.NewUserRepository(db)
	lawyerRepo := repository.NewLawyerRepository(db)
	questionRepo := repository.NewQuestionRepository(db)
	chatRepo := repository.NewChatRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	chatHub := ws.NewChatHub()

	// Services
	if deps.FCM != nil {
		log.Info("push notifications enabled")
	} else {
		log.Info("push notifications disabled: set FIREBASE_SERVICE_ACCOUNT to enable")
	}
	notifSvc := service.NewNotificationService(notificationRepo, userRepo, lawyerRepo, chatRepo, deps.FCM, deps.Mailer, log)
	cooldown := ratelimit.NewCooldown(deps.CooldownStore, cfg.Cooldown.ChatCreation, nil)
	chatSvc := service.NewChatService(chatRepo, lawyerRepo, questionRepo, cooldown, notifSvc, deps.Media, m, log)
	questionSvc := service.NewQuestionService(questionRepo)
	paymentSvc := service.NewPaymentService(cfg, chatSvc, lawyerRepo, paymentRepo, deps.Gateway, notifSvc, auditRepo, m, log)
	reconciler := service.NewReconciler(paymentRepo, notifSvc, auditRepo, m, log)

	// Handlers
	chatHandler := handler.NewChatHandler(chatSvc, chatHub, log)
	questionHandler := handler.NewQuestionHandler(questionSvc, chatSvc, log)
	paymentHandler := handler.NewPaymentHandler(paymentSvc, log)
	uploadHandler := handler.NewUploadHandler(chatSvc, log)
	notificationHandler := handler.NewNotificationHandler(notifSvc, notificationRepo, userRepo, log)
	webhookHandler := handler.NewWebhookHandler(deps.Gateway, reconciler, cfg.Payment.WebhookSecret, m, log)

	authMw := middleware.AuthRequired(&cfg.JWT, userRepo)
	rateMw := middleware.RateLimit(limiter)

	r.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "payment_mode": cfg.Payment.Mode})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{})))

	api := r.Group("/api/v1")
	{
		// Gateway deliveries are authenticated by signature, not by token or rate limit.
		api.POST("/webhooks/stripe", webhookHandler.Handle)

		authed := api.Group("")
		authed.Use(rateMw, authMw)
		{
			authed.POST("/lawyers/:id/chats", middleware.RequireRole(domain.RoleCustomer), chatHandler.StartChat)
			authed.POST("/lawyers/me/subscription", middleware.RequireRole(domain.RoleLawyer), paymentHandler.Subscribe)

			authed.GET("/questions", questionHandler.List)
			authed.POST("/questions", middleware.RequireRole(domain.RoleCustomer), questionHandler.Create)
			authed.POST("/questions/:id/accept", middleware.RequireRole(domain.RoleLawyer), questionHandler.Accept)

			authed.GET("/chats", chatHandler.List)
			authed.GET("/chats/:id/quote", paymentHandler.Quote)
			authed.GET("/chats/:id/payment", paymentHandler.Status)
			authed.POST("/chats/:id/payment", middleware.RequireRole(domain.RoleCustomer), paymentHandler.Initiate)
			authed.GET("/chats/:id/messages", chatHandler.GetMessages)
			authed.POST("/chats/:id/messages", chatHandler.PostMessage)
			authed.POST("/chats/:id/attachments", uploadHandler.UploadAttachment)

			authed.GET("/me/notifications", notificationHandler.List)
			authed.PUT("/me/notifications/:id/read", notificationHandler.MarkRead)
			authed.PUT("/me/fcm-token", notificationHandler.UpdateFCMToken)
		}

		api.GET("/ws/chat", rateMw, handler.UpgradeChatWS(&cfg.JWT, userRepo, chatSvc, chatHub, log))
	}
	return r
}
