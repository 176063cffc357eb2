package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/minicrm/backend/internal/handlers"
	"github.com/minicrm/backend/internal/middleware"
	"github.com/minicrm/backend/pkg/authtoken"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// HandlerDependencies holds everything the router wires together
type HandlerDependencies struct {
	CustomerHandler *handlers.CustomerHandler
	OrderHandler    *handlers.OrderHandler
	SegmentHandler  *handlers.SegmentHandler
	CampaignHandler *handlers.CampaignHandler
	MessageHandler  *handlers.MessageHandler

	Signer         *authtoken.Signer
	AllowedOrigins []string
	Log            *zap.Logger

	// Redis enables the send rate limit when set
	Redis          *redis.Client
	SendRateLimit  int
	SendRateWindow time.Duration
}

// SetupRouter sets up the router
func SetupRouter(deps HandlerDependencies) *gin.Engine {
	router := gin.New()

	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.RecoveryMiddleware(deps.Log))
	router.Use(middleware.LoggerMiddleware(deps.Log))
	router.Use(middleware.CORSMiddleware(deps.AllowedOrigins))

	public := router.Group("/api")
	{
		public.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok"})
		})
	}

	protected := router.Group("/api")
	protected.Use(middleware.JWTAuthMiddleware(deps.Signer, deps.Log))
	{
		customers := protected.Group("/customers")
		{
			customers.GET("", deps.CustomerHandler.ListCustomers)
			customers.GET("/:id", deps.CustomerHandler.GetCustomer)
			customers.POST("", deps.CustomerHandler.CreateCustomer)
			customers.PUT("/:id", deps.CustomerHandler.UpdateCustomer)
			customers.DELETE("/:id", deps.CustomerHandler.DeleteCustomer)
		}

		orders := protected.Group("/orders")
		{
			orders.GET("", deps.OrderHandler.ListOrders)
			orders.GET("/customer/:customerId", deps.OrderHandler.ListCustomerOrders)
			orders.GET("/:id", deps.OrderHandler.GetOrder)
			orders.POST("", deps.OrderHandler.CreateOrder)
			orders.PUT("/:id", deps.OrderHandler.UpdateOrder)
			orders.PATCH("/:id/status", deps.OrderHandler.UpdateOrderStatus)
			orders.DELETE("/:id", deps.OrderHandler.DeleteOrder)
		}

		segments := protected.Group("/segments")
		{
			segments.GET("", deps.SegmentHandler.ListSegments)
			segments.POST("/preview", deps.SegmentHandler.PreviewSegment)
			segments.GET("/:id", deps.SegmentHandler.GetSegment)
			segments.GET("/:id/customers", deps.SegmentHandler.SegmentCustomers)
			segments.POST("", deps.SegmentHandler.CreateSegment)
			segments.PUT("/:id", deps.SegmentHandler.UpdateSegment)
			segments.DELETE("/:id", deps.SegmentHandler.DeleteSegment)
		}

		sendHandlers := []gin.HandlerFunc{deps.CampaignHandler.SendCampaign}
		if deps.Redis != nil && deps.SendRateLimit > 0 {
			limiter := middleware.RateLimitMiddleware(deps.Redis, deps.SendRateLimit, deps.SendRateWindow, deps.Log)
			sendHandlers = append([]gin.HandlerFunc{limiter}, sendHandlers...)
		}

		campaigns := protected.Group("/campaigns")
		{
			campaigns.GET("", deps.CampaignHandler.ListCampaigns)
			campaigns.GET("/:id", deps.CampaignHandler.GetCampaign)
			campaigns.POST("", deps.CampaignHandler.CreateCampaign)
			campaigns.PUT("/:id", deps.CampaignHandler.UpdateCampaign)
			campaigns.DELETE("/:id", deps.CampaignHandler.DeleteCampaign)
			campaigns.GET("/:id/customers", deps.CampaignHandler.CampaignCustomers)
			campaigns.GET("/:id/messages", deps.CampaignHandler.CampaignMessages)
			campaigns.POST("/:id/send", sendHandlers...)
		}

		messages := protected.Group("/messages")
		{
			messages.GET("", deps.MessageHandler.ListMessages)
			messages.PATCH("/:id/read", deps.MessageHandler.MarkRead)
		}
	}

	return router
}
