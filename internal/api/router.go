package api

import (
	"github.com/gin-gonic/gin"

	"parking_lot_system/internal/api/handler"
	"parking_lot_system/internal/api/middleware"
	"parking_lot_system/internal/domain"
	"parking_lot_system/internal/service"
)

func SetupRouter(as *service.AuthService, ps *service.ParkingService, ds *service.DirectoryService,
	authMw *middleware.AuthMiddleware, wsManager *handler.WebSocketManager) *gin.Engine {
	r := gin.Default()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// WebSocket endpoint (không cần auth cho real-time connection)
	wsHandler := handler.NewWebSocketHandler(wsManager)
	r.GET("/ws", wsHandler.HandleWebSocket)

	authHandler := handler.NewAuthHandler(as)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/register", authHandler.Register)
		authRoutes.POST("/login", authHandler.Login)
	}

	v1 := r.Group("/api/v1")
	v1.Use(authMw.Authenticate())
	{
		slotH := handler.NewParkingSlotHandler(ps)
		slotRoutes := v1.Group("/parking-slots")
		{
			slotRoutes.GET("", slotH.GetAllSlots)
			slotRoutes.GET("/stats", slotH.GetStats)
			slotRoutes.POST("", authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleStaff), slotH.AddCustomSlot)
			slotRoutes.POST("/next", authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleStaff), slotH.AddNextSlot)
			slotRoutes.DELETE("", authMw.AuthorizeRole(domain.RoleAdmin), slotH.DeleteMostRecentSlot)
			slotRoutes.DELETE("/:slot_id", authMw.AuthorizeRole(domain.RoleAdmin), slotH.DeleteSlot)

			slotRoutes.POST("/:slot_id/book", authMw.AuthorizeRole(domain.RoleCustomer), slotH.BookSlot)
			slotRoutes.POST("/:slot_id/walk-in-booking", authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleStaff), slotH.BookForWalkIn)
			slotRoutes.POST("/:slot_id/exit", authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleStaff), slotH.ExitSlot)
			slotRoutes.POST("/:slot_id/maintenance", authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleStaff), slotH.ToggleMaintenance)
			slotRoutes.POST("/:slot_id/resolve-maintenance", authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleStaff), slotH.ResolveMaintenance)
		}

		customerH := handler.NewCustomerHandler(ds)
		customerRoutes := v1.Group("/customers")
		{
			customerRoutes.GET("", authMw.AuthorizeRole(domain.RoleAdmin), customerH.ListCustomers)
			customerRoutes.DELETE("/:id", authMw.AuthorizeRole(domain.RoleAdmin), customerH.DeleteCustomer)
			customerRoutes.GET("/walk-in", authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleStaff), customerH.ListWalkIns)
			customerRoutes.POST("/walk-in", authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleStaff), customerH.RegisterWalkIn)
		}

		staffRoutes := v1.Group("/staff")
		staffRoutes.Use(authMw.AuthorizeRole(domain.RoleAdmin))
		{
			staffRoutes.GET("", customerH.ListStaff)
			staffRoutes.POST("", customerH.RegisterStaff)
		}

		historyH := handler.NewHistoryHandler(ps)
		v1.GET("/history", authMw.AuthorizeRole(domain.RoleAdmin, domain.RoleStaff), historyH.ListHistory)

		v1.GET("/deleted-users", authMw.AuthorizeRole(domain.RoleAdmin), customerH.ListDeletedUsers)
	}
	return r
}
