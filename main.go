package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"parking_lot_system/internal/api"
	"parking_lot_system/internal/api/handler"
	"parking_lot_system/internal/api/middleware"
	"parking_lot_system/internal/config"
	"parking_lot_system/internal/repository/postgresql"
	"parking_lot_system/internal/service"
)

func main() {
	// 1. Load Configuration
	cfg := config.Load()
	log.Println("Cấu hình đã được tải.")

	// 2. Setup Database Connection
	db, err := postgresql.NewDB(cfg)
	if err != nil {
		log.Fatalf("Không thể kết nối database: %v", err)
	}
	defer db.Close()
	log.Println("Đã kết nối database thành công!")

	if err := postgresql.Migrate(db); err != nil {
		log.Fatalf("Không thể migrate schema: %v", err)
	}

	// 3. Initialize Repositories
	userRepo := postgresql.NewPgUserRepository(db)
	slotRepo := postgresql.NewPgParkingSlotRepository(db)
	historyRepo := postgresql.NewPgParkingHistoryRepository(db)
	archiveRepo := postgresql.NewPgArchiveRepository(db)
	txManager := postgresql.NewTxManager(db)

	// init websocket manager
	webSocketManager := handler.NewWebSocketManager()
	go webSocketManager.Start()
	log.Println("WebSocket Manager đã được khởi động.")

	// 4. Initialize Services
	authService := service.NewAuthService(userRepo, webSocketManager, cfg.JWTSecret, cfg.JWTExpirationHours)
	parkingService := service.NewParkingService(slotRepo, userRepo, historyRepo, archiveRepo, txManager, webSocketManager)
	directoryService := service.NewDirectoryService(userRepo, slotRepo, historyRepo, archiveRepo, txManager, webSocketManager)

	// Seed tài khoản admin nếu bảng users còn trống
	seedCtx, cancelSeed := context.WithTimeout(context.Background(), 10*time.Second)
	if err := authService.EnsureAdminAccount(seedCtx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword); err != nil {
		cancelSeed()
		log.Fatalf("Không thể khởi tạo tài khoản admin: %v", err)
	}
	cancelSeed()

	// 5. Initialize Auth Middleware
	authMiddleware := middleware.NewAuthMiddleware(authService)

	// 6. Setup HTTP Router
	router := api.SetupRouter(authService, parkingService, directoryService, authMiddleware, webSocketManager)

	// 7. Start HTTP Server
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: router,
	}

	go func() {
		log.Printf("Server đang chạy trên port %s", cfg.ServerPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Lỗi ListenAndServe(): %v", err)
		}
	}()

	// Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Đang tắt server...")

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server buộc phải tắt: %v", err)
	}

	log.Println("Server đã tắt.")
}
