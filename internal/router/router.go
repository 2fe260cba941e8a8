package router

import (
	"net/http"

	"github.com/andaluza-pos/api/internal/config"
	"github.com/andaluza-pos/api/internal/database"
	"github.com/andaluza-pos/api/internal/enum"
	"github.com/andaluza-pos/api/internal/handler"
	mw "github.com/andaluza-pos/api/internal/middleware"
	"github.com/andaluza-pos/api/internal/service"
	"github.com/andaluza-pos/api/internal/ws"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a Chi router with all application routes wired up.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{
			"http://localhost:5173", // terminal dev server
			"https://pos.andaluza.mx",
		},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket change feed (handles auth internally via query param)
	r.Get("/ws/changes", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	kitchenService := service.NewKitchenService(queries, pool, func(db database.DBTX) service.KitchenStore {
		return database.New(db)
	})
	tabService := service.NewTabService(queries, pool, func(db database.DBTX) service.TabStore {
		return database.New(db)
	})
	cashService := service.NewCashService(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		authHandler.RegisterProtectedRoutes(r)

		// Menu is read-only and visible to every role.
		catalogHandler := handler.NewCatalogHandler(queries)
		r.Route("/menu", catalogHandler.RegisterRoutes)

		// Front-of-house routes
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleCashier))

			orderHandler := handler.NewOrderHandler(orderService, queries, hub)
			r.Route("/orders", orderHandler.RegisterRoutes)

			tabHandler := handler.NewTabHandler(tabService, hub)
			r.Route("/tabs", tabHandler.RegisterRoutes)

			cashHandler := handler.NewCashHandler(cashService, hub)
			r.Route("/cash", cashHandler.RegisterRoutes)

			tableHandler := handler.NewTableHandler(queries, hub)
			r.Route("/tables", tableHandler.RegisterRoutes)
		})

		// Kitchen display
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin, enum.UserRoleKitchen))

			kitchenHandler := handler.NewKitchenHandler(kitchenService, queries, hub)
			r.Route("/kitchen", kitchenHandler.RegisterRoutes)
		})

		// Admin-only reports
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))

			reportHandler := handler.NewReportHandler(queries)
			r.Route("/reports", reportHandler.RegisterRoutes)
		})
	})

	return r
}
