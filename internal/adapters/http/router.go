package http

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/fiber/v2/middleware/timeout"
	"github.com/gofiber/websocket/v2"

	"github.com/oceanclean/oceanclean/internal/core/domain"
	"github.com/oceanclean/oceanclean/internal/pkg/metrics"
)

const requestTimeout = 15 * time.Second

// SetupRoutes registers all REST, GraphQL, and WebSocket routes.
func SetupRoutes(app *fiber.App, deps *Dependencies) {
	// Prometheus metrics
	app.Use(metrics.Middleware())
	app.Get("/metrics", metrics.Handler())

	// Response compression (gzip)
	app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))

	// Request ID
	app.Use(requestid.New())

	// Propagate request ID into slog context
	app.Use(RequestIDLogMiddleware())

	// Access logs (structured HTTP request logging)
	app.Use(AccessLogMiddleware())

	// Rate limiting: drive controls send a command per key press, so the
	// budget is higher than a read-only API would need.
	app.Use(limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return newError(c, fiber.StatusTooManyRequests, "rate_limited", "too many requests, please try again later")
		},
	}))

	// Security headers + API version
	app.Use(func(c *fiber.Ctx) error {
		c.Set("X-Content-Type-Options", "nosniff")
		c.Set("X-Frame-Options", "DENY")
		c.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Set("X-API-Version", "1.0.0")
		return c.Next()
	})

	// ETag for conditional caching
	app.Use(ETagMiddleware())

	// Default Cache-Control headers
	app.Use(CachingMiddleware())

	// Health & readiness (no timeout, no auth)
	app.Get("/v1/health", HealthHandler(deps))
	app.Get("/v1/ready", ReadyHandler(deps))

	auth := RequireAuth(deps)
	admin := RequireRole(domain.RoleAdmin)
	with := func(h fiber.Handler) fiber.Handler {
		return timeout.NewWithContext(h, requestTimeout)
	}

	v1 := app.Group("/v1")
	v1.Post("/auth/login", with(LoginHandler(deps)))
	v1.Get("/auth/me", auth, MeHandler(deps))

	// Maps
	v1.Get("/maps", auth, with(ListMapsHandler(deps)))
	v1.Post("/maps", auth, with(CreateMapHandler(deps)))
	v1.Get("/maps/:id", auth, with(GetMapHandler(deps)))
	v1.Put("/maps/:id", auth, with(ReplaceMapHandler(deps)))
	v1.Delete("/maps/:id", auth, with(DeleteMapHandler(deps)))
	v1.Get("/maps/:id/locate", auth, with(LocateHandler(deps)))

	// Editor sessions
	v1.Post("/sessions", auth, with(OpenSessionHandler(deps)))
	v1.Get("/sessions/:id", auth, GetSessionHandler(deps))
	v1.Delete("/sessions/:id", auth, CloseSessionHandler(deps))
	v1.Post("/sessions/:id/reload", auth, with(ReloadSessionHandler(deps)))
	v1.Post("/sessions/:id/select", auth, SelectMapHandler(deps))
	v1.Post("/sessions/:id/maps", auth, CreateSessionMapHandler(deps))
	v1.Post("/sessions/:id/edit", auth, EditMapHandler(deps))
	v1.Put("/sessions/:id/draft", auth, RenameDraftHandler(deps))
	v1.Post("/sessions/:id/save", auth, with(SaveSessionMapHandler(deps)))
	v1.Post("/sessions/:id/cancel", auth, CancelEditHandler(deps))
	v1.Delete("/sessions/:id/maps/:mapId", auth, with(DeleteSessionMapHandler(deps)))
	v1.Delete("/sessions/:id/areas/:areaId", auth, with(DeleteAreaHandler(deps)))
	v1.Post("/sessions/:id/gestures", auth, with(GestureHandler(deps)))

	// Statistics
	v1.Get("/statistics", auth, with(StatisticsHandler(deps)))
	v1.Get("/statistics/daily", auth, with(DailyReadingsHandler(deps)))
	v1.Get("/statistics/weekly", auth, with(WeeklyReadingsHandler(deps)))
	v1.Get("/statistics/waste-types", auth, with(WasteTypesHandler(deps)))
	v1.Get("/statistics/historical", auth, with(HistoricalHandler(deps)))

	// Robot
	v1.Get("/robot/position", auth, with(RobotPositionHandler(deps)))
	v1.Get("/robot/area", auth, with(RobotAreaHandler(deps)))
	v1.Get("/control", auth, with(ControlStateHandler(deps)))
	v1.Post("/control/drive", auth, with(DriveHandler(deps)))
	v1.Post("/control/stop", auth, with(StopHandler(deps)))
	v1.Put("/control/depth", auth, with(DepthHandler(deps)))
	v1.Put("/control/pause", auth, with(PauseHandler(deps)))
	v1.Put("/control/mode", auth, with(ModeHandler(deps)))
	v1.Post("/control/ramp", auth, with(RampHandler(deps)))
	v1.Get("/video", auth, with(VideoHandler(deps)))
	v1.Put("/video", auth, with(SetVideoHandler(deps)))

	// Administration
	v1.Post("/admin/seed", auth, admin, with(SeedHandler(deps)))
	v1.Get("/admin/users", auth, admin, with(ListUsersHandler(deps)))
	v1.Post("/admin/users", auth, admin, with(CreateUserHandler(deps)))

	// GraphQL
	app.Post("/graphql", auth, with(GraphQLHandler(deps)))

	// API documentation (Swagger UI)
	SetupDocs(app, DefaultOpenAPIPath)

	// WebSocket
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}, auth)
	app.Get("/ws", websocket.New(WebSocketHandler(deps)))
}
