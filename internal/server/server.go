package server

import (
	"log"
	"strconv"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"

	"whiteboard-backend/internal/auth"
	"whiteboard-backend/internal/config"
	"whiteboard-backend/internal/handler"
	"whiteboard-backend/internal/presence"
	"whiteboard-backend/internal/queue"
	"whiteboard-backend/internal/realtime"
	"whiteboard-backend/internal/service"
	"whiteboard-backend/internal/session"
)

// Server Fiber app wrapper
type Server struct {
	app               *fiber.App
	cfg               *config.Config
	whiteboardHandler *handler.WhiteboardHandler
	wsHandler         *handler.WhiteboardWSHandler
	healthHandler     *handler.HealthHandler
	jwtManager        *auth.JWTManager
}

// Deps everything the HTTP surface needs, wired by the composition
// root.
type Deps struct {
	DB       *gorm.DB
	Boards   *service.WhiteboardService
	Pipeline *service.Pipeline
	Queue    *queue.MutationQueue
	Sessions *session.Store
	Presence *presence.Manager
	Hub      *realtime.Hub
}

// New builds the server with its handlers.
func New(cfg *config.Config, deps *Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName:         "Whiteboard Sync Engine",
		ServerHeader:    "Fiber",
		StrictRouting:   true,
		CaseSensitive:   true,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		IdleTimeout:     cfg.Server.IdleTimeout,
		Prefork:         false, // incompatible with WebSocket rooms
		ReadBufferSize:  16384,
		WriteBufferSize: 16384,
		BodyLimit:       10 * 1024 * 1024,
	})

	jwtManager := auth.NewJWTManager(cfg.Auth.JWTSecret)

	return &Server{
		app:               app,
		cfg:               cfg,
		whiteboardHandler: handler.NewWhiteboardHandler(deps.Boards, deps.Pipeline, deps.Queue),
		wsHandler:         handler.NewWhiteboardWSHandler(deps.Boards, deps.Pipeline, deps.Queue, deps.Sessions, deps.Presence, deps.Hub),
		healthHandler:     handler.NewHealthHandler(deps.DB, deps.Presence, deps.Queue, 3*cfg.Housekeeper.Interval),
		jwtManager:        jwtManager,
	}
}

// SetupMiddleware panic recovery, request logging, CORS
func (s *Server) SetupMiddleware() {
	s.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
	}))

	s.app.Use(logger.New(logger.Config{
		Format:     "${time} | ${status} | ${latency} | ${ip} | ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	s.app.Use(cors.New(cors.Config{
		AllowOrigins:     s.cfg.CORS.AllowOrigins,
		AllowHeaders:     s.cfg.CORS.AllowHeaders,
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))
}

// SetupRoutes REST and WebSocket endpoints
func (s *Server) SetupRoutes() {
	s.app.Get("/health", s.healthHandler.Check)
	s.app.Get("/health/live", s.healthHandler.Liveness)
	s.app.Get("/health/ready", s.healthHandler.Readiness)

	// Mutation endpoints are interactive; the limiter only guards
	// against runaway clients, not normal editing rates.
	writeLimiter := limiter.New(limiter.Config{
		Max:        600,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "too many requests, please try again later",
			})
		},
	})

	api := s.app.Group("/api/whiteboards", auth.Middleware(s.jwtManager))
	api.Get("", s.whiteboardHandler.List)
	api.Post("", s.whiteboardHandler.Create)
	api.Get("/:id", s.whiteboardHandler.Get)
	api.Put("/:id", s.whiteboardHandler.Update)
	api.Delete("/:id", s.whiteboardHandler.Delete)
	api.Post("/:id/restore", s.whiteboardHandler.Restore)
	api.Post("/:id/export", s.whiteboardHandler.Export)

	api.Post("/:id/elements", writeLimiter, s.whiteboardHandler.UpsertElements)
	api.Put("/:id/elements", writeLimiter, s.whiteboardHandler.UpdateElements)
	api.Delete("/:id/elements", writeLimiter, s.whiteboardHandler.DeleteElements)
	api.Post("/:id/elements/reorder", writeLimiter, s.whiteboardHandler.ReorderElements)

	s.app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			c.Locals("allowed", true)
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	s.app.Get("/ws/whiteboard/:id", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		// Browsers cannot set headers on WebSocket upgrades; the token
		// rides in a cookie or a query parameter.
		token := c.Cookies("access_token")
		if token == "" {
			token = c.Query("token")
		}
		if token == "" {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		claims, err := s.jwtManager.ValidateToken(token)
		if err != nil {
			return c.SendStatus(fiber.StatusUnauthorized)
		}

		whiteboardID, err := strconv.ParseInt(c.Params("id"), 10, 64)
		if err != nil || whiteboardID <= 0 {
			return c.SendStatus(fiber.StatusBadRequest)
		}

		c.Locals("actor", claims.Actor())
		c.Locals("whiteboardID", whiteboardID)
		return c.Next()
	}, websocket.New(s.wsHandler.HandleWebSocket, websocket.Config{
		ReadBufferSize:  s.cfg.WebSocket.ReadBufferSize,
		WriteBufferSize: s.cfg.WebSocket.WriteBufferSize,
	}))
}

// Start begins serving. Shutdown is driven by the composition root so
// background workers stop in the right order.
func (s *Server) Start() error {
	log.Printf("✅ Server listening on %s", s.cfg.Server.Port)
	return s.app.Listen(s.cfg.Server.Port)
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown() error {
	return s.app.ShutdownWithTimeout(30 * time.Second)
}
