package httpserver

import (
	"log/slog"
	"time"

	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"

	"github.com/btcbuzzbot/bot/internal/interfaces/http/handlers"
	adminws "github.com/btcbuzzbot/bot/internal/interfaces/websocket"
)

// DefaultAPIPrefix defines the root path for versioned API routes.
const DefaultAPIPrefix = "/api/v1"

// RouteOptions defines dependencies required to register HTTP routes.
type RouteOptions struct {
	Logger         *slog.Logger
	AuthMiddleware fiber.Handler
	Prefix         string
	AdminHandler   *handlers.AdminHandler
	AdminWS        *adminws.AdminWebSocketHandler
	// WSAuth validates the bearer token carried in the admin websocket's
	// "token" query parameter, since browsers cannot set an Authorization
	// header on the upgrade request.
	WSAuth func(token string) bool
}

// RegisterRoutes wires application endpoints onto the provided Fiber application.
func RegisterRoutes(app *fiber.App, opts RouteOptions) {
	if app == nil {
		return
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	prefix := opts.Prefix
	if prefix == "" {
		prefix = DefaultAPIPrefix
	}

	public := app.Group(prefix)
	registerHealthRoutes(public, logger, opts)

	if opts.AuthMiddleware != nil && opts.AdminHandler != nil {
		admin := public.Group("/admin")
		admin.Post("/login", opts.AdminHandler.Login())

		secure := admin.Group("", opts.AuthMiddleware)
		registerAdminRoutes(secure, logger, opts)
	}

	registerAdminWebSocket(app, prefix, logger, opts)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "btcbuzzbot",
			"status":  "ok",
			"version": "v1",
			"time":    time.Now().UTC(),
		})
	})

	logger.Info("http routes registered", slog.String("prefix", prefix))
}

func registerHealthRoutes(router fiber.Router, logger *slog.Logger, opts RouteOptions) {
	if opts.AdminHandler != nil {
		router.Get("/health", opts.AdminHandler.Health())
		return
	}
	router.Get("/health", func(c *fiber.Ctx) error {
		logger.Debug("health check invoked")
		return c.JSON(fiber.Map{"status": "ok", "timestamp": time.Now().UTC()})
	})
}

func registerAdminRoutes(router fiber.Router, logger *slog.Logger, opts RouteOptions) {
	h := opts.AdminHandler

	router.Get("/status", h.Status())
	router.Get("/posts", h.Posts())
	router.Get("/news", h.News())

	router.Get("/schedule", h.GetSchedule())
	router.Put("/schedule", h.SetSchedule())

	router.Get("/quotes", h.ListQuotes())
	router.Post("/quotes", h.AddQuote())
	router.Delete("/quotes/:id", h.DeleteQuote())

	router.Get("/jokes", h.ListJokes())
	router.Post("/jokes", h.AddJoke())
	router.Delete("/jokes/:id", h.DeleteJoke())

	logger.Debug("admin routes registered")
}

// registerAdminWebSocket wires the live event stream behind its own bearer
// check, since the Fiber upgrade handshake precedes the auth middleware
// group and carries its token as a query parameter rather than a header.
func registerAdminWebSocket(app *fiber.App, prefix string, logger *slog.Logger, opts RouteOptions) {
	if opts.AdminWS == nil {
		return
	}

	path := prefix + "/admin/ws"
	app.Use(path, func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}
		if opts.WSAuth != nil && !opts.WSAuth(c.Query("token")) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid or missing token")
		}
		return c.Next()
	})
	app.Get(path, websocket.New(opts.AdminWS.Handle))
	logger.Debug("admin websocket route registered", slog.String("path", path))
}
