package server

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ProxyHandler describes the component responsible for proxying requests to
// the origin. It allows injecting fake handlers during tests.
type ProxyHandler interface {
	Handle(fiber.Ctx, *Route) error
}

// ProxyHandlerFunc adapts a function to the ProxyHandler interface.
type ProxyHandlerFunc func(fiber.Ctx, *Route) error

// Handle makes ProxyHandlerFunc satisfy ProxyHandler.
func (f ProxyHandlerFunc) Handle(c fiber.Ctx, route *Route) error {
	return f(c, route)
}

// AppOptions controls how the Fiber application should behave.
type AppOptions struct {
	Logger *logrus.Logger
	Routes *RouteTable
	Proxy  ProxyHandler
}

const (
	contextKeyRoute     = "_supercache_route"
	contextKeyRequestID = "_supercache_request_id"
)

// NewApp builds a Fiber application with path-prefix routing middleware and
// structured error handling. Paths under /-/ fall through to routes
// registered after NewApp returns.
func NewApp(opts AppOptions) (*fiber.App, error) {
	if opts.Logger == nil {
		return nil, errors.New("logger is required")
	}
	if opts.Routes == nil {
		return nil, errors.New("route table is required")
	}
	if opts.Proxy == nil {
		return nil, errors.New("proxy handler is required")
	}

	app := fiber.New(fiber.Config{
		CaseSensitive: true,
	})

	app.Use(recover.New())
	app.Use(requestContextMiddleware(opts))

	app.All("/*", func(c fiber.Ctx) error {
		if isDiagnosticsPath(string(c.Request().URI().Path())) {
			return c.Next()
		}
		route, _ := getRouteFromContext(c)
		if route == nil {
			return renderRouteUnmapped(c, opts.Logger)
		}
		return opts.Proxy.Handle(c, route)
	})

	return app, nil
}

// requestContextMiddleware 负责生成请求 ID，并基于请求路径查找 Route。
func requestContextMiddleware(opts AppOptions) fiber.Handler {
	return func(c fiber.Ctx) error {
		reqID := uuid.NewString()
		c.Locals(contextKeyRequestID, reqID)
		c.Set("X-Request-ID", reqID)

		path := string(c.Request().URI().Path())
		if isDiagnosticsPath(path) {
			return c.Next()
		}

		route, ok := opts.Routes.Lookup(path)
		if !ok {
			return renderRouteUnmapped(c, opts.Logger)
		}

		c.Locals(contextKeyRoute, route)
		return c.Next()
	}
}

func renderRouteUnmapped(c fiber.Ctx, logger *logrus.Logger) error {
	logger.WithFields(logrus.Fields{
		"action": "route_lookup",
		"path":   string(c.Request().URI().Path()),
	}).Warn("route unmapped")

	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "route_unmapped",
	})
}

func getRouteFromContext(c fiber.Ctx) (*Route, bool) {
	if value := c.Locals(contextKeyRoute); value != nil {
		if route, ok := value.(*Route); ok {
			return route, true
		}
	}
	return nil, false
}

// RequestID returns the request identifier stored by the router middleware.
func RequestID(c fiber.Ctx) string {
	if value := c.Locals(contextKeyRequestID); value != nil {
		if reqID, ok := value.(string); ok {
			return reqID
		}
	}
	return ""
}

func isDiagnosticsPath(path string) bool {
	return strings.HasPrefix(path, "/-/")
}
