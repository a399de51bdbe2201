package routes

import (
	"github.com/gofiber/fiber/v3"

	"github.com/supercache/supercache/internal/server"
)

type routePayload struct {
	Prefix   string `json:"prefix"`
	NoCache  bool   `json:"no_cache"`
	Upstream string `json:"upstream"`
}

// RegisterRouteDiagnostics 暴露 /-/routes，按匹配优先级列出路由与缓存开关。
func RegisterRouteDiagnostics(app *fiber.App, table *server.RouteTable) {
	if app == nil || table == nil {
		return
	}

	app.Get("/-/routes", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"routes": encodeRoutes(table.List())})
	})
}

func encodeRoutes(routes []server.Route) []routePayload {
	result := make([]routePayload, 0, len(routes))
	for _, route := range routes {
		item := routePayload{Prefix: route.Prefix, NoCache: route.NoCache}
		if route.UpstreamURL != nil {
			item.Upstream = route.UpstreamURL.String()
		}
		result = append(result, item)
	}
	return result
}
