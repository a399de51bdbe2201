package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/metric"

	"github.com/supercache/supercache/internal/cache"
	"github.com/supercache/supercache/internal/logging"
	"github.com/supercache/supercache/internal/policy"
	"github.com/supercache/supercache/internal/server"
)

// Store 是代理命中路径需要的只读能力，*cache.Store 满足该接口。
type Store interface {
	Exists(path string) bool
	ReadEntry(path string) (cache.Entry, error)
}

// Handler 负责“缓存命中 → 回源 → 决策写缓存”的全流程，对外暴露 Fiber handler。
type Handler struct {
	client  *http.Client
	logger  *logrus.Logger
	store   Store
	engine  *policy.Engine
	metrics *responseMetrics
}

// Option 调整 Handler 的可选依赖。
type Option func(*Handler)

// WithMeter 使用指定 Meter 记录响应指标，默认使用全局 MeterProvider。
func WithMeter(meter metric.Meter) Option {
	return func(h *Handler) {
		h.metrics = h.buildMetrics(meter)
	}
}

// NewHandler constructs a proxy handler with shared HTTP client/logger/store/engine.
func NewHandler(client *http.Client, logger *logrus.Logger, store Store, engine *policy.Engine, opts ...Option) *Handler {
	h := &Handler{
		client: client,
		logger: logger,
		store:  store,
		engine: engine,
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.metrics == nil {
		h.metrics = h.buildMetrics(otel.Meter(meterName))
	}
	return h
}

func (h *Handler) buildMetrics(meter metric.Meter) *responseMetrics {
	m, err := newResponseMetrics(meter)
	if err != nil {
		h.logger.WithError(err).WithField("action", "metrics_init").Warn("response metrics disabled")
		return nil
	}
	return m
}

// Handle 先尝试直接返回已缓存正文，未命中时回源并交由决策引擎判断是否写入。
func (h *Handler) Handle(c fiber.Ctx, route *server.Route) error {
	started := time.Now()
	requestID := server.RequestID(c)
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	req := policy.Request{
		Method:   c.Method(),
		Path:     normalizeRequestPath(requestPath(c)),
		RawQuery: string(c.Request().URI().QueryString()),
		OptOut:   route.NoCache,
	}

	if h.canServeCached(req) {
		entry, err := h.store.ReadEntry(req.Path)
		switch {
		case err == nil:
			return h.serveCache(ctx, c, req, entry, requestID, started)
		case errors.Is(err, cache.ErrNotFound):
			// 条目在 Exists 与 ReadEntry 之间被删除，按未命中处理
		default:
			h.logger.WithError(err).
				WithFields(logging.RequestFields(req.Method, req.Path, statusFailed)).
				Warn("cache_read_failed")
		}
	}

	return h.fetchAndRelay(ctx, c, route, req, requestID, started)
}

// canServeCached 只允许无查询串的 GET/HEAD 命中缓存，且路由未关闭缓存。
func (h *Handler) canServeCached(req policy.Request) bool {
	if req.OptOut || req.RawQuery != "" {
		return false
	}
	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		return false
	}
	return h.store.Exists(req.Path)
}

func (h *Handler) serveCache(
	ctx context.Context,
	c fiber.Ctx,
	req policy.Request,
	entry cache.Entry,
	requestID string,
	started time.Time,
) error {
	body := entry.Content
	c.Set(fiber.HeaderContentType, cachedContentType(entry))
	if h.engine.Options().StatusHeader {
		c.Set(policy.HeaderName, "HIT")
	}
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
	c.Status(fiber.StatusOK)

	h.metrics.record(ctx, statusHit, "")
	h.logResult(req, "", statusHit, fiber.StatusOK, started, requestID, nil)

	if req.Method == http.MethodHead {
		c.Response().Header.SetContentLength(len(body))
		return nil
	}
	return c.Send(body)
}

func (h *Handler) fetchAndRelay(
	ctx context.Context,
	c fiber.Ctx,
	route *server.Route,
	req policy.Request,
	requestID string,
	started time.Time,
) error {
	upstreamURL := resolveUpstreamURL(route.UpstreamURL, req)
	upstreamReq, err := h.buildUpstreamRequest(ctx, c, upstreamURL)
	if err != nil {
		h.metrics.record(ctx, statusFailed, "")
		h.logResult(req, upstreamURL.String(), statusFailed, 0, started, requestID, err)
		return h.writeError(c, fiber.StatusBadGateway, "upstream_failed")
	}

	resp, err := h.client.Do(upstreamReq)
	if err != nil {
		h.metrics.record(ctx, statusFailed, "")
		h.logResult(req, upstreamURL.String(), statusFailed, 0, started, requestID, err)
		return h.writeError(c, fiber.StatusBadGateway, "upstream_failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		h.metrics.record(ctx, statusFailed, "")
		h.logResult(req, upstreamURL.String(), statusFailed, resp.StatusCode, started, requestID, err)
		return h.writeError(c, fiber.StatusBadGateway, "upstream_failed")
	}

	outcome, cacheErr := h.engine.CacheResponse(req, policy.Response{
		StatusCode:   resp.StatusCode,
		Body:         body,
		ContentType:  resp.Header.Get("Content-Type"),
		CacheControl: resp.Header.Get("Cache-Control"),
	})
	status, reason := h.describeOutcome(req, outcome, cacheErr)

	copyResponseHeaders(c, resp.Header)
	if outcome.Header != "" {
		c.Set(policy.HeaderName, outcome.Header)
	}
	if requestID != "" {
		c.Set("X-Request-ID", requestID)
	}
	c.Status(resp.StatusCode)

	h.metrics.record(ctx, status, reason)
	h.logResult(req, upstreamURL.String(), status, resp.StatusCode, started, requestID, nil)

	if req.Method == http.MethodHead {
		return nil
	}
	return c.Send(body)
}

// describeOutcome 把决策结果折算为日志/指标使用的状态，并记录写缓存失败。
// 安全违规等决策错误不会影响本次响应的返回。
func (h *Handler) describeOutcome(req policy.Request, outcome policy.Outcome, cacheErr error) (string, string) {
	if cacheErr != nil {
		h.logger.WithError(cacheErr).
			WithFields(logging.RequestFields(req.Method, req.Path, statusFailed)).
			WithField("action", "cache_store").
			Error("cache_ingest_failed")
		return statusFailed, ""
	}
	if outcome.SaveErr != nil {
		h.logger.WithError(outcome.SaveErr).
			WithFields(logging.RequestFields(req.Method, req.Path, statusFailed)).
			WithField("action", "cache_store").
			Warn("cache_store_failed")
		return statusFailed, ""
	}
	if outcome.Cached {
		h.logger.WithFields(logging.RequestFields(req.Method, req.Path, statusStored)).
			WithField("content_class", outcome.Type.String()).
			Debug("cache_stored")
		return statusStored, ""
	}
	return statusBypass, outcome.Reason.String()
}

func (h *Handler) buildUpstreamRequest(ctx context.Context, c fiber.Ctx, upstream *url.URL) (*http.Request, error) {
	var body io.Reader = http.NoBody
	if raw := c.Body(); len(raw) > 0 {
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, c.Method(), upstream.String(), body)
	if err != nil {
		return nil, err
	}

	server.CopyHeaders(req.Header, fiberHeadersAsHTTP(c))
	// 缓存需要原始正文，禁止源站压缩
	req.Header.Del("Accept-Encoding")
	req.Host = upstream.Host
	req.Header.Set("Host", upstream.Host)
	server.SetForwardedHeaders(req.Header, c.IP(), c.Hostname(), c.Scheme())
	return req, nil
}

func (h *Handler) writeError(c fiber.Ctx, status int, code string) error {
	return c.Status(status).JSON(fiber.Map{"error": code})
}

func (h *Handler) logResult(
	req policy.Request,
	upstream string,
	cacheStatus string,
	status int,
	started time.Time,
	requestID string,
	err error,
) {
	fields := logging.RequestFields(req.Method, req.Path, cacheStatus)
	fields["action"] = "proxy"
	fields["upstream_status"] = status
	fields["elapsed_ms"] = time.Since(started).Milliseconds()
	if upstream != "" {
		fields["upstream"] = upstream
	}
	if requestID != "" {
		fields["request_id"] = requestID
	}
	if err != nil {
		fields["error"] = err.Error()
		h.logger.WithFields(fields).Error("proxy_failed")
		return
	}
	h.logger.WithFields(fields).Info("proxy_complete")
}

func requestPath(c fiber.Ctx) string {
	uri := c.Request().URI()
	if uri == nil {
		return "/"
	}
	return string(uri.Path())
}

func normalizeRequestPath(raw string) string {
	if raw == "" {
		raw = "/"
	}
	return path.Clean("/" + raw)
}

// resolveUpstreamURL 保留源站地址中的路径前缀，例如 http://origin/app + /blog → /app/blog。
func resolveUpstreamURL(base *url.URL, req policy.Request) *url.URL {
	target := *base
	target.Path = strings.TrimRight(base.Path, "/") + req.Path
	target.RawPath = ""
	target.RawQuery = req.RawQuery
	return &target
}

func fiberHeadersAsHTTP(c fiber.Ctx) http.Header {
	header := http.Header{}
	c.Request().Header.VisitAll(func(key, value []byte) {
		header.Add(string(key), string(value))
	})
	return header
}

// copyResponseHeaders 透传源站响应头；Content-Length 由 fasthttp 按实际正文重新计算。
func copyResponseHeaders(c fiber.Ctx, headers http.Header) {
	filtered := http.Header{}
	server.CopyHeaders(filtered, headers)
	filtered.Del("Content-Length")
	for key, values := range filtered {
		for _, value := range values {
			c.Response().Header.Add(key, value)
		}
	}
}
