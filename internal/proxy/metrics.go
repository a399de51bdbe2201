package proxy

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/supercache/supercache/internal/proxy"

// 缓存状态，同时用于日志字段 cache_status 与指标属性 outcome。
const (
	statusHit    = "hit"
	statusStored = "stored"
	statusBypass = "bypass"
	statusFailed = "failed"
)

// responseMetrics 按缓存结果统计代理响应数量。
type responseMetrics struct {
	responses metric.Int64Counter
}

func newResponseMetrics(meter metric.Meter) (*responseMetrics, error) {
	responses, err := meter.Int64Counter(
		"supercache.responses",
		metric.WithDescription("Proxied responses by cache outcome"),
		metric.WithUnit("{response}"),
	)
	if err != nil {
		return nil, err
	}
	return &responseMetrics{responses: responses}, nil
}

// record 的 reason 只在 bypass 时有意义，其余情况传空串。
func (m *responseMetrics) record(ctx context.Context, outcome, reason string) {
	if m == nil {
		return
	}
	attrs := []attribute.KeyValue{attribute.String("outcome", outcome)}
	if reason != "" {
		attrs = append(attrs, attribute.String("reason", reason))
	}
	m.responses.Add(ctx, 1, metric.WithAttributes(attrs...))
}
