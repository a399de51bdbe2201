package policy

import (
	"errors"
	"net/http"
	"strings"

	"github.com/supercache/supercache/internal/cache"
)

// HeaderName 是诊断头名称，值为 "uncacheable,<tag>" 或 "MISS,<0|1>"。
const HeaderName = "X-Supercache"

// 可识别的运行环境，其余环境一律视为不可缓存。
const (
	EnvironmentProd = "prod"
	EnvironmentDev  = "dev"
)

const defaultContentType = "application/octet-stream"

// Saver 是引擎写入缓存所需的最小能力，*cache.Store 满足该接口。
type Saver interface {
	SaveEntry(entry cache.Entry) (bool, error)
}

// Options 是引擎的只读配置。
type Options struct {
	Environment  string
	EnableProd   bool
	EnableDev    bool
	StatusHeader bool
}

// environmentEnabled 判断当前环境是否被识别且开启了缓存。
func (o Options) environmentEnabled() bool {
	switch o.Environment {
	case EnvironmentProd:
		return o.EnableProd
	case EnvironmentDev:
		return o.EnableDev
	default:
		return false
	}
}

// Outcome 描述一次 CacheResponse 的结果，调用方据此决定是否设置诊断头。
type Outcome struct {
	Cached bool
	// Reason 仅在响应不可缓存时非零。
	Reason Reason
	Type   cache.ContentType
	// Header 为空表示不需要写诊断头。
	Header string
	// SaveErr 记录被吞掉的文件系统错误，仅供日志使用。
	SaveErr error
}

// Engine 负责判定缓存资格并把合格响应写入 Store。
type Engine struct {
	store Saver
	opts  Options
}

// NewEngine 构造无状态的决策引擎。
func NewEngine(store Saver, opts Options) *Engine {
	return &Engine{store: store, opts: opts}
}

// Options 返回构造时注入的配置副本。
func (e *Engine) Options() Options {
	return e.opts
}

// IsCacheable 按固定顺序执行规则链，命中第一条规则即返回对应原因；
// 返回 true 时 Reason 为零值。
func (e *Engine) IsCacheable(req Request, resp Response) (Reason, bool) {
	switch {
	case req.OptOut:
		return ReasonRoute, false
	case req.Method != http.MethodGet:
		return ReasonMethod, false
	case req.RawQuery != "":
		return ReasonQuery, false
	case !resp.Successful() || resp.Empty():
		return ReasonCode, false
	case resp.HasDirective("no-store"):
		return ReasonNoStore, false
	case resp.HasDirective("private"):
		return ReasonPrivate, false
	case !e.opts.environmentEnabled():
		return ReasonEnvironment, false
	}
	return 0, true
}

// CacheResponse 尝试缓存响应。文件系统错误会被吞掉并体现在 Outcome 中，
// 但 SecurityViolation 与未知原因码会原样返回给调用方。
func (e *Engine) CacheResponse(req Request, resp Response) (Outcome, error) {
	reason, ok := e.IsCacheable(req, resp)
	if !ok {
		return e.uncacheable(reason)
	}

	contentType := resp.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}
	entry := cache.Entry{
		Path:    req.Path,
		Content: resp.Body,
		Type:    ClassifyContentType(contentType),
	}

	outcome := Outcome{Type: entry.Type}
	saved, err := e.store.SaveEntry(entry)
	if err != nil {
		if errors.Is(err, cache.ErrSecurityViolation) {
			return outcome, err
		}
		outcome.SaveErr = err
		saved = false
	}
	outcome.Cached = saved
	if e.opts.StatusHeader {
		outcome.Header = missHeader(saved)
	}
	return outcome, nil
}

// uncacheable 构造不可缓存结果，诊断头使用原因标签。
func (e *Engine) uncacheable(reason Reason) (Outcome, error) {
	outcome := Outcome{Reason: reason}
	if !e.opts.StatusHeader {
		return outcome, nil
	}
	tag, err := reason.Tag()
	if err != nil {
		return outcome, err
	}
	outcome.Header = "uncacheable," + tag
	return outcome, nil
}

// ClassifyContentType 通过 MIME 子串粗略分类，顺序固定：脚本/JSON → 文本 → 二进制。
func ClassifyContentType(mime string) cache.ContentType {
	switch {
	case strings.Contains(mime, "/javascript") || strings.Contains(mime, "/json"):
		return cache.ContentScript
	case strings.Contains(mime, "text/"):
		return cache.ContentHTML
	default:
		return cache.ContentBinary
	}
}

func missHeader(saved bool) string {
	if saved {
		return "MISS,1"
	}
	return "MISS,0"
}
