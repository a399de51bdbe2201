package proxy

import (
	"encoding/json"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/supercache/supercache/internal/cache"
	"github.com/supercache/supercache/internal/policy"
)

const (
	scriptContentType = "text/javascript; charset=utf-8"
	jsonContentType   = "application/json"
	htmlContentType   = "text/html; charset=utf-8"
)

// cachedContentType 依据写入时记录的分类还原命中响应的 Content-Type。
// 扩展名推断的 MIME 与分类一致时优先使用，否则在分类范围内嗅探正文。
func cachedContentType(entry cache.Entry) string {
	if byExt := mime.TypeByExtension(path.Ext(entry.Path)); byExt != "" &&
		policy.ClassifyContentType(byExt) == entry.Type {
		return byExt
	}

	switch entry.Type {
	case cache.ContentScript:
		if json.Valid(entry.Content) {
			return jsonContentType
		}
		return scriptContentType
	case cache.ContentHTML:
		if sniffed := http.DetectContentType(entry.Content); strings.HasPrefix(sniffed, "text/") {
			return sniffed
		}
		return htmlContentType
	default:
		return http.DetectContentType(entry.Content)
	}
}
