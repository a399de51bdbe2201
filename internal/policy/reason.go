package policy

import (
	"errors"
	"fmt"
)

// Reason 是不可缓存原因码，取值稳定且均为负数。
type Reason int

const (
	ReasonMethod      Reason = -1
	ReasonCode        Reason = -2
	ReasonQuery       Reason = -3
	ReasonNoStore     Reason = -4
	ReasonPrivate     Reason = -5
	ReasonEnvironment Reason = -6
	ReasonRoute       Reason = -7
)

// ErrUnknownReason 表示查询了未定义的原因码，属于编程错误。
var ErrUnknownReason = errors.New("unknown uncacheable reason")

var reasonTags = map[Reason]string{
	ReasonMethod:      "method",
	ReasonCode:        "code",
	ReasonQuery:       "query-string",
	ReasonNoStore:     "no-store-policy",
	ReasonPrivate:     "private",
	ReasonEnvironment: "env",
	ReasonRoute:       "route",
}

// ReasonTag 将原因码翻译为简短标签，未知原因码返回错误而不是默认值。
func ReasonTag(code int) (string, error) {
	tag, ok := reasonTags[Reason(code)]
	if !ok {
		return "", fmt.Errorf("%w: unknown code of %d specified", ErrUnknownReason, code)
	}
	return tag, nil
}

// Tag 返回原因标签。
func (r Reason) Tag() (string, error) {
	return ReasonTag(int(r))
}

func (r Reason) String() string {
	if tag, ok := reasonTags[r]; ok {
		return tag
	}
	return fmt.Sprintf("reason(%d)", int(r))
}
