package logging

import "github.com/sirupsen/logrus"

// BaseFields 构建 action + 配置路径等基础字段，便于不同入口复用。
func BaseFields(action, configPath string) logrus.Fields {
	return logrus.Fields{
		"action":     action,
		"configPath": configPath,
	}
}

// RequestFields 提供方法、路径与缓存状态字段，供代理请求日志复用。
// cacheStatus 取值 hit/stored/bypass/failed。
func RequestFields(method, path, cacheStatus string) logrus.Fields {
	return logrus.Fields{
		"method":       method,
		"path":         path,
		"cache_status": cacheStatus,
	}
}

// EntryFields 用于缓存条目管理操作（CLI 与 /-/entries 接口）。
func EntryFields(action, path string) logrus.Fields {
	return logrus.Fields{
		"action": action,
		"path":   path,
	}
}
