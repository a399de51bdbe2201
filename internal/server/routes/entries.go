package routes

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"

	"github.com/supercache/supercache/internal/logging"
)

// EntryStore 是 /-/entries 接口依赖的缓存管理能力，*cache.Store 满足该接口。
type EntryStore interface {
	List(parent string) ([]string, error)
	Exists(path string) bool
	Delete(path string) bool
	DeleteRecursive(path string) (bool, error)
	Clear() (bool, error)
}

// RegisterEntryRoutes 暴露 /-/entries 管理接口，用于查看与清理缓存条目。
func RegisterEntryRoutes(app *fiber.App, store EntryStore, logger *logrus.Logger) {
	if app == nil || store == nil || logger == nil {
		return
	}

	app.Get("/-/entries", func(c fiber.Ctx) error {
		entries, err := store.List(c.Query("parent"))
		if err != nil {
			return renderFilesystemError(c, logger, "entries_list", c.Query("parent"), err)
		}
		return c.JSON(fiber.Map{"entries": entries})
	})

	app.Get("/-/entries/exists", func(c fiber.Ctx) error {
		path, ok := requirePath(c)
		if !ok {
			return renderPathRequired(c)
		}
		return c.JSON(fiber.Map{"path": path, "exists": store.Exists(path)})
	})

	app.Delete("/-/entries", func(c fiber.Ctx) error {
		path, ok := requirePath(c)
		if !ok {
			return renderPathRequired(c)
		}

		recursive, _ := strconv.ParseBool(c.Query("recursive"))
		var deleted bool
		if recursive {
			var err error
			deleted, err = store.DeleteRecursive(path)
			if err != nil {
				return renderFilesystemError(c, logger, "entries_delete", path, err)
			}
		} else {
			deleted = store.Delete(path)
		}

		logger.WithFields(logging.EntryFields("entries_delete", path)).
			WithFields(logrus.Fields{"recursive": recursive, "deleted": deleted}).
			Info("cache entry delete")
		return c.JSON(fiber.Map{"path": path, "deleted": deleted})
	})

	app.Delete("/-/entries/all", func(c fiber.Ctx) error {
		cleared, err := store.Clear()
		if err != nil {
			return renderFilesystemError(c, logger, "entries_clear", "/", err)
		}
		logger.WithFields(logging.EntryFields("entries_clear", "/")).
			WithField("cleared", cleared).
			Info("cache cleared")
		return c.JSON(fiber.Map{"cleared": cleared})
	})
}

func requirePath(c fiber.Ctx) (string, bool) {
	path := strings.TrimSpace(c.Query("path"))
	return path, path != ""
}

func renderPathRequired(c fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "path_required"})
}

func renderFilesystemError(c fiber.Ctx, logger *logrus.Logger, action, path string, err error) error {
	logger.WithFields(logging.EntryFields(action, path)).
		WithError(err).
		Error("cache filesystem error")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "filesystem_error"})
}
