package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gofiber/fiber/v3"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/supercache/supercache/internal/cache"
	"github.com/supercache/supercache/internal/config"
	"github.com/supercache/supercache/internal/logging"
	"github.com/supercache/supercache/internal/policy"
	"github.com/supercache/supercache/internal/proxy"
	"github.com/supercache/supercache/internal/server"
	"github.com/supercache/supercache/internal/server/routes"
	"github.com/supercache/supercache/internal/version"
)

// configEnvKey 在未指定 --config 时提供配置路径。
const configEnvKey = "SUPERCACHE_CONFIG"

// cliOptions 汇总 CLI 标志解析后的结果，便于在测试中注入。
type cliOptions struct {
	configFlag string
}

// configPath 按 --config → SUPERCACHE_CONFIG → config.toml 的顺序确定配置路径。
func (o *cliOptions) configPath() string {
	if o.configFlag != "" {
		return o.configFlag
	}
	if path := os.Getenv(configEnvKey); path != "" {
		return path
	}
	return "config.toml"
}

// exitError 携带退出码；未包装的错误视为用法错误。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func failf(format string, args ...any) error {
	return &exitError{code: 1, err: fmt.Errorf(format, args...)}
}

var (
	stdOut io.Writer = os.Stdout
	stdErr io.Writer = os.Stderr
)

func main() {
	os.Exit(execute(os.Args[1:]))
}

// execute 构建命令树并执行，返回退出码：0 成功，1 运行失败，2 参数错误。
func execute(args []string) int {
	root := newRootCmd(&cliOptions{})
	root.SetArgs(args)
	root.SetOut(stdOut)
	root.SetErr(stdErr)

	err := root.Execute()
	if err == nil {
		return 0
	}
	fmt.Fprintln(stdErr, err.Error())

	var exitErr *exitError
	if errors.As(err, &exitErr) {
		return exitErr.code
	}
	return 2
}

func newRootCmd(opts *cliOptions) *cobra.Command {
	root := &cobra.Command{
		Use:           "supercache",
		Short:         "Full-page HTTP response cache in front of an origin server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(opts.configPath())
		},
	}
	root.PersistentFlags().StringVar(&opts.configFlag, "config", "", "配置文件路径（默认 ./config.toml，可被 SUPERCACHE_CONFIG 覆盖）")

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Start the caching proxy (default command)",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(opts.configPath())
			},
		},
		&cobra.Command{
			Use:   "check-config",
			Short: "Validate the configuration file and exit",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runCheckConfig(opts.configPath())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				printVersion()
			},
		},
		newEntriesCmd(opts),
	)
	return root
}

func loadConfigAndLogger(configPath string) (*config.Config, *logrus.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, failf("加载配置失败: %v", err)
	}

	logger, err := logging.InitLogger(cfg.Global)
	if err != nil {
		return nil, nil, failf("初始化日志失败: %v", err)
	}
	return cfg, logger, nil
}

func runCheckConfig(configPath string) error {
	cfg, logger, err := loadConfigAndLogger(configPath)
	if err != nil {
		return err
	}

	fields := logging.BaseFields("check_config", configPath)
	fields["routes"] = len(cfg.Routes)
	fields["no_cache"] = cfg.NoCachePrefixes()
	fields["environment"] = cfg.Cache.Environment
	fields["admin_routes"] = cfg.Cache.AdminRoutes
	fields["result"] = "ok"
	logger.WithFields(fields).Info("配置校验通过")
	return nil
}

// runServe 启动顺序为“配置 → 路由表 → 磁盘缓存 → 决策引擎 → Fiber server”，
// 所有请求共享同一份路由与缓存实例。
func runServe(configPath string) error {
	cfg, logger, err := loadConfigAndLogger(configPath)
	if err != nil {
		return err
	}

	table, err := server.NewRouteTable(cfg)
	if err != nil {
		return failf("构建路由表失败: %v", err)
	}

	finder, err := cache.NewOSFinder(cfg.Global.StoragePath)
	if err != nil {
		return failf("初始化缓存目录失败: %v", err)
	}
	store := cache.NewStore(finder)
	engine := policy.NewEngine(store, cfg.EngineOptions())
	handler := proxy.NewHandler(server.NewUpstreamClient(cfg), logger, store, engine)

	fields := logging.BaseFields("startup", configPath)
	fields["listen_port"] = cfg.Global.ListenPort
	fields["upstream"] = cfg.Global.Upstream
	fields["storage_path"] = cfg.Global.StoragePath
	fields["environment"] = cfg.Cache.Environment
	fields["no_cache"] = cfg.NoCachePrefixes()
	fields["admin_routes"] = cfg.Cache.AdminRoutes
	fields["version"] = version.Full()
	logger.WithFields(fields).Info("配置加载完成")

	if err := startHTTPServer(cfg, table, store, handler, logger); err != nil {
		return failf("HTTP 服务启动失败: %v", err)
	}
	return nil
}

func startHTTPServer(cfg *config.Config, table *server.RouteTable, store *cache.Store, handler server.ProxyHandler, logger *logrus.Logger) error {
	app, err := newHTTPApp(cfg, table, store, handler, logger)
	if err != nil {
		return err
	}

	port := cfg.Global.ListenPort
	logger.WithFields(logrus.Fields{
		"action": "listen",
		"port":   port,
	}).Info("Fiber 服务启动")

	return app.Listen(fmt.Sprintf(":%d", port))
}

// newHTTPApp 组装代理应用；只有开启 AdminRoutes 时才挂载 /-/ 管理接口。
func newHTTPApp(cfg *config.Config, table *server.RouteTable, store routes.EntryStore, handler server.ProxyHandler, logger *logrus.Logger) (*fiber.App, error) {
	app, err := server.NewApp(server.AppOptions{
		Logger: logger,
		Routes: table,
		Proxy:  handler,
	})
	if err != nil {
		return nil, err
	}
	if cfg.Cache.AdminRoutes {
		routes.RegisterEntryRoutes(app, store, logger)
		routes.RegisterRouteDiagnostics(app, table)
	}
	return app, nil
}
