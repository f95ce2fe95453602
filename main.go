package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"

	"dasharena/protocol"
	"dasharena/server"
	"dasharena/sim"
)

// DashArena 入口：启动 HTTP + WebSocket 权威服务，并初始化房间管理器
func main() {
	var (
		addr      string
		logPath   string
		debug     bool
		cfgPath   string
		codecName string
		sentryDSN string
		statsAddr string
	)
	flag.StringVar(&addr, "addr", ":8080", "server listen address, e.g. :8080")
	flag.StringVar(&logPath, "log", "dasharena.log", "rolling log file path")
	flag.BoolVar(&debug, "debug", false, "enable debug logging (per-tick diagnostics)")
	flag.StringVar(&cfgPath, "config", "", "movement config JSON file; defaults are used when empty")
	flag.StringVar(&codecName, "codec", "json", "default wire codec for clients that do not ask: json|msgpack")
	flag.StringVar(&sentryDSN, "sentry-dsn", os.Getenv("SENTRY_DSN"), "sentry DSN for tick loop panic reports")
	flag.StringVar(&statsAddr, "statsview", "", "runtime stats dashboard address, e.g. localhost:18066; empty disables")
	flag.Parse()

	// 使用第三方 zap 日志库写入滚动日志文件
	if err := server.InitLogger(logPath, debug); err != nil {
		panic(err)
	}
	defer server.SyncLogger()

	if sentryDSN != "" {
		if err := sentry.Init(sentry.ClientOptions{Dsn: sentryDSN}); err != nil {
			server.Log.Fatalf("sentry init: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	cfg := sim.DefaultConfig()
	if cfgPath != "" {
		var err error
		if cfg, err = sim.LoadConfig(cfgPath); err != nil {
			server.Log.Fatalf("load config: %v", err)
		}
	} else {
		var err error
		if cfg, err = cfg.Normalize(); err != nil {
			server.Log.Fatalf("default config: %v", err)
		}
	}
	if _, err := protocol.Lookup(codecName); err != nil {
		server.Log.Fatalf("codec: %v", err)
	}

	if statsAddr != "" {
		// 必须在 statsview.New() 之前设置
		viewer.SetConfiguration(viewer.WithTheme(viewer.ThemeWesteros), viewer.WithAddr(statsAddr))
		mgr := statsview.New()
		go mgr.Start()
		defer mgr.Stop()
	}

	rm := server.InitRoomManager(cfg, sim.DefaultWorld(), codecName)
	// 先预创建一个默认房间，便于快速试跑
	_ = rm.GetOrCreateRoom(server.DefaultRoom)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", rm.HandleWS)
	// 管理与监控接口
	mux.HandleFunc("/admin/config", rm.HandleAdminConfig)
	mux.HandleFunc("/metrics", rm.HandleMetrics)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux}

	go func() {
		server.Log.Infof("DashArena listening on %s; tickRate=%g codec=%s", addr, cfg.TickRate, codecName)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			server.Log.Fatalf("listen: %v", err)
		}
	}()

	// 优雅退出（Ctrl+C）
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	server.Log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		server.Log.Warnf("http shutdown: %v", err)
	}
	rm.Close()
}
