package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/fachebot/doc-summary/internal/config"
	"github.com/fachebot/doc-summary/internal/logger"
	"github.com/fachebot/doc-summary/internal/scheduler"
	"github.com/fachebot/doc-summary/internal/svc"
	"github.com/fachebot/doc-summary/internal/web"
)

var configFile = flag.String("f", "etc/config.yaml", "the config file")

func main() {
	flag.Parse()

	// .env 不存在时忽略，环境变量照常生效
	_ = godotenv.Load()

	// 读取配置文件
	c, err := config.LoadFromFile(*configFile)
	if err != nil {
		logger.Fatalf("读取配置文件失败, %s", err)
	}
	logger.Setup(c.Log)
	if c.LLM.APIKey == "" {
		logger.Warnf("未设置 GOOGLE_API_KEY, 总结请求将返回错误")
	}

	// 创建服务上下文
	svcCtx, err := svc.NewServiceContext(c)
	if err != nil {
		logger.Fatalf("创建服务上下文失败, %s", err)
	}

	// 创建并启动调度器
	schedulerInstance := scheduler.NewScheduler(svcCtx.Uploads, &c.Upload)
	if err := schedulerInstance.Start(); err != nil {
		logger.Fatalf("[Scheduler] 启动调度器失败: %s", err)
	}

	// 启动 HTTP 服务
	gin.SetMode(gin.ReleaseMode)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port),
		Handler:           web.SetupRouter(svcCtx),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.Infof("[Web] 服务启动于 http://%s%s/", server.Addr, c.Server.Subpath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("[Web] 服务异常退出: %s", err)
		}
	}()

	// 等待程序退出
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	<-ch

	// 优雅关闭
	logger.Infof("正在关闭服务...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Errorf("[Web] 关闭失败, %v", err)
	}
	schedulerInstance.Stop()
	logger.Infof("服务已停止")
}
