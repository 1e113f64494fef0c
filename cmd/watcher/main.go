package main

import (
	"flag"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"escrow-sol/internal/config"
	"escrow-sol/internal/svc"
	"escrow-sol/pkg/logger"

	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/watcher.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
			logger.Sync()
		}
	}()

	flag.Parse()

	var c config.WatcherServiceConfig
	config.MustLoad(*configFile, &c)

	if err := logger.Init(c.LogConf.ToLogOption()); err != nil {
		logger.Errorf("init logger: %v", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := c.Validate(); err != nil {
		logger.Errorf("invalid config %s: %v", *configFile, err)
		logger.Sync()
		os.Exit(1)
	}

	serviceContext, err := svc.NewWatcherServiceContext(c)
	if err != nil {
		logger.Errorf("init service context: %v", err)
		logger.Sync()
		os.Exit(1)
	}
	defer serviceContext.Close()

	sg := zerosvc.NewServiceGroup()
	sg.Add(serviceContext.Watcher)
	sg.Add(serviceContext.FlushService)

	logger.Infof("Starting escrow watcher")

	// ServiceGroup.Start 会阻塞，放到后台运行
	go sg.Start()

	// 等待退出信号
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	logger.Infof("Shutting down services...")
	// 按添加顺序停止：先停 watcher，再停落库服务，保证最后一批状态变化能被写入
	sg.Stop()
}
