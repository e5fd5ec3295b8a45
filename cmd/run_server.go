package cmd

import (
	"context"
	"fmt"
	"net/http"
	"time"

	internalApp "github.com/haierkeys/holarchy-browser-service/internal/app"
	"github.com/haierkeys/holarchy-browser-service/internal/routers"
	"github.com/haierkeys/holarchy-browser-service/internal/task"
	"github.com/haierkeys/holarchy-browser-service/pkg/logger"
	"github.com/haierkeys/holarchy-browser-service/pkg/safeclose"

	"go.uber.org/zap"
)

// Server ties the HTTP listener, the app container and the task
// scheduler to one shutdown fan-in.
type Server struct {
	logger     *zap.Logger
	config     *internalApp.AppConfig
	httpServer *http.Server
	sc         *safeclose.SafeClose
	app        *internalApp.App
}

func NewServer(runEnv *runFlags) (*Server, error) {
	appConfig, configRealpath, err := internalApp.LoadConfig(runEnv.config)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if len(runEnv.runMode) > 0 {
		appConfig.Server.RunMode = runEnv.runMode
	}
	if len(runEnv.port) > 0 {
		appConfig.Server.HttpPort = runEnv.port
	}

	s := &Server{
		config: appConfig,
		sc:     safeclose.New(),
	}

	lg, err := logger.NewLogger(appConfig.Log)
	if err != nil {
		return nil, fmt.Errorf("initLogger: %w", err)
	}
	s.logger = lg

	app, err := internalApp.NewApp(appConfig, s.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create app container: %w", err)
	}
	s.app = app

	taskManager := task.NewManager(s.logger, s.sc)
	if err := taskManager.RegisterTasks(app); err != nil {
		return nil, fmt.Errorf("failed to register tasks: %w", err)
	}
	taskManager.Start()

	s.logger.Warn(fmt.Sprintf("%s v%s starting", internalApp.Name, internalApp.Version))
	s.logger.Warn("config loaded", zap.String("path", configRealpath))

	s.httpServer = &http.Server{
		Addr:           appConfig.Server.HttpPort,
		Handler:        routers.NewRouter(s.app),
		ReadTimeout:    time.Duration(appConfig.Server.ReadTimeout) * time.Second,
		WriteTimeout:   time.Duration(appConfig.Server.WriteTimeout) * time.Second,
		MaxHeaderBytes: 1 << 20,
	}
	s.logger.Warn("api listening", zap.String("addr", appConfig.Server.HttpPort))

	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		errChan := make(chan error, 1)
		go func() {
			errChan <- s.httpServer.ListenAndServe()
		}()
		select {
		case err := <-errChan:
			s.logger.Error("api service err", zap.Error(err))
			s.sc.SendCloseSignal(err)
		case <-closeSignal:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := s.httpServer.Shutdown(ctx); err != nil {
				s.logger.Error("api service shutdown error", zap.Error(err))
			}
		}
	})

	s.sc.Attach(func(done func(), closeSignal <-chan struct{}) {
		defer done()
		<-closeSignal
		if err := s.app.Close(); err != nil {
			s.logger.Error("app container close error", zap.Error(err))
		}
	})

	return s, nil
}
