// cmd/devbackend/main.go
//
// Local stand-in for the analysis backend. Point the client at it with
// backend.origin (or COMPLIANCE_BACKEND_ORIGIN) to try uploads and questions
// without the hosted service.

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/kingrea/compliance-assistant/internal/config"
	"github.com/kingrea/compliance-assistant/internal/devbackend"
	"github.com/kingrea/compliance-assistant/internal/logging"
)

func main() {
	_ = godotenv.Load(".env")

	projectDir := flag.String("project", "", "path to the project directory (defaults to cwd)")
	quiet := flag.Bool("quiet", false, "only write to the log file")
	flag.Parse()

	project := *projectDir
	if project == "" {
		var err error
		project, err = os.Getwd()
		if err != nil {
			die("determine working directory: %v", err)
		}
	}
	if err := config.InitWorkDir(project); err != nil {
		die("init %s: %v", config.WorkDirName, err)
	}
	cfg, err := config.NewConfig(project)
	if err != nil {
		die("load config: %v", err)
	}
	var logOpts []logging.Option
	if !*quiet {
		logOpts = append(logOpts, logging.WithMirror(os.Stderr))
	}
	logger, err := logging.New(cfg, logOpts...)
	if err != nil {
		die("open log: %v", err)
	}
	defer logger.Close()

	gin.SetMode(gin.ReleaseMode)
	srv, err := devbackend.NewServer(devbackend.SettingsFromConfig(cfg), devbackend.WithLogger(logger))
	if err != nil {
		die("prepare server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := srv.Start(ctx); err != nil {
		die("start server: %v", err)
	}
	fmt.Printf("Compliance dev backend on %s\n", srv.BaseURL())

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Printf("devbackend: shutdown: %v", err)
	}
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
