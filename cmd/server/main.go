package main

import (
	"fmt"
	"os"

	_ "solis/docs"
	"solis/internal/config"
	"solis/internal/logger"
	"solis/internal/server"
)

// @title           Solis Center API
// @version         1.0
// @description     Operations console for the Solis Center law firm: tasks, documents, reports, forms and the team directory.

// @contact.name   Solis Center
// @contact.email  sistemas@soliscenter.mx

// @host      localhost:8080
// @BasePath  /

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the session token.

// @schemes http
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{Env: cfg.AppEnv, Level: cfg.LogLevel})

	s, err := server.Init(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("server initialization failed")
	}

	s.Run()
}
