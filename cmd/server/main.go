package main

import (
	"github.com/OFFIS-RIT/stakegraph/internal/server"
	"github.com/OFFIS-RIT/stakegraph/internal/util"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger"
	"github.com/OFFIS-RIT/stakegraph/pkg/logger/console"
)

func main() {
	util.LoadEnv()

	consoleLogger := console.NewConsoleLogger(console.ConsoleLoggerParams{
		Debug:  util.GetEnvBool("DEBUG", false),
		Format: util.GetEnv("LOG_FORMAT"),
	})
	logger.Init(consoleLogger)

	server.Init()
}
