package main

import (
	"go.uber.org/zap"

	"github.com/tictacthree/tictacthree/internal/app/server"
	"github.com/tictacthree/tictacthree/pkg/logging"
)

func main() {
	logging.Fatal("Game server exited: ", zap.Error(
		server.NewServer().Start(),
	))
}
