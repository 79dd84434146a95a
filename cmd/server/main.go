package main

import (
	"log/slog"
	"os"

	"leaveledger/internal/app/server"
)

func main() {
	if err := server.Run(); err != nil {
		slog.Error("leave ledger stopped", "err", err)
		os.Exit(1)
	}
}
