package main

import (
	"log"
	"log/slog"
	"os"

	"github.com/wardenbot/warden/pkg/logging"
)

func main() {
	parseConfig()

	a, err := InitializeApp()
	if err != nil {
		log.Fatalln(err)
	}

	a.Info("Starting application")
	if err := a.Run(); err != nil {
		a.Error("Error running application", slog.String(logging.KeyError, err.Error()))
		os.Exit(1)
	}
}
