// Command download_tiktok is the serverless function. Netlify and AWS Lambda
// both deliver API Gateway proxy events to it.
package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"

	"github.com/robertkozin/tiktok-direct-link/config"
	"github.com/robertkozin/tiktok-direct-link/resolve"
	"github.com/robertkozin/tiktok-direct-link/tr"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading config", "err", err)
		os.Exit(1)
	}
	logger := cfg.NewLogger(os.Stdout)

	shutdown, err := tr.Init(cfg.ServiceName)
	if err != nil {
		logger.Error("initializing tracer", "err", err)
		os.Exit(1)
	}

	handler, err := resolve.New(cfg, logger)
	if err != nil {
		logger.Error("creating handler", "err", err)
		os.Exit(1)
	}

	logger.Info("function ready", "extractor", handler.Extractor.String(), "timeout", cfg.ExtractTimeout.String())
	lambda.StartWithOptions(handler.HandleAPIGateway, lambda.WithEnableSIGTERM(shutdown))
}
