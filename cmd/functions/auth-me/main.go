package main

import (
	"log"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/streetcredrx/credauth/internal/logging"
	"github.com/streetcredrx/credauth/internal/server/api"
	"github.com/streetcredrx/credauth/internal/server/config"

	fn "github.com/streetcredrx/credauth/internal/server/lambda"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	rt := fn.NewRuntime(api.RouteMe, cfg, logging.New(cfg.Env, os.Stdout))
	lambda.Start(rt.Handle)
}
