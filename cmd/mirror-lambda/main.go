// Command mirror-lambda serves the EssenceMirror API behind API Gateway.
// Sessions live in the execution environment's memory, so deployments keep a
// single warm instance or pin visitors with the session ID.
package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/rs/zerolog/log"

	"github.com/kirubel/essence-mirror/internal/awsboot"
	"github.com/kirubel/essence-mirror/internal/config"
	"github.com/kirubel/essence-mirror/internal/httpapi"
	"github.com/kirubel/essence-mirror/internal/logging"
)

var handler http.Handler

func init() {
	initStart := time.Now()
	logging.Init()

	cfg, err := config.Load(logging.EnvOrDefault("ESSENCE_CONFIG_FILE", ""))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	clients, err := awsboot.InitAWS(ctx, cfg.AWS.Region)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load AWS config")
	}
	if err := awsboot.ResolveAgentIdentity(ctx, clients.SSM, &cfg.Agent); err != nil {
		log.Fatal().Err(err).Msg("Failed to resolve agent identity")
	}
	if cfg.Server.OriginVerifySecret == "" {
		log.Warn().Msg("ESSENCE_SERVER_ORIGIN_VERIFY_SECRET not set, origin verification disabled")
	}

	handler = httpapi.NewRouter(awsboot.BuildStudio(cfg, clients), httpapi.Options{
		MaxUploadBytes:     cfg.Server.MaxUploadBytes,
		UploadSource:       cfg.Storage.UploadSource,
		DefaultVoice:       cfg.Voice.DefaultVoice,
		CORSOrigins:        cfg.Server.CORSOrigins,
		OriginVerifySecret: cfg.Server.OriginVerifySecret,
	})

	awsboot.StartupLog("mirror-lambda", cfg, initStart).
		CommitHash(commitHash).
		Config("buildTime", buildTime).
		Log()
}

func main() {
	adapter := httpadapter.NewV2(handler)
	lambda.Start(adapter.ProxyWithContext)
}
