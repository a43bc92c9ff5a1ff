// Package awsboot holds the startup wiring shared by the web server, the
// Lambda handler and the CLI: AWS config, one client per service, agent
// identity from SSM and the Studio built on top of them.
package awsboot

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/polly"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/rs/zerolog/log"

	"github.com/kirubel/essence-mirror/internal/action"
	"github.com/kirubel/essence-mirror/internal/agent"
	"github.com/kirubel/essence-mirror/internal/config"
	"github.com/kirubel/essence-mirror/internal/logging"
	"github.com/kirubel/essence-mirror/internal/media"
	"github.com/kirubel/essence-mirror/internal/mirror"
	"github.com/kirubel/essence-mirror/internal/narration"
	"github.com/kirubel/essence-mirror/internal/reel"
	"github.com/kirubel/essence-mirror/internal/store"
	"github.com/kirubel/essence-mirror/internal/voice"
)

// Clients holds one SDK client per AWS service the product talks to.
type Clients struct {
	Config    aws.Config
	S3        *s3.Client
	Presigner *s3.PresignClient
	SSM       *ssm.Client
	Agent     *bedrockagentruntime.Client
	Lambda    *lambda.Client
	Bedrock   *bedrockruntime.Client
	Polly     *polly.Client
	Dynamo    *dynamodb.Client
}

// LoadAWSConfig loads the default credential chain for region.
func LoadAWSConfig(ctx context.Context, region string) (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return aws.Config{}, fmt.Errorf("load AWS config: %w", err)
	}
	log.Debug().Str("region", cfg.Region).Msg("AWS config loaded")
	return cfg, nil
}

// NewClients builds every client from cfg. No network calls are made.
func NewClients(cfg aws.Config) Clients {
	s3Client := s3.NewFromConfig(cfg)
	return Clients{
		Config:    cfg,
		S3:        s3Client,
		Presigner: s3.NewPresignClient(s3Client),
		SSM:       ssm.NewFromConfig(cfg),
		Agent:     bedrockagentruntime.NewFromConfig(cfg),
		Lambda:    lambda.NewFromConfig(cfg),
		Bedrock:   bedrockruntime.NewFromConfig(cfg),
		Polly:     polly.NewFromConfig(cfg),
		Dynamo:    dynamodb.NewFromConfig(cfg),
	}
}

// InitAWS loads the AWS config and builds the clients.
func InitAWS(ctx context.Context, region string) (Clients, error) {
	cfg, err := LoadAWSConfig(ctx, region)
	if err != nil {
		return Clients{}, err
	}
	return NewClients(cfg), nil
}

// ParamGetter is the SSM surface ResolveAgentIdentity needs.
type ParamGetter interface {
	GetParameter(ctx context.Context, in *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// ResolveAgentIdentity replaces the agent ID and alias with the values of
// their SSM parameters when those are configured.
func ResolveAgentIdentity(ctx context.Context, client ParamGetter, cfg *config.AgentConfig) error {
	for _, p := range []struct {
		name string
		dst  *string
	}{
		{cfg.IDParam, &cfg.ID},
		{cfg.AliasParam, &cfg.AliasID},
	} {
		if p.name == "" {
			continue
		}
		start := time.Now()
		out, err := client.GetParameter(ctx, &ssm.GetParameterInput{
			Name:           aws.String(p.name),
			WithDecryption: aws.Bool(true),
		})
		if err != nil {
			return fmt.Errorf("read SSM parameter %s: %w", p.name, err)
		}
		if out.Parameter == nil || aws.ToString(out.Parameter.Value) == "" {
			return fmt.Errorf("SSM parameter %s is empty", p.name)
		}
		*p.dst = aws.ToString(out.Parameter.Value)
		log.Debug().Str("param", p.name).Dur("elapsed", time.Since(start)).Msg("Agent identity loaded from SSM")
	}
	return nil
}

// JobStore returns the DynamoDB reel job store when a table is configured,
// otherwise an in-memory one.
func JobStore(cfg *config.Config, c Clients) store.JobStore {
	if cfg.Reel.JobsTable == "" || c.Dynamo == nil {
		log.Warn().Msg("Reel jobs table not set, keeping jobs in memory")
		return store.NewMemoryStore()
	}
	return store.NewDynamoStore(c.Dynamo, cfg.Reel.JobsTable)
}

// BuildTracker wires the reel tracker. Its jobs outlive the process only
// when a DynamoDB table is configured.
func BuildTracker(cfg *config.Config, c Clients, images reel.ImageSource) *reel.Tracker {
	opts := reel.Options{
		ModelID:        cfg.Reel.ModelID,
		OutputURI:      cfg.Reel.OutputURI,
		PlaybackExpiry: cfg.Storage.PlaybackURLExpiry,
	}
	if cfg.Storage.PlaybackURLExpiry > 0 && c.Presigner != nil {
		opts.Presigner = c.Presigner
	}
	return reel.NewTracker(c.Bedrock, images, JobStore(cfg, c), opts)
}

// NewGateway wires the upload gateway. Without an S3 client uploads fail
// with media.ErrStorageUnavailable.
func NewGateway(cfg *config.Config, c Clients) *media.Gateway {
	var store media.ObjectStore
	if c.S3 != nil {
		store = c.S3
	}
	return media.NewGateway(store, cfg.Storage.Bucket, cfg.AWS.Region)
}

// Typed nil pointers must not reach the interface fields, or the
// components' unconfigured checks never fire.
func newAgent(cfg *config.Config, c Clients) *agent.Proxy {
	var client agent.Client
	if c.Agent != nil {
		client = c.Agent
	}
	return agent.NewProxy(client, cfg.Agent.ID, cfg.Agent.AliasID)
}

func newInvoker(cfg *config.Config, c Clients) *action.Invoker {
	var client action.LambdaAPI
	if c.Lambda != nil {
		client = c.Lambda
	}
	return action.NewInvoker(client, cfg.Action.FunctionName, cfg.Action.ActionGroup)
}

// BuildStudio wires every component from cfg and c.
func BuildStudio(cfg *config.Config, c Clients) *mirror.Studio {
	gateway := NewGateway(cfg, c)

	deps := mirror.Deps{
		Media:          gateway,
		Agent:          newAgent(cfg, c),
		Actions:        newInvoker(cfg, c),
		VoiceQueueSize: cfg.Voice.QueueSize,
		SessionSize:    cfg.Server.MaxSessions,
		SessionTTL:     cfg.Server.SessionTTL,
	}

	if cfg.Reel.ModelID != "" && c.Bedrock != nil {
		deps.Reels = BuildTracker(cfg, c, gateway)
	}
	if c.Polly != nil {
		deps.Narrator = narration.NewNarrator(c.Polly)
	}
	if cfg.Voice.ModelID != "" && c.Bedrock != nil {
		deps.VoiceDialer = voice.BedrockDialer{Client: c.Bedrock, ModelID: cfg.Voice.ModelID}
	}
	return mirror.NewStudio(deps)
}

// StartupLog describes the wired resources of the named binary.
func StartupLog(name string, cfg *config.Config, initStart time.Time) *logging.StartupLogger {
	return logging.NewStartupLogger(name).
		S3Bucket("uploads", cfg.Storage.Bucket).
		Agent("stylist", cfg.Agent.ID, cfg.Agent.AliasID).
		LambdaFunc("actions", cfg.Action.FunctionName).
		Model("reel", cfg.Reel.ModelID).
		Model("voice", cfg.Voice.ModelID).
		DynamoTable("reelJobs", cfg.Reel.JobsTable).
		SSMParam("agentId", cfg.Agent.IDParam).
		SSMParam("agentAlias", cfg.Agent.AliasParam).
		Feature("reels", cfg.Reel.ModelID != "").
		Feature("voice", cfg.Voice.ModelID != "").
		Feature("playbackUrls", cfg.Storage.PlaybackURLExpiry > 0).
		Config("reelOutputUri", cfg.Reel.OutputURI).
		Config("sessionTtl", cfg.Server.SessionTTL.String()).
		InitDuration(time.Since(initStart))
}
