package awsboot

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/kirubel/essence-mirror/internal/action"
	"github.com/kirubel/essence-mirror/internal/agent"
	"github.com/kirubel/essence-mirror/internal/config"
	"github.com/kirubel/essence-mirror/internal/media"
	"github.com/kirubel/essence-mirror/internal/metrics"
	"github.com/kirubel/essence-mirror/internal/store"
)

func TestMain(m *testing.M) {
	metrics.SetOutput(io.Discard)
	os.Exit(m.Run())
}

type fakeSSM struct {
	values map[string]string
	err    error
	asked  []string
}

func (f *fakeSSM) GetParameter(_ context.Context, in *ssm.GetParameterInput, _ ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	name := aws.ToString(in.Name)
	f.asked = append(f.asked, name)
	if f.err != nil {
		return nil, f.err
	}
	v, ok := f.values[name]
	if !ok {
		return &ssm.GetParameterOutput{}, nil
	}
	return &ssm.GetParameterOutput{Parameter: &types.Parameter{Name: in.Name, Value: aws.String(v)}}, nil
}

func TestResolveAgentIdentity(t *testing.T) {
	tests := []struct {
		name      string
		cfg       config.AgentConfig
		ssm       *fakeSSM
		wantID    string
		wantAlias string
		wantErr   bool
		wantCalls int
	}{
		{
			name:      "no params keeps configured values",
			cfg:       config.AgentConfig{ID: "A1", AliasID: "L1"},
			ssm:       &fakeSSM{},
			wantID:    "A1",
			wantAlias: "L1",
		},
		{
			name: "both params",
			cfg:  config.AgentConfig{ID: "A1", AliasID: "L1", IDParam: "/essence/agent-id", AliasParam: "/essence/agent-alias"},
			ssm: &fakeSSM{values: map[string]string{
				"/essence/agent-id":    "A2",
				"/essence/agent-alias": "L2",
			}},
			wantID:    "A2",
			wantAlias: "L2",
			wantCalls: 2,
		},
		{
			name:      "missing value",
			cfg:       config.AgentConfig{IDParam: "/essence/agent-id"},
			ssm:       &fakeSSM{values: map[string]string{}},
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:      "ssm failure",
			cfg:       config.AgentConfig{ID: "A1", IDParam: "/essence/agent-id"},
			ssm:       &fakeSSM{err: errors.New("AccessDenied")},
			wantID:    "A1",
			wantErr:   true,
			wantCalls: 1,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			err := ResolveAgentIdentity(context.Background(), tt.ssm, &cfg)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if len(tt.ssm.asked) != tt.wantCalls {
				t.Errorf("SSM calls = %v, want %d", tt.ssm.asked, tt.wantCalls)
			}
			if tt.wantErr {
				return
			}
			if cfg.ID != tt.wantID || cfg.AliasID != tt.wantAlias {
				t.Errorf("identity = %s/%s, want %s/%s", cfg.ID, cfg.AliasID, tt.wantID, tt.wantAlias)
			}
		})
	}
}

func loadDefaults(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func TestJobStore(t *testing.T) {
	cfg := loadDefaults(t)
	clients := NewClients(aws.Config{Region: "us-east-1"})

	if _, ok := JobStore(cfg, clients).(*store.MemoryStore); !ok {
		t.Error("no table should give a memory store")
	}
	cfg.Reel.JobsTable = "essence-reel-jobs"
	if _, ok := JobStore(cfg, clients).(*store.DynamoStore); !ok {
		t.Error("a table should give a DynamoDB store")
	}
}

func TestBuildStudio(t *testing.T) {
	cfg := loadDefaults(t)
	studio := BuildStudio(cfg, NewClients(aws.Config{Region: "us-east-1"}))

	sess := studio.Sessions().Create()
	if _, ok := studio.Sessions().Get(sess.ID()); !ok {
		t.Fatal("created session not found")
	}
}

func TestBuildStudio_MissingClients(t *testing.T) {
	cfg := loadDefaults(t)
	ctx := context.Background()
	var c Clients

	if _, err := NewGateway(cfg, c).Upload(ctx, media.Upload{Filename: "a.png"}); !errors.Is(err, media.ErrStorageUnavailable) {
		t.Errorf("Upload err = %v, want ErrStorageUnavailable", err)
	}
	if _, err := newAgent(cfg, c).Invoke(ctx, "hi", "s1"); !errors.Is(err, agent.ErrAgentUnavailable) {
		t.Errorf("agent err = %v, want ErrAgentUnavailable", err)
	}
	if _, err := newInvoker(cfg, c).Invoke(ctx, "/analyzeImage", nil, "s1"); !errors.Is(err, action.ErrInvocation) {
		t.Errorf("invoke err = %v, want ErrInvocation", err)
	}

	studio := BuildStudio(cfg, c)
	sess := studio.Sessions().Create()
	if _, err := studio.Analyze(ctx, sess, media.Upload{Filename: "a.png"}); !errors.Is(err, media.ErrStorageUnavailable) {
		t.Errorf("Analyze err = %v, want ErrStorageUnavailable", err)
	}
}

func TestStartupLog(t *testing.T) {
	cfg := loadDefaults(t)
	// Log must not panic with every optional resource empty.
	StartupLog("mirror-test", cfg, time.Now()).Log()
}
