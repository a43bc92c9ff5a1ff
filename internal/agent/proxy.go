// Package agent forwards free-text messages to the Bedrock agent and
// assembles its streamed answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/rs/zerolog/log"
)

var (
	ErrAgentUnavailable = errors.New("agent: client is not configured")
	ErrAgentInvocation  = errors.New("agent: invocation failed")
)

// Client is satisfied by *bedrockagentruntime.Client.
type Client interface {
	InvokeAgent(ctx context.Context, in *bedrockagentruntime.InvokeAgentInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.InvokeAgentOutput, error)
}

// EventStream is the reader half of an InvokeAgent response.
type EventStream interface {
	Events() <-chan types.ResponseStream
	Close() error
	Err() error
}

type Proxy struct {
	client  Client
	agentID string
	aliasID string
	stream  func(*bedrockagentruntime.InvokeAgentOutput) EventStream
}

// NewProxy binds a proxy to one agent identity. client may be nil, in which
// case every call fails with ErrAgentUnavailable.
func NewProxy(client Client, agentID, aliasID string) *Proxy {
	return &Proxy{
		client:  client,
		agentID: agentID,
		aliasID: aliasID,
		stream: func(out *bedrockagentruntime.InvokeAgentOutput) EventStream {
			if s := out.GetStream(); s != nil {
				return s
			}
			return nil
		},
	}
}

// Invoke sends message within sessionID and blocks until the full answer has
// been assembled. On any failure no partial text is returned.
func (p *Proxy) Invoke(ctx context.Context, message, sessionID string) (string, error) {
	if p.client == nil {
		return "", ErrAgentUnavailable
	}

	start := time.Now()
	out, err := p.client.InvokeAgent(ctx, &bedrockagentruntime.InvokeAgentInput{
		AgentId:      aws.String(p.agentID),
		AgentAliasId: aws.String(p.aliasID),
		SessionId:    aws.String(sessionID),
		InputText:    aws.String(message),
	})
	if err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Msg("InvokeAgent failed")
		return "", fmt.Errorf("%w: %w", ErrAgentInvocation, err)
	}

	stream := p.stream(out)
	if stream == nil {
		return "", fmt.Errorf("%w: response has no event stream", ErrAgentInvocation)
	}
	defer stream.Close()

	var sb strings.Builder
	chunks := 0
	for event := range stream.Events() {
		if chunk, ok := event.(*types.ResponseStreamMemberChunk); ok {
			sb.Write(chunk.Value.Bytes)
			chunks++
		}
	}
	if err := stream.Err(); err != nil {
		log.Error().Err(err).Str("sessionId", sessionID).Int("chunks", chunks).Msg("Agent stream failed, discarding partial answer")
		return "", fmt.Errorf("%w: stream: %w", ErrAgentInvocation, err)
	}

	log.Debug().
		Str("sessionId", sessionID).
		Int("chunks", chunks).
		Int("chars", sb.Len()).
		Dur("elapsed", time.Since(start)).
		Msg("Agent answer assembled")
	return sb.String(), nil
}
