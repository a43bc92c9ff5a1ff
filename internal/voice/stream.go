package voice

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
)

// Stream is one duplex connection carrying JSON event payloads.
type Stream interface {
	Send(ctx context.Context, payload []byte) error
	// Recv blocks for the next payload and returns io.EOF when the peer
	// finishes.
	Recv() ([]byte, error)
	Close() error
}

// Dialer opens Streams. The context bounds the stream's lifetime.
type Dialer interface {
	Dial(ctx context.Context) (Stream, error)
}

// BidiAPI is the bidirectional-stream subset of *bedrockruntime.Client.
type BidiAPI interface {
	InvokeModelWithBidirectionalStream(ctx context.Context, in *bedrockruntime.InvokeModelWithBidirectionalStreamInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelWithBidirectionalStreamOutput, error)
}

// BedrockDialer opens Nova Sonic streams.
type BedrockDialer struct {
	Client  BidiAPI
	ModelID string
}

func (d BedrockDialer) Dial(ctx context.Context) (Stream, error) {
	if d.Client == nil {
		return nil, fmt.Errorf("bedrock runtime client is not configured")
	}
	out, err := d.Client.InvokeModelWithBidirectionalStream(ctx, &bedrockruntime.InvokeModelWithBidirectionalStreamInput{
		ModelId: aws.String(d.ModelID),
	})
	if err != nil {
		return nil, fmt.Errorf("open %s stream: %w", d.ModelID, err)
	}
	return &bedrockStream{es: out.GetStream()}, nil
}

type bedrockStream struct {
	es *bedrockruntime.InvokeModelWithBidirectionalStreamEventStream
}

func (s *bedrockStream) Send(ctx context.Context, payload []byte) error {
	return s.es.Send(ctx, &types.InvokeModelWithBidirectionalStreamInputMemberChunk{
		Value: types.BidirectionalInputPayloadPart{Bytes: payload},
	})
}

func (s *bedrockStream) Recv() ([]byte, error) {
	for ev := range s.es.Events() {
		if chunk, ok := ev.(*types.InvokeModelWithBidirectionalStreamOutputMemberChunk); ok {
			return chunk.Value.Bytes, nil
		}
	}
	if err := s.es.Err(); err != nil {
		return nil, err
	}
	return nil, io.EOF
}

func (s *bedrockStream) Close() error { return s.es.Close() }
