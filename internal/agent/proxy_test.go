package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
)

type fakeClient struct {
	in  *bedrockagentruntime.InvokeAgentInput
	err error
}

func (f *fakeClient) InvokeAgent(_ context.Context, in *bedrockagentruntime.InvokeAgentInput, _ ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.InvokeAgentOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockagentruntime.InvokeAgentOutput{}, nil
}

type fakeStream struct {
	events []types.ResponseStream
	err    error
	closed bool
}

func (s *fakeStream) Events() <-chan types.ResponseStream {
	ch := make(chan types.ResponseStream, len(s.events))
	for _, e := range s.events {
		ch <- e
	}
	close(ch)
	return ch
}

func (s *fakeStream) Close() error { s.closed = true; return nil }
func (s *fakeStream) Err() error   { return s.err }

func chunk(text string) types.ResponseStream {
	return &types.ResponseStreamMemberChunk{Value: types.PayloadPart{Bytes: []byte(text)}}
}

func newTestProxy(c Client, s *fakeStream) *Proxy {
	p := NewProxy(c, "WWIUY28GRY", "TSTALIASID")
	p.stream = func(*bedrockagentruntime.InvokeAgentOutput) EventStream { return s }
	return p
}

func TestInvoke_ConcatenatesChunks(t *testing.T) {
	client := &fakeClient{}
	stream := &fakeStream{events: []types.ResponseStream{
		chunk("You radiate "), &types.ResponseStreamMemberTrace{}, chunk(""), chunk("calm confidence."),
	}}
	p := newTestProxy(client, stream)

	got, err := p.Invoke(context.Background(), "I want to analyze https://x", "sess-1")
	if err != nil {
		t.Fatalf("Invoke: %v", err)
	}
	if got != "You radiate calm confidence." {
		t.Errorf("answer = %q", got)
	}
	if *client.in.AgentId != "WWIUY28GRY" || *client.in.AgentAliasId != "TSTALIASID" || *client.in.SessionId != "sess-1" {
		t.Errorf("input = %+v", client.in)
	}
	if !stream.closed {
		t.Error("stream not closed")
	}
}

func TestInvoke_StreamErrorDiscardsPartial(t *testing.T) {
	stream := &fakeStream{events: []types.ResponseStream{chunk("partial")}, err: errors.New("connection reset")}
	p := newTestProxy(&fakeClient{}, stream)

	got, err := p.Invoke(context.Background(), "hi", "s")
	if !errors.Is(err, ErrAgentInvocation) {
		t.Fatalf("err = %v, want ErrAgentInvocation", err)
	}
	if got != "" {
		t.Errorf("partial text returned: %q", got)
	}
}

func TestInvoke_CallError(t *testing.T) {
	p := newTestProxy(&fakeClient{err: errors.New("AccessDenied")}, &fakeStream{})
	if _, err := p.Invoke(context.Background(), "hi", "s"); !errors.Is(err, ErrAgentInvocation) {
		t.Errorf("err = %v, want ErrAgentInvocation", err)
	}
}

func TestInvoke_NoClient(t *testing.T) {
	p := NewProxy(nil, "a", "b")
	if _, err := p.Invoke(context.Background(), "hi", "s"); !errors.Is(err, ErrAgentUnavailable) {
		t.Errorf("err = %v, want ErrAgentUnavailable", err)
	}
}
