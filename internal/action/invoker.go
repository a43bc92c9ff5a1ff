// Package action invokes the product's Lambda action group: it builds the
// action envelope, calls the function synchronously and unwraps the body.
package action

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/rs/zerolog/log"

	"github.com/kirubel/essence-mirror/internal/metrics"
)

// API paths served by the action group.
const (
	PathAnalyzeImage            = "/analyzeImage"
	PathGenerateRecommendations = "/generateRecommendations"
	PathGenerateStyleCollage    = "/generateStyleCollage"
	PathGenerateStyleReel       = "/generateStyleReel"
)

// LambdaAPI is satisfied by *lambda.Client.
type LambdaAPI interface {
	Invoke(ctx context.Context, in *lambda.InvokeInput, optFns ...func(*lambda.Options)) (*lambda.InvokeOutput, error)
}

type Invoker struct {
	client       LambdaAPI
	functionName string
	actionGroup  string
}

// NewInvoker binds an invoker to one function and action group. client may be
// nil, in which case every call fails with an *InvocationError.
func NewInvoker(client LambdaAPI, functionName, actionGroup string) *Invoker {
	return &Invoker{client: client, functionName: functionName, actionGroup: actionGroup}
}

// Invoke calls apiPath with props and returns the unwrapped body object.
func (inv *Invoker) Invoke(ctx context.Context, apiPath string, props map[string]any, sessionID string) (json.RawMessage, error) {
	start := time.Now()
	rec := metrics.New(metrics.Namespace).
		Dimension("ApiPath", apiPath).
		Property("sessionId", sessionID)

	body, err := inv.invoke(ctx, apiPath, props, sessionID)

	rec.Latency("ActionLatencyMs", start).Count("ActionCalls")
	var appErr *ApplicationError
	switch {
	case errors.As(err, &appErr):
		rec.Count("ActionApplicationErrors")
	case err != nil:
		rec.Count("ActionInvocationErrors")
	}
	rec.Flush()

	if err != nil {
		log.Error().Err(err).Str("apiPath", apiPath).Str("sessionId", sessionID).Dur("elapsed", time.Since(start)).Msg("Action failed")
		return nil, err
	}
	log.Debug().Str("apiPath", apiPath).Str("sessionId", sessionID).Int("bodyBytes", len(body)).Dur("elapsed", time.Since(start)).Msg("Action completed")
	return body, nil
}

func (inv *Invoker) invoke(ctx context.Context, apiPath string, props map[string]any, sessionID string) (json.RawMessage, error) {
	if inv.client == nil {
		return nil, &InvocationError{APIPath: apiPath, Reason: "lambda client is not configured"}
	}

	env, err := BuildEnvelope(inv.actionGroup, apiPath, sessionID, props)
	if err != nil {
		return nil, &InvocationError{APIPath: apiPath, Reason: "build envelope", Err: err}
	}
	payload, err := json.Marshal(env)
	if err != nil {
		return nil, &InvocationError{APIPath: apiPath, Reason: "encode envelope", Err: err}
	}

	out, err := inv.client.Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(inv.functionName),
		InvocationType: lambdatypes.InvocationTypeRequestResponse,
		Payload:        payload,
	})
	if err != nil {
		return nil, &InvocationError{APIPath: apiPath, Reason: "invoke " + inv.functionName, Err: err}
	}
	if out.FunctionError != nil {
		return nil, &InvocationError{APIPath: apiPath, Reason: fmt.Sprintf("function error %s: %s", aws.ToString(out.FunctionError), truncate(out.Payload, 300))}
	}

	body, err := DecodeBody(out.Payload)
	if err != nil {
		var appErr *ApplicationError
		var invErr *InvocationError
		switch {
		case errors.As(err, &appErr):
			appErr.APIPath = apiPath
		case errors.As(err, &invErr):
			invErr.APIPath = apiPath
		}
		return nil, err
	}
	return body, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
