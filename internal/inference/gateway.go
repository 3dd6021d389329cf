// Package inference turns a named capability, a structured input and an
// output schema into a typed, validated answer from a generative model.
package inference

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"heartwise/internal/llm"
	llmclient "heartwise/internal/llmClient"
	"heartwise/internal/logger"
	"heartwise/internal/prompt"
	"heartwise/internal/util/jsonutil"
)

var (
	// ErrGatewayFailure covers every way a capability call can fail: the
	// backend errors or times out, or its output cannot be decoded.
	ErrGatewayFailure = errors.New("inference gateway failure")
	// ErrValidationMismatch marks output that decoded but broke the output
	// schema or a domain invariant. It matches ErrGatewayFailure too.
	ErrValidationMismatch = fmt.Errorf("%w: validation mismatch", ErrGatewayFailure)
)

// Capability is a named structured-inference operation.
type Capability struct {
	Name   string
	Prompt prompt.Spec
	Output *llmclient.Schema
}

// Validator is implemented by output types that carry domain invariants.
type Validator interface {
	Validate() error
}

// Invoker is the consumer-side view of the gateway.
type Invoker interface {
	Invoke(ctx context.Context, c Capability, input any, out Validator) error
}

type Gateway struct {
	client llmclient.LLMClient
	log    *zap.Logger
}

func New(client llmclient.LLMClient, log *zap.Logger) *Gateway {
	return &Gateway{client: client, log: logger.OrNop(log)}
}

// Invoke renders the capability prompt, calls the backend, checks the answer
// against the output schema, decodes it into out and validates it.
// Nothing is written to out unless every step succeeds.
func (g *Gateway) Invoke(ctx context.Context, c Capability, input any, out Validator) error {
	if g == nil || g.client == nil {
		return fmt.Errorf("%w: %s: no backend configured", ErrGatewayFailure, c.Name)
	}
	text, err := prompt.Render(c.Prompt, input, c.Output)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrGatewayFailure, c.Name, err)
	}

	start := time.Now()
	raw, err := g.client.GenerateJSON(llm.WithCapability(ctx, c.Name), text, input, c.Output)
	if err != nil {
		g.log.Warn("capability call failed", zap.String("capability", c.Name), zap.Duration("elapsed", time.Since(start)), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrGatewayFailure, c.Name, err)
	}

	norm, err := jsonutil.Normalize(raw)
	if err != nil {
		g.log.Warn("capability output undecodable", zap.String("capability", c.Name), zap.ByteString("raw", truncate(raw, 512)))
		return fmt.Errorf("%w: %s: %w: %v", ErrGatewayFailure, c.Name, llmclient.ErrInvalidJSON, err)
	}
	if err := c.Output.CheckJSON(norm); err != nil {
		g.log.Warn("capability output breaks schema", zap.String("capability", c.Name), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrValidationMismatch, c.Name, err)
	}

	decoded, err := decodeInto(norm, out)
	if err != nil {
		return fmt.Errorf("%w: %s: %w: %v", ErrGatewayFailure, c.Name, llmclient.ErrInvalidJSON, err)
	}
	if err := decoded.Validate(); err != nil {
		g.log.Warn("capability output breaks invariant", zap.String("capability", c.Name), zap.Error(err))
		return fmt.Errorf("%w: %s: %w", ErrValidationMismatch, c.Name, err)
	}
	if err := commit(decoded, out); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrGatewayFailure, c.Name, err)
	}
	g.log.Debug("capability call succeeded", zap.String("capability", c.Name), zap.Duration("elapsed", time.Since(start)))
	return nil
}

func truncate(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[:n]
}
