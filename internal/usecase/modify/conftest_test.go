package modify

import (
	"context"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/generation"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
)

type mockGenerator struct {
	generateFn     func(ctx context.Context, req generation.Request) (string, error)
	alternativesFn func(ctx context.Context, c topic.Content) ([]generation.Alternative, error)
}

func (m *mockGenerator) Generate(ctx context.Context, req generation.Request) (string, error) {
	return m.generateFn(ctx, req)
}

func (m *mockGenerator) Alternatives(ctx context.Context, c topic.Content) ([]generation.Alternative, error) {
	return m.alternativesFn(ctx, c)
}
