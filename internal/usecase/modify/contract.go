package modify

import (
	"context"

	"github.com/SimondaVinciii/capbot-agent/internal/domain/generation"
	"github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
)

// Generator writes topic rewrites and alternative approaches.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (string, error)
	Alternatives(ctx context.Context, c topic.Content) ([]generation.Alternative, error)
}
