// Package ai defines the model-provider boundary: text embedding for the
// long-term memory index and reply generation over an ordered conversation.
package ai

import "context"

// Turn is one entry of the request-scoped conversation context handed to
// the generator. Role is types.RoleUser or types.RoleModel; providers map
// it to their own wire roles.
type Turn struct {
	Role string
	Text string
}

// Embedder converts text to a fixed-dimension vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// Generator produces a reply from an ordered conversation.
type Generator interface {
	GenerateReply(ctx context.Context, turns []Turn) (string, error)
}
