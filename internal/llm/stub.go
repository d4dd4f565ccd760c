package llm

import "context"

// StubGateway is a deterministic Gateway for tests and offline runs,
// mirroring seanblong-reposearch's StubClient fallback for the embedding
// client.
type StubGateway struct {
	Response string
}

// Complete returns the fixed Response, ignoring req.
func (s *StubGateway) Complete(ctx context.Context, req Request) (string, error) {
	return s.Response, nil
}

// Stream emits Response as a single chunk followed by Done.
func (s *StubGateway) Stream(ctx context.Context, req Request) (<-chan Chunk, error) {
	out := make(chan Chunk, 2)
	out <- Chunk{Delta: s.Response}
	out <- Chunk{Done: true}
	close(out)
	return out, nil
}
