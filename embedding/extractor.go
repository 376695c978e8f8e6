package embedding

import (
	"context"

	"github.com/kbukum/speakerid/audio"
	"github.com/kbukum/speakerid/provider"
)

// Extractor is implemented by embedding backends. Execute receives a clip
// already normalized by Prepare.
type Extractor interface {
	provider.RequestResponse[audio.Clip, Vector]
}

// Embedder produces a voiceprint for a clip of any format.
type Embedder interface {
	Embed(ctx context.Context, clip audio.Clip) (Vector, error)
}

// Prepare converts clip to mono at rate. Empty input is rejected with
// EMPTY_AUDIO since embeddings are only comparable in one normalized domain.
func Prepare(clip audio.Clip, rate int) (audio.Clip, error) {
	if err := clip.Require("clip"); err != nil {
		return audio.Clip{}, err
	}
	n := clip.Normalize(rate)
	if err := n.Require("normalized clip"); err != nil {
		return audio.Clip{}, err
	}
	return n, nil
}

// Bind returns an Embedder that prepares clips for rate and calls ex.
func Bind(ex Extractor, rate int) Embedder {
	return &bound{ex: ex, rate: rate}
}

type bound struct {
	ex   Extractor
	rate int
}

func (b *bound) Embed(ctx context.Context, clip audio.Clip) (Vector, error) {
	c, err := Prepare(clip, b.rate)
	if err != nil {
		return nil, err
	}
	return b.ex.Execute(ctx, c)
}

// NewRegistry creates a provider registry for embedding backends.
func NewRegistry() *provider.Registry[Extractor] {
	return provider.NewRegistry[Extractor]()
}
