package provider

import "context"

// Initializable providers load a model or check a binary before first use.
// The Manager calls Init from Load.
type Initializable interface {
	Init(ctx context.Context) error
}

// Closeable providers release sessions or connections on CloseAll.
type Closeable interface {
	Close(ctx context.Context) error
}
