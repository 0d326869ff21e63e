package ai

import "errors"

type composite struct {
	embedder  Embedder
	completer Completer
	closers   []func() error
}

// Compose builds an AIProvider from independently constructed services.
// It lets the embedding and language model providers differ. The completer
// may be nil. Closers run in order on Close.
func Compose(embedder Embedder, completer Completer, closers ...func() error) AIProvider {
	return &composite{
		embedder:  embedder,
		completer: completer,
		closers:   closers,
	}
}

func (c *composite) Embedder() Embedder {
	return c.embedder
}

func (c *composite) Completer() Completer {
	return c.completer
}

func (c *composite) Close() error {
	var errs []error
	for _, fn := range c.closers {
		if err := fn(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
