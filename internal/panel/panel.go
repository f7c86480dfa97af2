package panel

import (
	"context"
)

// Panel ties one dispatcher to its transport and change debouncer. One
// instance serves one repository and one (recreatable) surface session.
type Panel struct {
	dispatcher *Dispatcher
	transport  Transport
	debouncer  *ChangeDebouncer
}

// New assembles a panel from its collaborators.
func New(backend Backend, generator Generator, transport Transport, opts Options) *Panel {
	opts = opts.withDefaults()
	dispatcher := NewDispatcher(backend, generator, transport, opts)
	return &Panel{
		dispatcher: dispatcher,
		transport:  transport,
		debouncer:  NewChangeDebouncer(opts.QuietPeriod, dispatcher.OnQuietPeriod),
	}
}

// Dispatcher returns the panel's dispatcher.
func (p *Panel) Dispatcher() *Dispatcher { return p.dispatcher }

// FileChanged records one filesystem-change notification; bursts within
// the quiet period collapse into a single cache invalidation.
func (p *Panel) FileChanged() {
	p.debouncer.Notify()
}

// Run serves inbound commands until the transport closes or ctx is
// cancelled. Commands are handled in delivery order.
func (p *Panel) Run(ctx context.Context) {
	p.dispatcher.Bind(ctx)
	defer p.debouncer.Stop()

	for {
		cmd, ok := p.transport.Recv()
		if !ok {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.dispatcher.Handle(ctx, cmd)
	}
}
