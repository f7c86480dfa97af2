package panel

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/chmouel/lazypanel/internal/log"
)

// WireTransport frames the protocol as JSON lines over a byte stream pair,
// typically the stdio of a child/parent process. Events go out on w,
// commands come in on r. Reads and writes are independently serialized;
// message order within each direction follows the stream.
type WireTransport struct {
	dec *json.Decoder

	mu  sync.Mutex
	enc *json.Encoder

	closeOnce sync.Once
	closed    chan struct{}
	closer    io.Closer
}

// NewWireTransport wraps a reader/writer pair into a host transport. If rw
// also implements io.Closer, Close forwards to it.
func NewWireTransport(r io.Reader, w io.Writer) *WireTransport {
	t := &WireTransport{
		dec:    json.NewDecoder(r),
		enc:    json.NewEncoder(w),
		closed: make(chan struct{}),
	}
	if c, ok := w.(io.Closer); ok {
		t.closer = c
	}
	return t
}

// Send encodes one outbound event. Encoding failures are logged and
// dropped; the surface rehydrates on its next attach.
func (t *WireTransport) Send(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.enc.Encode(ev); err != nil {
		log.Printf("wire send: %v", err)
	}
}

// Recv decodes the next inbound command. It reports false when the stream
// ends or the transport is closed.
func (t *WireTransport) Recv() (Command, bool) {
	for {
		select {
		case <-t.closed:
			return Command{}, false
		default:
		}
		var cmd Command
		if err := t.dec.Decode(&cmd); err != nil {
			if err != io.EOF {
				log.Printf("wire recv: %v", err)
			}
			return Command{}, false
		}
		if cmd.Type == "" {
			// Tolerate unknown/empty frames from newer surfaces.
			continue
		}
		return cmd, true
	}
}

// Close shuts the transport down.
func (t *WireTransport) Close() {
	t.closeOnce.Do(func() {
		close(t.closed)
		if t.closer != nil {
			_ = t.closer.Close()
		}
	})
}
