package app

// ChangeEvent identifies which server-owned collection was mutated. Stores
// publish after a mutation is applied locally; dependent views subscribe and
// refetch instead of relying on an implicit refresh counter.
type ChangeEvent string

const (
	TopicsChanged    ChangeEvent = "topics"
	PapersChanged    ChangeEvent = "papers"
	DocumentsChanged ChangeEvent = "documents"
	SessionsChanged  ChangeEvent = "sessions"
)

// Bus is a synchronous fan-out of change notifications. The whole client is
// single-threaded (mutations happen only inside the TUI update loop), so
// handlers run inline and must not block.
type Bus struct {
	handlers []func(ChangeEvent)
}

func NewBus() *Bus {
	return &Bus{}
}

func (b *Bus) Subscribe(fn func(ChangeEvent)) {
	if fn == nil {
		return
	}
	b.handlers = append(b.handlers, fn)
}

func (b *Bus) Publish(ev ChangeEvent) {
	if b == nil {
		return
	}
	for _, fn := range b.handlers {
		fn(ev)
	}
}
