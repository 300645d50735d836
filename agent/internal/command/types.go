package command

import "encoding/json"

// Result is what a handler reports back to the queue.
type Result struct {
	Message string
	Data    map[string]any
}

// Handler executes one command type. DecodeArg lets each type define its
// own params struct; params are opaque to the server.
type Handler interface {
	DecodeArg(raw json.RawMessage) (any, error)
	Handle(arg any) (Result, error)
}

var registry = map[string]Handler{}

func Register(name string, h Handler) { registry[name] = h }

func Get(name string) (Handler, bool) { h, ok := registry[name]; return h, ok }
