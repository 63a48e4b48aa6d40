package bot

import (
	"log/slog"
	"strings"
	"sync"

	telebot "gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/bot/handlers"
	"github.com/Proton-105/giftshop-bot/internal/bot/keyboard"
)

// Router dispatches commands, callbacks and free text.
type Router struct {
	mu          sync.RWMutex
	commands    map[string]handlers.Handler
	callbacks   map[string]handlers.CallbackHandler
	text        handlers.Handler
	middlewares []handlers.Middleware
	log         *slog.Logger
}

// NewRouter builds a Router with empty registries.
func NewRouter(log *slog.Logger) *Router {
	if log == nil {
		log = slog.Default()
	}

	return &Router{
		commands:  make(map[string]handlers.Handler),
		callbacks: make(map[string]handlers.CallbackHandler),
		log:       log,
	}
}

// RegisterCommand registers a handler for a bot command such as "/start".
func (r *Router) RegisterCommand(cmd string, h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.commands[strings.ToLower(cmd)] = h
}

// RegisterCallback registers a handler for an exact callback unique.
func (r *Router) RegisterCallback(unique string, h handlers.CallbackHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[unique] = h
}

// SetText sets the handler for messages that are not registered commands.
func (r *Router) SetText(h handlers.Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.text = h
}

// Use appends a middleware to the chain.
func (r *Router) Use(mw handlers.Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = append(r.middlewares, mw)
}

// Route directs the incoming update to the appropriate handler.
func (r *Router) Route(c telebot.Context) error {
	if c == nil {
		return nil
	}

	if callback := c.Callback(); callback != nil {
		return r.handleCallback(c, callback.Data)
	}

	return r.handleMessage(c)
}

func (r *Router) handleCallback(c telebot.Context, data string) error {
	unique, payload, err := keyboard.DecodeCallback(data)
	if err != nil {
		r.log.Info("malformed callback data", slog.String("data", data))
		return c.Respond(&telebot.CallbackResponse{})
	}

	r.mu.RLock()
	handler := r.callbacks[unique]
	r.mu.RUnlock()

	if handler == nil {
		r.log.Info("no callback handler found", slog.String("unique", unique))
		return c.Respond(&telebot.CallbackResponse{})
	}

	return r.execute(func(ctx telebot.Context) error {
		return handler(ctx, payload)
	}, c)
}

func (r *Router) handleMessage(c telebot.Context) error {
	text := strings.TrimSpace(c.Text())

	if strings.HasPrefix(text, "/") {
		if handler := r.commandHandler(text); handler != nil {
			return r.execute(handler, c)
		}
	}

	r.mu.RLock()
	handler := r.text
	r.mu.RUnlock()

	if handler == nil {
		return nil
	}
	return r.execute(handler, c)
}

// commandHandler resolves "/cmd", "/cmd args" and "/cmd@botname".
func (r *Router) commandHandler(text string) handlers.Handler {
	command, _, _ := strings.Cut(text, " ")
	command, _, _ = strings.Cut(command, "@")

	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.commands[strings.ToLower(command)]
}

func (r *Router) execute(h handlers.Handler, c telebot.Context) error {
	r.mu.RLock()
	middlewares := append([]handlers.Middleware(nil), r.middlewares...)
	r.mu.RUnlock()

	wrapped := h
	for i := len(middlewares) - 1; i >= 0; i-- {
		wrapped = middlewares[i](wrapped)
	}

	return wrapped(c)
}
