package handlers

import (
	telebot "gopkg.in/telebot.v3"
)

type sentMessage struct {
	text string
	opts *telebot.SendOptions
}

// fakeContext implements the parts of telebot.Context the handlers use.
type fakeContext struct {
	telebot.Context

	sender   *telebot.User
	chat     *telebot.Chat
	message  *telebot.Message
	callback *telebot.Callback
	text     string
	store    map[string]interface{}

	sent      []sentMessage
	edited    []sentMessage
	responses []*telebot.CallbackResponse
	editErr   error
}

func newTextContext(userID int64, text string) *fakeContext {
	return &fakeContext{
		sender:  &telebot.User{ID: userID, LanguageCode: "en"},
		chat:    &telebot.Chat{ID: userID},
		message: &telebot.Message{ID: 7, Text: text},
		text:    text,
	}
}

func newCallbackContext(userID int64, data string) *fakeContext {
	msg := &telebot.Message{ID: 11}
	return &fakeContext{
		sender:   &telebot.User{ID: userID, LanguageCode: "en"},
		chat:     &telebot.Chat{ID: userID},
		message:  msg,
		callback: &telebot.Callback{ID: "cb-1", Data: data, Message: msg},
	}
}

func (f *fakeContext) Sender() *telebot.User { return f.sender }
func (f *fakeContext) Chat() *telebot.Chat { return f.chat }
func (f *fakeContext) Message() *telebot.Message { return f.message }
func (f *fakeContext) Callback() *telebot.Callback { return f.callback }
func (f *fakeContext) Text() string { return f.text }

func (f *fakeContext) Get(key string) interface{} {
	return f.store[key]
}

func (f *fakeContext) Set(key string, val interface{}) {
	if f.store == nil {
		f.store = make(map[string]interface{})
	}
	f.store[key] = val
}

func (f *fakeContext) Send(what interface{}, opts ...interface{}) error {
	f.sent = append(f.sent, record(what, opts))
	return nil
}

func (f *fakeContext) Edit(what interface{}, opts ...interface{}) error {
	if f.editErr != nil {
		return f.editErr
	}
	f.edited = append(f.edited, record(what, opts))
	return nil
}

func (f *fakeContext) Respond(resp ...*telebot.CallbackResponse) error {
	f.responses = append(f.responses, resp...)
	return nil
}

func record(what interface{}, opts []interface{}) sentMessage {
	msg := sentMessage{text: what.(string)}
	for _, opt := range opts {
		if so, ok := opt.(*telebot.SendOptions); ok {
			msg.opts = so
		}
	}
	return msg
}
