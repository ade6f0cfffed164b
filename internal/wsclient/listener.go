package wsclient

import "github.com/promptstream/promptstream/internal/frame"

// Listener receives connection events. It is bound once when Client is
// created. Events of one connection arrive in order: OnOpen, any number of
// OnMessage, OnClose. OnError may come at any point, including instead of
// OnOpen. Callbacks must not block for long: they run on the connection
// read goroutine.
type Listener interface {
	OnOpen()
	OnMessage(f frame.Frame)
	OnClose(e CloseEvent)
	OnError(err error)
}

// ListenerFuncs adapts functions to Listener. Nil fields are skipped.
type ListenerFuncs struct {
	Open    func()
	Message func(frame.Frame)
	Close   func(CloseEvent)
	Error   func(error)
}

func (l ListenerFuncs) OnOpen() {
	if l.Open != nil {
		l.Open()
	}
}

func (l ListenerFuncs) OnMessage(f frame.Frame) {
	if l.Message != nil {
		l.Message(f)
	}
}

func (l ListenerFuncs) OnClose(e CloseEvent) {
	if l.Close != nil {
		l.Close(e)
	}
}

func (l ListenerFuncs) OnError(err error) {
	if l.Error != nil {
		l.Error(err)
	}
}
