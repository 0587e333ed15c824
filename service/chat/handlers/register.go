package handlers

import "SMProject/service/chat"

// RegisterAll installs the handler of every inbound event.
func RegisterAll(d *chat.Dispatcher) {
	d.Register(
		AuthHandler{},
		JoinRoomHandler{},
		LeaveRoomHandler{},
		MessageHandler{},
		DirectHandler{},
		TypingHandler{},
		BookingHandler{},
	)
}
