package handlers

import (
	"SMProject/service/chat"
	"SMProject/tools/decode"
	"SMProject/tools/errs"
)

type roomMessage struct {
	RoomID  string `json:"roomId"`
	Message any    `json:"message"`
}

// MessageHandler relays a message to every member of the room, sender
// included. The message body is opaque.
type MessageHandler struct{}

func (MessageHandler) Event() string { return chat.EventSendMessage }

func (MessageHandler) Handle(ctx *chat.Context) (string, error) {
	p, err := decode.Object[roomMessage](ctx.Frame.Data)
	if err != nil {
		return "", errs.ErrArgs.WrapMsg(err.Error())
	}
	if p.RoomID == "" {
		return "", errs.ErrArgs.WrapMsg("roomId is required")
	}
	if p.Message == nil {
		return "", errs.ErrArgs.WrapMsg("message is required")
	}
	ctx.Hub.EmitRoom(chat.RoomChannel(p.RoomID), chat.EventNewMessage, p.Message, nil)
	return chat.AckOK, nil
}
