package handlers

import (
	"SMProject/service/chat"
	"SMProject/tools/decode"
	"SMProject/tools/errs"
)

type typingPayload struct {
	RoomID   string `json:"roomId"`
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

type TypingHandler struct{}

func (TypingHandler) Event() string { return chat.EventTyping }

func (TypingHandler) Handle(ctx *chat.Context) (string, error) {
	p, err := decode.Object[typingPayload](ctx.Frame.Data)
	if err != nil {
		return "", errs.ErrArgs.WrapMsg(err.Error())
	}
	if p.RoomID == "" {
		return "", errs.ErrArgs.WrapMsg("roomId is required")
	}

	userID := p.UserID
	if id := ctx.Client.Identity(); id != "" {
		userID = id
	} else if ctx.Hub.RequireToken() {
		return "", errs.ErrUnauthenticated.WrapMsg("authenticate first", "event", chat.EventTyping)
	}
	ctx.Hub.EmitRoom(chat.RoomChannel(p.RoomID), chat.EventUserTyping,
		chat.UserTyping{UserID: userID, IsTyping: p.IsTyping}, ctx.Client)
	return chat.AckOK, nil
}
