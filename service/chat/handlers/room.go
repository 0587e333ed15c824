package handlers

import (
	"encoding/json"

	"SMProject/service/chat"
	"SMProject/tools/decode"
	"SMProject/tools/errs"
)

type JoinRoomHandler struct{}

func (JoinRoomHandler) Event() string { return chat.EventJoinRoom }

func (JoinRoomHandler) Handle(ctx *chat.Context) (string, error) {
	id, err := roomID(ctx.Frame.Data)
	if err != nil {
		return "", err
	}
	ctx.Hub.Rooms().Join(ctx.Client, chat.RoomChannel(id))
	return chat.AckOK, nil
}

type LeaveRoomHandler struct{}

func (LeaveRoomHandler) Event() string { return chat.EventLeaveRoom }

func (LeaveRoomHandler) Handle(ctx *chat.Context) (string, error) {
	id, err := roomID(ctx.Frame.Data)
	if err != nil {
		return "", err
	}
	ctx.Hub.Rooms().Leave(ctx.Client, chat.RoomChannel(id))
	return chat.AckOK, nil
}

func roomID(data json.RawMessage) (string, error) {
	id, err := decode.String(data)
	if err != nil {
		return "", errs.ErrArgs.WrapMsg(err.Error())
	}
	if id == "" {
		return "", errs.ErrArgs.WrapMsg("roomId is required")
	}
	return id, nil
}
