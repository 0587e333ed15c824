package handlers

import (
	"SMProject/service/chat"
	"SMProject/tools/decode"
	"SMProject/tools/errs"
)

type bookingPayload struct {
	MusicianID string `json:"musicianId"`
}

// BookingHandler forwards the whole booking payload to the musician's
// private channel.
type BookingHandler struct{}

func (BookingHandler) Event() string      { return chat.EventBookingCreated }
func (BookingHandler) RequiresAuth() bool { return true }

func (BookingHandler) Handle(ctx *chat.Context) (string, error) {
	p, err := decode.Object[bookingPayload](ctx.Frame.Data)
	if err != nil {
		return "", errs.ErrArgs.WrapMsg(err.Error())
	}
	if p.MusicianID == "" {
		return "", errs.ErrArgs.WrapMsg("musicianId is required")
	}
	ctx.Hub.EmitRoom(chat.UserChannel(p.MusicianID), chat.EventNewBookingNotification,
		ctx.Frame.Data, nil)
	return chat.AckOK, nil
}
