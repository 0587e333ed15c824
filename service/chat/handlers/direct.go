package handlers

import (
	"SMProject/service/chat"
	"SMProject/tools/decode"
	"SMProject/tools/errs"
)

type directMessage struct {
	RecipientID string `json:"recipientId"`
	Message     any    `json:"message"`
}

// DirectHandler delivers to the recipient's registered connection and
// always echoes to the sender. The ack says whether the recipient got it.
type DirectHandler struct{}

func (DirectHandler) Event() string      { return chat.EventSendDirectMessage }
func (DirectHandler) RequiresAuth() bool { return true }

func (DirectHandler) Handle(ctx *chat.Context) (string, error) {
	p, err := decode.Object[directMessage](ctx.Frame.Data)
	if err != nil {
		return "", errs.ErrArgs.WrapMsg(err.Error())
	}
	if p.RecipientID == "" {
		return "", errs.ErrArgs.WrapMsg("recipientId is required")
	}
	if p.Message == nil {
		return "", errs.ErrArgs.WrapMsg("message is required")
	}

	delivered, err := ctx.Hub.EmitToIdentity(ctx, p.RecipientID, chat.EventNewDirectMessage, p.Message)
	if err != nil {
		return "", err
	}
	ctx.Hub.EmitTo(ctx.Client, chat.EventNewDirectMessage, p.Message)

	if !delivered {
		return chat.AckRecipientOffline, nil
	}
	return chat.AckDelivered, nil
}
