package handlers

import (
	"encoding/json"

	"SMProject/service/chat"
	"SMProject/tools/decode"
	"SMProject/tools/errs"
)

type authPayload struct {
	UserID string `json:"userId"`
	Token  string `json:"token"`
}

// AuthHandler binds the connection to a user. With tokens required the
// identity comes from the verified token, otherwise from the payload.
type AuthHandler struct{}

func (AuthHandler) Event() string { return chat.EventAuthenticate }

func (AuthHandler) Handle(ctx *chat.Context) (string, error) {
	p, err := parseAuth(ctx.Frame.Data)
	if err != nil {
		return "", err
	}

	identity := p.UserID
	if ctx.Hub.RequireToken() {
		if p.Token == "" {
			return "", errs.ErrTokenMissing.WrapMsg("authenticate needs a token")
		}
		subject, err := ctx.Hub.VerifyToken(p.Token)
		if err != nil {
			if _, ok := errs.As(err); ok {
				return "", err
			}
			return "", errs.ErrTokenInvalid.WrapMsg(err.Error())
		}
		if p.UserID != "" && p.UserID != subject {
			return "", errs.ErrNoPermission.WrapMsg("userId does not match token", "userId", p.UserID)
		}
		identity = subject
	}

	if err := ctx.Hub.Registry().Authenticate(ctx, ctx.Client, identity); err != nil {
		return "", err
	}
	return chat.AckOK, nil
}

// parseAuth accepts a bare user id or {userId, token}.
func parseAuth(data json.RawMessage) (*authPayload, error) {
	v, err := decode.Raw(data)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	if m, ok := v.(map[string]any); ok {
		p, err := decode.Map[authPayload](m)
		if err != nil {
			return nil, errs.ErrArgs.WrapMsg(err.Error())
		}
		return p, nil
	}
	id, err := decode.String(data)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg(err.Error())
	}
	return &authPayload{UserID: id}, nil
}
