package errs

import "net/http"

const (
	ServerInternalError = 500

	ArgsError           = 1001
	NoPermissionError   = 1002
	RecordNotFoundError = 1004
	RecordIsExistError  = 1005
	StateError          = 1006

	PasswordError = 1201

	UnknownEventError    = 1301
	UnauthenticatedError = 1302
	RateLimitedError     = 1303
	AuthTimeoutError     = 1304

	TokenError        = 1500
	TokenInvalidError = 1501
	TokenExpiredError = 1502
	TokenMissingError = 1503
)

var (
	ErrInternalServer = NewCodeError(ServerInternalError, "ServerInternalError")
	ErrArgs           = NewCodeError(ArgsError, "ArgsError")
	ErrNoPermission   = NewCodeError(NoPermissionError, "NoPermissionError")
	ErrRecordNotFound = NewCodeError(RecordNotFoundError, "RecordNotFoundError")
	ErrRecordIsExist  = NewCodeError(RecordIsExistError, "RecordIsExistError")
	ErrState          = NewCodeError(StateError, "StateError")
	ErrPassword       = NewCodeError(PasswordError, "PasswordError")

	ErrUnknownEvent    = NewCodeError(UnknownEventError, "UnknownEventError")
	ErrUnauthenticated = NewCodeError(UnauthenticatedError, "UnauthenticatedError")
	ErrRateLimited     = NewCodeError(RateLimitedError, "RateLimitedError")
	ErrAuthTimeout     = NewCodeError(AuthTimeoutError, "AuthTimeoutError")

	ErrToken        = NewCodeError(TokenError, "TokenError")
	ErrTokenInvalid = NewCodeError(TokenInvalidError, "TokenInvalidError")
	ErrTokenExpired = NewCodeError(TokenExpiredError, "TokenExpiredError")
	ErrTokenMissing = NewCodeError(TokenMissingError, "TokenMissingError")
)

func init() {
	_ = DefaultCodeRelation.Add(TokenError, TokenInvalidError)
	_ = DefaultCodeRelation.Add(TokenError, TokenExpiredError)
	_ = DefaultCodeRelation.Add(TokenError, TokenMissingError)
}

// HTTPStatus maps an error to the status the REST layer answers with.
func HTTPStatus(err error) int {
	switch code := Code(err); {
	case code == 0:
		return http.StatusOK
	case code == ArgsError, code == StateError, code == RecordIsExistError:
		return http.StatusBadRequest
	case code == PasswordError, DefaultCodeRelation.Is(TokenError, code), code == UnauthenticatedError:
		return http.StatusUnauthorized
	case code == NoPermissionError:
		return http.StatusForbidden
	case code == RecordNotFoundError:
		return http.StatusNotFound
	case code == RateLimitedError:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
