package middlewares

import (
	"context"
	"errors"
	"strings"

	errprocess "realtime_chat_service/pkg/err"

	"github.com/gofiber/fiber/v2"
)

const (
	//QueryToken token in query name
	QueryToken = "token"
	//QueryAuth legacy token query name
	QueryAuth = "auth"

	//CookieToken token in cookie name
	CookieToken = "auth_token"

	//TokenMemberID get member form token, set c.locals name
	TokenMemberID = "MemberID"
	//TokenRaw raw credential, set c.locals name
	TokenRaw = "Token"
)

// Authenticator resolve a credential to a member id
type Authenticator interface {
	Authenticate(ctx context.Context, credential string) (string, error)
}

// ExtractToken Authorization: Bearer > ?token > ?auth > cookie
func ExtractToken(c *fiber.Ctx) string {
	if h := c.Get(fiber.HeaderAuthorization); len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	if t := c.Query(QueryToken); t != "" {
		return t
	}
	if t := c.Query(QueryAuth); t != "" {
		return t
	}
	return c.Cookies(CookieToken)
}

// JWTMiddleware validates the credential and sets the member id in locals
func JWTMiddleware(auth Authenticator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := ExtractToken(c)

		// 如果仍然沒有 token，則返回未授權錯誤
		if tokenStr == "" {
			return ErrorResponse(c, errprocess.New(errprocess.ErrUnauthenticated, "missing token"))
		}

		memberID, err := auth.Authenticate(c.UserContext(), tokenStr)
		if err != nil {
			return ErrorResponse(c, err)
		}

		c.Locals(TokenMemberID, memberID)
		c.Locals(TokenRaw, tokenStr)
		return c.Next()
	}
}

// MemberID member id set by JWTMiddleware
func MemberID(c *fiber.Ctx) string {
	id, _ := c.Locals(TokenMemberID).(string)
	return id
}

// ErrorResponse write {error, detail} with the mapped status
func ErrorResponse(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		status, code := fe.Code, errprocess.CodeInvalidRequest
		switch fe.Code {
		case fiber.StatusRequestEntityTooLarge:
			// body limit 與 SubmitFile 的上限回應一致
			status, code = errprocess.ErrPayloadTooLarge.Status, errprocess.CodePayloadTooLarge
		case fiber.StatusNotFound:
			code = errprocess.CodeNotFound
		case fiber.StatusUnauthorized:
			code = errprocess.CodeUnauthenticated
		default:
			if fe.Code >= fiber.StatusInternalServerError {
				code = errprocess.CodeInternal
			}
		}
		return c.Status(status).JSON(fiber.Map{
			"error":  code,
			"detail": fe.Message,
		})
	}
	return c.Status(errprocess.StatusOf(err)).JSON(fiber.Map{
		"error":  errprocess.CodeOf(err),
		"detail": errprocess.MessageOf(err),
	})
}

// ErrorHandler fiber.Config ErrorHandler, same body as ErrorResponse
func ErrorHandler(c *fiber.Ctx, err error) error {
	return ErrorResponse(c, err)
}
