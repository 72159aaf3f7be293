// app/echoServer/jwtx/jwtx.go
package jwtx

import (
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"librarydesk/model"
	jwtutil "librarydesk/util/jwt"
)

const identityKey = "identity"

// Identity is the authenticated caller pulled out of the JWT.
type Identity struct {
	UserID int64
	Email  string
	Role   model.Role
}

func (i Identity) Staff() bool { return i.Role.AtLeast(model.RoleLibrarian) }
func (i Identity) Admin() bool { return i.Role.AtLeast(model.RoleAdmin) }

// FromToken decodes the echo-jwt token stored on the context.
func FromToken(c echo.Context) (Identity, error) {
	tok, ok := c.Get("user").(*jwt.Token)
	if !ok || tok == nil {
		return Identity{}, errors.New("no jwt token in context")
	}
	mc, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, errors.New("invalid jwt claims")
	}
	claims, err := jwtutil.FromMapClaims(mc)
	if err != nil {
		return Identity{}, err
	}
	id := Identity{UserID: claims.UserID, Email: claims.Email, Role: model.Role(claims.Role)}
	if !id.Role.Valid() {
		return Identity{}, errors.New("unknown role in claims")
	}
	return id, nil
}

func Set(c echo.Context, id Identity) { c.Set(identityKey, id) }

// MustIdentity returns the identity placed on the context by the auth
// middleware. The zero Identity means the middleware did not run.
func MustIdentity(c echo.Context) Identity {
	id, _ := c.Get(identityKey).(Identity)
	return id
}
