package nirasdk

import (
	"context"
	"errors"

	"github.com/goccy/go-json"
)

const apiUserSessions = "api/users/sessions/"

var ErrNoEmail = errors.New("sdk: user email is required")

type UsersAPI struct {
	t *transport
}

func newUsersAPI(t *transport) *UsersAPI {
	return &UsersAPI{t: t}
}

// ExpireSessions signs the user out everywhere.
func (u *UsersAPI) ExpireSessions(ctx context.Context, email string) (json.RawMessage, error) {
	if email == "" {
		return nil, ErrNoEmail
	}

	r, err := u.t.request(ctx)
	if err != nil {
		return nil, err
	}

	var result json.RawMessage
	resp, err := r.SetQueryParam("email", email).SetSuccessResult(&result).Delete(apiUserSessions)
	if err := handleAPIError(resp, err, "expire user sessions"); err != nil {
		return nil, err
	}

	return result, nil
}
