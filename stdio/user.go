package stdio

import (
	"errors"
	"fmt"
	"os"
	"os/user"
)

// UserProvider names the principal behind the stdio peer. A pipe carries no
// credentials, so the id only scopes the session record.
type UserProvider interface {
	CurrentUserID() (string, error)
}

// UserFunc adapts a function to UserProvider.
type UserFunc func() (string, error)

func (f UserFunc) CurrentUserID() (string, error) { return f() }

// StaticUser always reports the same id.
type StaticUser string

func (u StaticUser) CurrentUserID() (string, error) {
	if u == "" {
		return "", errors.New("stdio: empty static user")
	}
	return string(u), nil
}

// OSUserProvider reports the login name of the process owner, or "uid:<n>"
// for accounts without a name. $USER is used when the user database cannot
// be read, which is common in minimal containers.
type OSUserProvider struct{}

func (OSUserProvider) CurrentUserID() (string, error) {
	u, err := user.Current()
	if err == nil {
		switch {
		case u.Username != "":
			return u.Username, nil
		case u.Uid != "":
			return "uid:" + u.Uid, nil
		}
		err = errors.New("account has neither name nor uid")
	}
	if name := os.Getenv("USER"); name != "" {
		return name, nil
	}
	return "", fmt.Errorf("stdio: resolve current user: %w", err)
}
