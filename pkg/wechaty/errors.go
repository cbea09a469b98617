package wechaty

import "errors"

var (
	// ErrNotLoggedIn indicates an operation that needs a logged-in account.
	ErrNotLoggedIn = errors.New("wechaty: not logged in")
	// ErrNoPayload indicates an entity handle whose payload was never loaded.
	ErrNoPayload = errors.New("wechaty: payload not loaded")
)
