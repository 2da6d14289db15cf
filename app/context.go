package main

import (
	"context"
	"net/http"

	"github.com/sushihentaime/blogshelf/internal/userservice"
)

type userKey struct{}

// contextSetUser returns a copy of r carrying the authenticated user.
func contextSetUser(r *http.Request, user *userservice.User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userKey{}, user))
}

// contextGetUser returns the user set by authenticate, or the anonymous user when the
// request never went through it.
func contextGetUser(r *http.Request) *userservice.User {
	if user, ok := r.Context().Value(userKey{}).(*userservice.User); ok && user != nil {
		return user
	}
	return &userservice.AnonymousUser
}
