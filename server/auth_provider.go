// Copyright 2021 Converter Systems LLC. All rights reserved.

package server

import (
	"github.com/awcullen/uacore/ua"
	"golang.org/x/crypto/bcrypt"
)

// UserNameIdentityAuthenticator authenticates UserNameIdentity.
type UserNameIdentityAuthenticator interface {
	// AuthenticateUserNameIdentity returns nil when user identity is authenticated, or BadUserAccessDenied otherwise.
	AuthenticateUserNameIdentity(userIdentity ua.UserIdentityToken, endpointURL string) error
}

// AuthenticateUserNameIdentityFunc authenticates UserNameIdentity.
type AuthenticateUserNameIdentityFunc func(userIdentity ua.UserIdentityToken, endpointURL string) error

// AuthenticateUserNameIdentity ...
func (f AuthenticateUserNameIdentityFunc) AuthenticateUserNameIdentity(userIdentity ua.UserIdentityToken, endpointURL string) error {
	return f(userIdentity, endpointURL)
}

// BcryptUserNameIdentityAuthenticator authenticates users against bcrypt hashes of their passwords,
// keyed by user name.
func BcryptUserNameIdentityAuthenticator(hashes map[string]string) AuthenticateUserNameIdentityFunc {
	return func(userIdentity ua.UserIdentityToken, endpointURL string) error {
		hash, ok := hashes[userIdentity.UserName]
		if !ok {
			return ua.BadUserAccessDenied
		}
		if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(userIdentity.Password)); err != nil {
			return ua.BadUserAccessDenied
		}
		return nil
	}
}
