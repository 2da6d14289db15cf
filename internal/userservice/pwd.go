package userservice

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// passwordCost is the bcrypt work factor.
const passwordCost = 10

// hashPassword stores the bcrypt hash of plain. Plain is kept so the caller can still use it
// within the request.
func (p *Password) hashPassword(plain string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), passwordCost)
	if err != nil {
		return err
	}

	p.Plain = plain
	p.hash = hash

	return nil
}

// matches reports whether plain is the password behind the stored hash. A password longer
// than bcrypt accepts cannot match anything, so it is a plain mismatch.
func (p *Password) matches(plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(p.hash, []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword), errors.Is(err, bcrypt.ErrPasswordTooLong):
		return false, nil
	default:
		return false, err
	}
}
