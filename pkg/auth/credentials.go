package auth

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/platinummonkey/tenancy/pkg/apperr"
)

const (
	MinPhoneNumberLength = 9
	MaxPhoneNumberLength = 32
	MaxPasswordLength    = 256

	// ResetPasswordLength is the length of a generated reset password
	ResetPasswordLength = 10
)

// ValidatePhoneNumber checks the login identifier of users and admins
func ValidatePhoneNumber(phoneNumber string) error {
	n := len(strings.TrimSpace(phoneNumber))
	if n < MinPhoneNumberLength || n > MaxPhoneNumberLength {
		return apperr.Validation(fmt.Sprintf("phone_number must be %d to %d characters",
			MinPhoneNumberLength, MaxPhoneNumberLength))
	}
	return nil
}

// ValidateNewPassword checks a password and its confirmation
func ValidateNewPassword(password, confirm string) error {
	if password == "" {
		return apperr.Validation("Password can't be empty!")
	}
	if len(password) > MaxPasswordLength {
		return apperr.Validation("Password is too long")
	}
	if password != confirm {
		return apperr.Validation("Passwords must be match")
	}
	return nil
}

// ValidateEmail accepts a bare address such as "a@b.example"
func ValidateEmail(email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Validation("This email address is not correct!")
	}
	return nil
}

// ResetMessage is the SMS text carrying a generated password
func ResetMessage(password string) string {
	return "Do not share this message with anyone! Your new password to login is: " + password
}
