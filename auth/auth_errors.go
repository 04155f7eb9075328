package auth

import "errors"

var (
	MissingCredentialsErr     = errors.New("email and password are required")
	InvalidEmailErr           = errors.New("invalid email format")
	InvalidUsernameErr        = errors.New("username must not be blank")
	UserPasswordsDontMatchErr = errors.New("user passwords not matched")
	MissingActivationErr      = errors.New("uid and token are required")
)
