package smartdrive

import "errors"

var (
	// ErrInvalidInput is returned when a required input is missing or malformed.
	ErrInvalidInput = errors.New("invalid input")
	// ErrUnauthenticated is returned when a request carries no usable credential.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrTokenExpired is returned when a token's signature is valid but its expiry has passed.
	ErrTokenExpired = errors.New("token expired")
	// ErrTokenMalformed is returned when a token cannot be parsed or its signature does not match.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrForbidden is returned when an authenticated subject is not the owner of the resource.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound is returned when a resource is not found.
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists is returned when signup targets an email that is already registered.
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCredentials is returned on login when the email is unknown or the
	// password does not match. The two causes are deliberately not distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUpstream is returned when the object store or a table operation failed.
	ErrUpstream = errors.New("upstream error")
)
