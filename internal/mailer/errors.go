package mailer

import "errors"

var (
	ErrSendFailed    = errors.New("mailer: failed to send email")
	ErrInvalidParams = errors.New("mailer: invalid send params")
	ErrNoCredential  = errors.New("mailer: account has no provider api key")
)
