package domain

import "errors"

var ErrInvalidProtocol = errors.New("invalid_tax_protocol")
