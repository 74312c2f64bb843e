package events

import "errors"

var ErrBrokerClosed = errors.New("event broker closed")
