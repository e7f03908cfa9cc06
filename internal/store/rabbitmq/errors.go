package rabbitmq

import "errors"

var errMissingRunID = errors.New("rabbitmq: run message without id")
