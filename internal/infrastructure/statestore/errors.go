package statestore

import "errors"

// ErrDisabled indicates state persistence is disabled in config.
var ErrDisabled = errors.New("statestore: disabled in configuration")
