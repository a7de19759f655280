package retry

import "errors"

// ErrExhausted is joined with the last failure once every attempt has been used.
var ErrExhausted = errors.New("retry attempts exhausted")
