package ranking

import "errors"

// ErrUnknownPolicy is returned for an unrecognised ranking policy name.
var ErrUnknownPolicy = errors.New("unknown ranking policy")
