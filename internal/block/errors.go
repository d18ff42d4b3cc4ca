package block

import "errors"

// ErrInvalidBlock wraps all block-validation failures; use errors.Is to
// detect the category and inspect the wrapped message for detail.
var ErrInvalidBlock = errors.New("block: validation failed")
