package repositories

import "errors"

// ErrNotFound is returned (wrapped) by every repository when the
// referenced record does not exist, so services can branch with
// errors.Is instead of matching message strings.
var ErrNotFound = errors.New("record not found")
