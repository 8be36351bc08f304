package models

import "errors"

// ErrNotFound is returned when an event or message id does not exist.
// Handlers map it to 404; private pages return it too so they are
// indistinguishable from missing ones.
var ErrNotFound = errors.New("not found")
