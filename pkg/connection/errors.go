package connection

import "errors"

// ErrAllBackendsOffline is returned when no candidate backend answered its health probe.
var ErrAllBackendsOffline = errors.New("all backends are offline")
