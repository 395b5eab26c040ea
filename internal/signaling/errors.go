package signaling

import "errors"

// ErrTransportClosed marks a relay whose sender or recipient connection is
// no longer registered. It is only ever logged.
var ErrTransportClosed = errors.New("transport closed")
