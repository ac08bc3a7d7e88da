package refresh

// Record is the stored state of one outstanding refresh token.
//
// Record instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Record struct {
	AccountID string
	ExpiresAt int64
}
