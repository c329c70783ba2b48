package domain

import "fmt"

// Entity identifies a record in the host store. The index treats it as
// an opaque key and never interprets its bits.
type Entity uint64

// NoEntity is never handed out by a host store.
const NoEntity Entity = 0

func (e Entity) String() string {
	return fmt.Sprintf("e%d", uint64(e))
}
