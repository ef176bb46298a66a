// Package collection keeps an ordered child collection of a parent record in
// memory and reconciles it with the remote data API.
//
// Items carry a 1-based position. After every successful mutation the
// positions of a collection are exactly 1..N in list order.
package collection

import "errors"

// Item is an entity of an ordered child collection. Implementations are value
// types; the With* methods return modified copies.
type Item[T any] interface {
	// ItemID is "" until the item has been created remotely.
	ItemID() string
	ItemPosition() int
	WithPosition(pos int) T
	WithParent(parentID string) T
}

var (
	ErrIndexOutOfRange   = errors.New("index out of range")
	ErrInvalidTransition = errors.New("invalid modal transition")
)
