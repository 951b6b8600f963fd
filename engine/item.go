package engine

// Item is one data file under consideration by the pipeline. An Item is
// owned by exactly one queue or worker at a time and is passed by value
// between stages, so it is never mutated concurrently.
type Item struct {
	// Source is the absolute path of the file on local disk.
	Source string

	// PublicName is the name the file is registered under, which may
	// differ from the on-disk base name.
	PublicName string

	// Virtual marks a catalog-only entry that is declared but never
	// physically transferred.
	Virtual bool

	heartbeat bool
}

// Heartbeat returns the sentinel item a declare worker forwards in place of
// a real one when an item is skipped. It resets the idle-timeout clock of
// whichever transfer worker pops it and must produce no other side effects.
func Heartbeat() Item {
	return Item{heartbeat: true}
}

// IsHeartbeat reports whether the item is the heartbeat sentinel.
func (it Item) IsHeartbeat() bool {
	return it.heartbeat
}
