package verification

import "sync"

// Desk is one operator session's verification state: the pending view and
// the single in-flight lock shared by approve and reject.
type Desk struct {
	inFlight sync.Mutex
	view     *View
}

func NewDesk() *Desk {
	return &Desk{view: NewView()}
}

func (d *Desk) View() *View { return d.view }

func (d *Desk) tryBegin() bool { return d.inFlight.TryLock() }

func (d *Desk) end() { d.inFlight.Unlock() }

// Busy reports whether an approve or reject is running.
func (d *Desk) Busy() bool {
	if d.inFlight.TryLock() {
		d.inFlight.Unlock()
		return false
	}
	return true
}
