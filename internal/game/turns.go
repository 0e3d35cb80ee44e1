package game

// turnManager tracks whose turn it is within a street or blackjack action
// phase. The order is fixed when the phase starts; seats that resolve or
// fold are skipped, not removed.
type turnManager struct {
	order   []string
	idx     int
	running bool
}

// start fixes the rotation and points at the first login.
func (m *turnManager) start(order []string) {
	m.order = append([]string(nil), order...)
	m.idx = 0
	m.running = len(m.order) > 0
}

// stop ends the rotation. Safe to call repeatedly.
func (m *turnManager) stop() {
	m.running = false
	m.order = nil
	m.idx = 0
}

// current returns the active login.
func (m *turnManager) current() (string, bool) {
	if !m.running || m.idx >= len(m.order) {
		return "", false
	}
	return m.order[m.idx], true
}

// advance moves to the next login in rotation order, wrapping around.
// Returns false when the rotation is empty.
func (m *turnManager) advance() bool {
	if !m.running || len(m.order) == 0 {
		return false
	}
	m.idx = (m.idx + 1) % len(m.order)
	return true
}

// advanceTo points the rotation at the login immediately after from. Used
// when a raise resets the acted set: action resumes left of the raiser.
func (m *turnManager) advanceTo(login string) bool {
	for i, l := range m.order {
		if l == login {
			m.idx = i
			return true
		}
	}
	return false
}

// position returns the rotation index of a login, for odd-chip awards to the
// earliest seat.
func (m *turnManager) position(login string) int {
	for i, l := range m.order {
		if l == login {
			return i
		}
	}
	return len(m.order)
}
