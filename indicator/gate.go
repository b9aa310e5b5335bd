package indicator

// Gate remembers the last admitted command and only admits commands that differ from it.
// A Gate belongs to a single dispatch loop and is not safe for concurrent use.
type Gate struct {
	last Command
	set  bool
}

// Admit reports whether cmd must be dispatched. The first call always admits.
// An admitted command replaces the stored one before Admit returns, whether or not
// the caller manages to deliver it.
func (g *Gate) Admit(cmd Command) bool {
	if g.set && g.last == cmd {
		return false
	}
	g.last = cmd
	g.set = true
	return true
}

func (g *Gate) Last() (Command, bool) {
	return g.last, g.set
}
