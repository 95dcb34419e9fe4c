package engine

// Strategy decides how moves are ordered. A session owns exactly one,
// built by TurnBased or Realtime. All methods run with the session lock
// held.
type Strategy interface {
	Name() string

	start(s *Session)
	move(s *Session, p *Player, move Move) error
	// playerRemoved runs after the player at index has left the roster of
	// a game in progress that can continue.
	playerRemoved(s *Session, id string, index int)
	stop(s *Session)
	fill(s *Session, snap *Snapshot)
}
