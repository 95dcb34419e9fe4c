package engine

// Snapshot returns the shared view of the session.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked("")
}

// ViewFor returns the view of one viewer. For games without private state
// it equals Snapshot apart from the Viewer field.
func (s *Session) ViewFor(viewer string) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked(viewer)
}

func (s *Session) snapshotLocked(viewer string) Snapshot {
	snap := Snapshot{
		RoomID:     s.roomID,
		GameType:   s.gameType,
		Status:     s.lifecycle.Current(),
		Players:    make([]Player, 0, len(s.players)),
		Winner:     s.winner,
		Reason:     s.reason,
		Settings:   s.settings,
		History:    append([]MoveRecord{}, s.history...),
		Viewer:     viewer,
		CreatedAt:  s.createdAt,
		StartedAt:  timePtr(s.startedAt),
		FinishedAt: timePtr(s.finishedAt),
		LastMoveAt: timePtr(s.lastMoveAt),
	}
	for _, p := range s.players {
		snap.Players = append(snap.Players, p.clone())
	}
	if s.teams != nil && len(s.teams.teams) > 0 {
		snap.Teams = s.teams.List()
		if cur, ok := s.teams.Current(); ok {
			snap.CurrentTeam = cur.ID
		}
	}
	if snap.Status == StatusInProgress {
		s.strategy.fill(s, &snap)
	}

	c := s.ctx()
	if ps, ok := s.game.(PrivateStater); ok && viewer != "" {
		snap.State = ps.StateFor(c, viewer)
	} else if pub, ok := s.game.(PublicStater); ok {
		snap.State = pub.PublicState(c)
	}
	return snap
}
