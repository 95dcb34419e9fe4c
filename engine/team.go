package engine

import (
	"fmt"
	"sort"
)

var (
	defaultTeamNames  = []string{"Red", "Blue", "Green", "Yellow", "Purple", "Orange"}
	defaultTeamColors = []string{"#e74c3c", "#3498db", "#2ecc71", "#f1c40f", "#9b59b6", "#e67e22"}
)

// TeamConfig describes a fixed set of Count teams of Size players each.
// Names and Colors override the defaults position by position.
type TeamConfig struct {
	Count  int
	Size   int
	Names  []string
	Colors []string
}

func (c TeamConfig) validate(s Settings) error {
	if c.Count < 1 || c.Size < 1 {
		return fmt.Errorf("%w: teams need a positive count and size", ErrInvalidSettings)
	}
	if c.Count*c.Size > s.MaxPlayers {
		return fmt.Errorf("%w: %d teams of %d exceed maxPlayers %d", ErrInvalidSettings, c.Count, c.Size, s.MaxPlayers)
	}
	return nil
}

type Team struct {
	ID      string   `json:"id"`
	Name    string   `json:"name"`
	Color   string   `json:"color"`
	Members []string `json:"members"`
	Score   int      `json:"score"`
}

func (t *Team) clone() Team {
	c := *t
	c.Members = append([]string(nil), t.Members...)
	return c
}

// Teams is the team overlay of a session. Game hooks reach it through
// Context.Teams; outside hooks use the Session wrappers, which lock.
type Teams struct {
	s       *Session
	cfg     TeamConfig
	teams   []*Team
	current int
}

func newTeams(s *Session, cfg TeamConfig) *Teams {
	return &Teams{s: s, cfg: cfg}
}

// create builds the configured teams, once, on the first assignment.
func (t *Teams) create() {
	if len(t.teams) > 0 {
		return
	}
	t.teams = make([]*Team, t.cfg.Count)
	for i := range t.teams {
		t.teams[i] = &Team{
			ID:      fmt.Sprintf("team-%d", i+1),
			Name:    pickName(t.cfg.Names, defaultTeamNames, i, fmt.Sprintf("Team %d", i+1)),
			Color:   pickName(t.cfg.Colors, defaultTeamColors, i, "#7f8c8d"),
			Members: []string{},
		}
	}
}

func pickName(custom, defaults []string, i int, fallback string) string {
	if i < len(custom) && custom[i] != "" {
		return custom[i]
	}
	if i < len(defaults) {
		return defaults[i]
	}
	return fallback
}

// pick returns the least populated team with room left, or nil.
func (t *Teams) pick() *Team {
	t.create()
	var best *Team
	for _, team := range t.teams {
		if len(team.Members) >= t.cfg.Size {
			continue
		}
		if best == nil || len(team.Members) < len(best.Members) {
			best = team
		}
	}
	return best
}

func (t *Teams) add(team *Team, playerID string) {
	team.Members = append(team.Members, playerID)
	t.s.emit(EventTeamAssigned, playerID, TeamAssignedPayload{TeamID: team.ID})
}

func (t *Teams) remove(playerID string) {
	for _, team := range t.teams {
		for i, id := range team.Members {
			if id == playerID {
				team.Members = append(team.Members[:i], team.Members[i+1:]...)
				return
			}
		}
	}
}

func (t *Teams) allFull() bool {
	if len(t.teams) == 0 {
		return false
	}
	for _, team := range t.teams {
		if len(team.Members) != t.cfg.Size {
			return false
		}
	}
	return true
}

func (t *Teams) find(teamID string) *Team {
	for _, team := range t.teams {
		if team.ID == teamID {
			return team
		}
	}
	return nil
}

// List returns copies of all teams in creation order.
func (t *Teams) List() []Team {
	out := make([]Team, 0, len(t.teams))
	for _, team := range t.teams {
		out = append(out, team.clone())
	}
	return out
}

// TeamOf returns the team a player belongs to.
func (t *Teams) TeamOf(playerID string) (Team, bool) {
	for _, team := range t.teams {
		for _, id := range team.Members {
			if id == playerID {
				return team.clone(), true
			}
		}
	}
	return Team{}, false
}

func (t *Teams) AddScore(teamID string, delta int) error {
	team := t.find(teamID)
	if team == nil {
		return ErrUnknownTeam
	}
	team.Score += delta
	t.s.emit(EventScoreChanged, "", ScorePayload{TeamID: teamID, Score: team.Score, Delta: delta})
	return nil
}

func (t *Teams) SetScore(teamID string, score int) error {
	team := t.find(teamID)
	if team == nil {
		return ErrUnknownTeam
	}
	delta := score - team.Score
	team.Score = score
	t.s.emit(EventScoreChanged, "", ScorePayload{TeamID: teamID, Score: score, Delta: delta})
	return nil
}

// Ranking orders teams by descending score; ties keep creation order.
func (t *Teams) Ranking() []Team {
	out := t.List()
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out
}

// Winner is the id of the single highest scoring team, or "" on a tie.
func (t *Teams) Winner() string {
	ranked := t.Ranking()
	if len(ranked) == 0 {
		return ""
	}
	if len(ranked) > 1 && ranked[0].Score == ranked[1].Score {
		return ""
	}
	return ranked[0].ID
}

// Current is the team whose turn it is.
func (t *Teams) Current() (Team, bool) {
	if len(t.teams) == 0 {
		return Team{}, false
	}
	return t.teams[t.current].clone(), true
}

// Next rotates the current team pointer round-robin.
func (t *Teams) Next() (Team, error) {
	if len(t.teams) == 0 {
		return Team{}, ErrNoTeams
	}
	t.current = (t.current + 1) % len(t.teams)
	team := t.teams[t.current]
	t.s.emit(EventTeamTurnChanged, "", TeamTurnPayload{TeamID: team.ID})
	return team.clone(), nil
}

// --- session wrappers ---

func (s *Session) AddTeamScore(teamID string, delta int) error {
	return s.mutate(func() error {
		if s.teams == nil {
			return ErrNoTeams
		}
		return s.teams.AddScore(teamID, delta)
	})
}

func (s *Session) SetTeamScore(teamID string, score int) error {
	return s.mutate(func() error {
		if s.teams == nil {
			return ErrNoTeams
		}
		return s.teams.SetScore(teamID, score)
	})
}

// NextTeam rotates the current team and returns it.
func (s *Session) NextTeam() (Team, error) {
	var team Team
	err := s.mutate(func() error {
		if s.teams == nil {
			return ErrNoTeams
		}
		var err error
		team, err = s.teams.Next()
		return err
	})
	return team, err
}

func (s *Session) TeamRanking() []Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.teams == nil {
		return nil
	}
	return s.teams.Ranking()
}

// WinningTeam is the unique top-scoring team id, or "".
func (s *Session) WinningTeam() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.teams == nil {
		return ""
	}
	return s.teams.Winner()
}

func (s *Session) TeamOf(playerID string) (Team, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.teams == nil {
		return Team{}, false
	}
	return s.teams.TeamOf(playerID)
}
