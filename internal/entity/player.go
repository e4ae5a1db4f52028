package entity

const defaultNamePrefix = "Player-"

// Player is a connection seated in a match.
type Player struct {
	ConnectionID string `json:"connectionId"`
	Name         string `json:"name"`
}

// NewPlayer falls back to a label derived from the connection id when name is empty.
func NewPlayer(connectionID, name string) *Player {
	if name == "" {
		short := connectionID
		if len(short) > 4 {
			short = short[:4]
		}
		name = defaultNamePrefix + short
	}

	return &Player{
		ConnectionID: connectionID,
		Name:         name,
	}
}
