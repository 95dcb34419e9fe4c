package room

// Metrics receives the number of live sessions whenever it changes.
// Defined here so the registry does not depend on the monitor package.
type Metrics interface {
	SetActiveRooms(count int)
}
