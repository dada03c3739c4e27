package repochat

// DailyUsage is the opaque usage-accounting payload attached to a complete
// record. The numbers are passed through as the server reported them, never
// recomputed client-side.
type DailyUsage struct {
	Used  int
	Limit int
}
