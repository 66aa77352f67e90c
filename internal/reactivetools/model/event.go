package model

// PeriodicEvent registers a module entrypoint to fire on a fixed interval
// once the EM has taken over scheduling; the orchestrator does not
// itself schedule events at runtime.
type PeriodicEvent struct {
	ID          uint16
	Name        string
	Module      string
	Entry       string
	FrequencyMs uint32
	Established bool
}
