package domain

import "time"

// StartupInfo es el contenido del mensaje de arranque.
type StartupInfo struct {
	ScannerEnabled    bool
	SmartMoneyEnabled bool
	StartedAt         time.Time
}

// JournalStats resume lo emitido desde que arrancó el proceso.
type JournalStats struct {
	SignalsSent     int
	ConvergentSent  int // señales con ConvergenceCount >= 2
	Refreshes       int
	TrackedWallets  int // del último refresh
	LastSignalAt    time.Time
	LastRefreshedAt time.Time
}
