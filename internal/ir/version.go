package ir

// Version constants for the data model and runtime.
const (
	// IRVersion is the data model schema version.
	IRVersion = "1"

	// CoreVersion is the hcore runtime version.
	CoreVersion = "0.1.0"
)
