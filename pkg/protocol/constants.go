package protocol

// Directory and file name constants used throughout mosaicd.
const (
	// MosaicDir is the user-level state directory (e.g., ~/.mosaic).
	MosaicDir = ".mosaic"

	// SocketName is the control/subscription UDS socket file name.
	SocketName = "mosaicd.sock"

	// LegacySocketName is the unixgram socket the legacy signal consumer binds.
	LegacySocketName = "legacy.sock"

	// DBName is the runtime SQLite database file name.
	DBName = "mosaicd.db"

	// PIDName is the daemon PID file name.
	PIDName = "mosaicd.pid"

	// ConfigName is the TOML configuration file name.
	ConfigName = "config.toml"

	// MacrosName is the YAML macro definitions file name.
	MacrosName = "macros.yaml"

	// LogName is the rotating daemon log file name.
	LogName = "mosaicd.log"
)
