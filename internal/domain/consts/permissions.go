package consts

// Permissions for files and directories tubeshelf might create.
const (
	// Audio directory - world readable
	PermsAudioDir = 0o755

	// Other files
	PermsLogFile = 0o644
)
