package remote

import "time"

// Kinds of remote.
const (
	KindS3    = "s3"
	KindLocal = "local"
	KindDrive = "gdrive"
)

// Config selects the remote copy of the diary.
type Config struct {
	// Kind is s3, local or gdrive. s3 uses the storage section.
	Kind string `mapstructure:"kind" default:"local"`
	// Extension is the file suffix of one day's text.
	Extension string `mapstructure:"extension" default:".txt"`

	// Dir is the directory of the local remote.
	Dir string `mapstructure:"dir" default:"remote"`
	// Watch syncs a date as soon as its file changes in Dir.
	Watch bool `mapstructure:"watch" default:"false"`
	// DebounceMillis waits for writes to settle before syncing.
	DebounceMillis int `mapstructure:"debounce_millis" default:"500"`

	// DriveFolderID is the Google Drive folder holding the entries.
	DriveFolderID string `mapstructure:"drive_folder_id" default:""`
	// DriveCredentials is the OAuth client file downloaded from Google Cloud.
	DriveCredentials string `mapstructure:"drive_credentials" default:"gdrive_credentials.json"`
	// DriveToken is where the authorized token is kept.
	DriveToken string `mapstructure:"drive_token" default:"gdrive_token.json"`
}

// Debounce returns DebounceMillis as a duration.
func (c Config) Debounce() time.Duration {
	if c.DebounceMillis <= 0 {
		return 0
	}
	return time.Duration(c.DebounceMillis) * time.Millisecond
}

// Ext returns the file suffix, defaulting to ".txt".
func (c Config) Ext() string {
	if c.Extension == "" {
		return ".txt"
	}
	return c.Extension
}
