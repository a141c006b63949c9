package config

const (
	defaultConfigPath      = "~/.config/mediapack/config.toml"
	defaultOutputDir       = "~/mediapack/Done"
	defaultHashesDir       = "~/mediapack/Hashes"
	defaultLogDir          = "~/.local/share/mediapack/logs"
	defaultAuditDB         = "~/.local/share/mediapack/audit.db"
	defaultLicenseSalt     = "ca2961109a64ae06ae3500a6ff1ccab3"
	defaultOnCollision     = CollisionSuffix
	defaultPasswordEnv     = "MEDIAPACK_PASSWORD"
	defaultAuditQueueSize  = 64
	defaultLogFormat       = "console"
	defaultLogLevel        = "info"
	envLicenseSalt         = "MEDIAPACK_LICENSE_SALT"
	envTemplate            = "MEDIAPACK_TEMPLATE"
	maxWorkers             = 64
	CollisionSuffix        = "suffix"
	CollisionOverwrite     = "overwrite"
	defaultProbeHostDevice = true
)

var defaultMediaExtensions = []string{".mp4", ".mkv", ".avi"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			OutputDir: defaultOutputDir,
			HashesDir: defaultHashesDir,
			LogDir:    defaultLogDir,
			AuditDB:   defaultAuditDB,
		},
		License: License{
			Salt:            defaultLicenseSalt,
			ProbeHostDevice: defaultProbeHostDevice,
		},
		Packer: Packer{
			OnCollision: defaultOnCollision,
		},
		Launcher: Launcher{
			MediaExtensions: append([]string(nil), defaultMediaExtensions...),
			PasswordEnv:     defaultPasswordEnv,
		},
		Audit: Audit{
			Enabled:   true,
			QueueSize: defaultAuditQueueSize,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
