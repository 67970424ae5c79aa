package config

const (
	defaultDataDir                = "~/.local/share/oguricap"
	defaultLibraryDir             = "~/.local/share/oguricap/library"
	defaultStagingDir             = "~/.local/share/oguricap/staging"
	defaultLogDir                 = "~/.local/share/oguricap/logs"
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultMaxTransferBytes       = int64(48 << 20)
	defaultDeliveryTimeoutSeconds = 60
	defaultChooserAttemptSeconds  = 8
	defaultChooserMaxRows         = 10
	defaultEventRequestTimeout    = 10
	defaultConfirmationTTLMinutes = 10
	defaultDedupeWindowSeconds    = 120
	defaultDedupeEntryTTLHours    = 6
	defaultDedupeSoftLimit        = 2000
	defaultDedupeEvictionTarget   = 1500
	defaultDedupeHardLimit        = 3000
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir:    defaultDataDir,
			LibraryDir: defaultLibraryDir,
			StagingDir: defaultStagingDir,
			LogDir:     defaultLogDir,
		},
		Delivery: Delivery{
			MaxTransferBytes: defaultMaxTransferBytes,
			TimeoutSeconds:   defaultDeliveryTimeoutSeconds,
		},
		Chooser: Chooser{
			AttemptTimeoutSeconds: defaultChooserAttemptSeconds,
			MaxRows:               defaultChooserMaxRows,
		},
		Events: Events{
			RequestTimeout: defaultEventRequestTimeout,
		},
		Resolution: Resolution{
			ConfirmationTTLMinutes: defaultConfirmationTTLMinutes,
		},
		Dedupe: Dedupe{
			WindowSeconds:  defaultDedupeWindowSeconds,
			EntryTTLHours:  defaultDedupeEntryTTLHours,
			SoftLimit:      defaultDedupeSoftLimit,
			EvictionTarget: defaultDedupeEvictionTarget,
			HardLimit:      defaultDedupeHardLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
