package config

const (
	defaultBind             = "127.0.0.1:8000"
	defaultStorePath        = "~/.local/share/tornedge/tornedge.db"
	defaultFilesDir         = "~/.local/share/tornedge/files"
	defaultChatLogDir       = "~/.local/share/tornedge/chat_logs"
	defaultDebugDir         = "~/.local/share/tornedge/debug"
	defaultWidth            = 1080
	defaultHeight           = 1440
	defaultBinarizeMode     = "hsv"
	defaultEndpointStrategy = "corners"
	defaultTraceStepLimit   = 2_000_000
	defaultShapeWeight      = 1.0
	defaultDigits           = 3
	defaultInputSize        = 512
	defaultLogLevel         = "info"
	defaultLogFormat        = "auto"
	defaultMaxUploadMiB     = 32
)

// Default returns a Config populated with built-in defaults.
func Default() Config {
	return Config{
		Server: Server{
			Bind:         defaultBind,
			MaxUploadMiB: defaultMaxUploadMiB,
		},
		Match: Match{
			WeightShape: defaultShapeWeight,
			Digits:      defaultDigits,
			UseHeight:   true,
		},
		Store: Store{Path: defaultStorePath},
		Files: Files{
			Dir:        defaultFilesDir,
			ChatLogDir: defaultChatLogDir,
		},
		Pipeline: Pipeline{
			Width:            defaultWidth,
			Height:           defaultHeight,
			BinarizeMode:     defaultBinarizeMode,
			EndpointStrategy: defaultEndpointStrategy,
			TraceStepLimit:   defaultTraceStepLimit,
			DebugDir:         defaultDebugDir,
		},
		Segmentation: Segmentation{InputSize: defaultInputSize},
		Logging: Logging{
			Level:  defaultLogLevel,
			Format: defaultLogFormat,
		},
	}
}
