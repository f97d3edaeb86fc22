// Package config defines application configuration and its loading rules.
package config

// Config holds every tunable of the capture pipeline and the surrounding
// screening services. Zero values are replaced by Default() before loading.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	Camera    Camera    `koanf:"camera"`
	Detector  Detector  `koanf:"detector"`
	Gate      Gate      `koanf:"gate"`
	Speech    Speech    `koanf:"speech"`
	Server    Server    `koanf:"server"`
	Screening Screening `koanf:"screening"`
}

// Camera configures the frame source.
type Camera struct {
	// DeviceID selects the capture device (0 = default webcam).
	DeviceID int `koanf:"device_id"`
	// Width and Height are the preferred stream resolution. The device may
	// negotiate something else; the actual dimensions win.
	Width  int `koanf:"width"`
	Height int `koanf:"height"`
}

// Detector configures the landmark oracle.
type Detector struct {
	// FaceModelPath is the ONNX face-finder model.
	FaceModelPath string `koanf:"face_model_path"`
	// MeshModelPath is the ONNX face-mesh landmark model.
	MeshModelPath string `koanf:"mesh_model_path"`
	// LibraryPath points at the ONNX Runtime shared library.
	LibraryPath string `koanf:"library_path"`
	// LoadTimeoutMS bounds model loading; on expiry the session falls back
	// to manual mode.
	LoadTimeoutMS int `koanf:"load_timeout_ms"`
	// ConfThreshold and NMSThreshold tune the face finder.
	ConfThreshold float64 `koanf:"conf_threshold"`
	NMSThreshold  float64 `koanf:"nms_threshold"`
}

// Gate configures the capture state machine and its analyzers.
type Gate struct {
	// TickIntervalMS is the frame-processing cadence.
	TickIntervalMS int `koanf:"tick_interval_ms"`
	// CountdownMS is the hold time between full alignment and capture.
	CountdownMS int `koanf:"countdown_ms"`
	// GuideRadiusPX is the alignment tolerance around the guide.
	GuideRadiusPX float64 `koanf:"guide_radius_px"`
	// CropSize is the side of the square capture crop.
	CropSize int `koanf:"crop_size"`
	// JPEGQuality is the encode quality of the emitted image.
	JPEGQuality int `koanf:"jpeg_quality"`

	// Photometric thresholds.
	MinBrightness    float64 `koanf:"min_brightness"`
	MaxBrightness    float64 `koanf:"max_brightness"`
	MinSharpness     float64 `koanf:"min_sharpness"`
	MaxChannelSpread float64 `koanf:"max_channel_spread"`

	// Geometric thresholds.
	MinFaceWidth float64 `koanf:"min_face_width"`
	MaxFaceWidth float64 `koanf:"max_face_width"`
	MinEAR       float64 `koanf:"min_ear"`
	MinEyelidGap float64 `koanf:"min_eyelid_gap"`
}

// Speech configures the voice feedback channel.
type Speech struct {
	Enabled bool `koanf:"enabled"`
	// CacheDir is where synthesized clips are cached.
	CacheDir string `koanf:"cache_dir"`
	Language string `koanf:"language"`
}

// Server configures the HTTP API.
type Server struct {
	Addr string `koanf:"addr"`
	// RequestTimeoutMS bounds a single screening request end to end.
	RequestTimeoutMS int `koanf:"request_timeout_ms"`
}

// Screening configures the downstream collaborators.
type Screening struct {
	// ClassifierURL is the base URL of the anemia classification API.
	ClassifierURL   string `koanf:"classifier_url"`
	ClassifierModel string `koanf:"classifier_model"`
	ClassifierKey   string `koanf:"classifier_key"`

	// AdvisorURL is an OpenAI-compatible chat completions endpoint.
	AdvisorURL   string `koanf:"advisor_url"`
	AdvisorModel string `koanf:"advisor_model"`
	AdvisorKey   string `koanf:"advisor_key"`

	// VitalsURL is the telemetry channel feed endpoint. Empty disables
	// vitals enrichment.
	VitalsURL string `koanf:"vitals_url"`
	VitalsKey string `koanf:"vitals_key"`

	// DatabaseURL is the Postgres DSN. Empty disables persistence.
	DatabaseURL string `koanf:"database_url"`

	// Azure blob archive for captured images. Empty account disables it.
	BlobAccount   string `koanf:"blob_account"`
	BlobKey       string `koanf:"blob_key"`
	BlobContainer string `koanf:"blob_container"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Camera: Camera{
			DeviceID: 0,
			Width:    640,
			Height:   480,
		},
		Detector: Detector{
			FaceModelPath: "models/facefinder.onnx",
			MeshModelPath: "models/facemesh.onnx",
			LibraryPath:   "lib/libonnxruntime.so",
			LoadTimeoutMS: 10_000,
			ConfThreshold: 0.5,
			NMSThreshold:  0.4,
		},
		Gate: Gate{
			TickIntervalMS:   100,
			CountdownMS:      3000,
			GuideRadiusPX:    30,
			CropSize:         160,
			JPEGQuality:      90,
			MinBrightness:    80,
			MaxBrightness:    180,
			MinSharpness:     100,
			MaxChannelSpread: 30,
			MinFaceWidth:     0.15,
			MaxFaceWidth:     0.4,
			MinEAR:           0.25,
			MinEyelidGap:     0.008,
		},
		Speech: Speech{
			Enabled:  true,
			CacheDir: "audio",
			Language: "en",
		},
		Server: Server{
			Addr:             ":8080",
			RequestTimeoutMS: 30_000,
		},
		Screening: Screening{
			ClassifierURL:   "https://detect.roboflow.com",
			ClassifierModel: "anemia_pcm2/2",
			AdvisorURL:      "https://api.groq.com/openai/v1/chat/completions",
			AdvisorModel:    "llama-3.1-70b-versatile",
		},
	}
}
