package config

// Default returns the built-in configuration used before any file or
// environment overrides are applied.
func Default() Config {
	return Config{
		Paths: Paths{
			GenerationOutputDir: "~/SwarmUI/Output",
			ProjectDir:          "~/DaVinci_Projects",
			StateDir:            "~/.local/state/storyart",
			LogDir:              "~/.local/state/storyart/logs",
		},
		Backend: Backend{
			URL:             "http://localhost:7801",
			RequestTimeout:  300,
			ImagesPerPrompt: 1,
		},
		Session: Session{
			RedisAddr: "localhost:6382",
			RedisDB:   0,
			KeyPrefix: "storyart:session:",
		},
		Logging: Logging{
			Format: "",
			Level:  "info",
		},
	}
}
