package config

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "/usr/local/var/kotae/data"
	}
	if cfg.Storage.CacheBackend == "" {
		cfg.Storage.CacheBackend = "memory"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "/usr/local/var/kotae/data/cache.db"
	}
	if cfg.Storage.Redis.Addr == "" {
		cfg.Storage.Redis.Addr = "localhost:6379"
	}
	if cfg.Embedding.ModelPath == "" {
		cfg.Embedding.ModelPath = "/usr/local/var/kotae/data/models/all-MiniLM-L6-v2.onnx"
	}
	if cfg.Embedding.Dimensions == 0 {
		cfg.Embedding.Dimensions = 384
	}
	if cfg.Embedding.MaxTokens == 0 {
		cfg.Embedding.MaxTokens = 256
	}
	if cfg.Embedding.CacheSize == 0 {
		cfg.Embedding.CacheSize = 10000
	}
	if cfg.Routing.AnchorsPath == "" {
		cfg.Routing.AnchorsPath = "/usr/local/var/kotae/data/anchors.json"
	}
	if cfg.Routing.Accept == 0 {
		cfg.Routing.Accept = 0.72
	}
	if cfg.Routing.Reject == 0 {
		cfg.Routing.Reject = 0.45
	}
	if cfg.Routing.NegativeCheck == 0 {
		cfg.Routing.NegativeCheck = 0.60
	}
	if cfg.Cache.HitThreshold == 0 {
		cfg.Cache.HitThreshold = 0.95
	}
	if cfg.Cache.TTLHours == 0 {
		cfg.Cache.TTLHours = 168
	}
	if cfg.Cache.MaxSize == 0 {
		cfg.Cache.MaxSize = 10000
	}
	if cfg.Context.MaxTokens == 0 {
		cfg.Context.MaxTokens = 1500
	}
	if cfg.Context.MaxTurns == 0 {
		cfg.Context.MaxTurns = 5
	}
	if cfg.Anaphora.Window == 0 {
		cfg.Anaphora.Window = 3
	}
	if cfg.Generator.Provider == "" {
		cfg.Generator.Provider = "openai"
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = "gpt-4o-mini"
	}
}
