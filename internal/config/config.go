package config

import (
	"os"
	"strconv"
)

// Settings holds process configuration, read from the environment. Callers
// load a .env file first via godotenv.
type Settings struct {
	// Tencent Cloud credentials and COS location.
	SecretID  string
	SecretKey string
	Bucket    string
	Region    string

	Port string

	// MaxConcurrentTasks caps end-to-end requests admitted at once.
	MaxConcurrentTasks int
	TempFileDir        string
	MaxFileSizeMB      int64
}

func Load() Settings {
	return Settings{
		SecretID:           os.Getenv("TENCENT_SECRET_ID"),
		SecretKey:          os.Getenv("TENCENT_SECRET_KEY"),
		Bucket:             os.Getenv("COS_BUCKET"),
		Region:             envOr("COS_REGION", "ap-nanjing"),
		Port:               envOr("PORT", "8080"),
		MaxConcurrentTasks: envIntOr("MAX_CONCURRENT_TASKS", 4),
		TempFileDir:        envOr("TEMP_FILE_DIR", "temp_uploads"),
		MaxFileSizeMB:      int64(envIntOr("MAX_FILE_SIZE_MB", 512)),
	}
}

// HasCredentials reports whether all fields needed to talk to Tencent Cloud
// are present.
func (s Settings) HasCredentials() bool {
	return s.SecretID != "" && s.SecretKey != "" && s.Bucket != "" && s.Region != ""
}

func envOr(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func envIntOr(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
