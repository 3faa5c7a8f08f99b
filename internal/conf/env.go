package conf

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. DOMAINMAP_SESSION_SECRET.
const EnvPrefix = "DOMAINMAP"

// ApplyEnv overrides file settings with DOMAINMAP_* environment variables.
// Nested keys use "_" in place of ".", e.g. DOMAINMAP_SOURCE_PATH.
// DOMAINMAP_PLUGINS is a comma separated list.
func ApplyEnv(cfg *Config) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	strs := map[string]*string{
		"listen":                         &cfg.Listen,
		"auth_host":                      &cfg.AuthHost,
		"session.secret":                 &cfg.Session.Secret,
		"source.type":                    &cfg.Source.Type,
		"source.path":                    &cfg.Source.Path,
		"source.blob_storage.endpoint":   &cfg.Source.BlobStorage.Endpoint,
		"source.blob_storage.region":     &cfg.Source.BlobStorage.Region,
		"source.blob_storage.bucket":     &cfg.Source.BlobStorage.Bucket,
		"source.blob_storage.key":        &cfg.Source.BlobStorage.Key,
		"source.blob_storage.access_key": &cfg.Source.BlobStorage.AccessKey,
		"source.blob_storage.secret_key": &cfg.Source.BlobStorage.SecretKey,
		"logging.level":                  &cfg.Logging.Level,
		"logging.format":                 &cfg.Logging.Format,
	}
	for key, dst := range strs {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	if v.IsSet("session.ttl") {
		cfg.Session.TTL = v.GetInt("session.ttl")
	}
	if v.IsSet("source.blob_storage.use_path_style") {
		cfg.Source.BlobStorage.UsePathStyle = v.GetBool("source.blob_storage.use_path_style")
	}

	if v.IsSet("plugins") {
		cfg.Plugins = splitList(v.GetString("plugins"))
	}
}

func splitList(s string) []string {
	out := []string{}
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
