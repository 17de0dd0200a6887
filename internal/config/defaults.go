// AngelaMos | 2026
// defaults.go

package config

import (
	"fmt"

	"github.com/knadh/koanf/v2"
)

func loadDefaults(k *koanf.Koanf) error {
	defaults := map[string]any{
		"app.name":        "CRM Backend",
		"app.version":     "1.0.0",
		"app.environment": "development",

		"server.host":             "0.0.0.0",
		"server.port":             8080,
		"server.read_timeout":     "30s",
		"server.write_timeout":    "30s",
		"server.idle_timeout":     "120s",
		"server.shutdown_timeout": "15s",

		"database.max_open_conns":     25,
		"database.max_idle_conns":     5,
		"database.conn_max_lifetime":  "1h",
		"database.conn_max_idle_time": "30m",
		"database.query_timeout":      "5s",

		"redis.pool_size":      10,
		"redis.min_idle_conns": 5,
		"redis.required":       false,

		"jwt.access_token_expire": "24h",
		"jwt.remember_me_expire":  "720h",
		"jwt.issuer":              "crm-backend",
		"jwt.audience":            "crm-backend-api",
		"jwt.private_key_path":    "keys/private.pem",
		"jwt.public_key_path":     "keys/public.pem",

		"auth.max_login_attempts": 5,
		"auth.lockout_duration":   "15m",
		"auth.password_reset_ttl": "1h",
		"auth.allow_registration": true,
		"auth.default_role":       "employee",

		"pipeline.stages": []map[string]any{
			{"key": "new", "name": "New", "color": "#6B7280"},
			{"key": "contacted", "name": "Contacted", "color": "#3B82F6"},
			{"key": "qualified", "name": "Qualified", "color": "#F59E0B"},
			{"key": "proposal_sent", "name": "Proposal Sent", "color": "#8B5CF6"},
			{"key": "negotiation", "name": "Negotiation", "color": "#EF4444"},
			{"key": "converted", "name": "Converted", "color": "#10B981"},
			{"key": "lost", "name": "Lost", "color": "#6B7280"},
		},
		"pipeline.converted_stage":        "converted",
		"pipeline.lost_stage":             "lost",
		"pipeline.allow_convert_from_any": false,
		"pipeline.score_half_life":        "720h",
		"pipeline.scoring_weights": map[string]any{
			"call:positive":     15,
			"call:neutral":      5,
			"email:positive":    10,
			"email:neutral":     3,
			"meeting:positive":  20,
			"meeting:neutral":   8,
			"demo:positive":     25,
			"demo:neutral":      10,
			"proposal:positive": 20,
			"proposal:neutral":  8,
			"note":              1,
			"stage_changed":     5,
			"converted":         30,
		},
		"pipeline.activity_types": []string{
			"call",
			"email",
			"meeting",
			"demo",
			"proposal",
			"note",
		},

		"rate_limit.requests":       100,
		"rate_limit.window":         "1m",
		"rate_limit.burst":          20,
		"rate_limit.login_requests": 10,
		"rate_limit.login_burst":    5,

		"cors.allowed_origins": []string{"http://localhost:3000"},
		"cors.allowed_methods": []string{
			"GET",
			"POST",
			"PUT",
			"PATCH",
			"DELETE",
			"OPTIONS",
		},
		"cors.allowed_headers": []string{
			"Accept",
			"Authorization",
			"Content-Type",
			"X-Request-ID",
		},
		"cors.allow_credentials": true,
		"cors.max_age":           300,

		"log.level":  "info",
		"log.format": "json",

		"otel.enabled":      false,
		"otel.insecure":     true,
		"otel.protocol":     "grpc",
		"otel.sample_rate":  0.1,
		"otel.service_name": "crm-backend",

		"metrics.enabled": true,
		"metrics.path":    "/metrics",
	}

	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return fmt.Errorf("set default %s: %w", key, err)
		}
	}

	return nil
}

var envKeyMap = map[string]string{
	"DATABASE_URL":                "database.url",
	"REDIS_URL":                   "redis.url",
	"REDIS_REQUIRED":              "redis.required",
	"ENVIRONMENT":                 "app.environment",
	"HOST":                        "server.host",
	"PORT":                        "server.port",
	"LOG_LEVEL":                   "log.level",
	"LOG_FORMAT":                  "log.format",
	"JWT_PRIVATE_KEY_PATH":        "jwt.private_key_path",
	"JWT_PUBLIC_KEY_PATH":         "jwt.public_key_path",
	"JWT_ACCESS_TOKEN_EXPIRE":     "jwt.access_token_expire",
	"JWT_REMEMBER_ME_EXPIRE":      "jwt.remember_me_expire",
	"JWT_ISSUER":                  "jwt.issuer",
	"JWT_AUDIENCE":                "jwt.audience",
	"DATABASE_QUERY_TIMEOUT":      "database.query_timeout",
	"MAX_LOGIN_ATTEMPTS":          "auth.max_login_attempts",
	"LOCKOUT_DURATION":            "auth.lockout_duration",
	"PASSWORD_RESET_TTL":          "auth.password_reset_ttl",
	"ALLOW_REGISTRATION":          "auth.allow_registration",
	"DEFAULT_ROLE":                "auth.default_role",
	"PIPELINE_CONVERT_FROM_ANY":   "pipeline.allow_convert_from_any",
	"PIPELINE_SCORE_HALF_LIFE":    "pipeline.score_half_life",
	"RATE_LIMIT_REQUESTS":         "rate_limit.requests",
	"RATE_LIMIT_WINDOW":           "rate_limit.window",
	"RATE_LIMIT_BURST":            "rate_limit.burst",
	"RATE_LIMIT_LOGIN_REQUESTS":   "rate_limit.login_requests",
	"RATE_LIMIT_LOGIN_BURST":      "rate_limit.login_burst",
	"METRICS_ENABLED":             "metrics.enabled",
	"OTEL_ENDPOINT":               "otel.endpoint",
	"OTEL_EXPORTER_OTLP_ENDPOINT": "otel.endpoint",
	"OTEL_SERVICE_NAME":           "otel.service_name",
	"OTEL_ENABLED":                "otel.enabled",
	"OTEL_INSECURE":               "otel.insecure",
	"OTEL_EXPORTER_OTLP_PROTOCOL": "otel.protocol",
	"OTEL_SAMPLE_RATE":            "otel.sample_rate",
}

func envKeyReplacer(s string) string {
	if mapped, ok := envKeyMap[s]; ok {
		return mapped
	}
	return ""
}

