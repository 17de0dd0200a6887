// AngelaMos | 2026
// validate.go

package config

import (
	"errors"
	"fmt"
	"slices"
)

// validate reports every problem at once so a broken deployment can be
// fixed in one pass.
func validate(c *Config) error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.Database.URL != "", "DATABASE_URL is required")
	check(c.Redis.URL != "", "REDIS_URL is required")
	check(c.JWT.PrivateKeyPath != "", "JWT_PRIVATE_KEY_PATH is required")
	check(c.JWT.PublicKeyPath != "", "JWT_PUBLIC_KEY_PATH is required")

	check(!c.CORS.AllowCredentials || !slices.Contains(c.CORS.AllowedOrigins, "*"),
		"cors: wildcard origin cannot be combined with allow_credentials")
	check(!c.IsProduction() || !c.Otel.Enabled || !c.Otel.Insecure,
		"OTEL_INSECURE must be false in production")

	check(slices.Contains([]string{"", "grpc", "http", "http/protobuf"}, c.Otel.Protocol),
		"otel.protocol must be grpc or http/protobuf, got %q", c.Otel.Protocol)

	check(c.Server.ReadTimeout > 0, "server.read_timeout must be positive")
	check(c.Server.WriteTimeout > 0, "server.write_timeout must be positive")
	check(c.Database.QueryTimeout > 0, "database.query_timeout must be positive")
	check(c.Auth.MaxLoginAttempts >= 1, "auth.max_login_attempts must be at least 1")
	check(c.Auth.LockoutDuration > 0, "auth.lockout_duration must be positive")

	if err := validatePipeline(c.Pipeline); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// validatePipeline stops at the first problem since later checks depend on
// the stage list being well formed.
func validatePipeline(p PipelineConfig) error {
	if len(p.Stages) < 3 {
		return errors.New("pipeline.stages needs at least one open stage plus converted and lost")
	}

	keys := make(map[string]bool, len(p.Stages))
	for i, st := range p.Stages {
		switch {
		case st.Key == "":
			return fmt.Errorf("pipeline.stages[%d]: stage key is required", i)
		case keys[st.Key]:
			return fmt.Errorf("pipeline.stages[%d]: duplicate stage %q", i, st.Key)
		}
		keys[st.Key] = true
	}

	switch {
	case p.ConvertedStage == p.LostStage:
		return errors.New("pipeline.converted_stage and pipeline.lost_stage must differ")
	case !keys[p.ConvertedStage]:
		return fmt.Errorf("pipeline.converted_stage %q is not a configured stage", p.ConvertedStage)
	case !keys[p.LostStage]:
		return fmt.Errorf("pipeline.lost_stage %q is not a configured stage", p.LostStage)
	case p.ScoreHalfLife <= 0:
		return errors.New("pipeline.score_half_life must be positive")
	}

	for kind, weight := range p.ScoringWeights {
		if weight < 0 {
			return fmt.Errorf("pipeline.scoring_weights[%s] must not be negative", kind)
		}
	}
	return nil
}
