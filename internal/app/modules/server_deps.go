package modules

import (
	"strings"

	"dinehub.io/backoffice/internal/api/handlers"
	"dinehub.io/backoffice/internal/api/middleware"
	"dinehub.io/backoffice/internal/config"
)

// NewServerDeps builds base server deps then lets each module contribute explicit wiring.
func NewServerDeps(infra *Infrastructure, mods []Module) handlers.ServerDeps {
	deps := handlers.ServerDeps{
		Checks: map[string]handlers.Pinger{},
	}
	if infra != nil {
		if infra.Pool != nil {
			deps.Checks["database"] = infra.Pool
		}
		if infra.Cache != nil {
			deps.Checks["redis"] = infra.Cache
		}
	}
	for _, mod := range mods {
		if mod == nil {
			continue
		}
		contributor, ok := mod.(ServerDepsContributor)
		if !ok {
			continue
		}
		contributor.ContributeServerDeps(&deps)
	}
	return deps
}

// NewJWTConfig derives the token settings from the security config.
// Blank verification keys are skipped.
func NewJWTConfig(cfg config.SecurityConfig) middleware.JWTConfig {
	verificationKeys := make([][]byte, 0, len(cfg.JWTVerificationKeys))
	for _, key := range cfg.JWTVerificationKeys {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		verificationKeys = append(verificationKeys, []byte(key))
	}
	return middleware.JWTConfig{
		SigningKey:       []byte(cfg.JWTSigningKey),
		VerificationKeys: verificationKeys,
		Issuer:           cfg.JWTIssuer,
		ExpiresIn:        cfg.TokenTTL,
	}
}
