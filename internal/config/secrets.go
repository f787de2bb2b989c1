package config

// RedactedConfig returns a copy of cfg with sensitive fields replaced by the
// redaction placeholder "***". Use this when logging or printing the active
// configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg

	redact(&out.Redis.URL)
	redact(&out.Redis.Password)

	redact(&out.Postgres.DSN)
	redact(&out.Postgres.Password)

	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)

	redact(&out.Server.APIKey)

	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.TelegramTokenPassword)
	redact(&out.Notify.DiscordWebhookURL)
	redact(&out.Notify.WebhookSecret)

	// Copy slices and maps so callers cannot mutate the original through the
	// redacted copy.
	if cfg.Exchanges.Enabled != nil {
		out.Exchanges.Enabled = append([]string(nil), cfg.Exchanges.Enabled...)
	}
	if cfg.Exchanges.Venues != nil {
		out.Exchanges.Venues = make(map[string]VenueConfig, len(cfg.Exchanges.Venues))
		for k, v := range cfg.Exchanges.Venues {
			out.Exchanges.Venues[k] = v
		}
	}
	if cfg.Server.CORSOrigins != nil {
		out.Server.CORSOrigins = append([]string(nil), cfg.Server.CORSOrigins...)
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
