package bot

import (
	"log/slog"
	"strconv"

	"chanwatch/pkg/config"
)

// ConfigFromEnv reads TELEGRAM_ALLOWED_CHATS (comma separated chat ids) and
// BOT_COMMAND_TIMEOUT. Entries that are not chat ids are dropped with a
// warning.
func ConfigFromEnv(logger *slog.Logger) Config {
	cfg := DefaultConfig()
	cfg.CommandTimeout = config.GetEnvDuration("BOT_COMMAND_TIMEOUT", cfg.CommandTimeout)

	for _, raw := range config.GetEnvStringList("TELEGRAM_ALLOWED_CHATS", nil) {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			logger.Warn("ignoring TELEGRAM_ALLOWED_CHATS entry", slog.String("value", raw))
			continue
		}
		cfg.AllowedChats = append(cfg.AllowedChats, id)
	}
	return cfg
}
