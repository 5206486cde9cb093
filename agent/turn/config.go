package turn

import (
	"context"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	contractx "github.com/luis-bzk/llm-agent/agent/contract"
	"github.com/luis-bzk/llm-agent/domain"
	"github.com/luis-bzk/llm-agent/store"
)

// loadTurnConfig reads every tunable once. The returned snapshot is immutable
// for the rest of the turn, so a concurrent config edit never splits one
// turn's behavior.
func loadTurnConfig(ctx context.Context, cfg store.ConfigRepository) contractx.TurnConfig {
	get := func(key string) string {
		v, err := cfg.Get(ctx, key, domain.ConfigDefaults[key])
		if err != nil {
			log.Warn().Err(err).Str("key", key).Msg("config read failed, using default")
			return domain.ConfigDefaults[key]
		}
		return v
	}
	getInt := func(key string) int {
		raw := get(key)
		n, err := strconv.Atoi(raw)
		if err != nil {
			log.Warn().Str("key", key).Str("value", raw).Msg("non-numeric config value, using default")
			n, _ = strconv.Atoi(domain.ConfigDefaults[key])
		}
		return n
	}
	getFloat := func(key string) float64 {
		raw := get(key)
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			log.Warn().Str("key", key).Str("value", raw).Msg("non-numeric config value, using default")
			f, _ = strconv.ParseFloat(domain.ConfigDefaults[key], 64)
		}
		return f
	}

	return contractx.TurnConfig{
		Model:                  get(domain.ConfigAIModel),
		Temperature:            getFloat(domain.ConfigAITemperature),
		MaxTokens:              getInt(domain.ConfigAIMaxTokens),
		SummaryThreshold:       getInt(domain.ConfigSummaryMessageThreshold),
		ConversationTimeout:    time.Duration(getInt(domain.ConfigConversationTimeoutHours)) * time.Hour,
		MaxMessagesInContext:   getInt(domain.ConfigMaxMessagesInContext),
		BookingWindowDays:      getInt(domain.ConfigBookingWindowDays),
		SlotGranularityMinutes: getInt(domain.ConfigSlotIntervalMinutes),
		MaxToolRounds:          getInt(domain.ConfigMaxToolRounds),
	}
}
