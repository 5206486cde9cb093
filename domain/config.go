package domain

import "github.com/uptrace/bun"

// SystemConfig is a key-value tunable row. Values are read once per turn and
// are immutable within it.
type SystemConfig struct {
	bun.BaseModel `bun:"table:system_config"`

	Key   string `bun:"key,pk"`
	Value string `bun:"value,notnull"`
}

// Config keys and their defaults. Defaults apply when the row is absent.
const (
	ConfigAIModel                  = "ai_model"
	ConfigAITemperature            = "ai_temperature"
	ConfigAIMaxTokens              = "ai_max_tokens"
	ConfigSummaryMessageThreshold  = "summary_message_threshold"
	ConfigConversationTimeoutHours = "conversation_timeout_hours"
	ConfigMaxMessagesInContext     = "max_messages_in_context"
	ConfigBookingWindowDays        = "default_booking_window_days"
	ConfigSlotIntervalMinutes      = "default_slot_interval_minutes"
	ConfigMaxToolRounds            = "max_tool_rounds"
)

var ConfigDefaults = map[string]string{
	ConfigAIModel:                  "gpt-4o-mini",
	ConfigAITemperature:            "0.7",
	ConfigAIMaxTokens:              "1024",
	ConfigSummaryMessageThreshold:  "10",
	ConfigConversationTimeoutHours: "2",
	ConfigMaxMessagesInContext:     "20",
	ConfigBookingWindowDays:        "30",
	ConfigSlotIntervalMinutes:      "15",
	ConfigMaxToolRounds:            "3",
}
