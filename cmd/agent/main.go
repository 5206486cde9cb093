package main

import (
	"context"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"

	"github.com/luis-bzk/llm-agent/agent/llm"
	"github.com/luis-bzk/llm-agent/agent/tool"
	"github.com/luis-bzk/llm-agent/agent/turn"
	"github.com/luis-bzk/llm-agent/booking"
	"github.com/luis-bzk/llm-agent/gateway/gcal"
	configx "github.com/luis-bzk/llm-agent/pkg/config"
	_ "github.com/luis-bzk/llm-agent/pkg/logger/autoload"
	"github.com/luis-bzk/llm-agent/store/postgres"
)

var rootCmd = &cobra.Command{
	Use:          "agent",
	Short:        "Conversational appointment booking agent",
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(serveCmd, chatCmd, migrateCmd)
	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("command failed")
	}
}

func connectDB(ctx context.Context) (*bun.DB, error) {
	pgCfg := configx.MustNew[postgres.Config]("POSTGRES")
	return postgres.Connect(ctx, *pgCfg)
}

// buildScheduler wires the full turn pipeline: store, calendar gateway,
// availability engine, booking transaction, operation executor, assistant.
func buildScheduler(db *bun.DB) (*turn.Scheduler, error) {
	st := postgres.NewStore(db)

	gatewayCfg := configx.MustNew[gcal.Config]("CALENDAR")
	gateway, err := gcal.NewClient(*gatewayCfg)
	if err != nil {
		return nil, err
	}

	engine := booking.NewEngine(gateway, st.Appointments)
	booker := booking.NewBooker(engine, st.Appointments, st.Calendars, gateway)
	executor := tool.NewExecutor(st, engine, booker)

	llmCfg := configx.MustNew[llm.Config]("OPENAI")
	assistant, err := llm.NewOpenAIAssistant(*llmCfg)
	if err != nil {
		return nil, err
	}

	return turn.NewScheduler(st, assistant, executor, tool.Specs()), nil
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the database schema",
	RunE: func(cmd *cobra.Command, _ []string) error {
		db, err := connectDB(cmd.Context())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := postgres.CreateSchema(cmd.Context(), db); err != nil {
			return err
		}
		log.Info().Msg("schema created")
		return nil
	},
}
