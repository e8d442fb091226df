package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/frahmantamala/chatmate/internal/core/events"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/notifier"
	"github.com/frahmantamala/chatmate/pkg/logger"
)

var eventCmd = &cobra.Command{
	Use:   "event",
	Short: "Event management commands",
	Long:  `Publish sample marketplace events to check subscribers and webhooks`,
}

var publishEventCmd = &cobra.Command{
	Use:   "publish [event-type]",
	Short: "Publish a sample event",
	Long:  `Publish a sample marketplace event to the bus and any configured notification sinks`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return publishTestEvent(args[0])
	},
}

var eventAmount uint64

// sampleEvent builds an event of the given type between two throwaway identities.
func sampleEvent(eventType string, amount uint64) (events.Event, error) {
	owner := identity.Derive("sample-owner")
	visitor := identity.Derive("sample-visitor")
	address := identity.AssistantAddress(owner)

	switch eventType {
	case events.EventTypeAssistantCreated:
		return events.NewAssistantCreatedEvent(owner, "sample", amount), nil
	case events.EventTypeAccessGranted:
		return events.NewAccessGrantedEvent(address, visitor, "chat", nil), nil
	case events.EventTypeAccessRevoked:
		return events.NewAccessRevokedEvent(address, visitor), nil
	case events.EventTypePaymentReceived:
		return events.NewPaymentReceivedEvent(address, visitor, amount), nil
	case events.EventTypeTipReceived:
		return events.NewTipReceivedEvent(address, visitor, amount), nil
	}
	return nil, fmt.Errorf("unknown event type %q, want one of %v", eventType, events.AllTypes)
}

func publishTestEvent(eventType string) error {
	event, err := sampleEvent(eventType, eventAmount)
	if err != nil {
		return err
	}

	cfg, cfgErr := loadConfig(configPath)
	lg := logger.LoggerWrapper()
	eventBus := events.NewEventBus(lg)

	eventBus.SubscribeAll(func(ctx context.Context, event events.Event) error {
		lg.Info("test handler received event",
			"event_id", event.EventID(),
			"event_type", event.EventType(),
			"payload", event.Payload())
		return nil
	})

	var dispatcher *notifier.Dispatcher
	if cfgErr != nil {
		lg.Warn("no usable config, publishing to the local bus only", "error", cfgErr)
	} else if redisCfg := cfg.Notifications.Redis; redisCfg.Enabled {
		client := newRedisClient(redisCfg)
		defer client.Close()
		notifier.NewRedisPublisher(client, redisCfg.Channel, lg).Register(eventBus)
	} else if len(cfg.Notifications.Webhooks.URLs) > 0 {
		dispatcher = newDispatcher(cfg.Notifications.Webhooks, nil, lg)
		dispatcher.Register(eventBus)
	}

	lg.Info("publishing test event", "event_type", eventType, "event_id", event.EventID())

	if err := eventBus.PublishSync(context.Background(), event); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	if dispatcher != nil {
		// let the workers pick the jobs up before shutting down
		time.Sleep(2 * time.Second)
		dispatcher.Shutdown()
	}
	lg.Info("test event published successfully")
	return nil
}

func init() {
	publishEventCmd.Flags().Uint64Var(&eventAmount, "amount", 100, "Amount carried by payment, tip and creation events")

	eventCmd.AddCommand(publishEventCmd)

	rootCmd.AddCommand(eventCmd)
}
