package notifier_test

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"github.com/frahmantamala/chatmate/internal/core/events"
	"github.com/frahmantamala/chatmate/internal/core/identity"
	"github.com/frahmantamala/chatmate/internal/notifier"
	"github.com/frahmantamala/chatmate/pkg/logger"
)

type published struct {
	channel string
	message []byte
}

type fakeRedis struct {
	err       error
	published []published
}

func (f *fakeRedis) Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if f.err != nil {
		cmd.SetErr(f.err)
		return cmd
	}
	f.published = append(f.published, published{channel: channel, message: message.([]byte)})
	cmd.SetVal(1)
	return cmd
}

var _ = Describe("RedisPublisher", func() {
	var (
		client    *fakeRedis
		publisher *notifier.RedisPublisher
		event     events.Event
	)

	BeforeEach(func() {
		client = &fakeRedis{}
		publisher = notifier.NewRedisPublisher(client, "chatmate:events", logger.Discard())
		event = events.NewPaymentReceivedEvent(identity.Derive("assistant"), identity.Derive("payer"), 12)
	})

	It("should publish the envelope on the channel", func() {
		Expect(publisher.HandleEvent(context.Background(), event)).To(Succeed())

		Expect(client.published).To(HaveLen(1))
		Expect(client.published[0].channel).To(Equal("chatmate:events"))

		var envelope events.Envelope
		Expect(json.Unmarshal(client.published[0].message, &envelope)).To(Succeed())
		Expect(envelope.ID).To(Equal(event.EventID()))
		Expect(envelope.Type).To(Equal(events.EventTypePaymentReceived))
	})

	It("should report redis failures", func() {
		client.err = errors.New("connection refused")

		err := publisher.HandleEvent(context.Background(), event)
		Expect(err).To(MatchError(ContainSubstring("connection refused")))
	})

	It("should produce payloads the dispatcher accepts", func() {
		Expect(publisher.HandleEvent(context.Background(), event)).To(Succeed())

		d := notifier.NewDispatcher(notifier.Config{}, logger.Discard())
		DeferCleanup(d.Shutdown)
		Expect(d.HandlePayload(context.Background(), client.published[0].message)).To(Succeed())
	})
})
