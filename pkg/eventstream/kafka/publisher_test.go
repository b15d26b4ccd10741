package kafka

import (
	"context"
	"encoding/json"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/papercomputeco/worldstate/pkg/eventstream"
)

type recordingWriter struct {
	msgs   []kafkago.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

var _ = Describe("Publisher", func() {
	var (
		w   *recordingWriter
		p   *Publisher
		ctx context.Context
	)

	BeforeEach(func() {
		w = &recordingWriter{}
		p = newPublisher(w, 0)
		ctx = context.Background()
	})

	Describe("NewPublisher", func() {
		It("requires brokers", func() {
			_, err := NewPublisher(Config{Topic: "t"})
			Expect(err).To(MatchError(ContainSubstring("brokers")))
		})

		It("requires a topic", func() {
			_, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}})
			Expect(err).To(MatchError(ContainSubstring("topic")))
		})
	})

	It("writes settings events keyed by module key", func() {
		event := eventstream.NewSettingsPersistedEvent(
			eventstream.EventSource{ModuleKey: "world_state"},
			map[string]any{"characterQuantity": 20},
		)
		Expect(p.PublishSettings(ctx, event)).To(Succeed())

		Expect(w.msgs).To(HaveLen(1))
		Expect(string(w.msgs[0].Key)).To(Equal("world_state"))
		Expect(w.msgs[0].Headers).To(ContainElement(kafkago.Header{
			Key:   "event_type",
			Value: []byte(eventstream.EventTypeSettingsPersisted),
		}))

		var decoded eventstream.SettingsPersistedEvent
		Expect(json.Unmarshal(w.msgs[0].Value, &decoded)).To(Succeed())
		Expect(decoded.EventID).To(Equal(event.EventID))
	})

	It("writes interception events", func() {
		event := eventstream.NewInterceptionEvent(eventstream.EventSource{ModuleKey: "world_state"})
		event.Outcome = "skipped"
		Expect(p.PublishInterception(ctx, event)).To(Succeed())
		Expect(w.msgs).To(HaveLen(1))
	})

	It("rejects nil events", func() {
		Expect(p.PublishSettings(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(p.PublishInterception(ctx, nil)).To(MatchError(eventstream.ErrNilEvent))
	})

	It("wraps writer errors", func() {
		w.err = errors.New("broker down")
		err := p.PublishInterception(ctx, eventstream.NewInterceptionEvent(eventstream.EventSource{}))
		Expect(err).To(MatchError(ContainSubstring("broker down")))
	})

	It("closes the writer", func() {
		Expect(p.Close()).To(Succeed())
		Expect(w.closed).To(BeTrue())
	})
})
