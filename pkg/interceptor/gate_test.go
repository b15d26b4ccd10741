package interceptor_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/worldstate/pkg/interceptor"
	"github.com/papercomputeco/worldstate/pkg/llm"
	"github.com/papercomputeco/worldstate/pkg/lorebook"
	"github.com/papercomputeco/worldstate/pkg/notify"
	lorebookmem "github.com/papercomputeco/worldstate/pkg/lorebook/inmemory"
	"github.com/papercomputeco/worldstate/pkg/settings"
	testutils "github.com/papercomputeco/worldstate/pkg/utils/test"
)

type staticSettings settings.Configuration

func (s staticSettings) Get(context.Context) settings.Configuration {
	return settings.Configuration(s)
}

type panickingSettings struct{}

func (panickingSettings) Get(context.Context) settings.Configuration {
	panic("settings exploded")
}

type blockingSettings struct{}

func (blockingSettings) Get(ctx context.Context) settings.Configuration {
	<-ctx.Done()
	return settings.NewDefaultConfiguration()
}

type panickingNotifier struct{}

func (panickingNotifier) Notify(context.Context, notify.Notification) {
	panic("toast exploded")
}

func enabledConfig() settings.Configuration {
	cfg := settings.NewDefaultConfiguration()
	cfg.Enabled = true
	cfg.AutoTrigger = true
	cfg.SelectedLorebook = "Eldoria"
	cfg.SelectedCharacterListEntry = "1"
	cfg.CharacterQuantity = 2
	return cfg
}

var _ = Describe("Gate", func() {
	var (
		ctx       context.Context
		computer  *testutils.FakeComputer
		publisher *testutils.RecordingPublisher
		notifier  *testutils.RecordingNotifier
		books     *lorebookmem.Provider
		messages  []llm.Message
		aborted   bool
		cfg       settings.Configuration
	)

	newGate := func(source interceptor.SettingsSource, timeout time.Duration) *interceptor.Gate {
		g, err := interceptor.NewGate(interceptor.GateConfig{
			Settings:  source,
			Lorebooks: books,
			Computer:  computer,
			Publisher: publisher,
			Notifier:  notifier,
			Timeout:   timeout,
		})
		Expect(err).NotTo(HaveOccurred())
		return g
	}

	request := func() interceptor.Request {
		return interceptor.Request{
			Messages:    &messages,
			ContextSize: 4096,
			Abort:       func(bool) { aborted = true },
			Kind:        interceptor.KindNormal,
		}
	}

	BeforeEach(func() {
		ctx = context.Background()
		computer = &testutils.FakeComputer{}
		publisher = testutils.NewRecordingPublisher()
		notifier = testutils.NewRecordingNotifier()
		books = lorebookmem.NewProvider(&lorebook.Resource{
			Name: "Eldoria",
			Entries: map[string]lorebook.Entry{
				"1": {ID: "1", Label: "Characters", Content: "- Aria\n- Borin\n- Cael"},
			},
		})
		messages = []llm.Message{
			llm.NewTextMessage(llm.RoleUser, "hello"),
			llm.NewTextMessage(llm.RoleAssistant, "hi"),
			llm.NewTextMessage(llm.RoleUser, "where are we?"),
		}
		aborted = false
		cfg = enabledConfig()
	})

	It("requires a settings source", func() {
		_, err := interceptor.NewGate(interceptor.GateConfig{})
		Expect(err).To(HaveOccurred())
	})

	It("skips without touching anything while disabled", func() {
		cfg.Enabled = false
		computer.Text = "state"

		out := newGate(staticSettings(cfg), 0).Intercept(ctx, request())
		Expect(out).To(Equal(interceptor.OutcomeSkipped))
		Expect(messages).To(HaveLen(3))
		Expect(computer.Inputs()).To(BeEmpty())
	})

	It("injects computed text per the injection strategy", func() {
		computer.Text = "Aria is near."

		out := newGate(staticSettings(cfg), 0).Intercept(ctx, request())
		Expect(out).To(Equal(interceptor.OutcomeInjected))
		Expect(messages).To(HaveLen(4))
		Expect(messages[2].GetText()).To(Equal("Aria is near."))
		Expect(messages[2].Role).To(Equal(llm.RoleSystem))
	})

	It("hands the computer a capped character list and a copy of the chat", func() {
		computer.Text = ""

		out := newGate(staticSettings(cfg), 0).Intercept(ctx, request())
		Expect(out).To(Equal(interceptor.OutcomeNoop))

		inputs := computer.Inputs()
		Expect(inputs).To(HaveLen(1))
		Expect(inputs[0].Characters).To(Equal([]string{"Aria", "Borin"}))
		Expect(inputs[0].History).To(HaveLen(3))
		Expect(inputs[0].ContextSize).To(Equal(4096))
		Expect(messages).To(HaveLen(3))
	})

	It("runs with no characters when nothing is selected", func() {
		cfg.SelectedLorebook = ""
		newGate(staticSettings(cfg), 0).Intercept(ctx, request())
		Expect(computer.Inputs()[0].Characters).To(BeEmpty())
	})

	It("fails open when the computer errors", func() {
		computer.Err = errors.New("model unavailable")

		out := newGate(staticSettings(cfg), 0).Intercept(ctx, request())
		Expect(out).To(Equal(interceptor.OutcomeFailed))
		Expect(messages).To(HaveLen(3))
		Expect(notifier.Notifications()).To(HaveLen(1))
	})

	It("does not propagate a panic from the computer", func() {
		computer.Panic = "boom"

		var out interceptor.Outcome
		Expect(func() {
			out = newGate(staticSettings(cfg), 0).Intercept(ctx, request())
		}).NotTo(Panic())
		Expect(out).To(Equal(interceptor.OutcomeFailed))
		Expect(messages).To(HaveLen(3))
	})

	It("does not propagate a panic from the settings source", func() {
		var out interceptor.Outcome
		Expect(func() {
			out = newGate(panickingSettings{}, 0).Intercept(ctx, request())
		}).NotTo(Panic())
		Expect(out).To(Equal(interceptor.OutcomeFailed))
	})

	It("does not propagate a panic from the notifier", func() {
		computer.Err = errors.New("model unavailable")
		g, err := interceptor.NewGate(interceptor.GateConfig{
			Settings:  staticSettings(cfg),
			Lorebooks: books,
			Computer:  computer,
			Publisher: publisher,
			Notifier:  panickingNotifier{},
		})
		Expect(err).NotTo(HaveOccurred())

		var out interceptor.Outcome
		Expect(func() {
			out = g.Intercept(ctx, request())
		}).NotTo(Panic())
		Expect(out).To(Equal(interceptor.OutcomeFailed))
		Expect(messages).To(HaveLen(3))
	})

	It("counts the settings load against the time budget", func() {
		start := time.Now()
		out := newGate(blockingSettings{}, 20*time.Millisecond).Intercept(ctx, request())
		Expect(out).To(Equal(interceptor.OutcomeTimedOut))
		Expect(time.Since(start)).To(BeNumerically("<", time.Second))
		Expect(computer.Inputs()).To(BeEmpty())
	})

	It("fails open when the lorebook is missing", func() {
		cfg.SelectedLorebook = "Abyss"

		out := newGate(staticSettings(cfg), 0).Intercept(ctx, request())
		Expect(out).To(Equal(interceptor.OutcomeFailed))
		Expect(computer.Inputs()).To(BeEmpty())
	})

	It("gives up after the time budget", func() {
		computer.Text = "late"
		computer.Delay = time.Second

		out := newGate(staticSettings(cfg), 20*time.Millisecond).Intercept(ctx, request())
		Expect(out).To(Equal(interceptor.OutcomeTimedOut))
		Expect(messages).To(HaveLen(3))
	})

	It("skips a request without messages", func() {
		req := request()
		req.Messages = nil
		Expect(newGate(staticSettings(cfg), 0).Intercept(ctx, req)).To(Equal(interceptor.OutcomeSkipped))
	})

	It("never calls the abort handle", func() {
		for _, c := range []func(){
			func() { computer.Err = errors.New("x") },
			func() { computer.Panic = "y" },
			func() { computer.Err, computer.Panic, computer.Text = nil, nil, "ok" },
		} {
			c()
			newGate(staticSettings(cfg), 0).Intercept(ctx, request())
		}
		Expect(aborted).To(BeFalse())
	})

	It("publishes an event for every invocation", func() {
		computer.Text = "state"
		g := newGate(staticSettings(cfg), 0)
		g.Intercept(ctx, request())

		req := request()
		req.Kind = interceptor.KindQuiet
		g.Intercept(ctx, req)

		events := publisher.InterceptionEvents()
		Expect(events).To(HaveLen(2))
		Expect(events[0].Hook).To(Equal(interceptor.HookName))
		Expect(events[0].Outcome).To(Equal("injected"))
		Expect(events[0].InjectedChars).To(Equal(5))
		Expect(events[1].Outcome).To(Equal("skipped"))
		Expect(events[1].Reason).To(Equal("internal_generation"))
		Expect(events[1].GenerationKind).To(Equal("quiet"))
	})

	It("keeps going when publishing fails", func() {
		publisher.FailWith(errors.New("broker down"))
		computer.Text = "state"
		Expect(newGate(staticSettings(cfg), 0).Intercept(ctx, request())).To(Equal(interceptor.OutcomeInjected))
	})
})
