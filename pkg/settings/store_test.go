package settings_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/worldstate/pkg/notify"
	"github.com/papercomputeco/worldstate/pkg/settings"
	"github.com/papercomputeco/worldstate/pkg/storage"
	testutils "github.com/papercomputeco/worldstate/pkg/utils/test"
)

var _ = Describe("Store", func() {
	const key = settings.DefaultModuleKey

	var (
		ctx       context.Context
		driver    *testutils.FailingDriver
		sched     *testutils.ManualScheduler
		notifier  *testutils.RecordingNotifier
		publisher *testutils.RecordingPublisher
		store     *settings.Store
	)

	stored := func() storage.Record {
		rec, err := driver.Driver.Read(ctx, key)
		Expect(err).NotTo(HaveOccurred())
		return rec
	}

	BeforeEach(func() {
		ctx = context.Background()
		driver = testutils.NewFailingDriver()
		sched = testutils.NewManualScheduler()
		notifier = testutils.NewRecordingNotifier()
		publisher = testutils.NewRecordingPublisher()

		var err error
		store, err = settings.NewStore(settings.StoreConfig{
			Driver:    driver,
			Scheduler: sched,
			Notifier:  notifier,
			Publisher: publisher,
		})
		Expect(err).NotTo(HaveOccurred())
	})

	It("requires a driver", func() {
		_, err := settings.NewStore(settings.StoreConfig{})
		Expect(err).To(HaveOccurred())
	})

	It("uses the default module key", func() {
		Expect(store.Key()).To(Equal("world_state"))
	})

	Describe("Get", func() {
		It("returns defaults when nothing is stored", func() {
			Expect(store.Get(ctx)).To(Equal(settings.NewDefaultConfiguration()))
		})

		It("loads lazily and only once", func() {
			Expect(driver.Reads()).To(Equal(0))
			store.Get(ctx)
			store.Get(ctx)
			Expect(driver.Reads()).To(Equal(1))
		})

		It("persists the backfilled record on first load", func() {
			driver.Seed(key, storage.Record{"enabled": true, "selectedLorebook": "Eldoria"})

			cfg := store.Get(ctx)
			Expect(cfg.Enabled).To(BeTrue())
			Expect(cfg.SelectedLorebook).To(Equal("Eldoria"))

			sched.Advance(settings.DefaultDebounce)
			rec := stored()
			Expect(rec).To(HaveKeyWithValue("characterQuantity", 20))
			Expect(rec).To(HaveKeyWithValue("enabled", true))
			Expect(rec).To(HaveKeyWithValue("selectedLorebook", "Eldoria"))
		})

		It("does not rewrite a complete record", func() {
			driver.Seed(key, settings.ToRecord(settings.NewDefaultConfiguration(), nil))
			store.Get(ctx)
			sched.Advance(settings.DefaultDebounce)
			Expect(driver.Writes(key)).To(Equal(0))
		})

		It("falls back to defaults and notifies when storage fails", func() {
			driver.FailReads(errors.New("connection refused"))

			Expect(store.Get(ctx)).To(Equal(settings.NewDefaultConfiguration()))
			Expect(notifier.Notifications()).To(HaveLen(1))
			Expect(notifier.Notifications()[0].Level).To(Equal(notify.LevelWarning))
			Expect(store.Pending()).To(BeFalse())
		})

		It("retries the read on the next access after a failure", func() {
			driver.Seed(key, storage.Record{"enabled": true})
			driver.FailReads(errors.New("connection refused"))
			Expect(store.Get(ctx).Enabled).To(BeFalse())
			Expect(store.Get(ctx).Enabled).To(BeFalse())
			Expect(notifier.Notifications()).To(HaveLen(1))

			driver.FailReads(nil)
			Expect(store.Get(ctx).Enabled).To(BeTrue())
		})

		It("returns a copy", func() {
			cfg := store.Get(ctx)
			cfg.CharacterQuantity = 3
			Expect(store.Get(ctx).CharacterQuantity).To(Equal(20))
		})
	})

	Describe("Set", func() {
		It("coalesces rapid sets into one write of the latest value", func() {
			store.Set(ctx, settings.Patch{CharacterQuantity: settings.Ptr(1)})
			store.Set(ctx, settings.Patch{CharacterQuantity: settings.Ptr(2)})

			Expect(driver.Writes(key)).To(Equal(0))
			sched.Advance(settings.DefaultDebounce)

			Expect(driver.Writes(key)).To(Equal(1))
			Expect(stored()).To(HaveKeyWithValue("characterQuantity", 2))
		})

		It("applies only the fields in the patch", func() {
			store.Set(ctx, settings.Patch{Enabled: settings.Ptr(true)})
			store.Set(ctx, settings.Patch{AutoTrigger: settings.Ptr(true)})

			cfg := store.Get(ctx)
			Expect(cfg.Enabled).To(BeTrue())
			Expect(cfg.AutoTrigger).To(BeTrue())
			Expect(cfg.Preset).To(Equal("current"))
		})

		It("coerces patched values", func() {
			store.Set(ctx, settings.Patch{
				CharacterQuantity: settings.Ptr(-4),
				Preset:            settings.Ptr(""),
				InjectionStrategy: &settings.InjectionStrategy{Type: "nowhere", Depth: 2, Role: "user"},
			})

			cfg := store.Get(ctx)
			Expect(cfg.CharacterQuantity).To(Equal(20))
			Expect(cfg.Preset).To(Equal("current"))
			Expect(cfg.InjectionStrategy).To(Equal(settings.InjectionStrategy{
				Type:  settings.InjectionDepth,
				Depth: 2,
				Role:  settings.RoleUser,
			}))
		})

		It("publishes an event after the write", func() {
			store.Set(ctx, settings.Patch{DebugMode: settings.Ptr(true)})
			Expect(publisher.SettingsEvents()).To(BeEmpty())

			sched.Advance(settings.DefaultDebounce)
			events := publisher.SettingsEvents()
			Expect(events).To(HaveLen(1))
			Expect(events[0].Source.ModuleKey).To(Equal(key))
			Expect(events[0].Settings).To(HaveKeyWithValue("debugMode", true))
		})

		It("keeps saving when publishing fails", func() {
			publisher.FailWith(errors.New("broker down"))
			store.Set(ctx, settings.Patch{Enabled: settings.Ptr(true)})
			sched.Advance(settings.DefaultDebounce)

			Expect(driver.Writes(key)).To(Equal(1))
			Expect(notifier.Notifications()).To(BeEmpty())
		})

		It("reports write failures without surfacing them to the caller", func() {
			driver.FailWrites(errors.New("read-only filesystem"))

			store.Set(ctx, settings.Patch{Enabled: settings.Ptr(true)})
			sched.Advance(settings.DefaultDebounce)

			Expect(store.Get(ctx).Enabled).To(BeTrue())
			Expect(notifier.Notifications()).To(HaveLen(1))
			Expect(notifier.Notifications()[0].Level).To(Equal(notify.LevelError))
			Expect(store.Flush(ctx)).To(HaveOccurred())

			driver.FailWrites(nil)
			Expect(store.Flush(ctx)).To(Succeed())
			Expect(stored()).To(HaveKeyWithValue("enabled", true))
		})

		Context("after a failed read", func() {
			BeforeEach(func() {
				driver.Seed(key, storage.Record{
					"enabled":           true,
					"selectedLorebook":  "Realm",
					"characterQuantity": 7,
					"custom":            "keep",
				})
				driver.FailReads(errors.New("connection refused"))
				store.Get(ctx)
			})

			It("merges into the stored record once reads recover", func() {
				driver.FailReads(nil)
				store.Set(ctx, settings.Patch{DebugMode: settings.Ptr(true)})
				sched.Advance(settings.DefaultDebounce)

				rec := stored()
				Expect(rec).To(HaveKeyWithValue("selectedLorebook", "Realm"))
				Expect(rec).To(HaveKeyWithValue("enabled", true))
				Expect(rec).To(HaveKeyWithValue("characterQuantity", 7))
				Expect(rec).To(HaveKeyWithValue("custom", "keep"))
				Expect(rec).To(HaveKeyWithValue("debugMode", true))
			})

			It("never overwrites the stored record while reads fail", func() {
				store.Set(ctx, settings.Patch{DebugMode: settings.Ptr(true)})
				sched.Advance(settings.DefaultDebounce)
				Expect(store.Flush(ctx)).To(Succeed())

				Expect(driver.WriteAttempts()).To(BeZero())
				Expect(store.Get(ctx).DebugMode).To(BeTrue())
				Expect(stored()).To(HaveKeyWithValue("selectedLorebook", "Realm"))
				Expect(notifier.Notifications()).To(HaveLen(2))
			})
		})

		It("preserves keys it does not know", func() {
			driver.Seed(key, storage.Record{"enabled": true, "legacyRelevance": "high"})

			store.Set(ctx, settings.Patch{SelectedLorebook: settings.Ptr("Eldoria")})
			Expect(store.Flush(ctx)).To(Succeed())

			Expect(stored()).To(HaveKeyWithValue("legacyRelevance", "high"))
			Expect(stored()).To(HaveKeyWithValue("selectedLorebook", "Eldoria"))
		})

		It("notifies change listeners", func() {
			var seen []settings.Configuration
			store.OnChange(func(cfg settings.Configuration) { seen = append(seen, cfg) })

			store.Set(ctx, settings.Patch{DebugMode: settings.Ptr(true)})
			Expect(seen).To(HaveLen(1))
			Expect(seen[0].DebugMode).To(BeTrue())
		})
	})

	Describe("SetValue and Apply", func() {
		It("sets a dotted key", func() {
			Expect(store.SetValue(ctx, "injectionStrategy.depth", "4")).To(Succeed())
			Expect(store.Get(ctx).InjectionStrategy.Depth).To(Equal(4))
		})

		It("coerces invalid numbers to defaults", func() {
			Expect(store.SetValue(ctx, "characterQuantity", "-3")).To(Succeed())
			Expect(store.Get(ctx).CharacterQuantity).To(Equal(20))
		})

		It("rejects unknown keys without mutating", func() {
			err := store.Apply(ctx, map[string]any{"enabled": true, "bogus": 1})
			Expect(err).To(MatchError(settings.ErrUnknownKey))
			Expect(store.Get(ctx).Enabled).To(BeFalse())
		})

		It("applies a sub-record before its dotted fields", func() {
			Expect(store.Apply(ctx, map[string]any{
				"injectionStrategy.depth": 6,
				"injectionStrategy":       map[string]any{"type": "after", "depth": 2},
			})).To(Succeed())

			s := store.Get(ctx).InjectionStrategy
			Expect(s.Type).To(Equal(settings.InjectionAfter))
			Expect(s.Depth).To(Equal(6))
		})
	})

	Describe("Reset", func() {
		It("restores defaults and saves them", func() {
			store.Set(ctx, settings.Patch{Enabled: settings.Ptr(true), CharacterQuantity: settings.Ptr(5)})
			store.Reset(ctx)

			Expect(store.Get(ctx)).To(Equal(settings.NewDefaultConfiguration()))
			sched.Advance(settings.DefaultDebounce)
			Expect(stored()).To(HaveKeyWithValue("enabled", false))
		})
	})

	Describe("Reload", func() {
		It("picks up a record changed outside the store", func() {
			store.Get(ctx)
			Expect(store.Flush(ctx)).To(Succeed())

			driver.Seed(key, storage.Record{"enabled": true, "characterQuantity": 9})
			Expect(store.Reload(ctx)).To(Succeed())

			cfg := store.Get(ctx)
			Expect(cfg.Enabled).To(BeTrue())
			Expect(cfg.CharacterQuantity).To(Equal(9))
		})

		It("keeps unsaved local changes", func() {
			store.Set(ctx, settings.Patch{CharacterQuantity: settings.Ptr(3)})
			driver.Seed(key, storage.Record{"characterQuantity": 9})

			Expect(store.Reload(ctx)).To(Succeed())
			Expect(store.Get(ctx).CharacterQuantity).To(Equal(3))
		})

		It("drops a record read across a local change", func() {
			store.Get(ctx)
			Expect(store.Flush(ctx)).To(Succeed())
			driver.Seed(key, storage.Record{"enabled": false, "characterQuantity": 9})

			entered, release := driver.HoldReads()
			reloaded := make(chan error, 1)
			go func() { reloaded <- store.Reload(ctx) }()
			Eventually(entered).Should(Receive())

			store.Set(ctx, settings.Patch{Enabled: settings.Ptr(true)})
			release()
			Eventually(reloaded).Should(Receive(BeNil()))

			Expect(store.Pending()).To(BeTrue())
			cfg := store.Get(ctx)
			Expect(cfg.Enabled).To(BeTrue())
			Expect(cfg.CharacterQuantity).To(Equal(20))
		})

		It("returns read errors", func() {
			driver.FailReads(errors.New("boom"))
			Expect(store.Reload(ctx)).To(HaveOccurred())
		})
	})
})
