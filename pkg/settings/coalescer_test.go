package settings_test

import (
	"context"
	"errors"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/worldstate/pkg/settings"
	"github.com/papercomputeco/worldstate/pkg/storage"
	testutils "github.com/papercomputeco/worldstate/pkg/utils/test"
)

type writeLog struct {
	mu      sync.Mutex
	records []storage.Record
	err     error
}

func (w *writeLog) write(_ context.Context, rec storage.Record) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.records = append(w.records, rec)
	return nil
}

func (w *writeLog) all() []storage.Record {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]storage.Record(nil), w.records...)
}

var _ = Describe("Coalescer", func() {
	var (
		sched  *testutils.ManualScheduler
		log    *writeLog
		errs   []error
		c      *settings.Coalescer
		ctx    context.Context
		second = time.Second
	)

	BeforeEach(func() {
		ctx = context.Background()
		sched = testutils.NewManualScheduler()
		log = &writeLog{}
		errs = nil
		c = settings.NewCoalescer(sched, second, log.write, func(err error) { errs = append(errs, err) })
	})

	It("writes only the latest record once the delay elapses", func() {
		c.Schedule(storage.Record{"a": 1})
		c.Schedule(storage.Record{"a": 2})

		sched.Advance(999 * time.Millisecond)
		Expect(log.all()).To(BeEmpty())

		sched.Advance(time.Millisecond)
		Expect(log.all()).To(Equal([]storage.Record{{"a": 2}}))
		Expect(c.Pending()).To(BeFalse())
	})

	It("restarts the delay on every schedule", func() {
		c.Schedule(storage.Record{"a": 1})
		sched.Advance(600 * time.Millisecond)
		c.Schedule(storage.Record{"a": 2})
		sched.Advance(600 * time.Millisecond)
		Expect(log.all()).To(BeEmpty())

		sched.Advance(400 * time.Millisecond)
		Expect(log.all()).To(HaveLen(1))
	})

	It("copies the scheduled record", func() {
		rec := storage.Record{"a": 1}
		c.Schedule(rec)
		rec["a"] = 99

		sched.Advance(second)
		Expect(log.all()[0]).To(HaveKeyWithValue("a", 1))
	})

	It("flushes immediately and cancels the timer", func() {
		c.Schedule(storage.Record{"a": 3})
		Expect(c.Flush(ctx)).To(Succeed())
		Expect(log.all()).To(HaveLen(1))
		Expect(sched.Active()).To(Equal(0))

		sched.Advance(second)
		Expect(log.all()).To(HaveLen(1))
	})

	It("does nothing on flush without a pending record", func() {
		Expect(c.Flush(ctx)).To(Succeed())
		Expect(log.all()).To(BeEmpty())
	})

	It("reports timer write failures to the error callback and keeps the record", func() {
		log.err = errors.New("disk full")
		c.Schedule(storage.Record{"a": 1})
		sched.Advance(second)

		Expect(errs).To(HaveLen(1))
		Expect(c.Pending()).To(BeTrue())

		log.err = nil
		Expect(c.Flush(ctx)).To(Succeed())
		Expect(log.all()).To(Equal([]storage.Record{{"a": 1}}))
	})
})
