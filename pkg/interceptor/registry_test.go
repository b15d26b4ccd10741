package interceptor_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/worldstate/pkg/interceptor"
)

var _ = Describe("Registry", func() {
	var (
		ctx context.Context
		reg *interceptor.Registry
	)

	BeforeEach(func() {
		ctx = context.Background()
		reg = interceptor.NewRegistry()
	})

	It("invokes a registered hook by name", func() {
		reg.Register(interceptor.HookName, interceptor.HookFunc(func(context.Context, interceptor.Request) interceptor.Outcome {
			return interceptor.OutcomeNoop
		}))

		out, err := reg.Invoke(ctx, interceptor.HookName, interceptor.Request{})
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(interceptor.OutcomeNoop))
		Expect(reg.Names()).To(Equal([]string{"worldStateInterceptor"}))
	})

	It("errors for an unknown name", func() {
		_, err := reg.Invoke(ctx, "otherInterceptor", interceptor.Request{})
		Expect(err).To(MatchError(interceptor.ErrUnknownHook))
	})

	It("contains panics from any hook", func() {
		reg.Register("fragile", interceptor.HookFunc(func(context.Context, interceptor.Request) interceptor.Outcome {
			panic("hook failure")
		}))

		var (
			out interceptor.Outcome
			err error
		)
		Expect(func() { out, err = reg.Invoke(ctx, "fragile", interceptor.Request{}) }).NotTo(Panic())
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(interceptor.OutcomeFailed))
	})

	It("unregisters hooks", func() {
		reg.Register(interceptor.HookName, interceptor.HookFunc(func(context.Context, interceptor.Request) interceptor.Outcome {
			return interceptor.OutcomeSkipped
		}))
		reg.Unregister(interceptor.HookName)
		Expect(reg.Names()).To(BeEmpty())
	})
})
