package circuitbreaker_test

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kavishme/circuitguard/internal/circuitbreaker"
)

func flakyRemoteCall() error { return errBoom }

var _ = Describe("Wrapping", func() {
	Describe("Guard", func() {
		It("should route calls through the breaker", func() {
			cb, err := circuitbreaker.New("api",
				circuitbreaker.WithFailureThreshold(2),
				circuitbreaker.WithRecoveryTimeout(100*time.Millisecond))
			Expect(err).NotTo(HaveOccurred())

			guarded := circuitbreaker.Guard(cb, failingOp)

			Expect(guarded()).To(MatchError(errBoom))
			Expect(guarded()).To(MatchError(errBoom))
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			Expect(circuitbreaker.IsOpen(guarded())).To(BeTrue())
		})
	})

	Describe("Call", func() {
		var cb *circuitbreaker.CircuitBreaker

		BeforeEach(func() {
			var err error
			cb, err = circuitbreaker.New("api",
				circuitbreaker.WithFailureThreshold(1),
				circuitbreaker.WithRecoveryTimeout(100*time.Millisecond))
			Expect(err).NotTo(HaveOccurred())
		})

		It("should return the operation's result on success", func() {
			result, err := circuitbreaker.Call(cb, func() (string, error) {
				return "SUCCESS", nil
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(result).To(Equal("SUCCESS"))
		})

		It("should return the operation's error unchanged", func() {
			_, err := circuitbreaker.Call(cb, func() (string, error) {
				return "", errBoom
			})
			Expect(err).To(MatchError(errBoom))
		})

		It("should return the zero value on rejection", func() {
			cb.ForceOpen()

			result, err := circuitbreaker.Call(cb, func() (int, error) {
				return 42, nil
			})
			Expect(circuitbreaker.IsOpen(err)).To(BeTrue())
			Expect(result).To(Equal(0))
		})
	})

	Describe("Wrap", func() {
		var registry *circuitbreaker.Registry

		BeforeEach(func() {
			registry = circuitbreaker.NewRegistry()
		})

		It("should register a breaker named after the wrapped function", func() {
			guarded, err := circuitbreaker.Wrap(registry, flakyRemoteCall)
			Expect(err).NotTo(HaveOccurred())
			Expect(guarded()).To(MatchError(errBoom))

			_, ok := registry.Get("flakyRemoteCall")
			Expect(ok).To(BeTrue())
		})

		It("should reuse an already registered breaker", func() {
			cb, err := circuitbreaker.New("flakyRemoteCall",
				circuitbreaker.WithFailureThreshold(1),
				circuitbreaker.WithRecoveryTimeout(time.Minute))
			Expect(err).NotTo(HaveOccurred())
			registry.Register(cb)

			guarded, err := circuitbreaker.Wrap(registry, flakyRemoteCall)
			Expect(err).NotTo(HaveOccurred())

			Expect(guarded()).To(MatchError(errBoom))
			Expect(cb.State()).To(Equal(circuitbreaker.StateOpen))
			Expect(circuitbreaker.IsOpen(guarded())).To(BeTrue())
		})

		It("should surface invalid options for new breakers", func() {
			_, err := circuitbreaker.Wrap(registry, flakyRemoteCall,
				circuitbreaker.WithFailureThreshold(0))
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("IsOpen", func() {
		It("should only match breaker rejections", func() {
			Expect(circuitbreaker.IsOpen(errBoom)).To(BeFalse())
			Expect(circuitbreaker.IsOpen(nil)).To(BeFalse())
			Expect(circuitbreaker.IsOpen(&circuitbreaker.OpenError{Name: "api"})).To(BeTrue())
		})

		It("should match wrapped rejections", func() {
			wrapped := errors.Join(errors.New("request failed"), &circuitbreaker.OpenError{Name: "api"})
			Expect(circuitbreaker.IsOpen(wrapped)).To(BeTrue())
		})
	})
})
