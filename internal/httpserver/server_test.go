package httpserver_test

import (
	"context"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/kavishme/circuitguard/internal/httpserver"
)

var _ = Describe("Server", func() {
	var noop http.Handler

	BeforeEach(func() {
		noop = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	})

	Describe("New", func() {
		It("should accept a port-only address", func() {
			srv, err := httpserver.New(":8080", noop)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("should accept a host:port address", func() {
			srv, err := httpserver.New("localhost:8080", noop)
			Expect(err).NotTo(HaveOccurred())
			Expect(srv).NotTo(BeNil())
		})

		It("should reject an address without a port", func() {
			_, err := httpserver.New("localhost", noop)
			Expect(err).To(HaveOccurred())
		})

		It("should reject an empty port", func() {
			_, err := httpserver.New("localhost:", noop)
			Expect(err).To(HaveOccurred())
		})

		It("should reject an invalid host", func() {
			_, err := httpserver.New("not a host:8080", noop)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("Start and Shutdown", func() {
		It("should serve requests until shut down", func() {
			srv, err := httpserver.New("127.0.0.1:18317", noop)
			Expect(err).NotTo(HaveOccurred())

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.Start()
			}()

			Eventually(func() error {
				resp, err := http.Get("http://127.0.0.1:18317/")
				if err != nil {
					return err
				}
				resp.Body.Close()
				return nil
			}).Should(Succeed())

			Expect(srv.Shutdown(context.Background())).To(Succeed())
			Eventually(errCh).Should(Receive(BeNil()))
		})
	})
})
