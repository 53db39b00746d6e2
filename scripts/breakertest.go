// breakertest drives a circuitguard daemon through a trip-and-recover
// cycle: it hammers a guarded route, watches the breaker open once the
// upstream starts failing, and confirms recovery through /health.
//
// Usage:
//
//	go run breakertest.go -addr http://localhost:8080 -route /payments
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
)

func main() {
	var (
		addr     = flag.String("addr", "http://localhost:8080", "circuitguard address")
		route    = flag.String("route", "/payments", "guarded route to call")
		requests = flag.Int("requests", 20, "number of calls to issue")
		delay    = flag.Duration("delay", 500*time.Millisecond, "pause between calls")
	)
	flag.Parse()

	client := &http.Client{Timeout: 5 * time.Second}

	fmt.Println(colorCyan + "━━━ CIRCUIT BREAKER TEST ━━━" + colorReset)
	fmt.Printf("Calling %s%s %d times\n\n", *addr, *route, *requests)

	rejected := 0
	for i := 1; i <= *requests; i++ {
		status, retryAfter, err := call(client, *addr+*route)

		switch {
		case err != nil:
			fmt.Printf(colorRed+"  CALL %2d: ERROR - %v\n"+colorReset, i, err)
		case status == http.StatusServiceUnavailable && retryAfter != "":
			rejected++
			fmt.Printf(colorYellow+"  CALL %2d: REJECTED (retry after %ss)\n"+colorReset, i, retryAfter)
		case status >= 500:
			fmt.Printf(colorRed+"  CALL %2d: UPSTREAM FAILURE %d\n"+colorReset, i, status)
		default:
			fmt.Printf(colorGreen+"  CALL %2d: OK %d\n"+colorReset, i, status)
		}

		time.Sleep(*delay)
	}

	fmt.Println()
	fmt.Printf("Rejected by breaker: %d/%d\n", rejected, *requests)
	reportHealth(client, *addr)
}

func call(client *http.Client, url string) (status int, retryAfter string, err error) {
	resp, err := client.Get(url)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, resp.Header.Get("Retry-After"), nil
}

func reportHealth(client *http.Client, addr string) {
	resp, err := client.Get(addr + "/health")
	if err != nil {
		fmt.Printf(colorRed+"health check failed: %v\n"+colorReset, err)
		return
	}
	defer resp.Body.Close()

	var health struct {
		Status string `json:"status"`
		Open   []struct {
			Name              string `json:"name"`
			Failures          int    `json:"failures"`
			RetryAfterSeconds int    `json:"retry_after_seconds"`
		} `json:"open"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		fmt.Printf(colorRed+"bad health response: %v\n"+colorReset, err)
		return
	}

	fmt.Printf("Health: %s\n", health.Status)
	for _, cb := range health.Open {
		fmt.Printf(colorYellow+"  %s: %d failures, retry in %ds\n"+colorReset,
			cb.Name, cb.Failures, cb.RetryAfterSeconds)
	}
}
