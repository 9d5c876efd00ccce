package main

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/quic-go/quic-go/http3"
	"github.com/spf13/pflag"

	"github.com/zsiec/bwrle/pkg/version"
)

func main() {
	var (
		server   string
		input    string
		header   bool
		csv      bool
		useHTTP3 bool
		insecure bool
		timeout  time.Duration
	)

	pflag.StringVar(&server, "url", "https://localhost:8443", "Server base URL")
	pflag.StringVarP(&input, "input", "i", "", "Stream file to upload; empty requests /health")
	pflag.BoolVar(&header, "header", false, "Stream carries the 8-byte header")
	pflag.BoolVar(&csv, "csv", false, "Ask for CSV instead of JSON")
	pflag.BoolVar(&useHTTP3, "http3", true, "Use HTTP/3")
	pflag.BoolVarP(&insecure, "insecure", "k", true, "Skip TLS certificate verification")
	pflag.DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")
	pflag.Parse()

	client := newClient(useHTTP3, insecure, timeout)

	req, err := buildRequest(server, input, header, csv)
	if err != nil {
		log.Fatalf("Invalid request: %v", err)
	}
	req.Header.Set("User-Agent", version.GetInfo().UserAgent())

	fmt.Printf("%s %s\n", req.Method, req.URL)

	start := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		log.Fatalf("Request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Fatalf("Failed to read response: %v", err)
	}

	fmt.Printf("Status: %s\n", resp.Status)
	fmt.Printf("Protocol: %s\n", resp.Proto)
	fmt.Printf("Elapsed: %s\n", time.Since(start).Round(time.Millisecond))
	fmt.Printf("Headers:\n")
	for k, v := range resp.Header {
		fmt.Printf("  %s: %v\n", k, v)
	}
	fmt.Printf("\nBody:\n%s\n", string(body))

	if resp.StatusCode >= 400 {
		os.Exit(1)
	}
}

func newClient(useHTTP3, insecure bool, timeout time.Duration) *http.Client {
	tlsConfig := &tls.Config{InsecureSkipVerify: insecure}

	var transport http.RoundTripper = &http.Transport{TLSClientConfig: tlsConfig}
	if useHTTP3 {
		transport = &http3.RoundTripper{TLSClientConfig: tlsConfig}
	}

	return &http.Client{Transport: transport, Timeout: timeout}
}

func buildRequest(server, input string, header, csv bool) (*http.Request, error) {
	base := strings.TrimRight(server, "/")
	if input == "" {
		return http.NewRequest(http.MethodGet, base+"/health", nil)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return nil, err
	}

	q := url.Values{}
	q.Set("header", fmt.Sprintf("%t", header))
	if csv {
		q.Set("format", "csv")
	}

	req, err := http.NewRequest(http.MethodPost, base+"/api/v1/analyze?"+q.Encode(), bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")
	return req, nil
}
