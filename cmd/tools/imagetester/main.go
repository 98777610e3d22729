// imagetester exercises the image pipeline end to end against a running
// relay: submit a prompt, poll until the job settles, report the URL.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"time"

	"github.com/glowlabs/glowchat/backend/pkg/client"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)

	baseURL := flag.String("url", "http://localhost:10000", "relay base URL")
	prompt := flag.String("prompt", "", "image prompt to submit")
	interval := flag.Duration("interval", client.DefaultPollInterval, "poll interval")
	timeout := flag.Duration("timeout", client.DefaultWaitTimeout, "client-side wait deadline")

	flag.Parse()

	if *prompt == "" {
		flag.Usage()
		log.Fatal("a -prompt is required")
	}

	c := client.New(*baseURL,
		client.WithPollInterval(*interval),
		client.WithWaitTimeout(*timeout),
	)

	ctx := context.Background()

	jobID, err := c.GenerateImage(ctx, *prompt)
	if err != nil {
		log.Fatalf("submit failed: %v", err)
	}
	log.Printf("job accepted: %s", jobID)

	start := time.Now()
	url, err := c.WaitForImage(ctx, jobID)
	switch {
	case errors.Is(err, client.ErrJobNotFound):
		log.Fatalf("job disappeared (swept before completion), treat as failure")
	case errors.Is(err, client.ErrWaitTimeout):
		log.Fatalf("gave up after %s, job may still be processing server-side", time.Since(start).Round(time.Second))
	case err != nil:
		log.Fatalf("generation failed: %v", err)
	}

	log.Printf("done in %s: %s%s", time.Since(start).Round(time.Millisecond), *baseURL, url)
}
