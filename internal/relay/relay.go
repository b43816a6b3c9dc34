// Package relay bridges a live synthesis connection into an HTTP response
// body. The provider's read loop produces decoded chunks on a channel; Run
// drains that channel into the writer, so timeout and cancellation behavior
// is testable without any provider protocol in sight.
package relay

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/mkarlsen/parley/internal/provider"
)

// ErrTimeout reports that no chunk arrived within the inactivity window.
var ErrTimeout = errors.New("audio stream timed out waiting for data")

// ErrInterrupted reports that the provider feed ended without a done signal.
var ErrInterrupted = errors.New("audio stream ended unexpectedly")

// Run forwards audio chunks from the stream to w until the provider signals
// done, errors, goes silent past the inactivity window, or ctx is cancelled
// (the client hung up). Chunks are written in arrival order and flushed
// immediately. The stream is closed on every exit path; close failures are
// logged and never escalated.
func Run(ctx context.Context, w http.ResponseWriter, stream provider.Stream, inactivity time.Duration) (int64, error) {
	defer func() {
		if err := stream.Close(); err != nil {
			log.Printf("relay: closing provider stream: %v", err)
		}
	}()

	if inactivity <= 0 {
		inactivity = 50 * time.Second
	}
	flusher, _ := w.(http.Flusher)
	timer := time.NewTimer(inactivity)
	defer timer.Stop()

	var written int64
	for {
		select {
		case <-ctx.Done():
			return written, ctx.Err()

		case <-timer.C:
			return written, ErrTimeout

		case ev, ok := <-stream.Events():
			if !ok {
				return written, ErrInterrupted
			}
			switch ev.Type {
			case provider.EventAudio:
				n, err := w.Write(ev.Audio)
				written += int64(n)
				if err != nil {
					return written, fmt.Errorf("write audio chunk: %w", err)
				}
				if flusher != nil {
					flusher.Flush()
				}
				resetTimer(timer, inactivity)

			case provider.EventDone:
				return written, nil

			case provider.EventError:
				return written, fmt.Errorf("provider stream error (%s): %s", ev.Code, ev.Detail)
			}
		}
	}
}

func resetTimer(timer *time.Timer, d time.Duration) {
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	timer.Reset(d)
}
