package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/valkey-io/valkey-go"
)

// ValkeyRecorder pushes events onto a Valkey list so persistence happens
// off the request path. A worker drains the list into the document store.
type ValkeyRecorder struct {
	client valkey.Client
	key    string
}

// NewValkeyRecorder creates a Valkey-backed recorder.
func NewValkeyRecorder(addr, key string) (*ValkeyRecorder, error) {
	client, err := valkey.NewClient(valkey.ClientOption{
		InitAddress: []string{addr},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Valkey: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pingCmd := client.B().Ping().Build()
	if err := client.Do(ctx, pingCmd).Error(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping Valkey: %w", err)
	}

	slog.Info("Initialized Valkey analytics transport", "address", addr, "stream_key", key)
	return &ValkeyRecorder{client: client, key: key}, nil
}

// GetClient exposes the underlying client for the drain worker.
func (r *ValkeyRecorder) GetClient() valkey.Client {
	return r.client
}

// Key returns the list key events are pushed to.
func (r *ValkeyRecorder) Key() string {
	return r.key
}

// Record pushes the event onto the list (RPUSH for FIFO). Failures are
// logged and swallowed.
func (r *ValkeyRecorder) Record(ctx context.Context, ev Event) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal usage event", "action", ev.Action, "error", err)
		return
	}

	cmd := r.client.B().Rpush().Key(r.key).Element(string(payload)).Build()
	if err := r.client.Do(ctx, cmd).Error(); err != nil {
		slog.Error("Failed to enqueue usage event", "action", ev.Action, "error", err)
	}
}

// Pop blocks for up to five seconds waiting for the next queued event.
// Returns context.DeadlineExceeded when the list stays empty.
func (r *ValkeyRecorder) Pop(ctx context.Context) (*Event, error) {
	cmd := r.client.B().Blpop().Key(r.key).Timeout(5).Build()
	result := r.client.Do(ctx, cmd)

	// BLPOP returns [key, value]; AsStrSlice errors on the nil message a
	// timeout produces, which is the normal empty-queue case.
	values, err := result.AsStrSlice()
	if err != nil {
		return nil, context.DeadlineExceeded
	}
	if len(values) < 2 {
		return nil, fmt.Errorf("invalid BLPOP result: expected 2 values, got %d", len(values))
	}

	var ev Event
	if err := json.Unmarshal([]byte(values[1]), &ev); err != nil {
		return nil, fmt.Errorf("failed to unmarshal usage event: %w", err)
	}
	return &ev, nil
}

// Close closes the Valkey client.
func (r *ValkeyRecorder) Close() error {
	r.client.Close()
	slog.Info("Valkey analytics transport closed")
	return nil
}
