package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/cuemby/steward/pkg/events"
	"github.com/cuemby/steward/pkg/jobs"
	"github.com/cuemby/steward/pkg/log"
	"github.com/cuemby/steward/pkg/metrics"
	"github.com/cuemby/steward/pkg/schedule"
	"github.com/cuemby/steward/pkg/storage"
	"github.com/rs/zerolog"
)

// JobsIndex holds job descriptors read by the external job scheduler
const JobsIndex = ".steward-jobs"

// Stats collector defaults
const (
	DefaultStatsIntervalMinutes     = 5
	DefaultStatsLockDurationSeconds = 20
)

// MetadataClient writes documents to the cluster metadata store
type MetadataClient interface {
	Index(ctx context.Context, req *storage.IndexRequest) (*storage.IndexResponse, error)
}

// StatsCollectorDescriptor builds the stats collector job: enabled, an
// interval schedule starting now, the given lock and no jitter.
func StatsCollectorDescriptor(intervalMinutes int, lockDurationSeconds int64) (*jobs.Descriptor, error) {
	sched, err := schedule.NewInterval(time.Now(), intervalMinutes, schedule.Minutes)
	if err != nil {
		return nil, err
	}
	d := jobs.New(string(jobs.StatsCollector), sched, jobs.Int64(lockDurationSeconds), nil, jobs.StatsCollector)
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}

// Registrar writes job descriptors into JobsIndex. Async writes are tracked
// so shutdown can wait for them.
type Registrar struct {
	client  MetadataClient
	events  events.Publisher
	timeout time.Duration
	logger  zerolog.Logger

	wg sync.WaitGroup
}

// NewRegistrar creates a registrar writing through client
func NewRegistrar(client MetadataClient, publisher events.Publisher) *Registrar {
	if publisher == nil {
		publisher = events.Discard
	}
	return &Registrar{
		client:  client,
		events:  publisher,
		timeout: 30 * time.Second,
		logger:  log.WithComponent("registrar"),
	}
}

// DocumentID is the id a descriptor is stored under: its job type, or its
// name for untyped jobs.
func DocumentID(d *jobs.Descriptor) string {
	if d.Type != "" {
		return string(d.Type)
	}
	return d.Name
}

// Register writes d with an immediate refresh
func (r *Registrar) Register(ctx context.Context, d *jobs.Descriptor) error {
	logger := log.WithJob(d.Name, string(d.Type))

	err := r.register(ctx, d)
	if err != nil {
		metrics.JobRegistrationsTotal.WithLabelValues(string(d.Type), "failure").Inc()
		logger.Error().Err(err).Msg("Failed to index job descriptor")
		r.events.Publish(&events.Event{
			Type:     events.EventJobRegistrationFailed,
			Message:  fmt.Sprintf("Failed to register job %s", d.Name),
			Metadata: map[string]string{"job_name": d.Name, "job_type": string(d.Type), "error": err.Error()},
		})
		return err
	}

	metrics.JobRegistrationsTotal.WithLabelValues(string(d.Type), "success").Inc()
	logger.Info().Str("index", JobsIndex).Msg("Indexed job descriptor")
	r.events.Publish(&events.Event{
		Type:     events.EventJobRegistered,
		Message:  fmt.Sprintf("Registered job %s", d.Name),
		Metadata: map[string]string{"job_name": d.Name, "job_type": string(d.Type)},
	})
	return nil
}

func (r *Registrar) register(ctx context.Context, d *jobs.Descriptor) error {
	source, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("failed to serialize job descriptor: %w", err)
	}

	_, err = r.client.Index(ctx, &storage.IndexRequest{
		Index:   JobsIndex,
		ID:      DocumentID(d),
		Source:  source,
		Refresh: storage.RefreshImmediate,
	})
	if err != nil {
		return fmt.Errorf("failed to index job %s: %w", d.Name, err)
	}
	return nil
}

// RegisterAsync writes d on its own goroutine. The outcome is only logged;
// failures are not retried.
func (r *Registrar) RegisterAsync(d *jobs.Descriptor) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		_ = r.Register(ctx, d)
	}()
}

// Wait blocks until every async write has finished or ctx is done
func (r *Registrar) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("waiting for job registrations: %w", ctx.Err())
	}
}
