package usecase

import (
	"context"
	"time"

	"OpsPulse/internal/domain/models"
	drepo "OpsPulse/internal/domain/repository"
	mid "OpsPulse/internal/middleware"
	"OpsPulse/internal/service/feed"
)

// ObservationCollector collects observations from the feed stream and
// processes them.
type ObservationCollector struct {
	stream  drepo.ObservationStream
	proc    *ObservationProcessor
	metrics drepo.Metrics
	pipe    *mid.IngestPipeline

	rest    *feed.RestClient
	tracked []string
	lastAt  time.Time
}

// NewObservationCollector creates a new ObservationCollector instance.
func NewObservationCollector(stream drepo.ObservationStream, proc *ObservationProcessor, metrics drepo.Metrics, pipe *mid.IngestPipeline) *ObservationCollector {
	return &ObservationCollector{stream: stream, proc: proc, metrics: metrics, pipe: pipe}
}

// SetCatchup wires the REST client used to refill the gap after a
// reconnect, for the given metric ids.
func (c *ObservationCollector) SetCatchup(rest *feed.RestClient, tracked []string) {
	c.rest = rest
	c.tracked = tracked
}

// IsConnected returns true if the feed stream is connected.
func (c *ObservationCollector) IsConnected() bool {
	return c.stream.IsConnected()
}

func (c *ObservationCollector) Start(ctx context.Context) error {
	if err := c.stream.Connect(ctx); err != nil {
		return err
	}
	if err := c.stream.Subscribe(ctx); err != nil {
		return err
	}
	if c.pipe != nil {
		c.pipe.Start(ctx)
	}
	obsCh, errCh := c.stream.Read(ctx)
	go c.consume(ctx, obsCh, errCh)
	return nil
}

func (c *ObservationCollector) consume(ctx context.Context, obsCh <-chan *models.Observation, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				c.metrics.RecordError("stream")
				// The read pump exits after reporting, so keep dialing
				// until a connection sticks or the context ends.
				for {
					if rerr := c.stream.Reconnect(ctx); rerr == nil {
						c.catchup(ctx)
						obsCh, errCh = c.stream.Read(ctx)
						break
					}
					if ctx.Err() != nil {
						return
					}
				}
			}
		case o := <-obsCh:
			if o == nil {
				continue
			}
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, o)
			} else {
				_ = c.proc.Process(ctx, o)
			}
			c.metrics.RecordLastValue(o.MetricID, o.Value)
			c.lastAt = o.Time()
		}
	}
}

// catchup pulls the points missed while disconnected and replays them
// through the normal path.
func (c *ObservationCollector) catchup(ctx context.Context) {
	if c.rest == nil || c.lastAt.IsZero() {
		return
	}
	for _, metric := range c.tracked {
		points, err := c.rest.RecentPoints(ctx, metric, c.lastAt)
		if err != nil {
			c.metrics.RecordError("catchup")
			continue
		}
		for _, o := range points {
			if c.pipe != nil {
				_ = c.pipe.Process(ctx, o)
			} else {
				_ = c.proc.Process(ctx, o)
			}
		}
	}
}

func (c *ObservationCollector) Stop() error { return c.stream.Close() }

// Processor returns the underlying ObservationProcessor for lifecycle management.
func (c *ObservationCollector) Processor() *ObservationProcessor { return c.proc }

// Shutdown stops pipeline and closes stream.
func (c *ObservationCollector) Shutdown(ctx context.Context) error {
	if c.pipe != nil {
		c.pipe.Stop()
	}
	return c.stream.Close()
}
