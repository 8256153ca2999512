package kafka

import (
	"context"
	"errors"
	"log/slog"

	"github.com/segmentio/kafka-go"
	"golang.org/x/sync/errgroup"
)

// Handler harus return nil hanya jika proses sukses & boleh commit offset.
type Handler func(ctx context.Context, m kafka.Message) error

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	r       messageReader
	workers int
	logger  *slog.Logger
}

func NewConsumer(brokers []string, group, topic string, workers int, logger *slog.Logger) *Consumer {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		GroupID:        group,
		Topic:          topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		CommitInterval: 0, // manual commit
	})
	return newConsumer(r, workers, logger)
}

func newConsumer(r messageReader, workers int, logger *slog.Logger) *Consumer {
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{r: r, workers: workers, logger: logger}
}

// Start fetches messages and fans them out to the workers until ctx is done
// or the reader fails. A worker commits a message only after its handler
// succeeded. A failed message is logged and not committed by its worker,
// but it is not redelivered either once a later offset on the same
// partition is committed.
func (c *Consumer) Start(ctx context.Context, h Handler) error {
	defer func() { _ = c.r.Close() }()

	jobs := make(chan kafka.Message, c.workers)
	g, gctx := errgroup.WithContext(ctx)

	for i := 0; i < c.workers; i++ {
		g.Go(func() error {
			for m := range jobs {
				if err := h(gctx, m); err != nil {
					c.logger.Error("handler failed", "error", err, "topic", m.Topic, "partition", m.Partition, "offset", m.Offset)
					continue
				}
				if err := c.r.CommitMessages(gctx, m); err != nil {
					c.logger.Error("commit failed", "error", err, "offset", m.Offset)
				}
			}
			return nil
		})
	}

	// dispatcher loop
	g.Go(func() error {
		defer close(jobs)
		for {
			m, err := c.r.FetchMessage(gctx)
			if err != nil {
				if gctx.Err() != nil {
					return nil
				}
				return err
			}
			select {
			case jobs <- m:
			case <-gctx.Done():
				return nil
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
