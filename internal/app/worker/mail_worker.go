package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/BytePitApp/bytepit-api/internal/domain/model"
	"github.com/BytePitApp/bytepit-api/internal/platform/queue"
)

// MailSource yields queued mail jobs.
type MailSource interface {
	Pop(ctx context.Context, timeout time.Duration) (*model.MailJob, error)
}

type Mailer interface {
	Send(ctx context.Context, job model.MailJob) error
}

// MailWorker drains the mail outbox one job at a time.
type MailWorker struct {
	source      MailSource
	mailer      Mailer
	log         *slog.Logger
	pollTimeout time.Duration
	retryDelay  time.Duration
}

func NewMailWorker(source MailSource, mailer Mailer, log *slog.Logger) *MailWorker {
	return &MailWorker{
		source:      source,
		mailer:      mailer,
		log:         log,
		pollTimeout: 5 * time.Second,
		retryDelay:  5 * time.Second,
	}
}

// Start blocks until ctx is cancelled.
func (w *MailWorker) Start(ctx context.Context) {
	w.log.Info("mail worker started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info("mail worker stopping")
			return
		default:
		}

		job, err := w.source.Pop(ctx, w.pollTimeout)
		if err != nil {
			switch {
			case errors.Is(err, queue.ErrQueueEmpty):
			case ctx.Err() != nil:
				// shutting down, loop exits on the next check
			default:
				w.log.Error("failed to pop mail job", "error", err)
				w.sleep(ctx, w.retryDelay) // Wait before retrying on other errors
			}
			continue
		}
		w.deliver(ctx, *job)
	}
}

// Failed sends are logged and dropped.
func (w *MailWorker) deliver(ctx context.Context, job model.MailJob) {
	if err := w.mailer.Send(ctx, job); err != nil {
		w.log.Error("failed to send mail", "to", job.To, "subject", job.Subject, "error", err)
		return
	}
	w.log.Info("mail sent", "to", job.To, "subject", job.Subject)
}

func (w *MailWorker) sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
