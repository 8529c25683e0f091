package telegram

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DefaultSendDelay keeps consecutive sends under Telegram's per-chat rate
// limit.
const DefaultSendDelay = time.Second

// DeliveryReport is the per-run outcome of sending the chunks.
type DeliveryReport struct {
	Attempted int
	Sent      int
	Errors    []error
}

func (r DeliveryReport) Failed() int {
	return len(r.Errors)
}

// Deliver sends chunks one at a time, in order, waiting delay between sends.
// A failed send is logged and the remaining chunks are still attempted; only
// ctx cancellation stops the loop early.
func Deliver(ctx context.Context, sender Sender, chunks []string, delay time.Duration, logger *zap.Logger) DeliveryReport {
	var report DeliveryReport
	for i, chunk := range chunks {
		if i > 0 && delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				report.Errors = append(report.Errors, fmt.Errorf("chunk %d/%d not sent: %w", i+1, len(chunks), ctx.Err()))
				return report
			case <-timer.C:
			}
		}

		report.Attempted++
		if err := sender.Send(ctx, chunk); err != nil {
			logger.Warn("⚠️ Failed to send chunk to Telegram",
				zap.Int("chunk", i+1), zap.Int("chunks", len(chunks)), zap.Error(err))
			report.Errors = append(report.Errors, fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err))
			continue
		}
		report.Sent++
	}
	return report
}
