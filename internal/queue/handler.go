package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/stakegraph/pkg/logger"
	"github.com/OFFIS-RIT/stakegraph/pkg/store"

	"github.com/rabbitmq/amqp091-go"
)

const maxRetries = 10

// RecoverStaleReports republishes pending or running reports that have not
// been touched for olderThan, e.g. after a worker crashed mid-job.
func RecoverStaleReports(
	ctx context.Context,
	ch Channel,
	reports store.ReportRepository,
	olderThan time.Duration,
) error {
	stale, err := reports.StaleReports(ctx, olderThan)
	if err != nil {
		return fmt.Errorf("failed to get stale reports: %w", err)
	}

	if len(stale) == 0 {
		logger.Debug("[Queue] No stale reports found")
		return nil
	}

	logger.Info("[Queue] Found stale reports", "count", len(stale))

	for _, r := range stale {
		body, err := json.Marshal(QueueReportMsg{
			JobID:     r.ID,
			CompanyID: r.CompanyID,
			Depth:     r.Depth,
			Strategy:  r.Strategy,
		})
		if err != nil {
			logger.Error("[Queue] Failed to marshal queue message", "job_id", r.ID, "err", err)
			continue
		}

		if err := PublishFIFO(ch, ReportQueue, body); err != nil {
			logger.Error("[Queue] Failed to republish report", "job_id", r.ID, "err", err)
			continue
		}

		logger.Info("[Queue] Recovered stale report", "job_id", r.ID, "company_id", r.CompanyID, "status", r.Status)
	}

	return nil
}

// retryCount reads the x-retries header. Brokers and clients do not agree on
// the integer width, so every signed width is accepted.
func retryCount(headers amqp091.Table) int {
	switch v := headers["x-retries"].(type) {
	case int32:
		return int(v)
	case int64:
		return int(v)
	case int:
		return v
	case int16:
		return int(v)
	}
	return 0
}

// HandleProcessingError routes a failed delivery to the retry queue, or to the
// dead letter queue once it has been retried maxRetries times or the failure
// is permanent. The delivery is acked after a successful publish and requeued
// otherwise.
func HandleProcessingError(ch Channel, msg amqp091.Delivery, queueName string, cause error) {
	retries := retryCount(msg.Headers)

	if retries >= maxRetries || errors.Is(cause, ErrPermanent) {
		dlqName := queueName + "_dlq"
		logger.Info("[Queue] Sending message to DLQ", "dlq", dlqName, "retries", retries)
		pubErr := ch.Publish("", dlqName, false, false, amqp091.Publishing{
			ContentType: msg.ContentType,
			Body:        msg.Body,
			Headers:     msg.Headers,
		})
		if pubErr != nil {
			logger.Error("[Queue] Failed to publish to DLQ", "dlq", dlqName, "err", pubErr)
			_ = msg.Nack(false, true)
			return
		}
		_ = msg.Ack(false)
		return
	}

	retryName := queueName + "_retry"
	headers := amqp091.Table{}
	for k, v := range msg.Headers {
		headers[k] = v
	}
	headers["x-retries"] = int32(retries + 1)

	pubErr := ch.Publish("", retryName, false, false, amqp091.Publishing{
		ContentType: msg.ContentType,
		Body:        msg.Body,
		Headers:     headers,
	})
	if pubErr != nil {
		logger.Error("[Queue] Failed to publish to retry queue", "retry_queue", retryName, "err", pubErr)
		_ = msg.Nack(false, true)
		return
	}
	_ = msg.Ack(false)
}
