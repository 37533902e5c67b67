package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"

	"github.com/mailworker/mailworker/internal/domain"
	"github.com/mailworker/mailworker/pkg/cidimage"
	"github.com/mailworker/mailworker/pkg/logger"
	"github.com/mailworker/mailworker/pkg/mailer"
	"github.com/mailworker/mailworker/pkg/templates"
)

// PipelineConfig bounds per-item processing.
type PipelineConfig struct {
	MaxProcessingTime    time.Duration
	MaxAttachmentSizeMB  int
	MaxEmailSizeMB       int
	MaxRecipientsPerMail int
}

// Pipeline runs the ordered per-item stages: attachment validation,
// template resolution, inline image lifting, composition, dispatch and
// finalization. Every item is processed inside its own scope; nothing is
// shared across concurrently running items.
type Pipeline struct {
	queueRepo      domain.QueueRepository
	templateRepo   domain.TemplateRepository
	attachmentRepo domain.AttachmentRepository
	logRepo        domain.LogRepository

	engine    *templates.Engine
	images    *cidimage.Processor
	transport mailer.Transport

	policy      domain.AttachmentPolicy
	config      PipelineConfig
	machineName string
	logger      logger.Logger
}

// NewPipeline creates a processing pipeline.
func NewPipeline(
	queueRepo domain.QueueRepository,
	templateRepo domain.TemplateRepository,
	attachmentRepo domain.AttachmentRepository,
	logRepo domain.LogRepository,
	transport mailer.Transport,
	config PipelineConfig,
	machineName string,
	log logger.Logger,
) *Pipeline {
	policy := domain.DefaultAttachmentPolicy()
	if config.MaxAttachmentSizeMB > 0 {
		policy.MaxAttachmentSize = int64(config.MaxAttachmentSizeMB) << 20
		policy.MaxTotalSize = int64(config.MaxAttachmentSizeMB) << 20
	}
	if config.MaxProcessingTime <= 0 {
		config.MaxProcessingTime = 10 * time.Minute
	}
	return &Pipeline{
		queueRepo:      queueRepo,
		templateRepo:   templateRepo,
		attachmentRepo: attachmentRepo,
		logRepo:        logRepo,
		engine:         templates.NewEngine(),
		images:         cidimage.NewProcessor(),
		transport:      transport,
		policy:         policy,
		config:         config,
		machineName:    machineName,
		logger:         log,
	}
}

// renderResult carries the state built up across stages.
type renderResult struct {
	subject      string
	body         string
	parts        []mailer.Part
	templateUsed *string
	envelope     *mailer.Envelope
}

// stageError ties a failure to the stage that produced it and to the
// retry policy it implies.
type stageError struct {
	step      string
	err       error
	transient bool
}

func (e *stageError) Error() string {
	return fmt.Sprintf("%s: %v", e.step, e.err)
}

func validationFailure(step string, err error) *stageError {
	return &stageError{step: step, err: err, transient: false}
}

// Process runs one claimed item to a terminal or requeued state. All
// failures are caught, classified and recorded; nothing propagates.
func (p *Pipeline) Process(ctx context.Context, item *domain.QueueItem, workerID string) {
	start := time.Now()

	// The soft deadline bounds the stages only; finalize and logging run
	// on the parent context so an expired item can still be recorded.
	runCtx, cancel := context.WithTimeout(ctx, p.config.MaxProcessingTime)
	defer cancel()

	p.appendLog(ctx, "info", "processing started", item.QueueID, workerID, domain.StepClaim, nil, 0)

	result, serr := p.run(runCtx, item)
	elapsed := time.Since(start)

	if serr == nil {
		p.finalizeSent(ctx, item, workerID, result, elapsed)
		return
	}

	// The soft deadline counts as a transient failure: the item retries
	// and is never lost to a slow SMTP conversation.
	if errors.Is(serr.err, context.DeadlineExceeded) {
		serr.transient = true
	}

	p.finalizeFailed(ctx, item, workerID, result, serr, elapsed)
}

// run executes the ordered stages and returns the first failure.
func (p *Pipeline) run(ctx context.Context, item *domain.QueueItem) (*renderResult, *stageError) {
	result := &renderResult{
		subject: item.Subject,
		body:    item.Body,
	}

	if serr := p.stageAttachments(ctx, item, result); serr != nil {
		return result, serr
	}
	if serr := p.stageTemplate(ctx, item, result); serr != nil {
		return result, serr
	}
	if serr := p.stageInlineImages(item, result); serr != nil {
		return result, serr
	}
	if serr := p.stageCompose(item, result); serr != nil {
		return result, serr
	}
	if serr := p.stageSend(ctx, item, result); serr != nil {
		return result, serr
	}
	return result, nil
}

// stageAttachments deserializes and validates attachments from the row's
// JSON blob and from the attachment side table.
func (p *Pipeline) stageAttachments(ctx context.Context, item *domain.QueueItem, result *renderResult) *stageError {
	var atts []domain.Attachment
	if item.Attachments != nil {
		parsed, err := domain.ParseAttachments(*item.Attachments)
		if err != nil {
			return validationFailure(domain.StepAttachments, err)
		}
		atts = parsed
	}

	stored, err := p.attachmentRepo.ListByQueueID(ctx, item.QueueID)
	if err != nil {
		return &stageError{step: domain.StepAttachments, err: err, transient: true}
	}
	atts = append(atts, stored...)

	if len(atts) == 0 {
		return nil
	}

	payloads, err := p.policy.ValidateAll(atts)
	if err != nil {
		return validationFailure(domain.StepAttachments, err)
	}

	for i, att := range atts {
		result.parts = append(result.parts, mailer.Part{
			FileName:    att.FileName,
			ContentType: att.ContentType,
			ContentID:   att.ContentID,
			Data:        payloads[i],
			Inline:      att.IsInline,
		})
	}
	return nil
}

// stageTemplate renders subject and body through the stored template.
func (p *Pipeline) stageTemplate(ctx context.Context, item *domain.QueueItem, result *renderResult) *stageError {
	if !item.RequiresTemplateProcessing {
		return nil
	}
	if item.TemplateID == nil {
		return validationFailure(domain.StepTemplate,
			fmt.Errorf("template processing required but no template id set"))
	}

	tpl, err := p.templateRepo.GetActiveByID(ctx, *item.TemplateID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return validationFailure(domain.StepTemplate,
				fmt.Errorf("template %d not found or inactive", *item.TemplateID))
		}
		return &stageError{step: domain.StepTemplate, err: err, transient: true}
	}

	var raw string
	if item.TemplateData != nil {
		raw = *item.TemplateData
	}
	data := templates.DataFromJSON(raw)

	result.subject = p.engine.Render(tpl.SubjectTemplate, data)
	result.body = p.engine.Render(tpl.BodyTemplate, data)
	result.templateUsed = &tpl.Name

	if err := p.engine.Validate(result.subject, false); err != nil {
		return validationFailure(domain.StepTemplate, fmt.Errorf("subject: %w", err))
	}
	if err := p.engine.Validate(result.body, item.IsHTML); err != nil {
		return validationFailure(domain.StepTemplate, fmt.Errorf("body: %w", err))
	}
	return nil
}

// stageInlineImages lifts embedded data URIs into inline parts.
func (p *Pipeline) stageInlineImages(item *domain.QueueItem, result *renderResult) *stageError {
	if !item.IsHTML {
		return nil
	}
	if !item.HasEmbeddedImages && !cidimage.HasEmbeddedImages(result.body) {
		return nil
	}

	body, images, err := p.images.Process(result.body)
	if err != nil {
		return validationFailure(domain.StepCIDImages, err)
	}
	result.body = body

	for _, img := range images {
		result.parts = append(result.parts, mailer.Part{
			FileName:    img.FileName,
			ContentType: img.ContentType,
			ContentID:   img.ContentID,
			Data:        img.Data,
			Inline:      true,
		})
	}
	return nil
}

// stageCompose builds and validates the envelope.
func (p *Pipeline) stageCompose(item *domain.QueueItem, result *renderResult) *stageError {
	to := domain.SplitRecipients(item.ToEmails)
	if len(to) == 0 {
		return validationFailure(domain.StepCompose, fmt.Errorf("no recipients"))
	}
	var cc, bcc []string
	if item.CCEmails != nil {
		cc = domain.SplitRecipients(*item.CCEmails)
	}
	if item.BCCEmails != nil {
		bcc = domain.SplitRecipients(*item.BCCEmails)
	}

	total := len(to) + len(cc) + len(bcc)
	if p.config.MaxRecipientsPerMail > 0 && total > p.config.MaxRecipientsPerMail {
		return validationFailure(domain.StepCompose,
			fmt.Errorf("%d recipients exceeds limit of %d", total, p.config.MaxRecipientsPerMail))
	}
	for _, addr := range to {
		if !govalidator.IsEmail(addr) {
			return validationFailure(domain.StepCompose, fmt.Errorf("invalid recipient address %q", addr))
		}
	}
	for _, addr := range append(append([]string{}, cc...), bcc...) {
		if !govalidator.IsEmail(addr) {
			return validationFailure(domain.StepCompose, fmt.Errorf("invalid cc/bcc address %q", addr))
		}
	}

	if p.config.MaxEmailSizeMB > 0 {
		size := int64(len(result.body))
		for _, part := range result.parts {
			size += int64(len(part.Data))
		}
		if size > int64(p.config.MaxEmailSizeMB)<<20 {
			return validationFailure(domain.StepCompose,
				fmt.Errorf("message size %d exceeds limit of %d MB", size, p.config.MaxEmailSizeMB))
		}
	}

	result.envelope = &mailer.Envelope{
		To:        to,
		CC:        cc,
		BCC:       bcc,
		Subject:   result.subject,
		Body:      result.body,
		IsHTML:    item.IsHTML,
		MessageID: item.QueueID,
		Parts:     result.parts,
	}
	return nil
}

// stageSend dispatches the envelope and maps the result onto the retry
// policy.
func (p *Pipeline) stageSend(ctx context.Context, item *domain.QueueItem, result *renderResult) *stageError {
	sendResult := p.transport.Send(ctx, result.envelope)
	switch sendResult.Disposition {
	case mailer.DispositionOK:
		return nil
	case mailer.DispositionTransient:
		return &stageError{step: domain.StepSMTPSend, err: sendResult.Err, transient: true}
	default:
		return &stageError{step: domain.StepSMTPSend, err: sendResult.Err, transient: false}
	}
}

func (p *Pipeline) finalizeSent(ctx context.Context, item *domain.QueueItem, workerID string, result *renderResult, elapsed time.Duration) {
	now := time.Now().UTC()
	hist := p.buildHistory(item, workerID, result, domain.StatusSent, nil, elapsed)
	hist.SentAt = &now

	updated, err := p.queueRepo.MarkSent(ctx, item.QueueID, workerID, hist)
	if err != nil {
		p.logger.WithFields(map[string]interface{}{
			"queue_id": item.QueueID,
			"error":    err.Error(),
		}).Error("Failed to finalize sent item")
		return
	}
	if !updated {
		// Ownership was lost to a stuck reset; the reclaiming worker
		// finalizes instead.
		p.logger.WithField("queue_id", item.QueueID).
			Warn("Sent item no longer owned, skipping finalize")
		return
	}

	p.appendLog(ctx, "info", "email sent", item.QueueID, workerID, domain.StepFinalize, nil, elapsed)
	p.logger.WithFields(map[string]interface{}{
		"queue_id":   item.QueueID,
		"elapsed_ms": elapsed.Milliseconds(),
	}).Debug("Email sent")
}

func (p *Pipeline) finalizeFailed(ctx context.Context, item *domain.QueueItem, workerID string, result *renderResult, serr *stageError, elapsed time.Duration) {
	errMsg := truncateError(serr.Error())
	hist := p.buildHistory(item, workerID, result, domain.StatusFailed, &errMsg, elapsed)

	outcome, err := p.queueRepo.MarkFailed(ctx, item.QueueID, errMsg, serr.transient, hist)
	if err != nil {
		p.logger.WithFields(map[string]interface{}{
			"queue_id": item.QueueID,
			"error":    err.Error(),
		}).Error("Failed to finalize failed item")
		return
	}

	p.appendLog(ctx, "error", errMsg, item.QueueID, workerID, serr.step, serr.err, elapsed)
	p.logger.WithFields(map[string]interface{}{
		"queue_id":  item.QueueID,
		"step":      serr.step,
		"transient": serr.transient,
		"requeued":  outcome == domain.FailureOutcomeRequeued,
		"error":     errMsg,
	}).Warn("Email processing failed")
}

func (p *Pipeline) buildHistory(item *domain.QueueItem, workerID string, result *renderResult, status domain.QueueStatus, errDetails *string, elapsed time.Duration) *domain.EmailHistory {
	return &domain.EmailHistory{
		QueueID:          item.QueueID,
		ToEmails:         item.ToEmails,
		CCEmails:         item.CCEmails,
		BCCEmails:        item.BCCEmails,
		Subject:          result.subject,
		FinalBody:        result.body,
		Status:           status,
		ProcessingTimeMs: elapsed.Milliseconds(),
		RetryCount:       item.RetryCount,
		TemplateID:       item.TemplateID,
		TemplateUsed:     result.templateUsed,
		AttachmentCount:  len(result.parts),
		ErrorDetails:     errDetails,
		ProcessedBy:      workerID,
	}
}

// appendLog writes one processing log row. Log failures are reported to
// the application log only; they never affect the item outcome.
func (p *Pipeline) appendLog(ctx context.Context, level, message, queueID, workerID, step string, cause error, elapsed time.Duration) {
	entry := &domain.ProcessingLog{
		LogLevel:       level,
		Category:       "pipeline",
		Message:        message,
		QueueID:        &queueID,
		WorkerID:       &workerID,
		ProcessingStep: &step,
		MachineName:    p.machineName,
	}
	if cause != nil {
		exc := cause.Error()
		entry.Exception = &exc
	}
	if elapsed > 0 {
		if data, err := json.Marshal(map[string]interface{}{"elapsed_ms": elapsed.Milliseconds()}); err == nil {
			s := string(data)
			entry.ContextData = &s
		}
	}
	if err := p.logRepo.Append(ctx, entry); err != nil {
		p.logger.WithFields(map[string]interface{}{
			"queue_id": queueID,
			"error":    err.Error(),
		}).Warn("Failed to append processing log")
	}
}

// truncateError keeps persisted error strings bounded.
func truncateError(msg string) string {
	const max = 2000
	if len(msg) <= max {
		return msg
	}
	return strings.TrimSpace(msg[:max])
}
