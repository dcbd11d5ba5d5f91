// Package pipeline is the event intake path: webhook verification, the
// idempotent ingest gate, and the asynchronous voice-note processing flow.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"spendtrace/internal/core"
	applog "spendtrace/internal/log"
	"spendtrace/internal/metrics"
	"spendtrace/internal/whatsapp"
	"spendtrace/internal/worker"
)

// Ports the pipeline depends on.
type (
	Messenger interface {
		ResolveMediaURL(ctx context.Context, mediaID string) (string, error)
		Download(ctx context.Context, url string) ([]byte, error)
		SendText(ctx context.Context, to, text string) error
	}

	Transcriber interface {
		Transcribe(ctx context.Context, audio []byte) (string, error)
	}

	Classifier interface {
		Classify(ctx context.Context, text string) (core.Intent, error)
	}

	Ledger interface {
		Append(ctx context.Context, ledgerID string, in core.LogExpense) (core.LedgerRow, error)
		Analytics(ctx context.Context, ledgerID string, q core.QuerySpending) (core.Summary, error)
		EditMostRecentMatching(ctx context.Context, ledgerID string, edit core.EditExpense) (core.EditResult, error)
		UndoLast(ctx context.Context, ledgerID string) (core.UndoResult, error)
	}

	Directory interface {
		Resolve(sender string) (string, error)
	}

	Deduper interface {
		Add(id string) bool
		Forget(id string)
	}

	Dispatcher interface {
		Submit(name string, task worker.Task) (string, error)
	}
)

// Outcome is the result of ingesting one webhook delivery.
type Outcome string

const (
	OutcomeIgnored    Outcome = "ignored"
	OutcomeDuplicate  Outcome = "duplicate"
	OutcomeDispatched Outcome = "dispatched"
	OutcomeRejected   Outcome = "rejected"
	OutcomeMalformed  Outcome = "malformed"
)

// Deps wires a Pipeline.
type Deps struct {
	VerifyToken string
	AppSecret   string
	Messenger   Messenger
	Transcriber Transcriber
	Classifier  Classifier
	Ledger      Ledger
	Directory   Directory
	Dedup       Deduper
	Dispatcher  Dispatcher
	Logger      *applog.Logger
}

type Pipeline struct {
	verifyToken string
	appSecret   string
	messenger   Messenger
	transcriber Transcriber
	classifier  Classifier
	ledger      Ledger
	directory   Directory
	dedup       Deduper
	dispatcher  Dispatcher
	logger      *applog.Logger
}

func New(d Deps) *Pipeline {
	logger := d.Logger
	if logger == nil {
		logger = applog.Default(applog.ComponentPipeline)
	}
	return &Pipeline{
		verifyToken: d.VerifyToken,
		appSecret:   d.AppSecret,
		messenger:   d.Messenger,
		transcriber: d.Transcriber,
		classifier:  d.Classifier,
		ledger:      d.Ledger,
		directory:   d.Directory,
		dedup:       d.Dedup,
		dispatcher:  d.Dispatcher,
		logger:      logger,
	}
}

// Verify answers the subscription handshake.
func (p *Pipeline) Verify(mode, token, challenge string) (string, bool) {
	if mode == "subscribe" && p.verifyToken != "" && token == p.verifyToken {
		return challenge, true
	}
	return "", false
}

// Authentic checks the delivery signature. Without an app secret every body passes.
func (p *Pipeline) Authentic(body []byte, signature string) bool {
	if p.appSecret == "" {
		return true
	}
	return whatsapp.VerifySignature(p.appSecret, body, signature)
}

// Ingest parses a delivery and dispatches audio messages it has not seen
// before. It never blocks on downstream I/O.
func (p *Pipeline) Ingest(ctx context.Context, raw []byte) Outcome {
	outcome := p.ingest(ctx, raw)
	metrics.WebhookEvents.WithLabelValues(string(outcome)).Inc()
	return outcome
}

func (p *Pipeline) ingest(ctx context.Context, raw []byte) Outcome {
	msg, err := whatsapp.ParseAudio(raw)
	switch {
	case errors.Is(err, whatsapp.ErrNoAudio):
		return OutcomeIgnored
	case err != nil:
		p.logger.WarnContext(ctx, "Error parsing webhook", applog.FieldOperation, applog.OpIngest, applog.FieldError, err)
		return OutcomeMalformed
	}

	if !p.dedup.Add(msg.MediaID) {
		p.logger.InfoContext(ctx, "Duplicate message ignored", applog.NewFields().WithMessage(msg.MediaID, msg.From).ToSlice()...)
		return OutcomeDuplicate
	}

	taskID, err := p.dispatcher.Submit(applog.OpDispatch, func(taskCtx context.Context) {
		p.Process(taskCtx, msg)
	})
	if err != nil {
		// Let a redelivery of this media id through.
		p.dedup.Forget(msg.MediaID)
		p.logger.ErrorContext(ctx, "Dispatch rejected", applog.NewFields().
			WithMessage(msg.MediaID, msg.From).
			WithOperation(applog.OpDispatch).
			WithError(err).
			ToSlice()...)
		return OutcomeRejected
	}

	p.logger.InfoContext(ctx, "Audio dispatched",
		applog.FieldMediaID, msg.MediaID,
		applog.FieldSender, msg.From,
		applog.FieldTaskID, taskID)
	return OutcomeDispatched
}

// Process runs the full flow for one voice note and always sends exactly one
// reply: the action's result, or the failure prefixed with "❌ Error: ".
func (p *Pipeline) Process(ctx context.Context, msg whatsapp.AudioMessage) {
	logger := p.logger.With(applog.FieldMediaID, msg.MediaID, applog.FieldSender, msg.From)
	start := time.Now()

	reply, err := p.handle(ctx, logger, msg)
	if err != nil {
		metrics.Tasks.WithLabelValues("error").Inc()
		logger.ErrorContext(ctx, "Processing failed", applog.FieldError, err)
		reply = errorReply(err)
	} else {
		metrics.Tasks.WithLabelValues("ok").Inc()
	}

	sendStart := time.Now()
	if err := p.messenger.SendText(ctx, msg.From, reply); err != nil {
		logger.ErrorContext(ctx, "Reply failed", applog.FieldOperation, applog.OpReply, applog.FieldError, err)
	}
	metrics.ObserveStage(applog.OpReply, sendStart)
	logger.InfoContext(ctx, "Voice note processed",
		applog.FieldSuccess, err == nil,
		applog.FieldDuration, time.Since(start).Milliseconds())
}

func (p *Pipeline) handle(ctx context.Context, logger *applog.Logger, msg whatsapp.AudioMessage) (string, error) {
	ledgerID, err := p.directory.Resolve(msg.From)
	if err != nil {
		return "", err
	}
	logger = logger.With(applog.NewFields().WithLedger(ledgerID).ToSlice()...)

	var url string
	if err := stage(ctx, logger, "resolve_media", func() (err error) {
		url, err = p.messenger.ResolveMediaURL(ctx, msg.MediaID)
		return err
	}); err != nil {
		return "", err
	}

	var audio []byte
	if err := stage(ctx, logger, "download", func() (err error) {
		audio, err = p.messenger.Download(ctx, url)
		return err
	}); err != nil {
		return "", err
	}

	var text string
	if err := stage(ctx, logger, applog.OpTranscribe, func() (err error) {
		text, err = p.transcriber.Transcribe(ctx, audio)
		return err
	}); err != nil {
		return "", err
	}
	logger.InfoContext(ctx, "User said", "transcript", text)

	var intent core.Intent
	if err := stage(ctx, logger, applog.OpClassify, func() (err error) {
		intent, err = p.classifier.Classify(ctx, text)
		return err
	}); err != nil {
		return "", err
	}
	metrics.Intents.WithLabelValues(string(intent.Kind())).Inc()

	var reply string
	err = stage(ctx, logger, "route", func() (err error) {
		reply, err = p.route(ctx, ledgerID, intent)
		return err
	})
	return reply, err
}

// route applies the intent to the sender's ledger and renders the reply.
func (p *Pipeline) route(ctx context.Context, ledgerID string, intent core.Intent) (string, error) {
	switch in := intent.(type) {
	case core.LogExpense:
		row, err := p.ledger.Append(ctx, ledgerID, in)
		if err != nil {
			return "", err
		}
		return logReply(row), nil
	case core.QuerySpending:
		sum, err := p.ledger.Analytics(ctx, ledgerID, in)
		if err != nil {
			return "", err
		}
		return queryReply(sum), nil
	case core.EditExpense:
		res, err := p.ledger.EditMostRecentMatching(ctx, ledgerID, in)
		if err != nil {
			return "", err
		}
		return editReply(res), nil
	case core.UndoLast:
		res, err := p.ledger.UndoLast(ctx, ledgerID)
		if err != nil {
			return "", err
		}
		return undoReply(res), nil
	case core.Irrelevant:
		return replyIrrelevant, nil
	default:
		return replyUnknown, nil
	}
}

func stage(ctx context.Context, logger *applog.Logger, name string, fn func() error) error {
	start := time.Now()
	err := fn()
	metrics.ObserveStage(name, start)
	logger.DebugContext(ctx, "Stage finished",
		applog.FieldStage, name,
		applog.FieldSuccess, err == nil,
		applog.FieldDuration, time.Since(start).Milliseconds())
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}
