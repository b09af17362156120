// Package worker provides a NATS worker that synthesizes speech for processed text.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	handleMessageTimeout = 30 * time.Second
	audioKeySuffix       = ".wav"
	// ErrorHeader carries the failure reason on an error reply.
	ErrorHeader = "Unit-Tts-Error"
)

var (
	// ErrTextKeyEmpty indicates that the event carries no text key.
	ErrTextKeyEmpty = errors.New("text key cannot be empty")
	// ErrWorkflowIDEmpty indicates that the event header has no workflow ID.
	ErrWorkflowIDEmpty = errors.New("workflow id cannot be empty")
)

// Stores groups the buckets the worker reads text from and writes audio to.
type Stores struct {
	Text  core.ObjectStore
	Audio core.ObjectStore
}

// Subjects groups the subjects the worker listens and publishes on.
type Subjects struct {
	// TextProcessed carries events.TextProcessedEvent requests.
	TextProcessed string
	// AudioChunkCreated receives the result when a request has no reply inbox.
	AudioChunkCreated string
}

// NatsWorker listens for synthesis jobs on a NATS subject and processes them.
type NatsWorker struct {
	natsConnection *nats.Conn
	subjects       Subjects
	stores         Stores
	processor      core.SpeechProcessor
	log            *logger.Logger
}

// NewNatsWorker creates a new instance of a NATS worker.
func NewNatsWorker(
	natsConnection *nats.Conn,
	subjects Subjects,
	stores Stores,
	processor core.SpeechProcessor,
	log *logger.Logger,
) (*NatsWorker, error) {
	return &NatsWorker{
		natsConnection: natsConnection,
		subjects:       subjects,
		stores:         stores,
		processor:      processor,
		log:            log,
	}, nil
}

// Run starts the worker and blocks until ctx is cancelled.
func (w *NatsWorker) Run(ctx context.Context) error {
	sub, err := w.natsConnection.Subscribe(w.subjects.TextProcessed, w.handleMessage)
	if err != nil {
		return fmt.Errorf("failed to subscribe to subject %s: %w", w.subjects.TextProcessed, err)
	}

	w.log.System("Listening for jobs on subject: %s", w.subjects.TextProcessed)

	<-ctx.Done()

	drainErr := sub.Drain()
	if drainErr != nil {
		return fmt.Errorf("failed to drain subscription: %w", drainErr)
	}

	return nil
}

func (w *NatsWorker) handleMessage(msg *nats.Msg) {
	ctx, cancel := context.WithTimeout(context.Background(), handleMessageTimeout)
	defer cancel()

	event, err := w.parseAndValidateEvent(msg)
	if err != nil {
		w.log.Error("Failed to parse and validate event: %v", err)
		w.replyError(msg, err)

		return
	}

	audioKey, processErr := w.processJob(ctx, event)
	if processErr != nil {
		w.log.Error("Failed to synthesize speech for workflow %s: %v", event.Header.WorkflowID, processErr)
		w.replyError(msg, processErr)

		return
	}

	replyEvent := &events.AudioChunkCreatedEvent{
		Header:     event.Header,
		AudioKey:   audioKey,
		PageNumber: event.PageNumber,
		TotalPages: event.TotalPages,
	}

	err = w.publishReplyEvent(msg, replyEvent)
	if err != nil {
		w.log.Error("Failed to publish reply event for workflow %s: %v", event.Header.WorkflowID, err)
	}
}

// processJob downloads the text, synthesizes it and uploads the audio.
func (w *NatsWorker) processJob(ctx context.Context, event *events.TextProcessedEvent) (string, error) {
	textData, err := w.stores.Text.Download(ctx, event.TextKey)
	if err != nil {
		return "", fmt.Errorf("failed to download text data for key '%s': %w", event.TextKey, err)
	}

	audioData, err := w.processor.Process(ctx, textData)
	if err != nil {
		return "", fmt.Errorf("failed to synthesize speech: %w", err)
	}

	audioKey := uuid.NewString() + audioKeySuffix

	err = w.stores.Audio.Upload(ctx, audioKey, audioData)
	if err != nil {
		return "", fmt.Errorf("failed to upload audio data for key '%s': %w", audioKey, err)
	}

	w.log.Info("Synthesized page %d/%d of workflow %s into %s",
		event.PageNumber, event.TotalPages, event.Header.WorkflowID, audioKey)

	return audioKey, nil
}

// publishReplyEvent responds to the request, or publishes on the result subject when
// the request expects no reply.
func (w *NatsWorker) publishReplyEvent(msg *nats.Msg, replyEvent *events.AudioChunkCreatedEvent) error {
	replyData, err := json.Marshal(replyEvent)
	if err != nil {
		return fmt.Errorf("failed to marshal reply event: %w", err)
	}

	if msg.Reply == "" {
		err = w.natsConnection.Publish(w.subjects.AudioChunkCreated, replyData)
	} else {
		err = msg.Respond(replyData)
	}

	if err != nil {
		return fmt.Errorf("failed to publish reply event: %w", err)
	}

	return nil
}

func (w *NatsWorker) replyError(msg *nats.Msg, cause error) {
	if msg.Reply == "" {
		return
	}

	reply := nats.NewMsg(msg.Reply)
	reply.Header.Set(ErrorHeader, cause.Error())

	err := msg.RespondMsg(reply)
	if err != nil {
		w.log.Error("Failed to send error reply: %v", err)
	}
}

func (w *NatsWorker) parseAndValidateEvent(msg *nats.Msg) (*events.TextProcessedEvent, error) {
	var event events.TextProcessedEvent

	err := json.Unmarshal(msg.Data, &event)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal event: %w", err)
	}

	if event.Header.WorkflowID == "" {
		return nil, ErrWorkflowIDEmpty
	}

	if event.TextKey == "" {
		return nil, fmt.Errorf("%w: workflow %s", ErrTextKeyEmpty, event.Header.WorkflowID)
	}

	return &event, nil
}
