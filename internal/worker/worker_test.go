// Package worker_test tests the NATS worker for the synthesizer.
package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/worker"
	"github.com/google/uuid"

	"github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSubject       = "test_subject"
	testResultSubject = "test_result_subject"
	requestTimeout    = 5 * time.Second
)

var (
	errMockDownload = errors.New("mock download error")
	errMockUpload   = errors.New("mock upload error")
	errMockProcess  = errors.New("mock process error")
)

// mockObjectStore is a mock implementation of the ObjectStore interface.
type mockObjectStore struct {
	mu                 sync.Mutex
	downloadShouldFail bool
	uploadShouldFail   bool
	downloadedKey      string
	uploadedKey        string
	uploadedData       []byte
}

func (m *mockObjectStore) Download(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.downloadShouldFail {
		return nil, errMockDownload
	}

	m.downloadedKey = key

	return []byte("Привіт, світ!"), nil
}

func (m *mockObjectStore) Upload(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.uploadShouldFail {
		return errMockUpload
	}

	m.uploadedKey = key
	m.uploadedData = data

	return nil
}

func (m *mockObjectStore) snapshot() (string, string, []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.downloadedKey, m.uploadedKey, m.uploadedData
}

// mockSpeechProcessor is a mock implementation of the SpeechProcessor interface.
type mockSpeechProcessor struct {
	mu                sync.Mutex
	processShouldFail bool
	processedText     []byte
}

func (m *mockSpeechProcessor) Process(_ context.Context, text []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.processShouldFail {
		return nil, errMockProcess
	}

	m.processedText = text

	return []byte("RIFF sample audio"), nil
}

func (m *mockSpeechProcessor) text() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.processedText
}

type testHarness struct {
	natsConnection *nats.Conn
	textStore      *mockObjectStore
	audioStore     *mockObjectStore
	processor      *mockSpeechProcessor
	cancel         context.CancelFunc
	errChan        chan error
}

func createTestNatsClient(t *testing.T) *nats.Conn {
	t.Helper()

	opts := test.DefaultTestOptions
	opts.Port = -1
	server := test.RunServer(&opts)

	natsConnection, err := nats.Connect(server.ClientURL())
	if err != nil {
		t.Fatalf("Failed to connect to test NATS server: %v", err)
	}

	t.Cleanup(func() {
		natsConnection.Close()
		server.Shutdown()
	})

	return natsConnection
}

func newMockStore() *mockObjectStore {
	return &mockObjectStore{
		mu:                 sync.Mutex{},
		downloadShouldFail: false,
		uploadShouldFail:   false,
		downloadedKey:      "",
		uploadedKey:        "",
		uploadedData:       nil,
	}
}

func startWorker(t *testing.T, configure func(h *testHarness)) *testHarness {
	t.Helper()

	harness := &testHarness{
		natsConnection: createTestNatsClient(t),
		textStore:      newMockStore(),
		audioStore:     newMockStore(),
		processor: &mockSpeechProcessor{
			mu:                sync.Mutex{},
			processShouldFail: false,
			processedText:     nil,
		},
		cancel:  nil,
		errChan: make(chan error, 1),
	}

	if configure != nil {
		configure(harness)
	}

	testLogger, err := logger.New(t.TempDir(), "test-worker.log")
	require.NoError(t, err)

	workerInstance, err := worker.NewNatsWorker(
		harness.natsConnection,
		worker.Subjects{TextProcessed: testSubject, AudioChunkCreated: testResultSubject},
		worker.Stores{Text: harness.textStore, Audio: harness.audioStore},
		harness.processor,
		testLogger,
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	harness.cancel = cancel

	go func() {
		harness.errChan <- workerInstance.Run(ctx)
	}()

	// Run subscribes asynchronously; wait until the subscription is visible.
	require.Eventually(t, func() bool {
		_, requestErr := harness.natsConnection.Request(testSubject, []byte("{}"), 100*time.Millisecond)

		return requestErr == nil
	}, requestTimeout, 50*time.Millisecond)

	return harness
}

func (h *testHarness) stop(t *testing.T) {
	t.Helper()

	h.cancel()

	shutdownErr := <-h.errChan
	assert.NoError(t, shutdownErr, "worker.Run should not error on graceful shutdown")
}

func newTestEvent(textKey string) *events.TextProcessedEvent {
	return &events.TextProcessedEvent{
		Header: events.EventHeader{
			Timestamp:  time.Now(),
			WorkflowID: uuid.NewString(),
			EventID:    uuid.NewString(),
			UserID:     "",
			TenantID:   "",
		},
		TextKey:           textKey,
		PNGKey:            "",
		PageNumber:        3,
		TotalPages:        10,
		Voice:             "",
		Seed:              0,
		NGL:               0,
		TopP:              0,
		RepetitionPenalty: 0,
		Temperature:       0,
	}
}

func TestMessageHandler_Success(t *testing.T) {
	t.Parallel()

	harness := startWorker(t, nil)

	testEvent := newTestEvent("test-text-key")
	eventData, err := json.Marshal(testEvent)
	require.NoError(t, err)

	replyMsg, err := harness.natsConnection.Request(testSubject, eventData, requestTimeout)
	require.NoError(t, err, "Request should succeed and receive a reply")
	assert.Empty(t, replyMsg.Header.Get(worker.ErrorHeader))

	var replyEvent events.AudioChunkCreatedEvent

	err = json.Unmarshal(replyMsg.Data, &replyEvent)
	require.NoError(t, err)

	downloadedKey, _, _ := harness.textStore.snapshot()
	_, uploadedKey, uploadedData := harness.audioStore.snapshot()

	assert.Equal(t, "test-text-key", downloadedKey)
	assert.Equal(t, []byte("Привіт, світ!"), harness.processor.text())
	assert.Regexp(t, `^[0-9a-f-]{36}\.wav$`, uploadedKey)
	assert.Equal(t, []byte("RIFF sample audio"), uploadedData)

	assert.Equal(t, uploadedKey, replyEvent.AudioKey)
	assert.Equal(t, testEvent.Header.WorkflowID, replyEvent.Header.WorkflowID)
	assert.EqualValues(t, 3, replyEvent.PageNumber)
	assert.EqualValues(t, 10, replyEvent.TotalPages)

	harness.stop(t)
}

func TestMessageHandler_PublishesWithoutReplyInbox(t *testing.T) {
	t.Parallel()

	harness := startWorker(t, nil)

	results, err := harness.natsConnection.SubscribeSync(testResultSubject)
	require.NoError(t, err)
	require.NoError(t, harness.natsConnection.Flush())

	testEvent := newTestEvent("page-7.txt")
	eventData, err := json.Marshal(testEvent)
	require.NoError(t, err)

	require.NoError(t, harness.natsConnection.Publish(testSubject, eventData))

	resultMsg, err := results.NextMsg(requestTimeout)
	require.NoError(t, err)

	var resultEvent events.AudioChunkCreatedEvent

	require.NoError(t, json.Unmarshal(resultMsg.Data, &resultEvent))
	assert.Equal(t, testEvent.Header.WorkflowID, resultEvent.Header.WorkflowID)
	assert.NotEmpty(t, resultEvent.AudioKey)

	harness.stop(t)
}

func TestMessageHandler_Failures(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name      string
		textKey   string
		configure func(h *testHarness)
		wantError string
	}{
		{
			name:      "empty text key",
			textKey:   "",
			configure: nil,
			wantError: worker.ErrTextKeyEmpty.Error(),
		},
		{
			name:    "download failure",
			textKey: "page-1.txt",
			configure: func(h *testHarness) {
				h.textStore.downloadShouldFail = true
			},
			wantError: errMockDownload.Error(),
		},
		{
			name:    "process failure",
			textKey: "page-1.txt",
			configure: func(h *testHarness) {
				h.processor.processShouldFail = true
			},
			wantError: errMockProcess.Error(),
		},
		{
			name:    "upload failure",
			textKey: "page-1.txt",
			configure: func(h *testHarness) {
				h.audioStore.uploadShouldFail = true
			},
			wantError: errMockUpload.Error(),
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			t.Parallel()

			harness := startWorker(t, testCase.configure)

			eventData, err := json.Marshal(newTestEvent(testCase.textKey))
			require.NoError(t, err)

			replyMsg, err := harness.natsConnection.Request(testSubject, eventData, requestTimeout)
			require.NoError(t, err)

			assert.Contains(t, replyMsg.Header.Get(worker.ErrorHeader), testCase.wantError)
			assert.Empty(t, replyMsg.Data)

			_, uploadedKey, _ := harness.audioStore.snapshot()
			assert.Empty(t, uploadedKey)

			harness.stop(t)
		})
	}
}

func TestMessageHandler_MalformedEvent(t *testing.T) {
	t.Parallel()

	harness := startWorker(t, nil)

	replyMsg, err := harness.natsConnection.Request(testSubject, []byte("not json"), requestTimeout)
	require.NoError(t, err)
	assert.Contains(t, replyMsg.Header.Get(worker.ErrorHeader), "failed to unmarshal event")

	replyMsg, err = harness.natsConnection.Request(testSubject, []byte(`{"textKey":"a.txt"}`), requestTimeout)
	require.NoError(t, err)
	assert.Equal(t, worker.ErrWorkflowIDEmpty.Error(), replyMsg.Header.Get(worker.ErrorHeader))

	harness.stop(t)
}
