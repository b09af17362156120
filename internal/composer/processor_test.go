package composer_test

import (
	"bytes"
	"context"
	"testing"

	"github.com/book-expert/logger"
	"github.com/book-expert/unit-tts/internal/audio"
	"github.com/book-expert/unit-tts/internal/composer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProcessor(t *testing.T) *composer.Processor {
	t.Helper()

	comp, _ := newComposer(t, greeting())

	log, err := logger.New(t.TempDir(), "processor-test.log")
	require.NoError(t, err)

	processor, err := composer.NewProcessor(comp, audio.NewWAVCodec(), log)
	require.NoError(t, err)

	return processor
}

func TestProcessor_Process(t *testing.T) {
	t.Parallel()

	processor := newProcessor(t)

	data, err := processor.Process(context.Background(), []byte("Привіт, світ!\n"))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(data, []byte("RIFF")))

	decoded, err := audio.NewWAVCodec().DecodeReader(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, testRate, decoded.SampleRate())
	assert.Equal(t, 8000+2*4800+6000-160, decoded.Len())
}

func TestProcessor_Process_Errors(t *testing.T) {
	t.Parallel()

	processor := newProcessor(t)

	_, err := processor.Process(context.Background(), []byte("  \n"))
	require.ErrorIs(t, err, composer.ErrEmptyText)

	_, err = processor.Process(context.Background(), []byte("невідоме"))
	require.ErrorIs(t, err, composer.ErrNoPlayableWords)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = processor.Process(ctx, []byte("привіт"))
	require.ErrorIs(t, err, context.Canceled)
}
