package source_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benjamin1108/reinvent-insight/internal/source"
)

func TestInlineResolver(t *testing.T) {
	t.Parallel()

	resolver := source.NewInlineResolver()
	ctx := context.Background()

	t.Run("Transcript", func(t *testing.T) {
		t.Parallel()

		content, err := resolver.Resolve(ctx, source.KindTranscript, "so today we're going to talk about queues")
		require.NoError(t, err)
		assert.Equal(t, source.KindTranscript, content.Kind)
		assert.Equal(t, "so today we're going to talk about queues", content.Text)
		assert.Empty(t, content.FileURI)
	})

	t.Run("Document", func(t *testing.T) {
		t.Parallel()

		content, err := resolver.Resolve(ctx, source.KindDocument, "files/abc123")
		require.NoError(t, err)
		assert.Equal(t, source.KindDocument, content.Kind)
		assert.Equal(t, "files/abc123", content.FileURI)
		assert.Equal(t, "application/pdf", content.MIMEType)
		assert.Empty(t, content.Text)
	})

	t.Run("EmptyReference", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.Resolve(ctx, source.KindTranscript, "  \n ")
		assert.ErrorIs(t, err, source.ErrEmptySource)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		t.Parallel()

		_, err := resolver.Resolve(ctx, source.Kind("webcam"), "ref")
		assert.ErrorIs(t, err, source.ErrUnsupportedSource)
	})
}
