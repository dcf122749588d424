package reader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shelfmark/shelfmark/internal/entities"
)

func TestOffsetAdapter_GoTo(t *testing.T) {
	adapter := NewOffsetAdapter(strings.Repeat("x", 5000), 1000)

	t.Run("offset position derives percent from scrollable extent", func(t *testing.T) {
		err := adapter.GoTo(entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 2000})
		require.NoError(t, err)

		pos := adapter.CurrentPosition()
		assert.Equal(t, entities.PositionKindOffset, pos.Kind)
		assert.Equal(t, 2000, pos.Offset)
		assert.Equal(t, 50, pos.ProgressPercent)
	})

	t.Run("kind-less percent jump converts back to an offset", func(t *testing.T) {
		err := adapter.GoTo(entities.ReadingPosition{ProgressPercent: 25})
		require.NoError(t, err)
		assert.Equal(t, 1000, adapter.CurrentPosition().Offset)
	})

	t.Run("offsets are clamped to the scrollable range", func(t *testing.T) {
		require.NoError(t, adapter.GoTo(entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: -50}))
		assert.Equal(t, 0, adapter.CurrentPosition().Offset)

		require.NoError(t, adapter.GoTo(entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 99999}))
		pos := adapter.CurrentPosition()
		assert.Equal(t, 4000, pos.Offset)
		assert.Equal(t, 100, pos.ProgressPercent)
	})

	t.Run("foreign position kind is rejected", func(t *testing.T) {
		err := adapter.GoTo(entities.ReadingPosition{Kind: entities.PositionKindPage, Page: 2})
		assert.ErrorIs(t, err, ErrBadTarget)
	})
}

func TestOffsetAdapter_DocumentFitsInViewport(t *testing.T) {
	adapter := NewOffsetAdapter("a short note", 1000)

	pos := adapter.CurrentPosition()
	assert.Equal(t, 0, pos.Offset)
	assert.Equal(t, 100, pos.ProgressPercent)

	// Any jump collapses to offset zero.
	require.NoError(t, adapter.GoTo(entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 500}))
	assert.Equal(t, 0, adapter.CurrentPosition().Offset)
}

func TestOffsetAdapter_ExtractSelection(t *testing.T) {
	content := strings.Repeat("a", 1500) + strings.Repeat("b", 1500)
	adapter := NewOffsetAdapter(content, 1000)

	require.NoError(t, adapter.GoTo(entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 1500}))

	selection, err := adapter.ExtractSelection()
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("b", 1000), selection.Text)
	assert.Equal(t, 1500, selection.Anchor.Offset)

	// At the end of the document the window shrinks to what is left.
	require.NoError(t, adapter.GoTo(entities.ReadingPosition{Kind: entities.PositionKindOffset, Offset: 2000}))
	selection, err = adapter.ExtractSelection()
	require.NoError(t, err)
	assert.Len(t, selection.Text, 1000)
}
