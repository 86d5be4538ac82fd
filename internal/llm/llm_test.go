package llm

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingGenerator struct {
	calls int
}

func (g *countingGenerator) Generate(ctx context.Context, prompt, contextBlock string, history []Message) (Generation, error) {
	g.calls++
	return Generation{Text: "ok", Model: "fake"}, nil
}

func TestFormatReply(t *testing.T) {
	assert.Equal(t, "hello", FormatReply("  hello \n"))
	assert.Equal(t, "", FormatReply("   "))

	long := strings.Repeat("é", MaxReplyRunes+10)
	got := FormatReply(long)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, MaxReplyRunes+3, len([]rune(got)))

	exact := strings.Repeat("a", MaxReplyRunes)
	assert.Equal(t, exact, FormatReply(exact))
}

func TestLimited_DailyQuota(t *testing.T) {
	next := &countingGenerator{}
	l := NewLimited(next, 0, 2)
	day := time.Date(2026, 3, 1, 23, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return day }

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := l.Generate(ctx, "p", "c", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, 0, l.Remaining())

	_, err := l.Generate(ctx, "p", "c", nil)
	assert.True(t, errors.Is(err, ErrQuotaExceeded))
	assert.Equal(t, 2, next.calls)

	day = day.Add(2 * time.Hour)
	_, err = l.Generate(ctx, "p", "c", nil)
	require.NoError(t, err, "quota resets on the next UTC day")
	assert.Equal(t, 1, l.Remaining())
}

func TestLimited_Disabled(t *testing.T) {
	next := &countingGenerator{}
	l := NewLimited(next, 0, 0)

	for i := 0; i < 100; i++ {
		_, err := l.Generate(context.Background(), "p", "c", nil)
		require.NoError(t, err)
	}
	assert.Equal(t, -1, l.Remaining())
	assert.Equal(t, 100, next.calls)
}

func TestLimited_RateWaitHonoursContext(t *testing.T) {
	next := &countingGenerator{}
	l := NewLimited(next, 1, 0)

	_, err := l.Generate(context.Background(), "p", "c", nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = l.Generate(ctx, "p", "c", nil)
	require.Error(t, err)
	assert.Equal(t, 1, next.calls)
}
