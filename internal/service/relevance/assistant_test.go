package relevance

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/davidleathers/contact-guardian/internal/domain/contact"
	apperrors "github.com/davidleathers/contact-guardian/internal/domain/errors"
)

type MockGenerator struct {
	mock.Mock
}

func (m *MockGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	args := m.Called(ctx, prompt)
	return args.String(0), args.Error(1)
}

type snapshots struct{ c atomic.Pointer[contact.Corpus] }

func (s *snapshots) Current() *contact.Corpus { return s.c.Load() }

func newSnapshots(c *contact.Corpus) *snapshots {
	s := &snapshots{}
	s.c.Store(c)
	return s
}

func TestNewAssistant_Validation(t *testing.T) {
	_, err := NewAssistant(nil, nil, 5, zaptest.NewLogger(t))
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeValidation))

	_, err = NewAssistant(newSnapshots(nil), nil, 5, nil)
	assert.Error(t, err)

	a, err := NewAssistant(newSnapshots(nil), nil, 0, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultContextLimit, a.limit)
}

func TestAssistant_Answer_Fallback(t *testing.T) {
	a, err := NewAssistant(newSnapshots(testCorpus(t)), nil, 5, zaptest.NewLogger(t))
	require.NoError(t, err)

	ans, err := a.Answer(context.Background(), "ATO phone number")
	require.NoError(t, err)
	assert.False(t, ans.Generated)
	require.NotEmpty(t, ans.Services)
	assert.Equal(t, "ato", ans.Services[0].ID)
	assert.Contains(t, ans.Text, "Australian Taxation Office")
	assert.Contains(t, ans.Context, "Australian Taxation Office")
}

func TestAssistant_Answer_NoMatches(t *testing.T) {
	a, err := NewAssistant(newSnapshots(testCorpus(t)), nil, 5, zaptest.NewLogger(t))
	require.NoError(t, err)

	ans, err := a.Answer(context.Background(), "zzz")
	require.NoError(t, err)
	assert.Empty(t, ans.Services)
	assert.Contains(t, ans.Text, "000")
}

func TestAssistant_Answer_Generator(t *testing.T) {
	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.MatchedBy(func(p string) bool {
		return len(p) > 0
	})).Return("Call the ATO on 13 28 61.", nil).Once()

	a, err := NewAssistant(newSnapshots(testCorpus(t)), gen, 5, zaptest.NewLogger(t))
	require.NoError(t, err)

	ans, err := a.Answer(context.Background(), "ato")
	require.NoError(t, err)
	assert.True(t, ans.Generated)
	assert.Equal(t, "Call the ATO on 13 28 61.", ans.Text)
	gen.AssertExpectations(t)
}

func TestAssistant_Answer_GeneratorFailure(t *testing.T) {
	gen := &MockGenerator{}
	gen.On("Generate", mock.Anything, mock.Anything).Return("", errors.New("model offline"))

	a, err := NewAssistant(newSnapshots(testCorpus(t)), gen, 5, zaptest.NewLogger(t))
	require.NoError(t, err)

	ans, err := a.Answer(context.Background(), "travel advice")
	require.NoError(t, err)
	assert.False(t, ans.Generated)
	require.NotEmpty(t, ans.Services)
	assert.Equal(t, "travel", ans.Services[0].ID)
}

func TestAssistant_EntriesFollowSnapshot(t *testing.T) {
	snaps := newSnapshots(testCorpus(t))
	a, err := NewAssistant(snaps, nil, 5, zaptest.NewLogger(t))
	require.NoError(t, err)

	first, err := a.Entries()
	require.NoError(t, err)
	require.Len(t, first, 2)

	again, err := a.Entries()
	require.NoError(t, err)
	assert.Same(t, &first[0], &again[0])

	snaps.c.Store(contact.NewCorpus(nil, "empty", "", time.Unix(2, 0)))
	empty, err := a.Entries()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestAssistant_NoSnapshot(t *testing.T) {
	a, err := NewAssistant(newSnapshots(nil), nil, 5, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = a.Answer(context.Background(), "ato")
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeUnavailable))

	_, err = a.Search(context.Background(), "ato", 5)
	assert.Error(t, err)
}

func TestAssistant_Search(t *testing.T) {
	a, err := NewAssistant(newSnapshots(testCorpus(t)), nil, 5, zaptest.NewLogger(t))
	require.NoError(t, err)

	res, err := a.Search(context.Background(), "tax", 5)
	require.NoError(t, err)
	require.Len(t, res, 1)
	assert.Equal(t, "ato", res[0].Entry.ID)
	assert.Positive(t, res[0].Score)
}
