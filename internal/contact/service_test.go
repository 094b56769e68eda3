package contact

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/alwayscodedfresh/lead-cli/internal/model"
	"github.com/alwayscodedfresh/lead-cli/internal/store"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Query(ctx context.Context, filter store.LeadFilter) ([]model.Lead, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Lead), args.Error(1)
}

func (m *mockStore) Update(ctx context.Context, lead *model.Lead, columns ...string) error {
	args := m.Called(ctx, lead, columns)
	return args.Error(0)
}

func TestService_AnalyzeBatch(t *testing.T) {
	ms := new(mockStore)
	leads := []model.Lead{
		{ID: "1", URL: "https://example.com/1", Description: "email jane@acme.com"},
		{ID: "2", URL: "https://example.com/2", Description: "call 555-123-4567"},
		{ID: "3", URL: "https://example.com/3", Description: "no contacts here"},
		{ID: "4", URL: "https://example.com/4", Description: ""},
	}
	ms.On("Query", mock.Anything, store.LeadFilter{UnscannedCompanyDetails: true, Limit: 50}).Return(leads, nil)
	ms.On("Update", mock.Anything, mock.MatchedBy(func(l *model.Lead) bool { return l.ID == "2" }), store.ContactColumns).
		Return(errors.New("disk full"))
	ms.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	svc := NewService(ms, 1)
	res, err := svc.AnalyzeBatch(context.Background(), 0)
	require.NoError(t, err)

	assert.Equal(t, 4, res.Analyzed)
	assert.Equal(t, 1, res.Viable)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "lead 2")
	ms.AssertNumberOfCalls(t, "Update", 4)
}

func TestService_AnalyzeBatch_QueryError(t *testing.T) {
	ms := new(mockStore)
	ms.On("Query", mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

	_, err := NewService(ms, 1).AnalyzeBatch(context.Background(), 10)
	assert.Error(t, err)
}

func TestService_AnalyzeLead_MarksScanned(t *testing.T) {
	ms := new(mockStore)
	ms.On("Update", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	l := &model.Lead{ID: "9", URL: "https://example.com/9"}
	r, err := NewService(ms, 1).AnalyzeLead(context.Background(), l)
	require.NoError(t, err)
	assert.Equal(t, SummaryNoDescription, r.Summary)
	assert.True(t, l.ScannedForCompanyDetails)
	assert.Equal(t, model.False, l.ViablePost)
}
