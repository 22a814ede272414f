package feed

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockExecutor struct {
	mock.Mock
}

func (m *MockExecutor) Authenticate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockExecutor) Execute(ctx context.Context, req Request) (*Response, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Response), args.Error(1)
}

func raw(s string) json.RawMessage { return json.RawMessage(s) }

func TestClient_Query(t *testing.T) {
	exec := new(MockExecutor)
	client := NewClient(exec, nil)
	params := QueryParams{Limit: 2, Sort: "_marker.asc", Filter: MarkerFilter("")}

	header := http.Header{}
	header.Set("Next-Page", "/intel/combined/indicators/v1?after=x")
	exec.On("Execute", mock.Anything, Request{Operation: OpQueryIndicators, Params: params}).Return(&Response{
		Endpoint:   "https://api/intel/combined/indicators/v1",
		StatusCode: http.StatusOK,
		Resources: []json.RawMessage{
			raw(`{"id":"1","_marker":"a","type":"domain"}`),
			raw(`{"id":"2","_marker":"b","type":"ip_address"}`),
		},
		Header: header,
	}, nil)

	page, err := client.Query(context.Background(), params)
	require.NoError(t, err)
	require.Len(t, page.Records, 2)
	assert.Equal(t, "1", page.Records[0].ID)
	assert.Equal(t, "a", page.Records[0].Marker)
	assert.Equal(t, "domain", page.Records[0].Type)
	assert.JSONEq(t, `{"id":"2","_marker":"b","type":"ip_address"}`, string(page.Records[1].Raw))
	assert.True(t, page.HasMore())
	assert.Equal(t, "/intel/combined/indicators/v1?after=x", page.NextCursor)
	exec.AssertExpectations(t)
}

func TestClient_Next(t *testing.T) {
	exec := new(MockExecutor)
	client := NewClient(exec, nil)

	exec.On("Execute", mock.Anything, Request{Operation: OpQueryIndicators, Cursor: "/next"}).
		Return(&Response{StatusCode: http.StatusOK}, nil)

	page, err := client.Next(context.Background(), "/next")
	require.NoError(t, err)
	assert.Empty(t, page.Records)
	assert.False(t, page.HasMore())
}

func TestClient_ErrorClassification(t *testing.T) {
	tests := []struct {
		name  string
		resp  *Response
		check func(t *testing.T, err error)
	}{
		{
			name: "application errors",
			resp: &Response{StatusCode: http.StatusBadRequest, Errors: []APIMessage{{Code: 400, Message: "invalid filter"}}},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
				assert.False(t, IsNoIOCs(err))
				assert.Contains(t, err.Error(), "invalid filter")
			},
		},
		{
			name: "errors take precedence over success status",
			resp: &Response{StatusCode: http.StatusOK, Errors: []APIMessage{{Code: 500, Message: "partial"}}},
			check: func(t *testing.T, err error) {
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
			},
		},
		{
			name: "forbidden is an entitlement failure",
			resp: &Response{StatusCode: http.StatusForbidden, Errors: []APIMessage{{Code: 403, Message: "access denied, authorization failed"}}},
			check: func(t *testing.T, err error) {
				assert.True(t, IsNoIOCs(err))
				assert.ErrorIs(t, err, ErrNoIOCs)
				assert.Contains(t, err.Error(), "Intel IOCs API not discovered")
			},
		},
		{
			name: "not found without body is an entitlement failure",
			resp: &Response{StatusCode: http.StatusNotFound},
			check: func(t *testing.T, err error) {
				assert.True(t, IsNoIOCs(err))
				var apiErr *APIError
				require.ErrorAs(t, err, &apiErr)
			},
		},
		{
			name: "unexpected status",
			resp: &Response{StatusCode: http.StatusBadGateway},
			check: func(t *testing.T, err error) {
				assert.True(t, IsUnexpectedResponse(err))
				assert.False(t, IsNoIOCs(err))
			},
		},
		{
			name: "record without marker",
			resp: &Response{StatusCode: http.StatusOK, Resources: []json.RawMessage{raw(`{"id":"1"}`)}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedIndicator)
				assert.Contains(t, err.Error(), "indicator 1")
			},
		},
		{
			name: "record without id",
			resp: &Response{StatusCode: http.StatusOK, Resources: []json.RawMessage{raw(`{"_marker":"a"}`)}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedIndicator)
			},
		},
		{
			name: "record that is not an object",
			resp: &Response{StatusCode: http.StatusOK, Resources: []json.RawMessage{raw(`"x"`)}},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrMalformedIndicator)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := new(MockExecutor)
			exec.On("Execute", mock.Anything, mock.Anything).Return(tt.resp, nil)

			_, err := NewClient(exec, nil).Query(context.Background(), QueryParams{})
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestClient_ExecutorError(t *testing.T) {
	exec := new(MockExecutor)
	exec.On("Execute", mock.Anything, mock.Anything).Return(nil, ErrAuthentication)

	_, err := NewClient(exec, nil).Query(context.Background(), QueryParams{})
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestClient_Authenticate(t *testing.T) {
	exec := new(MockExecutor)
	exec.On("Authenticate", mock.Anything).Return(errors.New("boom")).Once()

	err := NewClient(exec, nil).Authenticate(context.Background())
	assert.EqualError(t, err, "boom")
	exec.AssertExpectations(t)
}
