package rpc

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	gmetadata "google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/timeseer-ai/kukur-go/internal/apikey"
	"github.com/timeseer-ai/kukur-go/internal/facade"
	"github.com/timeseer-ai/kukur-go/internal/registry"
	"github.com/timeseer-ai/kukur-go/pkg/metadata"
)

// fakeActionStream is a minimal flight.FlightService_DoActionServer: it
// only overrides what this package's handlers call, leaning on
// grpc.ServerStream's zero value for everything else.
type fakeActionStream struct {
	grpc.ServerStream
	ctx     context.Context
	results []*flight.Result
}

func (f *fakeActionStream) Context() context.Context { return f.ctx }
func (f *fakeActionStream) Send(r *flight.Result) error {
	f.results = append(f.results, r)
	return nil
}

type fakeGetStream struct {
	grpc.ServerStream
	ctx      context.Context
	messages []*flight.FlightData
}

func (f *fakeGetStream) Context() context.Context { return f.ctx }
func (f *fakeGetStream) Send(d *flight.FlightData) error {
	f.messages = append(f.messages, d)
	return nil
}

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	cfg := registry.Config{
		Sources: []registry.NamedSourceConfig{
			{Name: "plant", Config: registry.SourceConfig{Type: "memory", Raw: map[string]interface{}{
				"series": []interface{}{map[string]interface{}{
					"tags": map[string]interface{}{metadata.SeriesNameTag: "Temp01"},
					"rows": []interface{}{
						map[string]interface{}{"ts": "2024-01-01T00:00:00Z", "value": 1.5},
						map[string]interface{}{"ts": "2024-01-01T01:00:00Z", "value": 2.5},
					},
				}},
			}}},
		},
	}
	reg, err := registry.New(cfg, registry.DefaultFactories(), nil)
	require.NoError(t, err)

	store, err := apikey.Open(filepath.Join(t.TempDir(), "apikey.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	key, err := store.Create("test")
	require.NoError(t, err)

	f := facade.New(reg, store)
	return NewServer(f, store, nil), key
}

func authedContext(key string) context.Context {
	header := "Basic " + basicAuthHeader("test", key)
	md := gmetadata.New(map[string]string{"authorization": header})
	return gmetadata.NewIncomingContext(context.Background(), md)
}

func TestDoActionRejectsMissingCredentials(t *testing.T) {
	s, _ := newTestServer(t)
	stream := &fakeActionStream{ctx: context.Background()}
	err := s.DoAction(&flight.Action{Type: ActionListSources}, stream)
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func TestDoActionListSources(t *testing.T) {
	s, key := newTestServer(t)
	stream := &fakeActionStream{ctx: authedContext(key)}
	require.NoError(t, s.DoAction(&flight.Action{Type: ActionListSources}, stream))
	require.Len(t, stream.results, 1)

	var names []string
	require.NoError(t, json.Unmarshal(stream.results[0].Body, &names))
	assert.Equal(t, []string{"plant"}, names)
}

func TestDoActionGetMetadataUnknownSource(t *testing.T) {
	s, key := newTestServer(t)
	stream := &fakeActionStream{ctx: authedContext(key)}
	body, _ := json.Marshal(metadata.FromName("nope", "Temp01").ToData())
	err := s.DoAction(&flight.Action{Type: ActionGetMetadata, Body: body}, stream)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestDoActionSearchStreamsItems(t *testing.T) {
	s, key := newTestServer(t)
	stream := &fakeActionStream{ctx: authedContext(key)}
	body, _ := json.Marshal(map[string]interface{}{"source": "plant"})
	require.NoError(t, s.DoAction(&flight.Action{Type: ActionSearch, Body: body}, stream))
	assert.Len(t, stream.results, 1)
}

func TestDoGetStreamsDataAsFlightData(t *testing.T) {
	s, key := newTestServer(t)
	stream := &fakeGetStream{ctx: authedContext(key)}

	selector := metadata.FromName("plant", "Temp01").ToData()
	ticketBody, err := json.Marshal(map[string]interface{}{
		"query":      QueryGetData,
		"selector":   selector,
		"start_date": "2024-01-01T00:00:00Z",
		"end_date":   "2024-01-02T00:00:00Z",
	})
	require.NoError(t, err)

	require.NoError(t, s.DoGet(&flight.Ticket{Ticket: ticketBody}, stream))
	assert.NotEmpty(t, stream.messages)
}

func TestDoGetUnknownQueryIsInvalidArgument(t *testing.T) {
	s, key := newTestServer(t)
	stream := &fakeGetStream{ctx: authedContext(key)}

	selector := metadata.FromName("plant", "Temp01").ToData()
	ticketBody, _ := json.Marshal(map[string]interface{}{
		"query":      "not_a_query",
		"selector":   selector,
		"start_date": "2024-01-01T00:00:00Z",
		"end_date":   "2024-01-02T00:00:00Z",
	})

	err := s.DoGet(&flight.Ticket{Ticket: ticketBody}, stream)
	require.Error(t, err)
	assert.Equal(t, codes.InvalidArgument, status.Code(err))
}

func TestAuthenticateRejectsWrongKey(t *testing.T) {
	s, realKey := newTestServer(t)
	stream := &fakeActionStream{ctx: authedContext(realKey + "-wrong")}
	err := s.DoAction(&flight.Action{Type: ActionListSources}, stream)
	require.Error(t, err)
	assert.Equal(t, codes.Unauthenticated, status.Code(err))
}

func basicAuthHeader(name, key string) string {
	return base64.StdEncoding.EncodeToString([]byte(name + ":" + key))
}
