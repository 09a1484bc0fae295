// Package rpc is the Arrow Flight surface (C8): every operation the
// application facade exposes, reachable over one Flight connection. Search,
// get_metadata, get_source_structure and list_sources travel as Action
// calls with a JSON request and JSON response body; get_data and
// get_plot_data travel as a Get call, with the query folded into the
// ticket and the result streamed back as Arrow record batches.
package rpc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/flight"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/timeseer-ai/kukur-go/internal/apikey"
	"github.com/timeseer-ai/kukur-go/internal/facade"
	"github.com/timeseer-ai/kukur-go/internal/metrics"
	"github.com/timeseer-ai/kukur-go/pkg/source"
)

const component = "rpc"

// Action names the Action-mode request dispatches on.
const (
	ActionSearch             = "search"
	ActionGetMetadata        = "get_metadata"
	ActionGetSourceStructure = "get_source_structure"
	ActionListSources        = "list_sources"
)

// Query names the Get-mode ticket dispatches on.
const (
	QueryGetData     = "get_data"
	QueryGetPlotData = "get_plot_data"
)

// Server implements flight.FlightServiceServer, routing every call to a
// Facade and authenticating every call against an api-key store.
type Server struct {
	flight.BaseFlightServer

	facade  *facade.Facade
	apiKeys *apikey.Store
	logger  *logrus.Logger
}

// NewServer builds a Flight service handler. A nil apiKeys turns
// authentication off: every call is accepted, which is how internal/app
// builds the server when flight.authentication is not "basic".
func NewServer(f *facade.Facade, apiKeys *apikey.Store, logger *logrus.Logger) *Server {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Server{facade: f, apiKeys: apiKeys, logger: logger}
}

// DoAction dispatches search, get_metadata, get_source_structure and
// list_sources: search sends back one Result per item found (none for an
// empty result), the others exactly one Result, each carrying a
// JSON-encoded body.
func (s *Server) DoAction(action *flight.Action, stream flight.FlightService_DoActionServer) error {
	started := time.Now()
	requestID := uuid.NewString()
	ctx := stream.Context()
	if err := authenticate(ctx, s.apiKeys); err != nil {
		return err
	}

	var err error
	switch action.Type {
	case ActionSearch:
		err = s.doSearch(ctx, action.Body, stream)
	case ActionGetMetadata:
		err = s.doGetMetadata(ctx, action.Body, stream)
	case ActionGetSourceStructure:
		err = s.doGetSourceStructure(ctx, action.Body, stream)
	case ActionListSources:
		err = s.doListSources(stream)
	default:
		err = status.Errorf(codes.InvalidArgument, "rpc: unknown action %q", action.Type)
	}
	if err != nil {
		s.logger.WithFields(logrus.Fields{"component": component, "action": action.Type, "request_id": requestID}).WithError(err).Warn("action failed")
		metrics.RecordRPCRequest(action.Type, "failure", time.Since(started))
	} else {
		metrics.RecordRPCRequest(action.Type, "success", time.Since(started))
	}
	return err
}

func (s *Server) doSearch(ctx context.Context, body []byte, stream flight.FlightService_DoActionServer) error {
	selector, err := parseSelectorRequest(body)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	it, err := s.facade.Search(ctx, selector)
	if err != nil {
		return toStatus(err)
	}
	items, err := source.Drain(ctx, it)
	if err != nil {
		return toStatus(err)
	}
	for _, item := range items {
		out, err := json.Marshal(searchItemToData(item.Selector, item.Metadata))
		if err != nil {
			return status.Error(codes.Internal, err.Error())
		}
		if err := stream.Send(&flight.Result{Body: out}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) doGetMetadata(ctx context.Context, body []byte, stream flight.FlightService_DoActionServer) error {
	selector, err := parseSelectorRequest(body)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	md, err := s.facade.GetMetadata(ctx, selector)
	if err != nil {
		return toStatus(err)
	}
	out, err := json.Marshal(md.ToData())
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.Send(&flight.Result{Body: out})
}

func (s *Server) doGetSourceStructure(ctx context.Context, body []byte, stream flight.FlightService_DoActionServer) error {
	selector, err := parseSelectorRequest(body)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	structure, err := s.facade.GetSourceStructure(ctx, selector)
	if err != nil {
		return toStatus(err)
	}
	out, err := json.Marshal(structure.ToData())
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.Send(&flight.Result{Body: out})
}

func (s *Server) doListSources(stream flight.FlightService_DoActionServer) error {
	out, err := json.Marshal(s.facade.ListSources())
	if err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return stream.Send(&flight.Result{Body: out})
}

// DoGet dispatches get_data and get_plot_data: the ticket carries the query
// name, selector and time range, and the result streams back as Arrow
// record batches over the standard ts/value/quality schema.
func (s *Server) DoGet(tkt *flight.Ticket, stream flight.FlightService_DoGetServer) error {
	started := time.Now()
	requestID := uuid.NewString()
	ctx := stream.Context()
	if err := authenticate(ctx, s.apiKeys); err != nil {
		return err
	}

	ticket, selector, start, end, err := parseDataTicket(tkt.Ticket)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}

	var table arrow.Table
	switch ticket.Query {
	case QueryGetData:
		table, err = s.facade.GetData(ctx, selector, start, end)
	case QueryGetPlotData:
		table, err = s.facade.GetPlotData(ctx, selector, start, end, ticket.IntervalCount)
	default:
		return status.Errorf(codes.InvalidArgument, "rpc: unknown query %q", ticket.Query)
	}
	if err != nil {
		s.logger.WithFields(logrus.Fields{"component": component, "query": ticket.Query, "request_id": requestID}).WithError(err).Warn("data fetch failed")
		metrics.RecordRPCRequest(ticket.Query, "failure", time.Since(started))
		return toStatus(err)
	}
	if err := streamTable(stream, table); err != nil {
		s.logger.WithFields(logrus.Fields{"component": component, "query": ticket.Query, "request_id": requestID}).WithError(err).Warn("stream write failed")
		metrics.RecordRPCRequest(ticket.Query, "failure", time.Since(started))
		return err
	}
	metrics.RecordRPCRequest(ticket.Query, "success", time.Since(started))
	return nil
}

// streamTable writes table to the DoGet stream as a sequence of Arrow
// record batches sharing table's schema, in the chunking the table's
// underlying columns were built with.
func streamTable(stream flight.FlightService_DoGetServer, table arrow.Table) error {
	defer table.Release()

	writer := flight.NewRecordWriter(stream, ipc.WithSchema(table.Schema()))
	defer writer.Close()

	reader := array.NewTableReader(table, -1)
	defer reader.Release()
	for reader.Next() {
		rec := reader.Record()
		if err := writer.Write(rec); err != nil {
			return status.Error(codes.Internal, err.Error())
		}
	}
	if err := reader.Err(); err != nil {
		return status.Error(codes.Internal, err.Error())
	}
	return nil
}
