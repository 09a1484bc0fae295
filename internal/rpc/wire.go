package rpc

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/timeseer-ai/kukur-go/pkg/metadata"
)

// searchItemToData renders one search stream element per spec §4.7: either
// a bare selector {source, tags, field} or the serialized Metadata.
func searchItemToData(selector *metadata.SeriesSelector, md *metadata.Metadata) map[string]interface{} {
	if md != nil {
		return md.ToData()
	}
	return selector.ToData()
}

// dataTicket is the JSON ticket shape for Get-mode requests: {"query":
// "get_data"|"get_plot_data", "selector": {...}, "start_date": ISO-8601,
// "end_date": ISO-8601, "interval_count"?: int}.
type dataTicket struct {
	Query         string                 `json:"query"`
	Selector      map[string]interface{} `json:"selector"`
	StartDate     string                 `json:"start_date"`
	EndDate       string                 `json:"end_date"`
	IntervalCount int                    `json:"interval_count"`
}

func parseDataTicket(raw []byte) (dataTicket, metadata.SeriesSelector, time.Time, time.Time, error) {
	var ticket dataTicket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		return ticket, metadata.SeriesSelector{}, time.Time{}, time.Time{}, fmt.Errorf("rpc: invalid ticket: %w", err)
	}
	selector, err := metadata.SeriesSelectorFromData(ticket.Selector)
	if err != nil {
		return ticket, metadata.SeriesSelector{}, time.Time{}, time.Time{}, err
	}
	start, err := time.Parse(time.RFC3339, ticket.StartDate)
	if err != nil {
		return ticket, metadata.SeriesSelector{}, time.Time{}, time.Time{}, fmt.Errorf("rpc: invalid start_date: %w", err)
	}
	end, err := time.Parse(time.RFC3339, ticket.EndDate)
	if err != nil {
		return ticket, metadata.SeriesSelector{}, time.Time{}, time.Time{}, fmt.Errorf("rpc: invalid end_date: %w", err)
	}
	return ticket, selector, start, end, nil
}

func parseSelectorRequest(raw []byte) (metadata.SeriesSelector, error) {
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return metadata.SeriesSelector{}, fmt.Errorf("rpc: invalid request body: %w", err)
	}
	return metadata.SeriesSelectorFromData(data)
}
