package clubworx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

const (
	report_session_all_reports  = "session.all-reports"
	report_session_report_by_id = "session.report-by-id"
)

type PageOptions struct {
	// Page is 1-indexed, defaults to 1.
	Page int
	// Count is the page size, defaults to 100.
	Count int
}

func (o PageOptions) withDefaults() PageOptions {
	if o.Page <= 0 {
		o.Page = 1
	}
	if o.Count <= 0 {
		o.Count = 100
	}
	return o
}

type ReportSummary struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
}

// ReportRow maps column labels to cell values, a cell is a string,
// json.Number or nil.
type ReportRow map[string]any

type Report struct {
	Columns []string    `json:"columns"`
	Rows    []ReportRow `json:"rows"`
}

// AllReports lists the reports defined for the gym.
func (s *Session) AllReports(ctx context.Context, opts PageOptions) ([]ReportSummary, error) {
	opts = opts.withDefaults()

	query := url.Values{}
	query.Set("paginate", "1")
	query.Set("page", strconv.Itoa(opts.Page))
	query.Set("count", strconv.Itoa(opts.Count))
	endpoint := s.gymEndpoint("/reports?%s", query.Encode())

	var body struct {
		Collection []ReportSummary `json:"collection"`
	}
	err := s.getJSON(ctx, report_session_all_reports, endpoint, &body)
	if err != nil {
		return nil, err
	}
	if body.Collection == nil {
		return []ReportSummary{}, nil
	}
	return body.Collection, nil
}

// ReportByID fetches one page of rows of a report, each row keyed by the
// report's column labels.
func (s *Session) ReportByID(ctx context.Context, id ID, opts PageOptions) (Report, error) {
	opts = opts.withDefaults()

	query := url.Values{}
	query.Set("count", strconv.Itoa(opts.Count))
	query.Set("page", strconv.Itoa(opts.Page))
	endpoint := s.gymEndpoint("/reports/%s?%s", url.PathEscape(id.String()), query.Encode())

	var body struct {
		Columns []json.RawMessage `json:"report_columns_attributes"`
		Rows    []json.RawMessage `json:"rows"`
	}
	err := s.getJSON(ctx, report_session_report_by_id, endpoint, &body)
	if err != nil {
		return Report{}, err
	}

	report, err := decodeReport(body.Columns, body.Rows)
	if err != nil {
		s.client.tel.ReportBroken(report_session_report_by_id, err, endpoint)
		return Report{}, fmt.Errorf("clubworx: report %s: %w", id, err)
	}
	return report, nil
}

func decodeReport(rawColumns, rawRows []json.RawMessage) (Report, error) {
	columns := make([]string, len(rawColumns))
	for i, raw := range rawColumns {
		label, err := columnLabel(raw)
		if err != nil {
			return Report{}, fmt.Errorf("column %d: %w", i, err)
		}
		if label == "" {
			label = strconv.Itoa(i)
		}
		columns[i] = label
	}

	rows := make([]ReportRow, len(rawRows))
	for i, raw := range rawRows {
		values, err := rowValues(raw)
		if err != nil {
			return Report{}, fmt.Errorf("row %d: %w", i, err)
		}
		rows[i] = zipRow(columns, values)
	}

	return Report{Columns: columns, Rows: rows}, nil
}

// columnLabel accepts either a bare string or an attributes object, in which
// case label, name and title are tried in order.
func columnLabel(raw json.RawMessage) (string, error) {
	var decoded any
	err := decodeJSON(raw, &decoded)
	if err != nil {
		return "", err
	}

	switch value := decoded.(type) {
	case string:
		return value, nil
	case map[string]any:
		for _, key := range []string{"label", "name", "title"} {
			if label := stringValue(value[key]); label != "" {
				return label, nil
			}
		}
		return "", nil
	case nil:
		return "", nil
	}
	return stringValue(decoded), nil
}

// rowValues picks the cell values out of a row. Rows used to be flat arrays
// of cells and are now [meta, [cells...]], both shapes are accepted.
func rowValues(raw json.RawMessage) ([]any, error) {
	var decoded any
	err := decodeJSON(raw, &decoded)
	if err != nil {
		return nil, err
	}

	row, ok := decoded.([]any)
	if !ok {
		return []any{decoded}, nil
	}
	if len(row) >= 2 {
		if values, ok := row[1].([]any); ok {
			return values, nil
		}
	}
	return flatten(row, nil), nil
}

func flatten(values []any, out []any) []any {
	for _, v := range values {
		if nested, ok := v.([]any); ok {
			out = flatten(nested, out)
			continue
		}
		out = append(out, v)
	}
	return out
}

func zipRow(columns []string, values []any) ReportRow {
	row := make(ReportRow, len(columns))
	for i, column := range columns {
		if i < len(values) {
			row[column] = values[i]
			continue
		}
		row[column] = nil
	}
	return row
}
