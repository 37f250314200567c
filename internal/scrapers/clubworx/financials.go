package clubworx

import "context"

const report_session_financials = "session.financials"

// Financials is the dashboard financials payload exactly as the service
// returns it, numbers are json.Number.
type Financials = any

func (s *Session) Financials(ctx context.Context) (Financials, error) {
	var body any
	err := s.getJSON(ctx, report_session_financials, s.gymEndpoint("/dashboard/financials"), &body)
	if err != nil {
		return nil, err
	}
	return body, nil
}
