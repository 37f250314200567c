package clubworx

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"
)

const (
	report_session_members      = "session.members"
	report_session_member_by_id = "session.member-by-id"
)

type MemberOptions struct {
	Page  int
	Count int
	// Search filters members by a free-text term, empty means no filter.
	Search string
}

// Member is a flattened view over a member or contact record. Fields the
// service did not send are left empty.
type Member struct {
	ID           ID     `json:"id,omitempty"`
	Name         string `json:"name,omitempty"`
	FirstName    string `json:"firstName,omitempty"`
	LastName     string `json:"lastName,omitempty"`
	Email        string `json:"email,omitempty"`
	Phone        string `json:"phone,omitempty"`
	ImageUrl     string `json:"imageUrl,omitempty"`
	Status       string `json:"status,omitempty"`
	GoodStanding *bool  `json:"goodStanding,omitempty"`
}

// Members lists members of the gym, optionally filtered by opts.Search.
func (s *Session) Members(ctx context.Context, opts MemberOptions) ([]Member, error) {
	page := PageOptions{Page: opts.Page, Count: opts.Count}.withDefaults()

	query := url.Values{}
	query.Set("page", strconv.Itoa(page.Page))
	query.Set("count", strconv.Itoa(page.Count))
	query.Set("search", opts.Search)
	endpoint := s.gymEndpoint("/members?%s", query.Encode())

	var body struct {
		Collection []map[string]any `json:"collection"`
	}
	err := s.getJSON(ctx, report_session_members, endpoint, &body)
	if err != nil {
		return nil, err
	}

	members := make([]Member, len(body.Collection))
	for i, raw := range body.Collection {
		members[i] = formatMember(raw)
	}
	return members, nil
}

// MemberByID fetches a single member through the contacts resource.
func (s *Session) MemberByID(ctx context.Context, id ID) (Member, error) {
	endpoint := s.gymEndpoint("/contacts/%s", url.PathEscape(id.String()))

	var body map[string]any
	err := s.getJSON(ctx, report_session_member_by_id, endpoint, &body)
	if err != nil {
		return Member{}, err
	}
	return formatMember(body), nil
}

// formatMember prefers top level fields and falls back to the ones nested
// under contact_information. The id is only read from the top level, a
// contact id is not a member id.
func formatMember(raw map[string]any) Member {
	contact, _ := raw["contact_information"].(map[string]any)

	pick := func(key string) string {
		if value := stringValue(raw[key]); value != "" {
			return value
		}
		return stringValue(contact[key])
	}

	member := Member{
		ID:        ID(stringValue(raw["id"])),
		Name:      pick("name"),
		FirstName: pick("first_name"),
		LastName:  pick("last_name"),
		Email:     pick("email"),
		Phone:     pick("phone"),
		ImageUrl:  pick("image_url"),
		Status:    pick("status"),
	}

	if standing, ok := raw["good_standing"].(bool); ok {
		member.GoodStanding = &standing
	} else if standing, ok := contact["good_standing"].(bool); ok {
		member.GoodStanding = &standing
	}

	return member
}

// stringValue renders scalar JSON values as strings, anything else is "".
func stringValue(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	}
	return ""
}
