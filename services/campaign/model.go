package campaign

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
)

type Type string
type State string

const (
	TypeOffer      Type = "OFFER"
	TypePoll       Type = "POLL"
	TypeQuiz       Type = "QUIZ"
	TypeQuest      Type = "QUEST"
	TypeHeroBanner Type = "HERO_BANNER"

	StateDraft     State = "DRAFT"
	StateScheduled State = "SCHEDULED"
	StateLive      State = "LIVE"
	StateComplete  State = "COMPLETE"
	StateDeleted   State = "DELETED"
)

// MarketAllowList is the fixed set of market codes a campaign may target.
var MarketAllowList = []string{"US", "UK", "CA", "AU", "DE", "FR", "JP"}

// MarketsAll is the literal markets value meaning "every market".
const MarketsAll = "all"

// Campaign is a marketing campaign managed by the admin console. Content
// lives in the type-discriminated Config blob; Markets holds either the
// literal "all" or an array of market codes.
type Campaign struct {
	ID              int64          `gorm:"column:id;primaryKey;autoIncrement:false" json:"id"`
	CampaignID      string         `gorm:"column:campaign_id;uniqueIndex;type:varchar(32);not null" json:"campaignId"`
	Type            Type           `gorm:"column:type;type:varchar(32);not null" json:"type"`
	TemplateVersion int            `gorm:"column:template_version;not null;default:1" json:"templateVersion"`
	Title           string         `gorm:"column:title;type:varchar(255);not null" json:"title"`
	State           State          `gorm:"column:state;type:varchar(16);not null;default:'DRAFT';index" json:"state"`
	StartAt         *time.Time     `gorm:"column:start_at" json:"startDate"`
	EndAt           *time.Time     `gorm:"column:end_at" json:"endDate"`
	Markets         datatypes.JSON `gorm:"column:markets" json:"markets"`
	Channels        datatypes.JSON `gorm:"column:channels" json:"channels"`
	Config          datatypes.JSON `gorm:"column:config" json:"config"`
	CreatedAt       time.Time      `gorm:"column:created_at;autoCreateTime" json:"createdAt"`
	UpdatedAt       time.Time      `gorm:"column:updated_at;autoUpdateTime" json:"updatedAt"`
}

func (Campaign) TableName() string {
	return "campaigns"
}

// ========================================================
// Helper methods
// ========================================================

// ChannelList decodes the channels column. A missing or malformed column is
// treated as no channels.
func (c *Campaign) ChannelList() []string {
	if len(c.Channels) == 0 {
		return nil
	}
	var channels []string
	if err := json.Unmarshal(c.Channels, &channels); err != nil {
		return nil
	}
	return channels
}

// DatesValid reports whether the start/end pair respects start < end. Pairs
// with either side unset are always valid.
func (c *Campaign) DatesValid() bool {
	if c.StartAt == nil || c.EndAt == nil {
		return true
	}
	return c.StartAt.Before(*c.EndAt)
}

// IsLiveAt reports whether the campaign is serving at the given instant.
func (c *Campaign) IsLiveAt(now time.Time) bool {
	if c.State != StateLive {
		return false
	}
	if c.StartAt != nil && now.Before(*c.StartAt) {
		return false
	}
	if c.EndAt != nil && now.After(*c.EndAt) {
		return false
	}
	return true
}

// ========================================================
// State machine table
// ========================================================

var allowedTransitions = map[State][]State{
	StateDraft:     {StateScheduled, StateLive},
	StateScheduled: {StateDraft, StateLive},
	StateLive:      {StateComplete},
	StateComplete:  {},
	StateDeleted:   {},
}

// AllowedTransitions returns the states reachable from s. Terminal states
// return an empty slice.
func AllowedTransitions(s State) []State {
	return allowedTransitions[s]
}

func (s State) Valid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// ParseState normalizes a state token from the API boundary. Tokens are
// accepted in any casing ("Live", "live", "LIVE"); unknown states return
// false.
func ParseState(s string) (State, bool) {
	st := State(strings.ToUpper(s))
	return st, st.Valid()
}

func (s State) Terminal() bool {
	return len(allowedTransitions[s]) == 0 && s.Valid()
}

func (s State) CanTransitionTo(to State) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ========================================================
// Markets
// ========================================================

func IsMarketCode(code string) bool {
	for _, m := range MarketAllowList {
		if m == code {
			return true
		}
	}
	return false
}

// DecodeMarkets parses a markets column into either the "all" flag or the
// explicit code list.
func DecodeMarkets(raw datatypes.JSON) (all bool, codes []string, err error) {
	if len(raw) == 0 {
		return false, nil, nil
	}

	var literal string
	if json.Unmarshal(raw, &literal) == nil {
		if literal == MarketsAll {
			return true, nil, nil
		}
		return false, nil, fmt.Errorf("markets must be %q or an array of market codes", MarketsAll)
	}

	if err := json.Unmarshal(raw, &codes); err != nil {
		return false, nil, fmt.Errorf("markets must be %q or an array of market codes", MarketsAll)
	}
	return false, codes, nil
}

// ValidateMarkets enforces the markets invariant: the literal "all", or a
// non-empty duplicate-free array drawn from the allow-list.
func ValidateMarkets(raw datatypes.JSON) error {
	all, codes, err := DecodeMarkets(raw)
	if err != nil {
		return err
	}
	if all {
		return nil
	}
	if len(raw) == 0 {
		return fmt.Errorf("markets is required")
	}
	if len(codes) == 0 {
		return fmt.Errorf("markets array must not be empty")
	}

	seen := make(map[string]bool, len(codes))
	for _, code := range codes {
		if !IsMarketCode(code) {
			return fmt.Errorf("unknown market code %q (allowed: %s)", code, strings.Join(MarketAllowList, ", "))
		}
		if seen[code] {
			return fmt.Errorf("duplicate market code %q", code)
		}
		seen[code] = true
	}
	return nil
}
