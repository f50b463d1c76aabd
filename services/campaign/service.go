package campaign

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"campaign-console/pkg/config"
	"campaign-console/pkg/db/pagination"
	"campaign-console/pkg/errutil"
	"campaign-console/pkg/sequence"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const defaultTitle = "Untitled campaign"

// ========================================================
// Service Definition
// ========================================================

type Service struct {
	db     *gorm.DB
	node   *snowflake.Node
	seq    sequence.Generator
	cfg    *config.Config
	logger *zap.Logger

	// nowFn is swapped in tests to pin the clock.
	nowFn func() time.Time
}

type ServiceParams struct {
	fx.In

	DB     *gorm.DB
	Node   *snowflake.Node
	Seq    sequence.Generator
	Config *config.Config
	Logger *zap.Logger
}

func NewService(p ServiceParams) *Service {
	return &Service{
		db:     p.DB,
		node:   p.Node,
		seq:    p.Seq,
		cfg:    p.Config,
		logger: p.Logger,
		nowFn:  time.Now,
	}
}

// Migrate creates the campaigns table. Invoked at startup.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(&Campaign{})
}

// ========================================================
// Create
// ========================================================

type CreateInput struct {
	Type     Type            `json:"type"`
	Preset   *TemplatePreset `json:"preset"`
	Title    string          `json:"title"`
	Markets  json.RawMessage `json:"markets"`
	Channels []string        `json:"channels"`
}

// Create mints a new Draft campaign seeded from the type template. Derived
// fields (id, business code, state) are assigned here, before any invariant
// check, and never client-settable.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Campaign, error) {
	if !TypeKnown(in.Type) {
		return nil, errutil.BadRequest(fmt.Sprintf("unsupported campaign type %q", in.Type))
	}
	if !TypeEnabled(in.Type) {
		return nil, errutil.BadRequest(fmt.Sprintf("campaign type %q is disabled", in.Type))
	}

	template, err := TemplateFor(in.Type, in.Preset)
	if err != nil {
		return nil, err
	}

	title, err := normalizeTitle(in.Title)
	if err != nil {
		return nil, err
	}

	markets := in.Markets
	if len(markets) == 0 {
		markets = json.RawMessage(`"` + MarketsAll + `"`)
	}
	if err := ValidateMarkets([]byte(markets)); err != nil {
		return nil, errutil.ValidationFailed(err.Error())
	}

	channels := in.Channels
	if channels == nil {
		channels = []string{}
	}
	if err := s.validateChannels(channels); err != nil {
		return nil, err
	}
	channelsJSON, _ := json.Marshal(channels)

	code, err := s.seq.NextCampaignCode(ctx)
	if err != nil {
		return nil, errutil.Internal("failed to mint campaign code", errutil.WithErr(err))
	}

	c := Campaign{
		ID:              s.node.Generate().Int64(),
		CampaignID:      code,
		Type:            in.Type,
		TemplateVersion: template.TemplateVersion,
		Title:           title,
		State:           StateDraft,
		Markets:         []byte(markets),
		Channels:        channelsJSON,
		Config:          template.Config,
	}

	if err := s.db.WithContext(ctx).Create(&c).Error; err != nil {
		s.logger.Error("failed to create campaign", zap.Error(err))
		return nil, errutil.Internal("failed to create campaign", errutil.WithErr(err))
	}

	return &c, nil
}

// ========================================================
// Get
// ========================================================

func (s *Service) Get(ctx context.Context, id int64) (*Campaign, error) {
	var c Campaign
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("campaign not found")
		}
		return nil, errutil.Internal("failed to load campaign", errutil.WithErr(err))
	}
	return &c, nil
}

// ========================================================
// Update
// ========================================================

type UpdateInput struct {
	Title    *string         `json:"title"`
	StartAt  *time.Time      `json:"startDate"`
	EndAt    *time.Time      `json:"endDate"`
	Markets  json.RawMessage `json:"markets"`
	Channels *[]string       `json:"channels"`
	Config   json.RawMessage `json:"config"`
}

// Update edits a Draft in place. An invalid config is rejected before the
// write, so a draft row never holds a config the validator would refuse to
// round-trip. Type and campaign_id are not touchable here.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*Campaign, error) {
	var updated Campaign

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if c.State != StateDraft {
			return errutil.Conflict("only Draft campaigns can be edited")
		}

		changes := map[string]interface{}{}

		if in.Title != nil {
			title, err := normalizeTitle(*in.Title)
			if err != nil {
				return err
			}
			c.Title = title
			changes["title"] = title
		}

		if in.StartAt != nil {
			c.StartAt = in.StartAt
			changes["start_at"] = in.StartAt
		}
		if in.EndAt != nil {
			c.EndAt = in.EndAt
			changes["end_at"] = in.EndAt
		}
		if !c.DatesValid() {
			return errutil.ValidationFailed("startDate must be before endDate")
		}

		if len(in.Markets) > 0 {
			if err := ValidateMarkets([]byte(in.Markets)); err != nil {
				return errutil.ValidationFailed(err.Error())
			}
			c.Markets = []byte(in.Markets)
			changes["markets"] = c.Markets
		}

		if in.Channels != nil {
			if err := s.validateChannels(*in.Channels); err != nil {
				return err
			}
			channelsJSON, _ := json.Marshal(*in.Channels)
			c.Channels = channelsJSON
			changes["channels"] = c.Channels
		}

		if len(in.Config) > 0 {
			result := ValidateConfig(c.Type, in.Config)
			if !result.Valid {
				return errutil.ValidationFailed("config does not match the campaign type schema",
					errutil.WithMessages("config", result.Errors...))
			}
			c.Config = []byte(in.Config)
			changes["config"] = c.Config
		}

		if len(changes) == 0 {
			updated = *c
			return nil
		}

		if err := guardedUpdate(tx, id, StateDraft, changes); err != nil {
			return err
		}

		updated = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ========================================================
// ChangeType
// ========================================================

// ChangeType swaps a draft to another type and reseeds its config from that
// type's template. Refused once the campaign left Draft or the config holds
// user content; the escape hatch is Clone.
func (s *Service) ChangeType(ctx context.Context, id int64, newType Type, preset *TemplatePreset) (*Campaign, error) {
	if !TypeKnown(newType) {
		return nil, errutil.BadRequest(fmt.Sprintf("unsupported campaign type %q", newType))
	}
	if !TypeEnabled(newType) {
		return nil, errutil.BadRequest(fmt.Sprintf("campaign type %q is disabled", newType))
	}

	var updated Campaign

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		c, err := findByID(tx, id)
		if err != nil {
			return err
		}
		if c.Type == newType {
			updated = *c
			return nil
		}
		if c.State != StateDraft {
			return errutil.Conflict("campaign type is immutable after leaving Draft; clone the campaign to convert it")
		}
		if HasMeaningfulConfig(c.Type, c.Config) {
			return errutil.Conflict("campaign type is immutable once content exists; clone the campaign to convert it")
		}

		template, err := TemplateFor(newType, preset)
		if err != nil {
			return err
		}

		changes := map[string]interface{}{
			"type":             newType,
			"template_version": template.TemplateVersion,
			"config":           []byte(template.Config),
		}
		if err := guardedUpdate(tx, id, StateDraft, changes); err != nil {
			return err
		}

		c.Type = newType
		c.TemplateVersion = template.TemplateVersion
		c.Config = []byte(template.Config)
		updated = *c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

// ========================================================
// List
// ========================================================

type ListFilter struct {
	State State `form:"state"`
	Type  Type  `form:"type"`
}

var listSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"title":     "title",
	"startDate": "start_at",
	"state":     "state",
}

// List pages through campaigns newest first. Deleted rows are hidden unless
// the caller filters for that state explicitly.
func (s *Service) List(ctx context.Context, filter ListFilter, p pagination.Params) ([]Campaign, pagination.PageInfo, error) {
	p.Normalize()

	q := s.db.WithContext(ctx).Model(&Campaign{})

	if filter.State != "" {
		state, known := ParseState(string(filter.State))
		if !known {
			return nil, pagination.PageInfo{}, errutil.BadRequest(fmt.Sprintf("unknown state %q", filter.State))
		}
		q = q.Where("state = ?", state)
	} else {
		q = q.Where("state <> ?", StateDeleted)
	}

	if filter.Type != "" {
		filter.Type = Type(strings.ToUpper(string(filter.Type)))
		if !TypeKnown(filter.Type) {
			return nil, pagination.PageInfo{}, errutil.BadRequest(fmt.Sprintf("unsupported campaign type %q", filter.Type))
		}
		q = q.Where("type = ?", filter.Type)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, pagination.PageInfo{}, errutil.Internal("failed to count campaigns", errutil.WithErr(err))
	}

	order := "created_at DESC"
	if p.Sort != "" {
		field, dir, ok := strings.Cut(p.Sort, ":")
		column, known := listSortColumns[field]
		if !known {
			return nil, pagination.PageInfo{}, errutil.BadRequest(fmt.Sprintf("unsupported sort field %q", field))
		}
		order = column + " ASC"
		if ok && strings.EqualFold(dir, "desc") {
			order = column + " DESC"
		}
	}

	var campaigns []Campaign
	if err := pagination.Apply(q.Order(order), p).Find(&campaigns).Error; err != nil {
		return nil, pagination.PageInfo{}, errutil.Internal("failed to list campaigns", errutil.WithErr(err))
	}

	return campaigns, pagination.BuildPageInfo(p, total), nil
}

// ========================================================
// Clone
// ========================================================

// Clone copies a campaign into a fresh Draft with its own id and business
// code. Dates are cleared so the copy starts its lifecycle over.
func (s *Service) Clone(ctx context.Context, id int64, newTitle string) (*Campaign, error) {
	original, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(newTitle)
	if title == "" {
		title = original.Title + " (copy)"
	}
	title, err = normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	code, err := s.seq.NextCampaignCode(ctx)
	if err != nil {
		return nil, errutil.Internal("failed to mint campaign code", errutil.WithErr(err))
	}

	cloned := *original
	cloned.ID = s.node.Generate().Int64()
	cloned.CampaignID = code
	cloned.Title = title
	cloned.State = StateDraft
	cloned.StartAt = nil
	cloned.EndAt = nil
	cloned.CreatedAt = time.Time{}
	cloned.UpdatedAt = time.Time{}

	if err := s.db.WithContext(ctx).Create(&cloned).Error; err != nil {
		s.logger.Error("failed to clone campaign", zap.Error(err))
		return nil, errutil.Internal("failed to clone campaign", errutil.WithErr(err))
	}

	return &cloned, nil
}

// ========================================================
// Catalogs
// ========================================================

// Channels returns the channel catalog from config.
func (s *Service) Channels() []string {
	out := make([]string, len(s.cfg.Channels))
	copy(out, s.cfg.Channels)
	return out
}

func (s *Service) validateChannels(channels []string) error {
	known := make(map[string]bool, len(s.cfg.Channels))
	for _, ch := range s.cfg.Channels {
		known[ch] = true
	}
	seen := make(map[string]bool, len(channels))
	for _, ch := range channels {
		if !known[ch] {
			return errutil.ValidationFailed(fmt.Sprintf("unknown channel %q", ch))
		}
		if seen[ch] {
			return errutil.ValidationFailed(fmt.Sprintf("duplicate channel %q", ch))
		}
		seen[ch] = true
	}
	return nil
}

// ========================================================
// Shared helpers
// ========================================================

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return defaultTitle, nil
	}
	if len(title) > 255 {
		return "", errutil.ValidationFailed("title must be at most 255 characters")
	}
	return title, nil
}

func findByID(tx *gorm.DB, id int64) (*Campaign, error) {
	var c Campaign
	if err := tx.Where("id = ?", id).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errutil.NotFound("campaign not found")
		}
		return nil, errutil.Internal("failed to load campaign", errutil.WithErr(err))
	}
	return &c, nil
}

// guardedUpdate applies changes only if the row still holds the observed
// state. A concurrent writer that moved the row first makes RowsAffected
// zero, which surfaces as a conflict instead of a silent overwrite.
func guardedUpdate(tx *gorm.DB, id int64, observed State, changes map[string]interface{}) error {
	res := tx.Model(&Campaign{}).
		Where("id = ? AND state = ?", id, observed).
		Updates(changes)
	if res.Error != nil {
		return errutil.Internal("failed to update campaign", errutil.WithErr(res.Error))
	}
	if res.RowsAffected == 0 {
		return errutil.Conflict("campaign was modified concurrently")
	}
	return nil
}
