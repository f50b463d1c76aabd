package campaign

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"campaign-console/pkg/config"
	"campaign-console/pkg/db/pagination"
	"campaign-console/pkg/sequence"
	"campaign-console/services/testutil"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &Campaign{})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	seq, err := sequence.NewGormGenerator(db)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Channels = []string{"web", "email", "push", "sms", "in_app"}

	return NewService(ServiceParams{
		DB:     db,
		Node:   node,
		Seq:    seq,
		Config: cfg,
		Logger: zap.NewNop(),
	})
}

// draftPoll creates a publishable-ready POLL draft: valid content and one
// channel selected.
func draftPoll(t *testing.T, svc *Service) *Campaign {
	t.Helper()

	created, err := svc.Create(context.Background(), CreateInput{
		Type:     TypePoll,
		Title:    "Taste test",
		Channels: []string{"web"},
	})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{
		Config: json.RawMessage(validPollConfig),
	})
	require.NoError(t, err)
	return updated
}

func TestServiceCreateDefaults(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, CreateInput{Type: TypeQuiz, Preset: &TemplatePreset{QuestionCount: 10}})
	require.NoError(t, err)

	require.Equal(t, StateDraft, created.State)
	require.Equal(t, defaultTitle, created.Title)
	require.NotZero(t, created.ID)

	year := time.Now().UTC().Year()
	require.Equal(t, fmt.Sprintf("CAMP-%d-001", year), created.CampaignID)

	var markets string
	require.NoError(t, json.Unmarshal(created.Markets, &markets))
	require.Equal(t, MarketsAll, markets)

	// seeded from the 10-question template
	var content QuizContent
	require.NoError(t, json.Unmarshal(created.Config, &content))
	require.Len(t, *content.Questions, 10)

	// template configs are always valid
	require.True(t, ValidateConfig(created.Type, created.Config).Valid)

	second, err := svc.Create(ctx, CreateInput{Type: TypeOffer})
	require.NoError(t, err)
	require.Equal(t, fmt.Sprintf("CAMP-%d-002", year), second.CampaignID)
}

func TestServiceCreateRejections(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Type: Type("SKYWRITING")})
	require.ErrorContains(t, err, "unsupported campaign type")

	_, err = svc.Create(ctx, CreateInput{Type: TypeHeroBanner})
	require.ErrorContains(t, err, "disabled")

	_, err = svc.Create(ctx, CreateInput{Type: TypePoll, Markets: json.RawMessage(`["US","US"]`)})
	require.ErrorContains(t, err, "duplicate market code")

	_, err = svc.Create(ctx, CreateInput{Type: TypePoll, Channels: []string{"carrier_pigeon"}})
	require.ErrorContains(t, err, "unknown channel")

	_, err = svc.Create(ctx, CreateInput{Type: TypePoll, Title: strings.Repeat("x", 256)})
	require.ErrorContains(t, err, "at most 255 characters")
}

func TestServiceUpdateDraftOnly(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c := draftPoll(t, svc)
	_, err := svc.Publish(ctx, c.ID, nil, nil)
	require.NoError(t, err)

	_, err = svc.Update(ctx, c.ID, UpdateInput{Title: strPtr("Renamed")})
	require.ErrorContains(t, err, "only Draft campaigns can be edited")
}

func TestServiceUpdateInvalidConfigNeverPersisted(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c := draftPoll(t, svc)

	_, err := svc.Update(ctx, c.ID, UpdateInput{
		Title:  strPtr("Should not stick"),
		Config: json.RawMessage(`{"options":["A","B","C"],"recordSelection":true}`),
	})
	require.ErrorContains(t, err, "config does not match the campaign type schema")

	// nothing from the failed update landed, including the valid title
	reloaded, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, "Taste test", reloaded.Title)
	require.JSONEq(t, validPollConfig, string(reloaded.Config))
}

func TestServiceUpdateDateInvariant(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c := draftPoll(t, svc)

	start := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	end := start.Add(-time.Hour)
	_, err := svc.Update(ctx, c.ID, UpdateInput{StartAt: &start, EndAt: &end})
	require.ErrorContains(t, err, "startDate must be before endDate")

	end = start.Add(48 * time.Hour)
	updated, err := svc.Update(ctx, c.ID, UpdateInput{StartAt: &start, EndAt: &end})
	require.NoError(t, err)
	require.True(t, updated.DatesValid())
}

func TestServiceChangeType(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	pristine, err := svc.Create(ctx, CreateInput{Type: TypePoll})
	require.NoError(t, err)

	changed, err := svc.ChangeType(ctx, pristine.ID, TypeOffer, nil)
	require.NoError(t, err)
	require.Equal(t, TypeOffer, changed.Type)
	require.True(t, ValidateConfig(TypeOffer, changed.Config).Valid)

	// once content exists the type is locked
	edited := draftPoll(t, svc)
	_, err = svc.ChangeType(ctx, edited.ID, TypeOffer, nil)
	require.ErrorContains(t, err, "immutable once content exists")

	// leaving Draft locks it too, even with template content
	published := draftPoll(t, svc)
	_, err = svc.Publish(ctx, published.ID, nil, nil)
	require.NoError(t, err)
	_, err = svc.ChangeType(ctx, published.ID, TypeQuest, nil)
	require.ErrorContains(t, err, "immutable after leaving Draft")

	_, err = svc.ChangeType(ctx, pristine.ID, TypeHeroBanner, nil)
	require.ErrorContains(t, err, "disabled")
}

func TestServiceList(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		c, err := svc.Create(ctx, CreateInput{Type: TypePoll, Title: fmt.Sprintf("poll %d", i)})
		require.NoError(t, err)
		ids = append(ids, c.ID)
	}
	offer, err := svc.Create(ctx, CreateInput{Type: TypeOffer, Title: "offer"})
	require.NoError(t, err)

	require.NoError(t, svc.SoftDelete(ctx, ids[0]))

	// deleted rows are hidden by default
	campaigns, info, err := svc.List(ctx, ListFilter{}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, campaigns, 3)
	require.EqualValues(t, 3, info.TotalCount)
	for _, c := range campaigns {
		require.NotEqual(t, StateDeleted, c.State)
	}

	// asking for Deleted explicitly shows them
	campaigns, _, err = svc.List(ctx, ListFilter{State: StateDeleted}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	require.Equal(t, ids[0], campaigns[0].ID)

	// type filter
	campaigns, _, err = svc.List(ctx, ListFilter{Type: TypeOffer}, pagination.Params{})
	require.NoError(t, err)
	require.Len(t, campaigns, 1)
	require.Equal(t, offer.ID, campaigns[0].ID)

	// pagination
	campaigns, info, err = svc.List(ctx, ListFilter{}, pagination.Params{Page: 1, Limit: 2})
	require.NoError(t, err)
	require.Len(t, campaigns, 2)
	require.EqualValues(t, 3, info.TotalCount)
	require.True(t, info.HasMore)

	// sort whitelist
	_, _, err = svc.List(ctx, ListFilter{}, pagination.Params{Sort: "config:asc"})
	require.ErrorContains(t, err, "unsupported sort field")

	campaigns, _, err = svc.List(ctx, ListFilter{}, pagination.Params{Sort: "title:asc"})
	require.NoError(t, err)
	require.Equal(t, "offer", campaigns[0].Title)
}

func TestServiceClone(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	original := draftPoll(t, svc)
	_, err := svc.Publish(ctx, original.ID, nil, nil)
	require.NoError(t, err)

	cloned, err := svc.Clone(ctx, original.ID, "")
	require.NoError(t, err)

	require.NotEqual(t, original.ID, cloned.ID)
	require.NotEqual(t, original.CampaignID, cloned.CampaignID)
	require.Equal(t, "Taste test (copy)", cloned.Title)
	require.Equal(t, StateDraft, cloned.State)
	require.Nil(t, cloned.StartAt)
	require.Nil(t, cloned.EndAt)
	require.JSONEq(t, string(original.Config), string(cloned.Config))
}

func TestServiceReportDeterministic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c := draftPoll(t, svc)

	first, err := svc.Report(ctx, c.ID)
	require.NoError(t, err)
	second, err := svc.Report(ctx, c.ID)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Positive(t, first.Impressions)
	require.GreaterOrEqual(t, first.Impressions, first.Clicks)
	require.GreaterOrEqual(t, first.Clicks, first.Conversions)
	require.Len(t, first.ByChannel, 1)
}

// A writer whose observed state went stale must lose: the guard matches zero
// rows and surfaces a conflict instead of clobbering the newer row.
func TestGuardedUpdateStaleState(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	c := draftPoll(t, svc)

	err := guardedUpdate(svc.db, c.ID, StateLive, map[string]interface{}{
		"state": StateComplete,
	})
	require.ErrorContains(t, err, "campaign was modified concurrently")

	reloaded, err := svc.Get(ctx, c.ID)
	require.NoError(t, err)
	require.Equal(t, StateDraft, reloaded.State)
}

func TestServiceGetNotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Get(context.Background(), 123456789)
	require.ErrorContains(t, err, "campaign not found")
}
