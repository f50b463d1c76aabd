package campaign

import (
	"context"
	"math/rand"
)

// Report is mock performance data for the dashboard. Numbers are generated,
// not collected; seeding the generator with the campaign id keeps them
// stable across requests so the UI does not flicker.
type Report struct {
	CampaignID  string          `json:"campaignId"`
	Title       string          `json:"title"`
	State       State           `json:"state"`
	Impressions int64           `json:"impressions"`
	Clicks      int64           `json:"clicks"`
	Conversions int64           `json:"conversions"`
	CTR         float64         `json:"ctr"`
	ByChannel   []ChannelMetric `json:"byChannel"`
}

type ChannelMetric struct {
	Channel     string `json:"channel"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clicks"`
}

func (s *Service) Report(ctx context.Context, id int64) (*Report, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(c.ID))

	impressions := 10_000 + rng.Int63n(990_000)
	clicks := impressions / (10 + rng.Int63n(40))
	conversions := clicks / (5 + rng.Int63n(20))

	report := &Report{
		CampaignID:  c.CampaignID,
		Title:       c.Title,
		State:       c.State,
		Impressions: impressions,
		Clicks:      clicks,
		Conversions: conversions,
		CTR:         float64(clicks) / float64(impressions),
	}

	remainingImp := impressions
	remainingClicks := clicks
	channels := c.ChannelList()
	for i, ch := range channels {
		imp := remainingImp
		cl := remainingClicks
		if i < len(channels)-1 {
			imp = rng.Int63n(remainingImp + 1)
			cl = rng.Int63n(remainingClicks + 1)
		}
		report.ByChannel = append(report.ByChannel, ChannelMetric{
			Channel:     ch,
			Impressions: imp,
			Clicks:      cl,
		})
		remainingImp -= imp
		remainingClicks -= cl
	}

	return report, nil
}
