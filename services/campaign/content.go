package campaign

import (
	"bytes"
	"encoding/json"
)

// Content payloads, one per campaign type. Required-ness is "key present":
// pointer fields distinguish an omitted key from an empty value, because seed
// templates carry every key with blank content and must validate clean.

type OfferBanner struct {
	ImageURL    string `json:"imageUrl"`
	Header      string `json:"header"`
	Description string `json:"description"`
	CTA         string `json:"cta"`
	SKU         string `json:"sku"`
	FormLabel   string `json:"formLabel"`
}

type OfferContent struct {
	Banners []OfferBanner `json:"banners"`
}

type PollContent struct {
	Question        *string   `json:"question"`
	Options         *[]string `json:"options"`
	RecordSelection *bool     `json:"recordSelection"`
}

type QuizQuestion struct {
	Prompt       *string      `json:"prompt"`
	Choices      *[]string    `json:"choices"`
	CorrectIndex *json.Number `json:"correctIndex"`
}

type QuizContent struct {
	Questions *[]QuizQuestion `json:"questions"`
}

type QuestImages struct {
	Complete   *string `json:"complete"`
	Incomplete *string `json:"incomplete"`
}

type QuestAction struct {
	Key         *string      `json:"key"`
	Header      *string      `json:"header"`
	Description *string      `json:"description"`
	Images      *QuestImages `json:"images"`
}

type QuestReward struct {
	Type  *string `json:"type"`
	Value *string `json:"value"`
}

type QuestDisplay struct {
	Image       *string `json:"image"`
	Header      *string `json:"header"`
	Description *string `json:"description"`
}

type QuestContent struct {
	Actions []QuestAction `json:"actions"`
	Reward  *QuestReward  `json:"reward"`
	Display *QuestDisplay `json:"display"`
}

type HeroBannerCTA struct {
	Label *string `json:"label"`
	URL   *string `json:"url"`
}

// HeroBannerContent is reserved: the type is disabled in the catalog but its
// schema is kept for forward compatibility.
type HeroBannerContent struct {
	ImageURL *string        `json:"imageUrl"`
	Headline *string        `json:"headline"`
	CTA      *HeroBannerCTA `json:"cta"`
}

// ========================================================
// Variant envelope
// ========================================================

// Variant is one market-specific copy of the campaign content. Market is
// optional while drafting; the publishability gate makes it mandatory.
type Variant struct {
	ID     string          `json:"id,omitempty"`
	Market string          `json:"market,omitempty"`
	Config json.RawMessage `json:"config"`
}

type variantEnvelope struct {
	Variants json.RawMessage `json:"variants"`
}

// ExtractVariants returns the variant list when the config uses the
// multi-market shape, i.e. config.variants is a JSON array.
func ExtractVariants(raw []byte) (variants []Variant, isVariantForm bool, err error) {
	if len(raw) == 0 {
		return nil, false, nil
	}

	var envelope variantEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, false, err
	}
	if envelope.Variants == nil {
		return nil, false, nil
	}

	trimmed := bytes.TrimSpace(envelope.Variants)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false, nil
	}

	if err := json.Unmarshal(trimmed, &variants); err != nil {
		return nil, true, err
	}
	return variants, true, nil
}
