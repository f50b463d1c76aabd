package campaign

import (
	"encoding/json"
	"fmt"
	"strings"

	"campaign-console/pkg/errutil"

	"gorm.io/datatypes"
)

// currentTemplateVersion tags the seed-template shapes below. Bump when a
// template's structure changes so old rows remain identifiable.
const currentTemplateVersion = 1

const (
	quizSizeShort = 3
	quizSizeLong  = 10
)

type TypePreset struct {
	Name          string `json:"name"`
	QuestionCount int    `json:"questionCount,omitempty"`
}

type TypeInfo struct {
	Type     Type         `json:"type"`
	Label    string       `json:"label"`
	Presets  []TypePreset `json:"presets"`
	Disabled bool         `json:"disabled,omitempty"`
}

// TemplatePreset selects between seed-template variants of a type. Only QUIZ
// has presets today.
type TemplatePreset struct {
	QuestionCount int `json:"questionCount"`
}

type TemplateResult struct {
	Config          datatypes.JSON `json:"config"`
	TemplateVersion int            `json:"templateVersion"`
}

var typeCatalog = []TypeInfo{
	{Type: TypeOffer, Label: "Offer", Presets: []TypePreset{}},
	{Type: TypePoll, Label: "Poll", Presets: []TypePreset{}},
	{Type: TypeQuiz, Label: "Quiz", Presets: []TypePreset{
		{Name: "short", QuestionCount: quizSizeShort},
		{Name: "long", QuestionCount: quizSizeLong},
	}},
	{Type: TypeQuest, Label: "Quest", Presets: []TypePreset{}},
	// Reserved: schema exists, the gate never orchestrates it.
	{Type: TypeHeroBanner, Label: "Hero Banner", Presets: []TypePreset{}, Disabled: true},
}

// ListTypes returns the static type catalog for UI type pickers.
func ListTypes() []TypeInfo {
	out := make([]TypeInfo, len(typeCatalog))
	copy(out, typeCatalog)
	return out
}

// TypeEnabled reports whether t is in the catalog and not disabled.
func TypeEnabled(t Type) bool {
	for _, info := range typeCatalog {
		if info.Type == t {
			return !info.Disabled
		}
	}
	return false
}

func TypeKnown(t Type) bool {
	for _, info := range typeCatalog {
		if info.Type == t {
			return true
		}
	}
	return false
}

// TemplateFor returns a structurally complete, content-empty config for the
// given type. For QUIZ the preset picks 3 or 10 questions; anything else
// falls back to 3.
func TemplateFor(t Type, preset *TemplatePreset) (TemplateResult, error) {
	var content any

	switch t {
	case TypeOffer:
		content = OfferContent{Banners: []OfferBanner{{}}}
	case TypePoll:
		content = PollContent{
			Question:        strPtr(""),
			Options:         strSlicePtr([]string{"", ""}),
			RecordSelection: boolPtr(false),
		}
	case TypeQuiz:
		size := quizSizeShort
		if preset != nil && preset.QuestionCount == quizSizeLong {
			size = quizSizeLong
		}
		questions := make([]QuizQuestion, size)
		for i := range questions {
			questions[i] = QuizQuestion{
				Prompt:       strPtr(""),
				Choices:      strSlicePtr([]string{"", "", ""}),
				CorrectIndex: numberPtr("0"),
			}
		}
		content = QuizContent{Questions: &questions}
	case TypeQuest:
		actions := make([]QuestAction, 4)
		for i := range actions {
			actions[i] = QuestAction{
				Key:         strPtr(""),
				Header:      strPtr(""),
				Description: strPtr(""),
				Images:      &QuestImages{Complete: strPtr(""), Incomplete: strPtr("")},
			}
		}
		content = QuestContent{
			Actions: actions,
			Reward:  &QuestReward{Type: strPtr(""), Value: strPtr("")},
			Display: &QuestDisplay{Image: strPtr(""), Header: strPtr(""), Description: strPtr("")},
		}
	case TypeHeroBanner:
		content = HeroBannerContent{
			ImageURL: strPtr(""),
			Headline: strPtr(""),
			CTA:      &HeroBannerCTA{Label: strPtr(""), URL: strPtr("")},
		}
	default:
		return TemplateResult{}, errutil.BadRequest(fmt.Sprintf("unsupported campaign type %q", t))
	}

	raw, err := json.Marshal(content)
	if err != nil {
		return TemplateResult{}, errutil.Internal("failed to build seed template", errutil.WithErr(err))
	}

	return TemplateResult{Config: raw, TemplateVersion: currentTemplateVersion}, nil
}

// HasMeaningfulConfig reports whether any user-entered field exists in the
// config. It decides whether a type change is still allowed; anything
// unreadable counts as meaningful so a broken blob never unlocks the type.
func HasMeaningfulConfig(t Type, raw []byte) bool {
	if len(raw) == 0 {
		return false
	}

	variants, isVariantForm, err := ExtractVariants(raw)
	if err != nil {
		return true
	}
	if isVariantForm {
		for _, v := range variants {
			if typeConfigMeaningful(t, v.Config) {
				return true
			}
		}
		return false
	}
	return typeConfigMeaningful(t, raw)
}

func typeConfigMeaningful(t Type, raw []byte) bool {
	if len(raw) == 0 {
		return false
	}

	switch t {
	case TypeOffer:
		var content OfferContent
		if json.Unmarshal(raw, &content) != nil {
			return true
		}
		for _, b := range content.Banners {
			if anyNonBlank(b.ImageURL, b.Header, b.Description, b.CTA, b.SKU, b.FormLabel) {
				return true
			}
		}
		return false
	case TypePoll:
		var content PollContent
		if json.Unmarshal(raw, &content) != nil {
			return true
		}
		if content.Question != nil && strings.TrimSpace(*content.Question) != "" {
			return true
		}
		if content.Options != nil && anyNonBlank(*content.Options...) {
			return true
		}
		return content.RecordSelection != nil && *content.RecordSelection
	case TypeQuiz:
		var content QuizContent
		if json.Unmarshal(raw, &content) != nil {
			return true
		}
		if content.Questions == nil {
			return false
		}
		for _, q := range *content.Questions {
			if q.Prompt != nil && strings.TrimSpace(*q.Prompt) != "" {
				return true
			}
			if q.Choices != nil && anyNonBlank(*q.Choices...) {
				return true
			}
			if q.CorrectIndex != nil {
				if n, err := q.CorrectIndex.Int64(); err == nil && n != 0 {
					return true
				}
			}
		}
		return false
	case TypeQuest:
		var content QuestContent
		if json.Unmarshal(raw, &content) != nil {
			return true
		}
		for _, a := range content.Actions {
			if anyNonBlank(deref(a.Key), deref(a.Header), deref(a.Description)) {
				return true
			}
			if a.Images != nil && anyNonBlank(deref(a.Images.Complete), deref(a.Images.Incomplete)) {
				return true
			}
		}
		if content.Reward != nil && anyNonBlank(deref(content.Reward.Type), deref(content.Reward.Value)) {
			return true
		}
		if content.Display != nil &&
			anyNonBlank(deref(content.Display.Image), deref(content.Display.Header), deref(content.Display.Description)) {
			return true
		}
		return false
	case TypeHeroBanner:
		var content HeroBannerContent
		if json.Unmarshal(raw, &content) != nil {
			return true
		}
		if anyNonBlank(deref(content.ImageURL), deref(content.Headline)) {
			return true
		}
		return content.CTA != nil && anyNonBlank(deref(content.CTA.Label), deref(content.CTA.URL))
	default:
		return true
	}
}

func anyNonBlank(values ...string) bool {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return true
		}
	}
	return false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func strSlicePtr(s []string) *[]string { return &s }

func numberPtr(n json.Number) *json.Number { return &n }
