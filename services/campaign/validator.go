package campaign

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ValidationResult is the validator's verdict on a config blob.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// ValidateConfig structurally validates a campaign config against its type's
// schema, in both the legacy single-object form and the variant form. Variant
// markets are optional here; the publishability gate applies the stricter
// publish-time rule.
func ValidateConfig(t Type, raw []byte) ValidationResult {
	errs := validateConfigErrors(t, raw)
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func validateConfigErrors(t Type, raw []byte) []string {
	if len(raw) == 0 {
		return []string{"config is required"}
	}

	variants, isVariantForm, err := ExtractVariants(raw)
	if err != nil {
		return []string{fmt.Sprintf("config is malformed: %v", err)}
	}
	if !isVariantForm {
		return validateTypeConfig(t, raw)
	}

	if len(variants) == 0 {
		return []string{"config must contain at least one variant"}
	}

	// Market pass. A blank market is fine while drafting; a present one must
	// be a known code and unique. The first violation wins.
	seen := make(map[string]int, len(variants))
	for i, v := range variants {
		if v.Market == "" {
			continue
		}
		if !IsMarketCode(v.Market) {
			return []string{fmt.Sprintf("(variant #%d) unknown market code %q", i+1, v.Market)}
		}
		if _, dup := seen[v.Market]; dup {
			return []string{fmt.Sprintf("(variant #%d) duplicate market %q", i+1, v.Market)}
		}
		seen[v.Market] = i
	}

	var errs []string
	for i, v := range variants {
		for _, msg := range validateTypeConfig(t, v.Config) {
			errs = append(errs, fmt.Sprintf("(variant #%d) %s", i+1, msg))
		}
	}
	return errs
}

func validateTypeConfig(t Type, raw []byte) []string {
	if len(raw) == 0 {
		return []string{"config is required"}
	}

	switch t {
	case TypeOffer:
		return validateOffer(raw)
	case TypePoll:
		return validatePoll(raw)
	case TypeQuiz:
		return validateQuiz(raw)
	case TypeQuest:
		return validateQuest(raw)
	case TypeHeroBanner:
		return validateHeroBanner(raw)
	default:
		return []string{fmt.Sprintf("unsupported campaign type %q", t)}
	}
}

func validateOffer(raw []byte) []string {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()

	var content OfferContent
	if err := dec.Decode(&content); err != nil {
		return []string{fmt.Sprintf("offer config is malformed: %v", err)}
	}
	if content.Banners == nil {
		return []string{"banners is required"}
	}
	if len(content.Banners) < 1 {
		return []string{"banners must contain at least 1 item"}
	}
	return nil
}

func validatePoll(raw []byte) []string {
	var content PollContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return []string{fmt.Sprintf("poll config is malformed: %v", err)}
	}

	var errs []string
	if content.Question == nil {
		errs = append(errs, "question is required")
	}
	if content.Options == nil {
		errs = append(errs, "options is required")
	} else if len(*content.Options) != 2 {
		errs = append(errs, "options must contain exactly 2 items")
	}
	if content.RecordSelection == nil {
		errs = append(errs, "recordSelection is required")
	}
	return errs
}

func validateQuiz(raw []byte) []string {
	var content QuizContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return []string{fmt.Sprintf("quiz config is malformed: %v", err)}
	}

	if content.Questions == nil {
		return []string{"questions is required"}
	}
	questions := *content.Questions
	var errs []string
	if len(questions) < 3 {
		errs = append(errs, "questions must contain at least 3 items")
	}
	for i, q := range questions {
		if q.Prompt == nil {
			errs = append(errs, fmt.Sprintf("questions[%d].prompt is required", i))
		}
		if q.Choices == nil {
			errs = append(errs, fmt.Sprintf("questions[%d].choices is required", i))
		} else if len(*q.Choices) != 3 {
			errs = append(errs, fmt.Sprintf("questions[%d].choices must contain exactly 3 items", i))
		}
		if q.CorrectIndex == nil {
			errs = append(errs, fmt.Sprintf("questions[%d].correctIndex is required", i))
		} else if n, err := q.CorrectIndex.Int64(); err != nil || n < 0 || n > 2 {
			// Int64 rejects floats, so 1.5 fails the same way 5 does.
			errs = append(errs, fmt.Sprintf("questions[%d].correctIndex must be 0, 1, or 2", i))
		}
	}
	return errs
}

func validateQuest(raw []byte) []string {
	var content QuestContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return []string{fmt.Sprintf("quest config is malformed: %v", err)}
	}

	var errs []string
	if content.Actions == nil {
		errs = append(errs, "actions is required")
	} else if len(content.Actions) != 4 {
		errs = append(errs, "actions must contain exactly 4 items")
	}
	for i, action := range content.Actions {
		if action.Key == nil {
			errs = append(errs, fmt.Sprintf("actions[%d].key is required", i))
		}
		if action.Header == nil {
			errs = append(errs, fmt.Sprintf("actions[%d].header is required", i))
		}
		if action.Description == nil {
			errs = append(errs, fmt.Sprintf("actions[%d].description is required", i))
		}
		if action.Images == nil {
			errs = append(errs, fmt.Sprintf("actions[%d].images is required", i))
		} else {
			if action.Images.Complete == nil {
				errs = append(errs, fmt.Sprintf("actions[%d].images.complete is required", i))
			}
			if action.Images.Incomplete == nil {
				errs = append(errs, fmt.Sprintf("actions[%d].images.incomplete is required", i))
			}
		}
	}

	if content.Reward == nil {
		errs = append(errs, "reward is required")
	} else {
		if content.Reward.Type == nil {
			errs = append(errs, "reward.type is required")
		}
		if content.Reward.Value == nil {
			errs = append(errs, "reward.value is required")
		}
	}

	if content.Display == nil {
		errs = append(errs, "display is required")
	} else {
		if content.Display.Image == nil {
			errs = append(errs, "display.image is required")
		}
		if content.Display.Header == nil {
			errs = append(errs, "display.header is required")
		}
		if content.Display.Description == nil {
			errs = append(errs, "display.description is required")
		}
	}
	return errs
}

func validateHeroBanner(raw []byte) []string {
	var content HeroBannerContent
	if err := json.Unmarshal(raw, &content); err != nil {
		return []string{fmt.Sprintf("hero banner config is malformed: %v", err)}
	}

	var errs []string
	if content.ImageURL == nil {
		errs = append(errs, "imageUrl is required")
	}
	if content.Headline == nil {
		errs = append(errs, "headline is required")
	}
	if content.CTA == nil {
		errs = append(errs, "cta is required")
	} else {
		if content.CTA.Label == nil {
			errs = append(errs, "cta.label is required")
		}
		if content.CTA.URL == nil {
			errs = append(errs, "cta.url is required")
		}
	}
	return errs
}
