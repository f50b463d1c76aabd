package campaign

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const validPollConfig = `{"question":"Tea or coffee?","options":["Tea","Coffee"],"recordSelection":true}`

func TestValidateOffer(t *testing.T) {
	tests := []struct {
		name    string
		config  string
		wantErr string
	}{
		{"valid", `{"banners":[{"imageUrl":"https://cdn/x.png","header":"Sale"}]}`, ""},
		{"missing banners", `{}`, "banners is required"},
		{"empty banners", `{"banners":[]}`, "banners must contain at least 1 item"},
		{"unknown key", `{"banners":[{"header":"x"}],"surprise":true}`, "offer config is malformed"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			result := ValidateConfig(TypeOffer, []byte(tc.config))
			if tc.wantErr == "" {
				require.True(t, result.Valid, "errors: %v", result.Errors)
				return
			}
			require.False(t, result.Valid)
			require.Contains(t, result.Errors[0], tc.wantErr)
		})
	}
}

func TestValidatePoll(t *testing.T) {
	result := ValidateConfig(TypePoll, []byte(validPollConfig))
	require.True(t, result.Valid)

	result = ValidateConfig(TypePoll, []byte(`{"options":["A","B"],"recordSelection":true}`))
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "question is required")

	result = ValidateConfig(TypePoll, []byte(`{"question":"Q","options":["A","B","C"],"recordSelection":true}`))
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "options must contain exactly 2 items")

	result = ValidateConfig(TypePoll, []byte(`{"question":"Q","options":["A","B"]}`))
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "recordSelection is required")
}

func quizConfig(correctIndex string) string {
	q := `{"prompt":"Capital of France?","choices":["Paris","Rome","Bern"],"correctIndex":` + correctIndex + `}`
	return `{"questions":[` + q + `,` + q + `,` + q + `]}`
}

func TestValidateQuiz(t *testing.T) {
	result := ValidateConfig(TypeQuiz, []byte(quizConfig("1")))
	require.True(t, result.Valid)

	// out of range
	result = ValidateConfig(TypeQuiz, []byte(quizConfig("5")))
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "questions[0].correctIndex must be 0, 1, or 2")

	// floats are not indexes
	result = ValidateConfig(TypeQuiz, []byte(quizConfig("1.5")))
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "questions[0].correctIndex must be 0, 1, or 2")

	result = ValidateConfig(TypeQuiz, []byte(`{"questions":[{"prompt":"p","choices":["a","b","c"],"correctIndex":0}]}`))
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "questions must contain at least 3 items")

	result = ValidateConfig(TypeQuiz, []byte(`{"questions":[{"prompt":"p","choices":["a","b"],"correctIndex":0},{"prompt":"p","choices":["a","b","c"],"correctIndex":0},{"prompt":"p","choices":["a","b","c"],"correctIndex":0}]}`))
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "questions[0].choices must contain exactly 3 items")
}

func TestValidateQuest(t *testing.T) {
	action := `{"key":"visit","header":"Visit us","description":"d","images":{"complete":"c.png","incomplete":"i.png"}}`
	valid := `{"actions":[` + action + `,` + action + `,` + action + `,` + action + `],` +
		`"reward":{"type":"points","value":"100"},` +
		`"display":{"image":"q.png","header":"Quest","description":"d"}}`

	result := ValidateConfig(TypeQuest, []byte(valid))
	require.True(t, result.Valid, "errors: %v", result.Errors)

	threeActions := `{"actions":[` + action + `,` + action + `,` + action + `],` +
		`"reward":{"type":"points","value":"100"},` +
		`"display":{"image":"q.png","header":"Quest","description":"d"}}`
	result = ValidateConfig(TypeQuest, []byte(threeActions))
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "actions must contain exactly 4 items")

	noReward := `{"actions":[` + action + `,` + action + `,` + action + `,` + action + `],` +
		`"display":{"image":"q.png","header":"Quest","description":"d"}}`
	result = ValidateConfig(TypeQuest, []byte(noReward))
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "reward is required")

	noImages := `{"actions":[{"key":"k","header":"h","description":"d"},` + action + `,` + action + `,` + action + `],` +
		`"reward":{"type":"points","value":"100"},` +
		`"display":{"image":"q.png","header":"Quest","description":"d"}}`
	result = ValidateConfig(TypeQuest, []byte(noImages))
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "actions[0].images is required")
}

func TestValidateHeroBanner(t *testing.T) {
	result := ValidateConfig(TypeHeroBanner, []byte(`{"imageUrl":"h.png","headline":"New","cta":{"label":"Shop","url":"/shop"}}`))
	require.True(t, result.Valid)

	result = ValidateConfig(TypeHeroBanner, []byte(`{"imageUrl":"h.png","headline":"New","cta":{"label":"Shop"}}`))
	require.False(t, result.Valid)
	require.Contains(t, result.Errors, "cta.url is required")
}

func TestValidateVariants(t *testing.T) {
	t.Run("empty variant list", func(t *testing.T) {
		result := ValidateConfig(TypePoll, []byte(`{"variants":[]}`))
		require.False(t, result.Valid)
		require.Contains(t, result.Errors, "config must contain at least one variant")
	})

	t.Run("valid multi market", func(t *testing.T) {
		config := `{"variants":[{"market":"US","config":` + validPollConfig + `},{"market":"UK","config":` + validPollConfig + `}]}`
		result := ValidateConfig(TypePoll, []byte(config))
		require.True(t, result.Valid, "errors: %v", result.Errors)
	})

	t.Run("blank market allowed while drafting", func(t *testing.T) {
		config := `{"variants":[{"market":"US","config":` + validPollConfig + `},{"config":` + validPollConfig + `}]}`
		result := ValidateConfig(TypePoll, []byte(config))
		require.True(t, result.Valid, "errors: %v", result.Errors)
	})

	t.Run("unknown market", func(t *testing.T) {
		config := `{"variants":[{"market":"XX","config":` + validPollConfig + `}]}`
		result := ValidateConfig(TypePoll, []byte(config))
		require.False(t, result.Valid)
		require.Equal(t, []string{`(variant #1) unknown market code "XX"`}, result.Errors)
	})

	t.Run("duplicate market short circuits", func(t *testing.T) {
		config := `{"variants":[{"market":"US","config":` + validPollConfig + `},{"market":"US","config":` + validPollConfig + `}]}`
		result := ValidateConfig(TypePoll, []byte(config))
		require.False(t, result.Valid)
		require.Equal(t, []string{`(variant #2) duplicate market "US"`}, result.Errors)
	})

	t.Run("nested config validated per variant", func(t *testing.T) {
		config := `{"variants":[{"market":"US","config":` + validPollConfig + `},{"market":"UK","config":{"options":["A","B"],"recordSelection":true}}]}`
		result := ValidateConfig(TypePoll, []byte(config))
		require.False(t, result.Valid)
		require.Contains(t, result.Errors, "(variant #2) question is required")
	})
}

func TestValidateMarketsColumn(t *testing.T) {
	require.NoError(t, ValidateMarkets([]byte(`"all"`)))
	require.NoError(t, ValidateMarkets([]byte(`["US","UK"]`)))

	require.Error(t, ValidateMarkets([]byte(`[]`)))
	require.Error(t, ValidateMarkets([]byte(`["US","US"]`)))
	require.Error(t, ValidateMarkets([]byte(`["ZZ"]`)))
	require.Error(t, ValidateMarkets([]byte(`"some"`)))
}
