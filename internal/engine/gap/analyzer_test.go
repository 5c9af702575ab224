// internal/engine/gap/analyzer_test.go
package gap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cohort-workers/internal/engine/extract"
	"cohort-workers/internal/models"
)

func newTestAnalyzer() *Analyzer {
	return NewAnalyzer(extract.NewAt(2026))
}

func TestAnalyze_CompleteSet(t *testing.T) {
	a := newTestAnalyzer()

	result, err := a.Analyze(models.RawResponseSet{
		models.SlotBirthDate: "I was born in 1985 in Columbus",
	})
	require.NoError(t, err)

	assert.False(t, result.NeedsFollowUp)
	assert.True(t, result.HasBirthTimeframe)
	assert.True(t, result.HasGeography)
	assert.False(t, result.MissingInfo.BirthTimeframe)
	assert.False(t, result.MissingInfo.Geography)
	require.NotNil(t, result.Signals.BirthYear)
	assert.Equal(t, 1985, *result.Signals.BirthYear)
	assert.Equal(t, []string{"Columbus"}, result.Signals.Locations)
}

func TestAnalyze_MissingGeography(t *testing.T) {
	a := newTestAnalyzer()

	result, err := a.Analyze(models.RawResponseSet{
		models.SlotBirthDate: "things were different in the 90s",
	})
	require.NoError(t, err)

	assert.True(t, result.NeedsFollowUp)
	assert.True(t, result.HasBirthTimeframe)
	assert.False(t, result.HasGeography)
	assert.Equal(t, []string{"geography"}, result.MissingInfo.MissingFields())
	require.NotNil(t, result.Signals.BirthDecade)
	assert.Equal(t, 1990, *result.Signals.BirthDecade)
}

func TestAnalyze_NothingRecognizable(t *testing.T) {
	a := newTestAnalyzer()

	result, err := a.Analyze(models.RawResponseSet{
		models.SlotBirthDate:  "I enjoy quiet mornings",
		models.SlotBackground: "my childhood was ordinary",
	})
	require.NoError(t, err)

	assert.True(t, result.NeedsFollowUp)
	assert.False(t, result.HasBirthTimeframe)
	assert.False(t, result.HasGeography)
	assert.Equal(t, []string{"birth timeframe", "geography"}, result.MissingInfo.MissingFields())
}

func TestAnalyze_NeedsFollowUpIsAlwaysOrOfMissingFlags(t *testing.T) {
	a := newTestAnalyzer()

	sets := []models.RawResponseSet{
		{models.SlotBirthDate: "I was born in 1985 in Columbus"},
		{models.SlotBirthDate: "the 90s were wild"},
		{models.SlotBackground: "I grew up in Lagos"},
		{models.SlotBirthDate: "nothing of note"},
	}
	for _, set := range sets {
		result, err := a.Analyze(set)
		require.NoError(t, err)
		assert.Equal(t, result.MissingInfo.BirthTimeframe || result.MissingInfo.Geography, result.NeedsFollowUp)
		assert.Equal(t, !result.HasBirthTimeframe, result.MissingInfo.BirthTimeframe)
		assert.Equal(t, !result.HasGeography, result.MissingInfo.Geography)
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	a := newTestAnalyzer()

	_, err := a.Analyze(models.RawResponseSet{})
	assert.ErrorIs(t, err, ErrEmptyResponses)

	_, err = a.Analyze(models.RawResponseSet{models.SlotBirthDate: ""})
	assert.ErrorIs(t, err, ErrEmptyResponses)

	_, err = a.Analyze(nil)
	assert.ErrorIs(t, err, ErrEmptyResponses)
}

func TestAnalyze_Idempotent(t *testing.T) {
	a := newTestAnalyzer()

	set := models.RawResponseSet{
		models.SlotBirthDate:  "born in '85",
		models.SlotBackground: "raised in Denver",
		"followUp_1":          "we were middle class",
	}

	first, err := a.Analyze(set)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := a.Analyze(set)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  map[string]interface{}
		want models.RawResponseSet
	}{
		{
			name: "canonical keys pass through",
			raw: map[string]interface{}{
				"birthDate":  "born in 1985",
				"background": "from Columbus",
			},
			want: models.RawResponseSet{
				models.SlotBirthDate:  "born in 1985",
				models.SlotBackground: "from Columbus",
			},
		},
		{
			name: "legacy positional keys",
			raw: map[string]interface{}{
				"response0": "born in 1985",
				"response1": "from Columbus",
				"response2": "grunge music",
			},
			want: models.RawResponseSet{
				models.SlotBirthDate:  "born in 1985",
				models.SlotBackground: "from Columbus",
				models.SlotInfluences: "grunge music",
			},
		},
		{
			name: "nested under responses",
			raw: map[string]interface{}{
				"responses": map[string]interface{}{
					"birth_date": "the 90s",
				},
			},
			want: models.RawResponseSet{
				models.SlotBirthDate: "the 90s",
			},
		},
		{
			name: "unclaimed string keys folded in",
			raw: map[string]interface{}{
				"birthDate":  "born in 1985",
				"followUp_2": "I grew up in Lagos",
			},
			want: models.RawResponseSet{
				models.SlotBirthDate: "born in 1985",
				"followUp_2":         "I grew up in Lagos",
			},
		},
		{
			name: "non string values ignored",
			raw: map[string]interface{}{
				"birthDate":  1985,
				"attempts":   float64(2),
				"background": "from Columbus",
			},
			want: models.RawResponseSet{
				models.SlotBackground: "from Columbus",
			},
		},
		{
			name: "nil payload",
			raw:  nil,
			want: models.RawResponseSet{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw))
		})
	}
}
