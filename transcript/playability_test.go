package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func status(s string) *string { return &s }

func TestClassifyPlayability(t *testing.T) {
	tests := []struct {
		name    string
		videoID string
		ps      *playabilityStatus
		want    Kind
		ok      bool
	}{
		{"no status object", "abc", nil, 0, true},
		{"no status field", "abc", &playabilityStatus{Reason: "whatever"}, 0, true},
		{"ok", "abc", &playabilityStatus{Status: status("OK")}, 0, true},
		{
			"bot detection", "abc",
			&playabilityStatus{Status: status("LOGIN_REQUIRED"), Reason: reasonBotDetected},
			KindRequestBlocked, false,
		},
		{
			"age restricted", "abc",
			&playabilityStatus{Status: status("LOGIN_REQUIRED"), Reason: reasonAgeRestricted},
			KindAgeRestricted, false,
		},
		{
			"unavailable", "abc",
			&playabilityStatus{Status: status("ERROR"), Reason: reasonVideoUnavailable},
			KindVideoUnavailable, false,
		},
		{
			"url passed as id", "https://www.youtube.com/watch?v=abc",
			&playabilityStatus{Status: status("ERROR"), Reason: reasonVideoUnavailable},
			KindInvalidVideoID, false,
		},
		{
			"login required for another reason", "abc",
			&playabilityStatus{Status: status("LOGIN_REQUIRED"), Reason: "Private video"},
			KindVideoUnplayable, false,
		},
		{
			"unknown status", "abc",
			&playabilityStatus{Status: status("UNPLAYABLE")},
			KindVideoUnplayable, false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyPlayability(tt.videoID, tt.ps)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, IsKind(err, tt.want), "got %v", err)
		})
	}
}

func TestClassifyPlayabilitySubreasons(t *testing.T) {
	ps := &playabilityStatus{Status: status("UNPLAYABLE"), Reason: "Video unplayable"}
	ps.ErrorScreen = &struct {
		PlayerErrorMessageRenderer *struct {
			Subreason *struct {
				Runs []textRun `json:"runs"`
			} `json:"subreason"`
		} `json:"playerErrorMessageRenderer"`
	}{}
	ps.ErrorScreen.PlayerErrorMessageRenderer = &struct {
		Subreason *struct {
			Runs []textRun `json:"runs"`
		} `json:"subreason"`
	}{}
	ps.ErrorScreen.PlayerErrorMessageRenderer.Subreason = &struct {
		Runs []textRun `json:"runs"`
	}{Runs: []textRun{{Text: "first"}, {Text: "second"}}}

	err := classifyPlayability("abc", ps)
	var te *Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, KindVideoUnplayable, te.Kind)
	assert.Equal(t, "Video unplayable", te.Reason)
	assert.Equal(t, []string{"first", "second"}, te.Subreasons)
	assert.Contains(t, te.Error(), " - first\n - second\n")
}

func TestClassifyPlayabilityNoSubreasons(t *testing.T) {
	err := classifyPlayability("abc", &playabilityStatus{Status: status("UNPLAYABLE")})
	var te *Error
	require.ErrorAs(t, err, &te)
	assert.NotNil(t, te.Subreasons)
	assert.Empty(t, te.Subreasons)
	assert.Contains(t, te.Error(), "No reason specified!")
}
