package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "vetcare-reminders/internal/common/errors"
)

func TestRenderSubstitutesAllVariables(t *testing.T) {
	body := "Hi {client_name}, {patient_name} is due for vaccination on {date}."
	ctx := map[string]string{
		"client_name":  "Dana",
		"patient_name": "Rex",
		"date":         "2026-09-01",
	}

	out, err := Render(body, ctx)
	require.NoError(t, err)
	assert.Equal(t, "Hi Dana, Rex is due for vaccination on 2026-09-01.", out)
	assert.NotContains(t, out, "{")
	assert.NotContains(t, out, "}")
}

func TestRenderIsDeterministic(t *testing.T) {
	body := "Reminder for {patient_name} at {time}."
	ctx := map[string]string{"patient_name": "Milo", "time": "14:30"}

	first, err := Render(body, ctx)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := Render(body, ctx)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestRenderFailsOnUnresolvedVariable(t *testing.T) {
	body := "Hi {client_name}, {patient_name} is due on {date}."
	ctx := map[string]string{
		"client_name":  "Dana",
		"patient_name": "Rex",
	}

	out, err := Render(body, ctx)
	require.Error(t, err)
	assert.Empty(t, out)
	assert.True(t, apperrors.IsCode(err, apperrors.ErrCodeTemplateRenderError))
	assert.Contains(t, apperrors.AsError(err).Details, "date")
	assert.False(t, apperrors.IsRetryable(err))
}

func TestRenderKeepsNonVariableBraces(t *testing.T) {
	cases := []struct {
		name string
		in   string
		ctx  map[string]string
		want string
	}{
		{"empty braces", "a {} b", nil, "a {} b"},
		{"spaces inside", "a {not a var} b", nil, "a {not a var} b"},
		{"unterminated", "a {client", nil, "a {client"},
		{"no placeholders", "plain text", nil, "plain text"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := Render(tc.in, tc.ctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, out)
		})
	}
}

func TestVars(t *testing.T) {
	body := "Hi {client_name}, {patient_name} is due on {date}. See you, {client_name}!"
	assert.Equal(t, []string{"client_name", "patient_name", "date"}, Vars(body))
	assert.Empty(t, Vars("no placeholders"))
}

func TestNeedsRender(t *testing.T) {
	assert.True(t, NeedsRender("due on {date}"))
	assert.False(t, NeedsRender("due on 2026-09-01"))
	assert.False(t, NeedsRender("a {} b"))
}
