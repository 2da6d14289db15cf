package mailservice

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRenderTemplate(t *testing.T) {
	tp, err := NewTemplate()
	require.NoError(t, err)

	type welcome struct {
		Name  string
		Email string
	}

	testCases := []struct {
		name         string
		templateName string
		data         any
		expectedErr  bool
		contains     string
	}{
		{
			name:         "welcome email",
			templateName: welcomeTemplate,
			data:         welcome{Name: "Ada", Email: "ada@example.com"},
			contains:     "ada@example.com",
		},
		{
			name:         "escapes html",
			templateName: welcomeTemplate,
			data:         welcome{Name: "<b>Ada</b>", Email: "ada@example.com"},
			contains:     "&lt;b&gt;Ada&lt;/b&gt;",
		},
		{
			name:         "missing field",
			templateName: welcomeTemplate,
			data:         struct{ Name string }{Name: "Ada"},
			expectedErr:  true,
		},
		{
			name:         "invalid template name",
			templateName: "invalid_template.html",
			expectedErr:  true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := tp.Render(tc.templateName, tc.data)
			assert.Equal(t, tc.expectedErr, err != nil)

			if err == nil {
				assert.Contains(t, msg.Subject, "Welcome")
				assert.NotEmpty(t, msg.PlainBody)
				assert.Contains(t, msg.HTMLBody, tc.contains)
			}
		})
	}
}
