package sanitizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSanitizer_HTML(t *testing.T) {
	s := New()

	tests := []struct {
		name  string
		input string
		check func(t *testing.T, out string)
	}{
		{
			name:  "script removed",
			input: `<p>Hola</p><script>alert(1)</script>`,
			check: func(t *testing.T, out string) {
				assert.Equal(t, "<p>Hola</p>", out)
			},
		},
		{
			name:  "links get nofollow",
			input: `<a href="https://ong.example.org">sitio</a>`,
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "nofollow")
				assert.Contains(t, out, "noopener")
				assert.Contains(t, out, `target="_blank"`)
			},
		},
		{
			name:  "event handler attribute dropped",
			input: `<b onclick="x()">negrita</b>`,
			check: func(t *testing.T, out string) {
				assert.Equal(t, "<b>negrita</b>", out)
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, s.HTML(tt.input))
		})
	}
}

func TestSanitizer_Text(t *testing.T) {
	s := New()
	assert.Equal(t, "Falta el informe de la etapa 2", s.Text("<p>Falta el   informe</p>\n<p>de la <b>etapa</b> 2</p>"))
	assert.Equal(t, "", s.Text("<script>alert(1)</script>"))
}
