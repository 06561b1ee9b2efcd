// Package digest renders and sends the weekly email of freshly extracted
// ideas, grouped by source video.
package digest

import (
	"bytes"
	"html/template"

	"tubedigest/features/idea"
)

type Section struct {
	VideoTitle string
	VideoURL   string
	Ideas      []idea.Idea
}

type Email struct {
	GeneratedAt string
	WindowDays  int
	Sections    []Section
}

const emailTemplate = `<html>
<body style="font-family: sans-serif; max-width: 640px; margin: 0 auto;">
  <h1>Key ideas this week</h1>
  <p>{{ .GeneratedAt }} &middot; last {{ .WindowDays }} days</p>
  {{ range .Sections }}
  <h2>{{ if .VideoURL }}<a href="{{ .VideoURL }}">{{ .VideoTitle }}</a>{{ else }}{{ .VideoTitle }}{{ end }}</h2>
  <ul>
    {{ range .Ideas }}
    <li>
      <strong>{{ .Title }}</strong><br/>
      {{ .Summary }}
      {{ if .Keywords }}<br/><em>{{ range $i, $k := .Keywords }}{{ if $i }}, {{ end }}{{ $k }}{{ end }}</em>{{ end }}
    </li>
    {{ end }}
  </ul>
  {{ end }}
  {{ if not .Sections }}<p>No new ideas were extracted this week.</p>{{ end }}
</body>
</html>`

var tmpl = template.Must(template.New("digest").Parse(emailTemplate))

func Render(email Email) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, email); err != nil {
		return "", err
	}
	return buf.String(), nil
}
