package api

import (
	"bytes"
	"html/template"
	"net/http"
)

var scalarPage = template.Must(template.New("scalar").Parse(`<!DOCTYPE html>
<html>
<head>
	<title>{{.Title}} - API Documentation</title>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<style>body { margin: 0; padding: 0; }</style>
</head>
<body>
	<script id="api-reference" data-url="{{.SpecURL}}"></script>
	<script>
		var configuration = {
			theme: 'solarized',
			layout: 'modern',
			showSidebar: true,
			hideModels: false,
			hideTestRequestButton: false,
			metaData: {
				title: {{.Title}},
				description: {{.Description}}
			},
			authentication: {
				preferredSecurityScheme: 'session',
				apiKey: { name: {{.Header}} }
			},
			servers: [{ url: window.location.origin, description: 'This dashboard' }]
		}
		document.getElementById('api-reference').dataset.configuration = JSON.stringify(configuration)
	</script>
	<script src="https://cdn.jsdelivr.net/npm/@scalar/api-reference"></script>
</body>
</html>`))

// ScalarHandler returns an HTTP handler that serves the Scalar API documentation UI.
func ScalarHandler(specURL, title, description string) http.Handler {
	var buf bytes.Buffer
	err := scalarPage.Execute(&buf, map[string]string{
		"Title":       title,
		"Description": description,
		"SpecURL":     specURL,
		"Header":      SessionHeader,
	})
	page := buf.Bytes()

	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if err != nil {
			http.Error(w, "docs unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(page)
	})
}
