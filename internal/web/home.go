// Package web holds the gateway's server-rendered views. The gateway is
// headless for game traffic (phones and TVs talk websocket and JSON), so the
// only page is an operator status view.
package web

import (
	"context"
	"fmt"
	"html"
	"io"

	"github.com/a-h/templ"
)

// Status is the data the home view renders.
type Status struct {
	Games  []string
	Rooms  int
	Uptime string
}

func Home(status Status) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, _ = io.WriteString(w, `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8"/>
    <meta name="viewport" content="width=device-width, initial-scale=1"/>
    <title>Party Deck</title>
  </head>
  <body>
    <main>
      <header>
        <h1>Party Deck sync gateway</h1>
        <p>Document store, live subscriptions, content pools.</p>
      </header>
      <section>
        <h2>Status</h2>
        <p>Up for `)
		_, _ = io.WriteString(w, html.EscapeString(status.Uptime))
		_, _ = fmt.Fprintf(w, `. %d active rooms.</p>
      </section>
      <section>
        <h2>Loaded pools</h2>
`, status.Rooms)
		if len(status.Games) == 0 {
			_, _ = io.WriteString(w, `        <p>No content pools loaded.</p>
`)
		} else {
			_, _ = io.WriteString(w, `        <ul>
`)
			for _, game := range status.Games {
				_, _ = fmt.Fprintf(w, "          <li>%s</li>\n", html.EscapeString(game))
			}
			_, _ = io.WriteString(w, `        </ul>
`)
		}
		_, _ = io.WriteString(w, `      </section>
      <section>
        <h2>Endpoints</h2>
        <ul>
          <li><code>GET /ws/store</code> subscribe to documents and queries</li>
          <li><code>POST /api/store/merge</code> merge fields into a document</li>
          <li><code>POST /api/store/append</code> append into a collection</li>
          <li><code>GET /api/pools</code> list loaded games</li>
          <li><code>GET /api/pools/{gameId}</code> pool items, answers stripped</li>
          <li><code>POST /api/pools/{gameId}/check</code> check a guess</li>
        </ul>
      </section>
    </main>
  </body>
</html>
`)
		return nil
	})
}
