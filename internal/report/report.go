// Package report renders a search run as Markdown and HTML.
package report

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"featuregraph/internal/search"

	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
)

// Input is everything a report shows
type Input struct {
	RunID    string
	Dataset  string
	Target   string
	Ranking  string
	Budget   int
	Duration time.Duration
	Result   *search.Result
}

// Markdown renders the report as a Markdown document
func Markdown(in Input) []byte {
	res := in.Result
	var b bytes.Buffer

	fmt.Fprintf(&b, "# Feature search report\n\n")
	fmt.Fprintf(&b, "| | |\n|---|---|\n")
	if in.RunID != "" {
		fmt.Fprintf(&b, "| Run | `%s` |\n", in.RunID)
	}
	fmt.Fprintf(&b, "| Dataset | %s |\n", escape(in.Dataset))
	fmt.Fprintf(&b, "| Target | %s (%s) |\n", escape(in.Target), res.Task)
	fmt.Fprintf(&b, "| Ranking | %s |\n", in.Ranking)
	fmt.Fprintf(&b, "| Nodes | %d of budget %d |\n", res.Graph.Derived(), in.Budget)
	fmt.Fprintf(&b, "| Stopped | %s |\n", res.Termination)
	if in.Duration > 0 {
		fmt.Fprintf(&b, "| Duration | %s |\n", in.Duration.Round(time.Millisecond))
	}
	fmt.Fprintf(&b, "| Root reward | %.6f |\n", res.Root.Reward)
	fmt.Fprintf(&b, "| Best reward | %.6f (node %d) |\n\n", res.Best.Reward, res.Best.ID)

	b.WriteString("## New columns\n\n")
	if len(res.NewColumns) == 0 {
		b.WriteString("No transformation improved on the original features.\n\n")
	} else {
		for _, c := range res.NewColumns {
			kind := "computed from the row"
			if res.Replay[c].Grouped() {
				kind = fmt.Sprintf("aggregated over %d groups", len(res.Replay[c].Groups))
			}
			fmt.Fprintf(&b, "- `%s`: %s\n", c, kind)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Best path\n\n")
	if len(res.Best.Applied) == 0 {
		b.WriteString("root\n\n")
	} else {
		fmt.Fprintf(&b, "root → %s\n\n", strings.Join(res.Best.Applied, " → "))
	}

	b.WriteString("## Graph\n\n")
	b.WriteString("| Node | Parent | Level | Transformation | Reward | Cumulative | Improvement |\n")
	b.WriteString("|---:|---:|---:|---|---:|---:|---:|\n")
	for _, n := range res.Graph.Nodes() {
		parent, t := "", ""
		if n.ID != 0 {
			parent = fmt.Sprint(n.Parent)
			t = n.Applied[len(n.Applied)-1]
		}
		marker := ""
		if n.ID == res.Best.ID {
			marker = " **best**"
		}
		fmt.Fprintf(&b, "| %d%s | %s | %d | %s | %.6f | %.6f | %.6f |\n",
			n.ID, marker, parent, n.Level, t, n.Reward, n.Cumulative, n.Improvement)
	}
	return b.Bytes()
}

// HTML renders the report as a complete HTML page
func HTML(in Input) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions)
	renderer := html.NewRenderer(html.RendererOptions{
		Title: "Feature search report",
		Flags: html.CommonFlags | html.CompletePage,
	})
	return markdown.ToHTML(Markdown(in), p, renderer)
}

func escape(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
