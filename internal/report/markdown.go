package report

import (
	"fmt"
	"io"
	"strings"
)

// MarkdownGenerator generates a Markdown summary, grounded on the
// teacher's equivalent generator but narrowed to a campaign's peers and
// crashes instead of severity-bucketed web anomalies.
type MarkdownGenerator struct {
	// IncludeDetails additionally renders each crash's byte-size and
	// preview; without it, only peer name/id/timestamp are listed.
	IncludeDetails bool
}

// Generate implements Generator.
func (g *MarkdownGenerator) Generate(report *CampaignReport, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", report.Title)
	fmt.Fprintf(&b, "Generated: %s  \n", report.GeneratedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&b, "Duration: %s\n\n", report.Duration)

	b.WriteString("## Summary\n\n")
	fmt.Fprintf(&b, "- Peers: %d\n", len(report.Peers))
	fmt.Fprintf(&b, "- Total execs: %d\n", report.TotalExecs())
	fmt.Fprintf(&b, "- Total corpus size: %d\n", report.TotalCorpusSize())
	fmt.Fprintf(&b, "- Total solutions: %d\n\n", report.TotalSolutions())

	b.WriteString("## Peers\n\n")
	b.WriteString("| Name | Execs | Corpus | Solutions |\n")
	b.WriteString("|---|---|---|---|\n")
	for _, p := range report.Peers {
		fmt.Fprintf(&b, "| %s | %d | %d | %d |\n", p.Name, p.Execs, p.CorpusSize, p.SolutionsCount)
	}
	b.WriteString("\n")

	b.WriteString("## Crashes Found\n\n")
	if len(report.Crashes) == 0 {
		b.WriteString("No crashes detected.\n")
	} else {
		for _, c := range report.Crashes {
			fmt.Fprintf(&b, "- %s `%s` (peer %s, %s)\n", crashEmoji(), c.Id, c.PeerName, c.DiscoveredAt.Format("2006-01-02 15:04:05"))
			if g.IncludeDetails {
				fmt.Fprintf(&b, "  - size: %d bytes\n", c.Size)
				fmt.Fprintf(&b, "  - preview: `%s`\n", truncate(c.Preview, 100))
			}
		}
	}

	_, err := w.Write([]byte(b.String()))
	return err
}

// Extension implements Generator.
func (g *MarkdownGenerator) Extension() string { return "md" }

// crashEmoji marks a crash entry in the Markdown list; every entry uses
// the same marker since the kernel's objective feedback has no severity
// scale of its own.
func crashEmoji() string { return "\U0001F4A5" }

// truncate shortens s to at most n runes, appending "..." when it does.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
