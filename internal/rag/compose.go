package rag

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"catalog-assistant/internal/catalog"
	"catalog-assistant/internal/knowledge"
	"catalog-assistant/internal/llm"
)

const (
	// minAnswerRunes is the shortest generated answer accepted after trimming.
	minAnswerRunes = 10
	// maxAnswerRunes caps a generated answer for the transport.
	maxAnswerRunes = 500
	// contextProducts is how many lexical matches are given to the generator.
	contextProducts = 5
)

// DefaultCompanyContext is the system prompt used when none is configured.
const DefaultCompanyContext = `You are a helpful assistant for an Indian e-commerce store that sells:
1. Chemicals and raw materials: acetic acid, solvents, industrial chemicals
2. Cleaning products: detergents, soaps, sanitizers, toilet cleaners
3. Perfumes and fragrances: essential oils, perfume bases, aromatic compounds
4. Brushes and equipment: cleaning brushes, industrial brushes, containers
5. DIY kits with step-by-step recipes

Answer in the same language as the question. Use the product context when it is relevant and include prices when they are known. If you do not have specific information, suggest contacting customer service. Keep the answer concise.`

// ExampleQueries are suggested when a search finds nothing.
var ExampleQueries = []string{
	"broom or brush",
	"cleaner",
	"fabric conditioner",
	"floor cleaner",
	"detergent",
	"phenyl",
}

// formatListing renders products and the knowledge section as markdown.
func formatListing(products []catalog.ScoredResult, kb knowledge.Retrieval) string {
	var b strings.Builder

	if len(products) > 0 {
		noun := "products"
		if len(products) == 1 {
			noun = "product"
		}
		fmt.Fprintf(&b, "🛍️ **Found %d %s:**\n\n", len(products), noun)
		for i, r := range products {
			p := r.Product
			fmt.Fprintf(&b, "**%d. %s**\n", i+1, p.Name)
			fmt.Fprintf(&b, "💰 %s\n", formatPrice(p.Price))
			fmt.Fprintf(&b, "📦 %s\n", p.CategoryName)
			fmt.Fprintf(&b, "🆔 ID: %s\n", p.ID)
			if p.Description != "" {
				fmt.Fprintf(&b, "%s\n", p.Description)
			}
			if p.PackSize != "" {
				fmt.Fprintf(&b, "Pack size: %s\n", p.PackSize)
			}
			b.WriteString("\n")
		}
	}

	if kb.Excerpt != "" {
		b.WriteString("🧪 **DIY kit information:**\n\n")
		b.WriteString(kb.Excerpt)
		b.WriteString("\n")
		if len(kb.Results) > 1 {
			names := make([]string, 0, len(kb.Results)-1)
			for _, r := range kb.Results[1:] {
				names = append(names, r.Knowledge.Name)
			}
			fmt.Fprintf(&b, "\nAlso see: %s\n", strings.Join(names, ", "))
		}
	}

	return strings.TrimRight(b.String(), "\n")
}

// formatNoResults lists the snapshot categories and the example queries.
func formatNoResults(query string, categories []catalog.Category) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❌ No products found for %q.\n\n", query)
	b.WriteString("🛍️ **Try searching for:**\n")
	for _, q := range ExampleQueries {
		fmt.Fprintf(&b, "• %s\n", q)
	}
	if len(categories) > 0 {
		names := make([]string, 0, len(categories))
		for _, c := range categories {
			names = append(names, c.Name)
		}
		fmt.Fprintf(&b, "\n📂 **Available categories:** %s\n", strings.Join(names, ", "))
	}
	b.WriteString("\n📞 Contact us for more products!")
	return b.String()
}

func formatPrice(p catalog.Price) string {
	if !p.Known {
		return p.String()
	}
	return "₹" + p.String()
}

// buildMessages assembles the generator prompt. productContext wins over the
// derived catalog context when both are present.
func buildMessages(companyContext, question string, productContext map[string]any, derived string) []llm.Message {
	if companyContext == "" {
		companyContext = DefaultCompanyContext
	}

	contextText := derived
	if len(productContext) > 0 {
		if raw, err := json.Marshal(productContext); err == nil {
			contextText = string(raw)
		}
	}
	if contextText == "" {
		contextText = "No specific product information found."
	}

	user := fmt.Sprintf("Customer question: %s\n\nProduct context:\n%s", question, contextText)
	return []llm.Message{
		{Role: llm.RoleSystem, Content: companyContext},
		{Role: llm.RoleUser, Content: user},
	}
}

// deriveContext summarizes the top lexical matches and the knowledge excerpt.
func deriveContext(products []catalog.ScoredResult, kb knowledge.Retrieval) string {
	var parts []string
	for i, r := range products {
		if i == contextProducts {
			break
		}
		p := r.Product
		line := fmt.Sprintf("- %s (%s): %s", p.Name, p.CategoryName, formatPrice(p.Price))
		if p.Description != "" {
			line += ". " + p.Description
		}
		parts = append(parts, line)
	}
	if kb.Excerpt != "" {
		parts = append(parts, kb.Excerpt)
	}
	return strings.Join(parts, "\n")
}

// acceptAnswer trims a generated answer and applies the length bounds.
func acceptAnswer(answer string) (string, bool) {
	answer = strings.TrimSpace(answer)
	if utf8.RuneCountInString(answer) < minAnswerRunes {
		return "", false
	}
	return truncateRunes(answer, maxAnswerRunes), true
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
