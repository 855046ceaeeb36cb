// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	chromaStyles "github.com/alecthomas/chroma/v2/styles"
)

// =============================================================================
// FENCED CODE HIGHLIGHTING
// =============================================================================

// HighlightFences syntax-highlights the body of every ``` fenced block in
// text and leaves everything else alone. A fence without a language tag
// uses fallbackLang, then content detection. The fence lines are kept so
// the output still reads as Markdown.
func HighlightFences(text, fallbackLang string) string {
	if !strings.Contains(text, "```") {
		return text
	}

	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	var (
		inBlock bool
		lang    string
		code    []string
	)
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "```") {
			if inBlock {
				out = append(out, highlightCode(strings.Join(code, "\n"), lang), line)
				code, lang, inBlock = nil, "", false
				continue
			}
			lang = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "```"))
			if lang == "" {
				lang = fallbackLang
			}
			inBlock = true
			out = append(out, line)
			continue
		}
		if inBlock {
			code = append(code, line)
			continue
		}
		out = append(out, line)
	}

	// Unclosed fence: highlight what arrived.
	if inBlock && len(code) > 0 {
		out = append(out, highlightCode(strings.Join(code, "\n"), lang))
	}
	return strings.Join(out, "\n")
}

// highlightCode renders code with 256-color ANSI escapes. It returns code
// unchanged when chroma cannot tokenise it.
func highlightCode(code, language string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := chromaStyles.Get("monokai")
	if style == nil {
		style = chromaStyles.Fallback
	}
	formatter := formatters.Get("terminal256")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}
	var buf strings.Builder
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return code
	}
	return strings.TrimRight(buf.String(), "\n")
}
