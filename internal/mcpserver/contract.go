package mcpserver

// PageFormatContract describes the page source format and the metadata
// model that LLM consumers should follow when creating or tracking pages.
const PageFormatContract = `# Wikimeta Page Contract

## Page source

` + "```" + `markdown
---
title: Human-readable title   # OPTIONAL - defaults to the first heading
tags:                         # OPTIONAL - YAML list or "a, b" string
  - infra
  - roadmap
---

Body text in standard Markdown. Inline #tags are indexed as well.
` + "```" + `

## Page names

- Slash-separated words of letters, digits, space, '-' or '_' (e.g. ` + "`" + `Team/Roadmap` + "`" + `).
- No ` + "`" + `.md` + "`" + ` extension; the vault adds it.

## Metadata

Each page has one current metadata record:

- **owner**: user responsible for the page.
- **state**: one of ` + "`" + `planned` + "`" + `, ` + "`" + `nice to have` + "`" + `, ` + "`" + `current` + "`" + `, ` + "`" + `obsolete` + "`" + `.
- **priority**: rank number among planned pages. Planned ranks are always
  1..N without gaps; other states have priority 0. Planned listings are
  ordered by rank number, descending.

Every change appends a record; history is never rewritten except on rename.

## Tools

- ` + "`" + `list_pages` + "`" + ` filters by state (or ` + "`" + `all (non-obsolete)` + "`" + `), owner (or ` + "`" + `all` + "`" + `) and tags.
- ` + "`" + `reorder_priority` + "`" + ` moves the planned page at rank ` + "`" + `from` + "`" + ` to rank ` + "`" + `to` + "`" + `;
  the pages in between shift by one.
`
