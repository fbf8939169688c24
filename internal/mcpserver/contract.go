package mcpserver

// NoteFormatContract describes the markdown note format and the notebook
// reference rules that LLM consumers should follow.
const NoteFormatContract = `# Neemee Note Format

Notes are markdown documents with optional YAML frontmatter.

## Structure

` + "```" + `markdown
---
title: Human-readable title        # OPTIONAL - derived from the first H1 when absent
tags:                              # OPTIONAL - YAML list of strings
  - tag-one
  - tag-two
---

Body text in standard Markdown.
` + "```" + `

## Rules

1. Frontmatter is optional. When present, the ` + "`---`" + ` fences must be the
   first thing in the content.
2. The note title comes from the ` + "`title`" + ` field, else the first H1
   heading, else it is empty. An explicit ` + "`title`" + ` tool argument
   overrides both.
3. ` + "`tags`" + ` must be a YAML list of strings; non-string entries are ignored.
4. Malformed frontmatter is not an error: the whole content is kept as body.

## Notebook references

Tools that take a ` + "`notebook`" + ` argument accept any of:

- the notebook id (25 lowercase alphanumerics starting with ` + "`cm`" + `),
- the full name (case-insensitive),
- a partial name or description fragment.

References are matched in that order. Search accepts references matching
several notebooks and searches all of them; create/update/delete require a
reference matching exactly one notebook and fail otherwise. Use
` + "`list_notebooks`" + ` to disambiguate.
`
