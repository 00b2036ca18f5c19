// Package toc builds the table of contents for the attached fragment.
//
// Rebuild scans h1 to h6 in document order, gives unlabeled headings the
// positional ids heading-0, heading-1 and so on, normalizes indentation so
// the shallowest heading sits at indent 0, and renders the outline into the
// sidebar region. Every rebuild disposes the previous viewport watch before
// observing the new headings. Link ids are re-sanitized independently of
// the markup sanitizer because heading ids come from the document author.
package toc
