// Package render implements the content pipeline: the trust boundary between
// untrusted document text and insertable markup.
//
// A Render call runs, in order:
//
//  1. Extraction. HTML documents keep only their body. Markdown is converted
//     with goldmark (GFM, typographer, hard wraps, raw HTML passthrough).
//  2. Fence interception. mermaid fences become diagram placeholders and
//     chart, chartjs and chart-js fences become chart placeholders holding
//     the escaped raw source. Other fences are plain or highlighted code.
//  3. Sanitization with a bluemonday allow-list for the selected profile.
//  4. Local path resolution over an inert x/net/html fragment tree.
//
// Placeholders are materialized later by package blocks.
package render
