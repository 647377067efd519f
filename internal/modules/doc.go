// Package modules provides the built-in modules: composition helpers
// (Meta, Where, Branch, Concat, OrderBy, Index, Paginate, AsParallel) and
// content modules (ReadFiles, FrontMatter, Markdown, Excerpt, Title,
// Fingerprint, WriteFiles). Registry builds them from configuration.
package modules
