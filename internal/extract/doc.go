// Package extract turns a file on disk into text ready for chunking.
//
// Extractor is a capability interface: given a path it either returns a
// single flat text blob (extract_text) or, for paged formats such as
// PDF, an ordered sequence of pages (extract_pages). is_paged tells the
// caller which path to use so the orchestrator can partition discovered
// files into a parallel non-paged phase and a sequential paged phase
// without hard-coding any extension list itself.
//
// File-type classification lives entirely in this package: text and
// code by extension (or, for extensionless files, a UTF-8 sniff of the
// first 4 KiB), office formats via their ZIP/XML container, HTML by
// tag-stripping, images via a size-capped preprocessing step ahead of
// OCR, and PDF page-by-page.
package extract
