// Package export renders stored house statements as spreadsheet and PDF
// documents for download.
package export
